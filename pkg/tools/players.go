package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pitchwire/pitchwire/pkg/search"
	"github.com/pitchwire/pitchwire/pkg/store"
)

// PlayerSource is the slice of the store the player tool needs.
type PlayerSource interface {
	SearchPlayersByName(ctx context.Context, name string) ([]*store.Player, error)
}

// PlayerStatsTool looks up a player, enriches the profile with live FPL
// statistics, and appends recent news mentions.
type PlayerStatsTool struct {
	players PlayerSource
	fpl     *FPLClient
	search  Searcher
	logger  *slog.Logger
	now     func() time.Time
}

func NewPlayerStatsTool(players PlayerSource, fpl *FPLClient, searcher Searcher, logger *slog.Logger) *PlayerStatsTool {
	return &PlayerStatsTool{
		players: players,
		fpl:     fpl,
		search:  searcher,
		logger:  logger.With("tool", "player_stats"),
		now:     time.Now,
	}
}

func (t *PlayerStatsTool) Name() string { return "player_stats" }

func (t *PlayerStatsTool) Description() string {
	return "Get profile information, live FPL statistics, and recent news for a specific football player. Use the player's full name."
}

func (t *PlayerStatsTool) ParametersSchema() string {
	return `{"type":"object","properties":{"player_name":{"type":"string","description":"Full name of the player to look up"}},"required":["player_name"]}`
}

func (t *PlayerStatsTool) Execute(ctx context.Context, arguments string) (string, error) {
	var args struct {
		PlayerName string `json:"player_name"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", fmt.Errorf("parse arguments: %w", err)
	}
	name := strings.TrimSpace(args.PlayerName)

	players, err := t.players.SearchPlayersByName(ctx, name)
	if err != nil {
		return "", fmt.Errorf("player lookup: %w", err)
	}

	if len(players) == 0 {
		return fmt.Sprintf("Player '%s' not found in database. Please check the spelling or try a different name.", name), nil
	}
	if len(players) > 1 {
		var b strings.Builder
		fmt.Fprintf(&b, "Multiple players found for '%s':\n", name)
		for i, p := range players {
			if i >= 5 {
				break
			}
			fmt.Fprintf(&b, "- %s (%s, %s)\n", p.Name, orUnknown(p.TeamName), orUnknown(p.Position))
		}
		b.WriteString("\nPlease be more specific with the player name.")
		return b.String(), nil
	}

	player := players[0]
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n", player.Name)
	fmt.Fprintf(&b, "Position: %s\n", orUnknown(player.Position))
	fmt.Fprintf(&b, "Team: %s\n", orUnknown(player.TeamName))
	fmt.Fprintf(&b, "Status: %s\n", player.Status)
	fmt.Fprintf(&b, "Nationality: %s\n", orUnknown(player.Nationality))
	fmt.Fprintf(&b, "Age: %s\n", t.age(player.BirthDate))

	t.appendFPLStats(ctx, &b, player.Name)
	t.appendRecentNews(ctx, &b, player)

	return b.String(), nil
}

func (t *PlayerStatsTool) appendFPLStats(ctx context.Context, b *strings.Builder, name string) {
	element, err := t.fpl.FindPlayer(ctx, name)
	if err != nil {
		t.logger.Warn("FPL stats unavailable", "player", name, "error", err)
		b.WriteString("\n*Note: Live FPL statistics unavailable*\n")
		return
	}
	if element == nil {
		return
	}

	b.WriteString("\n**FPL Statistics (Current Season):**\n")
	fmt.Fprintf(b, "Price: £%.1fm\n", float64(element.NowCost)/10)
	fmt.Fprintf(b, "Total Points: %d\n", element.TotalPoints)
	fmt.Fprintf(b, "Goals: %d\n", element.GoalsScored)
	fmt.Fprintf(b, "Assists: %d\n", element.Assists)
	fmt.Fprintf(b, "Clean Sheets: %d\n", element.CleanSheets)
	fmt.Fprintf(b, "Minutes Played: %d\n", element.Minutes)
	fmt.Fprintf(b, "Yellow Cards: %d\n", element.YellowCards)
	fmt.Fprintf(b, "Red Cards: %d\n", element.RedCards)
	fmt.Fprintf(b, "Form: %s\n", element.Form)
	fmt.Fprintf(b, "Points per Game: %s\n", element.PointsPerGame)
	if element.ElementType == 1 {
		fmt.Fprintf(b, "Saves: %d\n", element.Saves)
		fmt.Fprintf(b, "Goals Conceded: %d\n", element.GoalsConceded)
	}
}

func (t *PlayerStatsTool) appendRecentNews(ctx context.Context, b *strings.Builder, player *store.Player) {
	query := player.Name
	if player.TeamName != nil {
		query += " " + *player.TeamName
	}

	results, err := t.search.Search(ctx, query, search.Options{
		FinalK:   3,
		Strategy: search.StrategyTemporal,
	})
	if err != nil || len(results) == 0 {
		return
	}

	b.WriteString("\n**Recent News:**\n")
	for i, r := range results {
		if i >= 2 {
			break
		}
		a := r.Article
		fmt.Fprintf(b, "- %s (%s, %s)\n", a.Title, a.Source, a.PublishedDate.Format("2006-01-02"))
	}
}

func (t *PlayerStatsTool) age(birth *time.Time) string {
	if birth == nil {
		return "Unknown"
	}
	now := t.now()
	years := now.Year() - birth.Year()
	if now.YearDay() < birth.YearDay() {
		years--
	}
	return fmt.Sprintf("%d", years)
}

func orUnknown(s *string) string {
	if s == nil || *s == "" {
		return "Unknown"
	}
	return *s
}
