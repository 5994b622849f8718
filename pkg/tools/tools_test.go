package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitchwire/pitchwire/pkg/search"
	"github.com/pitchwire/pitchwire/pkg/store"
)

type fakeSearcher struct {
	results []search.Ranked
	err     error
	queries []string
	opts    []search.Options
}

func (f *fakeSearcher) Search(ctx context.Context, query string, opts search.Options) ([]search.Ranked, error) {
	f.queries = append(f.queries, query)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type fakePlayerSource struct {
	players []*store.Player
	err     error
}

func (f *fakePlayerSource) SearchPlayersByName(ctx context.Context, name string) ([]*store.Player, error) {
	return f.players, f.err
}

func rankedArticle(title, source, content string, score float64) search.Ranked {
	return search.Ranked{
		Article: &store.Article{
			Title:         title,
			URL:           "https://example.com/" + strings.ReplaceAll(strings.ToLower(title), " ", "-"),
			Content:       content,
			Source:        source,
			PublishedDate: time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC),
		},
		FinalScore: score,
	}
}

func strPtr(s string) *string { return &s }

func TestNewsSearchTool_FormatsTopThree(t *testing.T) {
	searcher := &fakeSearcher{results: []search.Ranked{
		rankedArticle("Arsenal win derby", "BBC Sport", "Arsenal beat Tottenham 3-1 at the Emirates.", 0.91),
		rankedArticle("Transfer latest", "Sky Sports", "The window closes next week.", 0.85),
		rankedArticle("Injury update", "ESPN", "Two starters are doubts.", 0.72),
		rankedArticle("Fourth story", "Guardian", "Should not appear.", 0.60),
	}}
	tool := NewNewsSearchTool(searcher, slog.Default())

	out, err := tool.Execute(context.Background(), `{"query":"arsenal"}`)
	require.NoError(t, err)

	assert.Contains(t, out, "**Arsenal win derby**")
	assert.Contains(t, out, "Source: BBC Sport")
	assert.Contains(t, out, "Date: 2025-08-10")
	assert.Contains(t, out, "Relevance: 0.91")
	assert.Contains(t, out, "Summary: Arsenal beat Tottenham 3-1 at the Emirates....")
	assert.Contains(t, out, "**Injury update**")
	assert.NotContains(t, out, "Fourth story")

	require.Len(t, searcher.opts, 1)
	assert.Equal(t, 5, searcher.opts[0].FinalK)
	assert.Equal(t, search.StrategyHybrid, searcher.opts[0].Strategy)
}

func TestNewsSearchTool_NoResults(t *testing.T) {
	tool := NewNewsSearchTool(&fakeSearcher{}, slog.Default())

	out, err := tool.Execute(context.Background(), `{"query":"obscure topic"}`)
	require.NoError(t, err)
	assert.Equal(t, "No relevant articles found for: obscure topic", out)
}

func TestNewsSearchTool_SearchError(t *testing.T) {
	tool := NewNewsSearchTool(&fakeSearcher{err: errors.New("index down")}, slog.Default())

	_, err := tool.Execute(context.Background(), `{"query":"arsenal"}`)
	assert.ErrorContains(t, err, "index down")
}

func newFPLServer(t *testing.T, body string) (*FPLClient, *int) {
	t.Helper()
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, "/bootstrap-static/", r.URL.Path)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return NewFPLClient(srv.URL, slog.Default()), &hits
}

const fplBody = `{"elements":[
	{"first_name":"Bukayo","second_name":"Saka","element_type":3,"now_cost":102,
	 "total_points":212,"goals_scored":14,"assists":11,"clean_sheets":10,"minutes":3012,
	 "yellow_cards":4,"red_cards":0,"form":"7.2","points_per_game":"5.9","saves":0,"goals_conceded":0},
	{"first_name":"David","second_name":"Raya","element_type":1,"now_cost":55,
	 "total_points":140,"goals_scored":0,"assists":1,"clean_sheets":16,"minutes":3420,
	 "yellow_cards":1,"red_cards":0,"form":"4.1","points_per_game":"3.7","saves":101,"goals_conceded":28}
]}`

func TestFPLClient_FindPlayerAndCache(t *testing.T) {
	client, hits := newFPLServer(t, fplBody)

	el, err := client.FindPlayer(context.Background(), "Bukayo Saka")
	require.NoError(t, err)
	require.NotNil(t, el)
	assert.Equal(t, 102, el.NowCost)

	// Second lookup is served from cache.
	el, err = client.FindPlayer(context.Background(), "david raya")
	require.NoError(t, err)
	require.NotNil(t, el)
	assert.Equal(t, 1, el.ElementType)
	assert.Equal(t, 1, *hits)

	el, err = client.FindPlayer(context.Background(), "Unknown Player")
	require.NoError(t, err)
	assert.Nil(t, el)
}

func TestPlayerStatsTool_NotFound(t *testing.T) {
	fpl, _ := newFPLServer(t, fplBody)
	tool := NewPlayerStatsTool(&fakePlayerSource{}, fpl, &fakeSearcher{}, slog.Default())

	out, err := tool.Execute(context.Background(), `{"player_name":"Nobody"}`)
	require.NoError(t, err)
	assert.Equal(t, "Player 'Nobody' not found in database. Please check the spelling or try a different name.", out)
}

func TestPlayerStatsTool_Ambiguous(t *testing.T) {
	fpl, _ := newFPLServer(t, fplBody)
	players := &fakePlayerSource{players: []*store.Player{
		{Name: "James Maddison", TeamName: strPtr("Tottenham"), Position: strPtr("Midfielder")},
		{Name: "James Milner", TeamName: strPtr("Brighton"), Position: strPtr("Midfielder")},
	}}
	tool := NewPlayerStatsTool(players, fpl, &fakeSearcher{}, slog.Default())

	out, err := tool.Execute(context.Background(), `{"player_name":"James"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "Multiple players found for 'James':")
	assert.Contains(t, out, "- James Maddison (Tottenham, Midfielder)")
	assert.Contains(t, out, "- James Milner (Brighton, Midfielder)")
	assert.Contains(t, out, "Please be more specific with the player name.")
}

func TestPlayerStatsTool_SingleWithFPLAndNews(t *testing.T) {
	fpl, _ := newFPLServer(t, fplBody)
	birth := time.Date(2001, 9, 5, 0, 0, 0, 0, time.UTC)
	players := &fakePlayerSource{players: []*store.Player{{
		Name:        "Bukayo Saka",
		Position:    strPtr("Winger"),
		Nationality: strPtr("England"),
		BirthDate:   &birth,
		TeamName:    strPtr("Arsenal"),
		Status:      "active",
	}}}
	searcher := &fakeSearcher{results: []search.Ranked{
		rankedArticle("Saka shines again", "BBC Sport", "Another strong outing.", 0.9),
		rankedArticle("Arsenal team news", "Sky Sports", "Rotation expected.", 0.8),
		rankedArticle("Third story", "ESPN", "Should not appear.", 0.7),
	}}
	tool := NewPlayerStatsTool(players, fpl, searcher, slog.Default())
	tool.now = func() time.Time { return time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC) }

	out, err := tool.Execute(context.Background(), `{"player_name":"Saka"}`)
	require.NoError(t, err)

	assert.Contains(t, out, "**Bukayo Saka**")
	assert.Contains(t, out, "Position: Winger")
	assert.Contains(t, out, "Team: Arsenal")
	assert.Contains(t, out, "Age: 23")
	assert.Contains(t, out, "**FPL Statistics (Current Season):**")
	assert.Contains(t, out, "Price: £10.2m")
	assert.Contains(t, out, "Total Points: 212")
	assert.NotContains(t, out, "Saves:")
	assert.Contains(t, out, "**Recent News:**")
	assert.Contains(t, out, "- Saka shines again (BBC Sport, 2025-08-10)")
	assert.NotContains(t, out, "Third story")

	require.Len(t, searcher.queries, 1)
	assert.Equal(t, "Bukayo Saka Arsenal", searcher.queries[0])
	assert.Equal(t, search.StrategyTemporal, searcher.opts[0].Strategy)
}

func TestPlayerStatsTool_GoalkeeperLines(t *testing.T) {
	fpl, _ := newFPLServer(t, fplBody)
	players := &fakePlayerSource{players: []*store.Player{{
		Name:   "David Raya",
		Status: "active",
	}}}
	tool := NewPlayerStatsTool(players, fpl, &fakeSearcher{}, slog.Default())

	out, err := tool.Execute(context.Background(), `{"player_name":"Raya"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "Saves: 101")
	assert.Contains(t, out, "Goals Conceded: 28")
	assert.Contains(t, out, "Age: Unknown")
}

func TestPlayerStatsTool_FPLUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	fpl := NewFPLClient(srv.URL, slog.Default())

	players := &fakePlayerSource{players: []*store.Player{{Name: "Bukayo Saka", Status: "active"}}}
	tool := NewPlayerStatsTool(players, fpl, &fakeSearcher{}, slog.Default())

	out, err := tool.Execute(context.Background(), `{"player_name":"Saka"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "*Note: Live FPL statistics unavailable*")
}

func TestFPLAnalysisTool_FiltersAndFormats(t *testing.T) {
	searcher := &fakeSearcher{results: []search.Ranked{
		rankedArticle("Fantasy picks for GW3", "Fantasy Football Scout", "Captaincy options this week.", 0.9),
		rankedArticle("Plain match report", "BBC Sport", "Nothing about the fantasy game here.", 0.8),
		rankedArticle("Budget options", "Sky Sports", "Great FPL value in defence.", 0.7),
	}}
	tool := NewFPLAnalysisTool(searcher, slog.Default())

	out, err := tool.Execute(context.Background(), `{"query":"saka"}`)
	require.NoError(t, err)

	assert.Contains(t, out, "FPL Analysis: Fantasy picks for GW3")
	assert.Contains(t, out, "Key points: Captaincy options this week....")
	assert.Contains(t, out, "FPL Analysis: Budget options")
	assert.NotContains(t, out, "Plain match report")

	require.Len(t, searcher.queries, 1)
	assert.Equal(t, "saka FPL fantasy premier league value price", searcher.queries[0])
}

func TestFPLAnalysisTool_NoMatches(t *testing.T) {
	searcher := &fakeSearcher{results: []search.Ranked{
		rankedArticle("Plain match report", "BBC Sport", "Nothing relevant.", 0.8),
	}}
	tool := NewFPLAnalysisTool(searcher, slog.Default())

	out, err := tool.Execute(context.Background(), `{"query":"saka"}`)
	require.NoError(t, err)
	assert.Equal(t, "No specific FPL analysis found for: saka. Consider checking recent performance and injury news.", out)
}

func TestRegistry_Dispatch(t *testing.T) {
	searcher := &fakeSearcher{}
	news := NewNewsSearchTool(searcher, slog.Default())
	reg := NewRegistry(news)

	defs := reg.Definitions()
	require.Len(t, defs, 1)
	assert.Equal(t, "football_news_search", defs[0].Name)

	out, err := reg.Execute(context.Background(), "football_news_search", `{"query":"x"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "No relevant articles found")

	_, err = reg.Execute(context.Background(), "missing_tool", `{}`)
	assert.ErrorContains(t, err, "unknown tool")
}
