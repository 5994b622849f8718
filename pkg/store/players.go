package store

import (
	"context"
	"fmt"
	"time"
)

// Player is a player row with its team name joined in.
type Player struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Position    *string    `json:"position,omitempty"`
	Nationality *string    `json:"nationality,omitempty"`
	BirthDate   *time.Time `json:"birth_date,omitempty"`
	TeamName    *string    `json:"team,omitempty"`
	Status      string     `json:"status"`
}

// SearchPlayersByName finds players whose name contains the query,
// case-insensitively, ordered by name.
func (c *Client) SearchPlayersByName(ctx context.Context, name string) ([]*Player, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT p.id, p.name, p.position, p.nationality, p.birth_date, t.name, p.status
		 FROM player p
		 LEFT JOIN team t ON t.id = p.team_id
		 WHERE p.name ILIKE '%' || $1 || '%' AND p.is_deleted = FALSE
		 ORDER BY p.name`, name)
	if err != nil {
		return nil, fmt.Errorf("search players: %w", err)
	}
	defer rows.Close()

	var out []*Player
	for rows.Next() {
		var p Player
		if err := rows.Scan(&p.ID, &p.Name, &p.Position, &p.Nationality, &p.BirthDate, &p.TeamName, &p.Status); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
