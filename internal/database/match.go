// internal/database/match.go
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/moonhollow/werewolf-service/internal/models"
)

// RecordMatchResult archives a finished match: one row for the outcome, one
// per seated player with their role and whether they survived. Upserts keyed
// by lobby id so a retried archive never duplicates rows.
func RecordMatchResult(ctx context.Context, lobbyID, winner string, dayNum int, players []models.Player) error {
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertMatch := `
			INSERT INTO matches (lobby_id, winner, day_count, finished_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (lobby_id) DO UPDATE SET winner = $2, day_count = $3, finished_at = now()
		`
		if _, e := tx.Exec(ctx, upsertMatch, lobbyID, winner, dayNum); e != nil {
			return e
		}

		for _, p := range players {
			q := `
				INSERT INTO match_players (lobby_id, player_id, player_name, role, survived)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (lobby_id, player_id)
				DO UPDATE SET player_name = $3, role = $4, survived = $5
			`
			if _, e := tx.Exec(ctx, q, lobbyID, p.ID, p.Name, string(p.Role), p.Alive); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx upsert match or players: %w", err)
	}
	return nil
}
