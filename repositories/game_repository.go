package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/chalkline/league-system/models"
)

type GameRepository interface {
	// BatchCreate is only ever called inside the finalization transaction.
	BatchCreate(ctx context.Context, exec SQLExecutor, games []*models.Game) error
	ListBySlot(ctx context.Context, exec SQLExecutor, slotID int) ([]*models.Game, error)
	DeleteBySlot(ctx context.Context, exec SQLExecutor, slotID int) error
}

type postgresGameRepository struct {
	db *sql.DB
}

func NewPostgresGameRepository(db *sql.DB) GameRepository {
	return &postgresGameRepository{db: db}
}

func (r *postgresGameRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresGameRepository) BatchCreate(ctx context.Context, exec SQLExecutor, games []*models.Game) error {
	executor := r.getExecutor(exec)
	if len(games) == 0 {
		return nil
	}

	query := `
		INSERT INTO games (slot_id, game_number, winner_id, break_and_run, rack_and_run, snap_win, early_win)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	for _, game := range games {
		err := executor.QueryRowContext(ctx, query,
			game.SlotID,
			game.GameNumber,
			game.WinnerID,
			game.Achievements.BreakAndRun,
			game.Achievements.RackAndRun,
			game.Achievements.SnapWin,
			game.Achievements.EarlyWin,
		).Scan(&game.ID, &game.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create game %d for slot %d: %w", game.GameNumber, game.SlotID, err)
		}
	}
	return nil
}

func (r *postgresGameRepository) ListBySlot(ctx context.Context, exec SQLExecutor, slotID int) ([]*models.Game, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, slot_id, game_number, winner_id, break_and_run, rack_and_run, snap_win, early_win, created_at
		FROM games
		WHERE slot_id = $1
		ORDER BY game_number`

	rows, err := executor.QueryContext(ctx, query, slotID)
	if err != nil {
		return nil, fmt.Errorf("failed to query games for slot %d: %w", slotID, err)
	}
	defer rows.Close()

	games := make([]*models.Game, 0)
	for rows.Next() {
		var g models.Game
		if scanErr := rows.Scan(
			&g.ID, &g.SlotID, &g.GameNumber, &g.WinnerID,
			&g.Achievements.BreakAndRun, &g.Achievements.RackAndRun,
			&g.Achievements.SnapWin, &g.Achievements.EarlyWin,
			&g.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan game row: %w", scanErr)
		}
		games = append(games, &g)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during game rows iteration: %w", err)
	}
	return games, nil
}

func (r *postgresGameRepository) DeleteBySlot(ctx context.Context, exec SQLExecutor, slotID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM games WHERE slot_id = $1`, slotID)
	if err != nil {
		return fmt.Errorf("failed to delete games for slot %d: %w", slotID, err)
	}
	return nil
}
