package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/chalkline/league-system/models"
)

var (
	ErrSlotNotFound = errors.New("match slot not found")
	// Условное обновление не затронуло ни одной строки — слот не в том статусе.
	ErrSlotStateConflict = errors.New("match slot is not in the expected status")
)

type SlotRepository interface {
	Create(ctx context.Context, exec SQLExecutor, slot *models.MatchSlot) error
	GetByMatchAndDiscipline(ctx context.Context, exec SQLExecutor, matchID int, discipline models.Discipline) (*models.MatchSlot, error)
	// GetForUpdate locks the slot row for the duration of the surrounding
	// transaction. Reconciliation and finalization serialize on this lock.
	GetForUpdate(ctx context.Context, tx *sql.Tx, matchID int, discipline models.Discipline) (*models.MatchSlot, error)
	ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]models.MatchSlot, error)
	MarkStarted(ctx context.Context, exec SQLExecutor, slot *models.MatchSlot) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, slotID int, from, to models.SlotStatus) error
	MarkFinalized(ctx context.Context, exec SQLExecutor, slotID int, scoreP1, scoreP2, winnerID int) error
	ResetToScheduled(ctx context.Context, exec SQLExecutor, slotID int) error
}

type postgresSlotRepository struct {
	db *sql.DB
}

func NewPostgresSlotRepository(db *sql.DB) SlotRepository {
	return &postgresSlotRepository{db: db}
}

func (r *postgresSlotRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const slotColumns = `
	id, match_id, discipline, status, race_length,
	race_target_p1, race_target_p2,
	rating_p1, confidence_p1, rating_p2, confidence_p2,
	score_p1, score_p2, winner_id, created_at, updated_at`

func (r *postgresSlotRepository) Create(ctx context.Context, exec SQLExecutor, slot *models.MatchSlot) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO match_slots (match_id, discipline, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	err := executor.QueryRowContext(ctx, query,
		slot.MatchID,
		slot.Discipline,
		slot.Status,
	).Scan(&slot.ID, &slot.CreatedAt, &slot.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create slot for match %d (%s): %w", slot.MatchID, slot.Discipline, err)
	}
	return nil
}

func (r *postgresSlotRepository) GetByMatchAndDiscipline(ctx context.Context, exec SQLExecutor, matchID int, discipline models.Discipline) (*models.MatchSlot, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + slotColumns + `FROM match_slots WHERE match_id = $1 AND discipline = $2`
	return r.scanSlot(executor.QueryRowContext(ctx, query, matchID, discipline))
}

func (r *postgresSlotRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, matchID int, discipline models.Discipline) (*models.MatchSlot, error) {
	query := `SELECT` + slotColumns + `FROM match_slots WHERE match_id = $1 AND discipline = $2 FOR UPDATE`
	return r.scanSlot(tx.QueryRowContext(ctx, query, matchID, discipline))
}

func (r *postgresSlotRepository) ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]models.MatchSlot, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + slotColumns + `FROM match_slots WHERE match_id = $1 ORDER BY discipline`

	rows, err := executor.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query slots for match %d: %w", matchID, err)
	}
	defer rows.Close()

	slots := make([]models.MatchSlot, 0, 2)
	for rows.Next() {
		slot, scanErr := r.scanSlotRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		slots = append(slots, *slot)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during slot rows iteration: %w", err)
	}
	return slots, nil
}

// MarkStarted записывает race targets и замороженные рейтинги ровно один раз:
// обновление условное по статусу scheduled.
func (r *postgresSlotRepository) MarkStarted(ctx context.Context, exec SQLExecutor, slot *models.MatchSlot) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE match_slots
		SET status = $1, race_length = $2,
		    race_target_p1 = $3, race_target_p2 = $4,
		    rating_p1 = $5, confidence_p1 = $6, rating_p2 = $7, confidence_p2 = $8,
		    updated_at = NOW()
		WHERE id = $9 AND status = $10`

	result, err := executor.ExecContext(ctx, query,
		models.SlotStatusInProgress,
		slot.RaceLength,
		slot.RaceTargetP1, slot.RaceTargetP2,
		slot.RatingP1, slot.ConfidenceP1, slot.RatingP2, slot.ConfidenceP2,
		slot.ID,
		models.SlotStatusScheduled,
	)
	if err != nil {
		return fmt.Errorf("failed to mark slot %d started: %w", slot.ID, err)
	}
	return checkAffectedRows(result, ErrSlotStateConflict)
}

func (r *postgresSlotRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, slotID int, from, to models.SlotStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE match_slots SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`
	result, err := executor.ExecContext(ctx, query, to, slotID, from)
	if err != nil {
		return fmt.Errorf("failed to update slot %d status %s -> %s: %w", slotID, from, to, err)
	}
	return checkAffectedRows(result, ErrSlotStateConflict)
}

// MarkFinalized is the idempotency guard: the status predicate makes a
// second concurrent finalize affect zero rows instead of racing.
func (r *postgresSlotRepository) MarkFinalized(ctx context.Context, exec SQLExecutor, slotID int, scoreP1, scoreP2, winnerID int) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE match_slots
		SET status = $1, score_p1 = $2, score_p2 = $3, winner_id = $4, updated_at = NOW()
		WHERE id = $5 AND status <> $1`

	result, err := executor.ExecContext(ctx, query,
		models.SlotStatusFinalized, scoreP1, scoreP2, winnerID, slotID,
	)
	if err != nil {
		return fmt.Errorf("failed to finalize slot %d: %w", slotID, err)
	}
	return checkAffectedRows(result, ErrSlotStateConflict)
}

// ResetToScheduled возвращает слот к состоянию до старта: статус, цели,
// замороженные рейтинги и результат очищаются одним условным обновлением.
func (r *postgresSlotRepository) ResetToScheduled(ctx context.Context, exec SQLExecutor, slotID int) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE match_slots
		SET status = $1, race_length = NULL,
		    race_target_p1 = NULL, race_target_p2 = NULL,
		    rating_p1 = NULL, confidence_p1 = NULL, rating_p2 = NULL, confidence_p2 = NULL,
		    score_p1 = NULL, score_p2 = NULL, winner_id = NULL,
		    updated_at = NOW()
		WHERE id = $2 AND status = $3`

	result, err := executor.ExecContext(ctx, query,
		models.SlotStatusScheduled, slotID, models.SlotStatusFinalized,
	)
	if err != nil {
		return fmt.Errorf("failed to reset slot %d: %w", slotID, err)
	}
	return checkAffectedRows(result, ErrSlotStateConflict)
}

func (r *postgresSlotRepository) scanSlot(row *sql.Row) (*models.MatchSlot, error) {
	slot := &models.MatchSlot{}
	err := row.Scan(
		&slot.ID,
		&slot.MatchID,
		&slot.Discipline,
		&slot.Status,
		&slot.RaceLength,
		&slot.RaceTargetP1,
		&slot.RaceTargetP2,
		&slot.RatingP1,
		&slot.ConfidenceP1,
		&slot.RatingP2,
		&slot.ConfidenceP2,
		&slot.ScoreP1,
		&slot.ScoreP2,
		&slot.WinnerID,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("failed to scan match slot: %w", err)
	}
	return slot, nil
}

func (r *postgresSlotRepository) scanSlotRow(rows *sql.Rows) (*models.MatchSlot, error) {
	slot := &models.MatchSlot{}
	err := rows.Scan(
		&slot.ID,
		&slot.MatchID,
		&slot.Discipline,
		&slot.Status,
		&slot.RaceLength,
		&slot.RaceTargetP1,
		&slot.RaceTargetP2,
		&slot.RatingP1,
		&slot.ConfidenceP1,
		&slot.RatingP2,
		&slot.ConfidenceP2,
		&slot.ScoreP1,
		&slot.ScoreP2,
		&slot.WinnerID,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan match slot row: %w", err)
	}
	return slot, nil
}
