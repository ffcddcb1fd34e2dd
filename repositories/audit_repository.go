package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/chalkline/league-system/models"
)

var ErrAuditNotFound = errors.New("finalize audit record not found")

type AuditRepository interface {
	Create(ctx context.Context, exec SQLExecutor, audit *models.FinalizeAudit) error
	GetBySlot(ctx context.Context, exec SQLExecutor, slotID int) (*models.FinalizeAudit, error)
	DeleteBySlot(ctx context.Context, exec SQLExecutor, slotID int) error
}

type postgresAuditRepository struct {
	db *sql.DB
}

func NewPostgresAuditRepository(db *sql.DB) AuditRepository {
	return &postgresAuditRepository{db: db}
}

func (r *postgresAuditRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresAuditRepository) Create(ctx context.Context, exec SQLExecutor, audit *models.FinalizeAudit) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO finalize_audits
			(slot_id, rating_p1, confidence_p1, rating_p2, confidence_p2, winner_id,
			 expected_win_prob_p1, base_delta, scaled_delta_p1, scaled_delta_p2,
			 final_delta_p1, final_delta_p2,
			 confidence_inc_p1, confidence_inc_p2, racks_played_inc, racks_won_p1, racks_won_p2,
			 break_and_runs_p1, rack_and_runs_p1, snap_wins_p1, early_wins_p1,
			 break_and_runs_p2, rack_and_runs_p2, snap_wins_p2, early_wins_p2)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
		        $18, $19, $20, $21, $22, $23, $24, $25)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		audit.SlotID,
		audit.RatingP1, audit.ConfidenceP1, audit.RatingP2, audit.ConfidenceP2, audit.WinnerID,
		audit.ExpectedWinProbP1, audit.BaseDelta, audit.ScaledDeltaP1, audit.ScaledDeltaP2,
		audit.FinalDeltaP1, audit.FinalDeltaP2,
		audit.ConfidenceIncP1, audit.ConfidenceIncP2, audit.RacksPlayedInc, audit.RacksWonP1, audit.RacksWonP2,
		audit.CountersP1.BreakAndRuns, audit.CountersP1.RackAndRuns, audit.CountersP1.SnapWins, audit.CountersP1.EarlyWins,
		audit.CountersP2.BreakAndRuns, audit.CountersP2.RackAndRuns, audit.CountersP2.SnapWins, audit.CountersP2.EarlyWins,
	).Scan(&audit.ID, &audit.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create finalize audit for slot %d: %w", audit.SlotID, err)
	}
	return nil
}

func (r *postgresAuditRepository) GetBySlot(ctx context.Context, exec SQLExecutor, slotID int) (*models.FinalizeAudit, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, slot_id, rating_p1, confidence_p1, rating_p2, confidence_p2, winner_id,
		       expected_win_prob_p1, base_delta, scaled_delta_p1, scaled_delta_p2,
		       final_delta_p1, final_delta_p2,
		       confidence_inc_p1, confidence_inc_p2, racks_played_inc, racks_won_p1, racks_won_p2,
		       break_and_runs_p1, rack_and_runs_p1, snap_wins_p1, early_wins_p1,
		       break_and_runs_p2, rack_and_runs_p2, snap_wins_p2, early_wins_p2,
		       created_at
		FROM finalize_audits
		WHERE slot_id = $1`

	var a models.FinalizeAudit
	err := executor.QueryRowContext(ctx, query, slotID).Scan(
		&a.ID, &a.SlotID, &a.RatingP1, &a.ConfidenceP1, &a.RatingP2, &a.ConfidenceP2, &a.WinnerID,
		&a.ExpectedWinProbP1, &a.BaseDelta, &a.ScaledDeltaP1, &a.ScaledDeltaP2,
		&a.FinalDeltaP1, &a.FinalDeltaP2,
		&a.ConfidenceIncP1, &a.ConfidenceIncP2, &a.RacksPlayedInc, &a.RacksWonP1, &a.RacksWonP2,
		&a.CountersP1.BreakAndRuns, &a.CountersP1.RackAndRuns, &a.CountersP1.SnapWins, &a.CountersP1.EarlyWins,
		&a.CountersP2.BreakAndRuns, &a.CountersP2.RackAndRuns, &a.CountersP2.SnapWins, &a.CountersP2.EarlyWins,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAuditNotFound
		}
		return nil, fmt.Errorf("failed to scan finalize audit for slot %d: %w", slotID, err)
	}
	return &a, nil
}

func (r *postgresAuditRepository) DeleteBySlot(ctx context.Context, exec SQLExecutor, slotID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM finalize_audits WHERE slot_id = $1`, slotID)
	if err != nil {
		return fmt.Errorf("failed to delete finalize audit for slot %d: %w", slotID, err)
	}
	return nil
}
