package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/chalkline/league-system/models"
)

var ErrSubmissionNotFound = errors.New("submission not found")

type SubmissionRepository interface {
	// Upsert replaces the submitter's previous scorecard for the slot, if
	// any. Submissions are owned by their submitter and never merged.
	Upsert(ctx context.Context, exec SQLExecutor, submission *models.Submission) error
	GetBySlotAndSubmitter(ctx context.Context, exec SQLExecutor, slotID, submitterID int) (*models.Submission, error)
	ListBySlot(ctx context.Context, exec SQLExecutor, slotID int) ([]*models.Submission, error)
	SetEvidenceKey(ctx context.Context, slotID, submitterID int, key string) error
	DeleteBySlot(ctx context.Context, exec SQLExecutor, slotID int) error
}

type postgresSubmissionRepository struct {
	db *sql.DB
}

func NewPostgresSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &postgresSubmissionRepository{db: db}
}

func (r *postgresSubmissionRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresSubmissionRepository) Upsert(ctx context.Context, exec SQLExecutor, submission *models.Submission) error {
	executor := r.getExecutor(exec)

	gamesRaw, err := json.Marshal(submission.Games)
	if err != nil {
		return fmt.Errorf("failed to marshal submission games: %w", err)
	}

	query := `
		INSERT INTO submissions (slot_id, submitted_by, score_p1, score_p2, winner_id, games, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (slot_id, submitted_by) DO UPDATE SET
			score_p1 = EXCLUDED.score_p1,
			score_p2 = EXCLUDED.score_p2,
			winner_id = EXCLUDED.winner_id,
			games = EXCLUDED.games,
			submitted_at = EXCLUDED.submitted_at
		RETURNING id, submitted_at`

	err = executor.QueryRowContext(ctx, query,
		submission.SlotID,
		submission.SubmittedBy,
		submission.ScoreP1,
		submission.ScoreP2,
		submission.WinnerID,
		gamesRaw,
	).Scan(&submission.ID, &submission.SubmittedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert submission for slot %d by %d: %w", submission.SlotID, submission.SubmittedBy, err)
	}
	return nil
}

func (r *postgresSubmissionRepository) GetBySlotAndSubmitter(ctx context.Context, exec SQLExecutor, slotID, submitterID int) (*models.Submission, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, slot_id, submitted_by, score_p1, score_p2, winner_id, games, evidence_key, submitted_at
		FROM submissions
		WHERE slot_id = $1 AND submitted_by = $2`
	return r.scanSubmission(executor.QueryRowContext(ctx, query, slotID, submitterID))
}

func (r *postgresSubmissionRepository) ListBySlot(ctx context.Context, exec SQLExecutor, slotID int) ([]*models.Submission, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, slot_id, submitted_by, score_p1, score_p2, winner_id, games, evidence_key, submitted_at
		FROM submissions
		WHERE slot_id = $1
		ORDER BY submitted_at`

	rows, err := executor.QueryContext(ctx, query, slotID)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions for slot %d: %w", slotID, err)
	}
	defer rows.Close()

	submissions := make([]*models.Submission, 0, 2)
	for rows.Next() {
		var (
			s        models.Submission
			gamesRaw []byte
		)
		if scanErr := rows.Scan(
			&s.ID, &s.SlotID, &s.SubmittedBy, &s.ScoreP1, &s.ScoreP2,
			&s.WinnerID, &gamesRaw, &s.EvidenceKey, &s.SubmittedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan submission row: %w", scanErr)
		}
		if err := json.Unmarshal(gamesRaw, &s.Games); err != nil {
			return nil, fmt.Errorf("failed to unmarshal games for submission %d: %w", s.ID, err)
		}
		submissions = append(submissions, &s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during submission rows iteration: %w", err)
	}
	return submissions, nil
}

func (r *postgresSubmissionRepository) SetEvidenceKey(ctx context.Context, slotID, submitterID int, key string) error {
	query := `UPDATE submissions SET evidence_key = $1 WHERE slot_id = $2 AND submitted_by = $3`
	result, err := r.db.ExecContext(ctx, query, key, slotID, submitterID)
	if err != nil {
		return fmt.Errorf("failed to set evidence key for slot %d: %w", slotID, err)
	}
	return checkAffectedRows(result, ErrSubmissionNotFound)
}

func (r *postgresSubmissionRepository) DeleteBySlot(ctx context.Context, exec SQLExecutor, slotID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM submissions WHERE slot_id = $1`, slotID)
	if err != nil {
		return fmt.Errorf("failed to delete submissions for slot %d: %w", slotID, err)
	}
	return nil
}

func (r *postgresSubmissionRepository) scanSubmission(row *sql.Row) (*models.Submission, error) {
	var (
		s        models.Submission
		gamesRaw []byte
	)
	err := row.Scan(
		&s.ID, &s.SlotID, &s.SubmittedBy, &s.ScoreP1, &s.ScoreP2,
		&s.WinnerID, &gamesRaw, &s.EvidenceKey, &s.SubmittedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to scan submission: %w", err)
	}
	if err := json.Unmarshal(gamesRaw, &s.Games); err != nil {
		return nil, fmt.Errorf("failed to unmarshal games for submission %d: %w", s.ID, err)
	}
	return &s, nil
}
