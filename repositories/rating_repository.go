package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/chalkline/league-system/models"
)

var ErrRatingRecordNotFound = errors.New("player rating record not found")

type RatingRepository interface {
	Create(ctx context.Context, exec SQLExecutor, record *models.PlayerRatingRecord) error
	GetByLeagueAndPlayer(ctx context.Context, exec SQLExecutor, leagueID, playerID int) (*models.PlayerRatingRecord, error)
	// GetForUpdate serializes rating mutations per player record.
	GetForUpdate(ctx context.Context, tx *sql.Tx, leagueID, playerID int) (*models.PlayerRatingRecord, error)
	Update(ctx context.Context, exec SQLExecutor, record *models.PlayerRatingRecord) error
	// GetOrCreate подставляет запись с рейтингом по умолчанию для игрока,
	// который ещё ни разу не играл в этой лиге.
	GetOrCreate(ctx context.Context, exec SQLExecutor, leagueID, playerID int) (*models.PlayerRatingRecord, error)
}

type postgresRatingRepository struct {
	db *sql.DB
}

func NewPostgresRatingRepository(db *sql.DB) RatingRepository {
	return &postgresRatingRepository{db: db}
}

func (r *postgresRatingRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const ratingColumns = `
	id, league_id, player_id, rating, confidence,
	racks_played, racks_won, matches_played, matches_won,
	break_and_runs, rack_and_runs, snap_wins, early_wins, updated_at`

func (r *postgresRatingRepository) Create(ctx context.Context, exec SQLExecutor, record *models.PlayerRatingRecord) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO player_ratings
			(league_id, player_id, rating, confidence,
			 racks_played, racks_won, matches_played, matches_won,
			 break_and_runs, rack_and_runs, snap_wins, early_wins, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`

	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now()
	}
	err := executor.QueryRowContext(ctx, query,
		record.LeagueID, record.PlayerID, record.Rating, record.Confidence,
		record.RacksPlayed, record.RacksWon, record.MatchesPlayed, record.MatchesWon,
		record.Achievements.BreakAndRuns, record.Achievements.RackAndRuns,
		record.Achievements.SnapWins, record.Achievements.EarlyWins,
		record.UpdatedAt,
	).Scan(&record.ID)
	if err != nil {
		return fmt.Errorf("failed to create rating record for league %d player %d: %w", record.LeagueID, record.PlayerID, err)
	}
	return nil
}

func (r *postgresRatingRepository) GetByLeagueAndPlayer(ctx context.Context, exec SQLExecutor, leagueID, playerID int) (*models.PlayerRatingRecord, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + ratingColumns + `FROM player_ratings WHERE league_id = $1 AND player_id = $2`
	return r.scanRecord(executor.QueryRowContext(ctx, query, leagueID, playerID))
}

func (r *postgresRatingRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, leagueID, playerID int) (*models.PlayerRatingRecord, error) {
	query := `SELECT` + ratingColumns + `FROM player_ratings WHERE league_id = $1 AND player_id = $2 FOR UPDATE`
	return r.scanRecord(tx.QueryRowContext(ctx, query, leagueID, playerID))
}

func (r *postgresRatingRepository) Update(ctx context.Context, exec SQLExecutor, record *models.PlayerRatingRecord) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE player_ratings SET
			rating = $1, confidence = $2,
			racks_played = $3, racks_won = $4, matches_played = $5, matches_won = $6,
			break_and_runs = $7, rack_and_runs = $8, snap_wins = $9, early_wins = $10,
			updated_at = NOW()
		WHERE id = $11`

	result, err := executor.ExecContext(ctx, query,
		record.Rating, record.Confidence,
		record.RacksPlayed, record.RacksWon, record.MatchesPlayed, record.MatchesWon,
		record.Achievements.BreakAndRuns, record.Achievements.RackAndRuns,
		record.Achievements.SnapWins, record.Achievements.EarlyWins,
		record.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rating record %d: %w", record.ID, err)
	}
	return checkAffectedRows(result, ErrRatingRecordNotFound)
}

func (r *postgresRatingRepository) GetOrCreate(ctx context.Context, exec SQLExecutor, leagueID, playerID int) (*models.PlayerRatingRecord, error) {
	executor := r.getExecutor(exec)
	record, err := r.GetByLeagueAndPlayer(ctx, executor, leagueID, playerID)
	if err != nil {
		if errors.Is(err, ErrRatingRecordNotFound) {
			newRecord := &models.PlayerRatingRecord{
				LeagueID:   leagueID,
				PlayerID:   playerID,
				Rating:     models.DefaultRating,
				Confidence: models.DefaultConfidence,
				UpdatedAt:  time.Now(),
			}
			if createErr := r.Create(ctx, executor, newRecord); createErr != nil {
				return nil, fmt.Errorf("failed to create default rating for league %d player %d: %w", leagueID, playerID, createErr)
			}
			return newRecord, nil
		}
		return nil, fmt.Errorf("failed to get rating for league %d player %d: %w", leagueID, playerID, err)
	}
	return record, nil
}

func (r *postgresRatingRepository) scanRecord(row *sql.Row) (*models.PlayerRatingRecord, error) {
	var rec models.PlayerRatingRecord
	err := row.Scan(
		&rec.ID, &rec.LeagueID, &rec.PlayerID, &rec.Rating, &rec.Confidence,
		&rec.RacksPlayed, &rec.RacksWon, &rec.MatchesPlayed, &rec.MatchesWon,
		&rec.Achievements.BreakAndRuns, &rec.Achievements.RackAndRuns,
		&rec.Achievements.SnapWins, &rec.Achievements.EarlyWins,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRatingRecordNotFound
		}
		return nil, fmt.Errorf("failed to scan rating record: %w", err)
	}
	return &rec, nil
}
