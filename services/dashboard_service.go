package services

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/chalkline/league-system/models"
	"github.com/chalkline/league-system/repositories"
	"golang.org/x/sync/errgroup"
)

// MatchSummary — агрегированная картина матча для дашборда: сам матч,
// оба слота и текущие рейтинговые записи обеих сторон.
type MatchSummary struct {
	Match    *models.Match              `json:"match"`
	Status   models.MatchStatus         `json:"status"`
	RatingP1 *models.PlayerRatingRecord `json:"rating_p1"`
	RatingP2 *models.PlayerRatingRecord `json:"rating_p2"`
}

type DashboardService interface {
	CreateMatch(ctx context.Context, leagueID, p1ID, p2ID int, scheduledDate *time.Time, timezone string) (*models.Match, error)
	GetMatchSummary(ctx context.Context, matchID int) (*MatchSummary, error)
	GetPlayerRating(ctx context.Context, leagueID, playerID int) (*models.PlayerRatingRecord, error)
}

type dashboardService struct {
	db         *sql.DB
	matchRepo  repositories.MatchRepository
	slotRepo   repositories.SlotRepository
	ratingRepo repositories.RatingRepository
	logger     *slog.Logger
}

func NewDashboardService(
	db *sql.DB,
	matchRepo repositories.MatchRepository,
	slotRepo repositories.SlotRepository,
	ratingRepo repositories.RatingRepository,
	logger *slog.Logger,
) DashboardService {
	return &dashboardService{
		db:         db,
		matchRepo:  matchRepo,
		slotRepo:   slotRepo,
		ratingRepo: ratingRepo,
		logger:     logger,
	}
}

func (s *dashboardService) CreateMatch(ctx context.Context, leagueID, p1ID, p2ID int, scheduledDate *time.Time, timezone string) (*models.Match, error) {
	if p1ID == p2ID {
		return nil, ErrValidationFailed
	}
	if timezone == "" {
		return nil, ErrValidationFailed
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return nil, ErrValidationFailed
	}

	match := &models.Match{
		LeagueID:      leagueID,
		P1ID:          p1ID,
		P2ID:          p2ID,
		ScheduledDate: scheduledDate,
		Timezone:      timezone,
	}

	// Матч и оба его слота создаются одной транзакцией, чтобы матч без
	// слотов не был наблюдаем.
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.matchRepo.Create(ctx, tx, match); err != nil {
			if errors.Is(err, repositories.ErrMatchParticipantInvalid) {
				return ErrPlayerNotFound
			}
			return err
		}
		for _, discipline := range []models.Discipline{models.DisciplineEightBall, models.DisciplineNineBall} {
			slot := models.MatchSlot{
				MatchID:    match.ID,
				Discipline: discipline,
				Status:     models.SlotStatusScheduled,
			}
			if err := s.slotRepo.Create(ctx, tx, &slot); err != nil {
				return err
			}
			match.Slots = append(match.Slots, slot)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("match created",
		slog.Int("match_id", match.ID),
		slog.Int("league_id", leagueID),
		slog.Int("p1_id", p1ID),
		slog.Int("p2_id", p2ID),
	)
	return match, nil
}

// GetMatchSummary собирает части сводки параллельно: слоты и обе записи
// рейтинга не зависят друг от друга.
func (s *dashboardService) GetMatchSummary(ctx context.Context, matchID int) (*MatchSummary, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}

	summary := &MatchSummary{Match: match}
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slots, err := s.slotRepo.ListByMatch(gCtx, nil, matchID)
		if err != nil {
			return err
		}
		match.Slots = slots
		return nil
	})
	g.Go(func() error {
		rec, err := s.ratingFor(gCtx, match.LeagueID, match.P1ID)
		if err != nil {
			return err
		}
		summary.RatingP1 = rec
		return nil
	})
	g.Go(func() error {
		rec, err := s.ratingFor(gCtx, match.LeagueID, match.P2ID)
		if err != nil {
			return err
		}
		summary.RatingP2 = rec
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	summary.Status = match.Status()
	return summary, nil
}

func (s *dashboardService) GetPlayerRating(ctx context.Context, leagueID, playerID int) (*models.PlayerRatingRecord, error) {
	rec, err := s.ratingRepo.GetByLeagueAndPlayer(ctx, nil, leagueID, playerID)
	if err != nil {
		if errors.Is(err, repositories.ErrRatingRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// ratingFor никогда не падает из-за отсутствующей записи: игрок без
// истории отображается с рейтингом по умолчанию.
func (s *dashboardService) ratingFor(ctx context.Context, leagueID, playerID int) (*models.PlayerRatingRecord, error) {
	rec, err := s.ratingRepo.GetByLeagueAndPlayer(ctx, nil, leagueID, playerID)
	if err != nil {
		if errors.Is(err, repositories.ErrRatingRecordNotFound) {
			return &models.PlayerRatingRecord{
				LeagueID:   leagueID,
				PlayerID:   playerID,
				Rating:     models.DefaultRating,
				Confidence: models.DefaultConfidence,
			}, nil
		}
		return nil, err
	}
	return rec, nil
}
