package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chalkline/league-system/models"
	"github.com/chalkline/league-system/rating"
	"github.com/chalkline/league-system/repositories"
)

// Scorecard is the agreed (or operator-supplied) result of one slot.
type Scorecard struct {
	ScoreP1  int                 `json:"score_p1"`
	ScoreP2  int                 `json:"score_p2"`
	WinnerID int                 `json:"winner_id"`
	Games    []models.GameResult `json:"games"`
}

// Broadcaster рассылает событие всем подписчикам комнаты матча.
type Broadcaster interface {
	BroadcastToRoom(roomID string, message interface{})
}

// SlotEvent is pushed to websocket subscribers of a match room on every
// slot transition.
type SlotEvent struct {
	Type       string            `json:"type"`
	MatchID    int               `json:"match_id"`
	Discipline models.Discipline `json:"discipline"`
	Status     models.SlotStatus `json:"status"`
}

func matchRoom(matchID int) string {
	return fmt.Sprintf("match-%d", matchID)
}

// FinalizeService is the only path by which a slot reaches the finalized
// status and the only writer of PlayerRatingRecord. Finalization and its
// reversal are exact algebraic inverses: reversal subtracts the audited
// deltas instead of recomputing them, so a later change to the rating
// engine cannot introduce drift.
type FinalizeService interface {
	// FinalizeInTx performs the atomic finalization inside the caller's
	// transaction. The caller must hold the slot row lock.
	FinalizeInTx(ctx context.Context, tx *sql.Tx, match *models.Match, slot *models.MatchSlot, agreed *Scorecard) (*models.FinalizeAudit, error)
	Reverse(ctx context.Context, matchID int, discipline models.Discipline) (*models.MatchSlot, error)
}

type finalizeService struct {
	db             *sql.DB
	matchRepo      repositories.MatchRepository
	slotRepo       repositories.SlotRepository
	submissionRepo repositories.SubmissionRepository
	gameRepo       repositories.GameRepository
	ratingRepo     repositories.RatingRepository
	auditRepo      repositories.AuditRepository
	hub            Broadcaster
	logger         *slog.Logger
}

func NewFinalizeService(
	db *sql.DB,
	matchRepo repositories.MatchRepository,
	slotRepo repositories.SlotRepository,
	submissionRepo repositories.SubmissionRepository,
	gameRepo repositories.GameRepository,
	ratingRepo repositories.RatingRepository,
	auditRepo repositories.AuditRepository,
	hub Broadcaster,
	logger *slog.Logger,
) FinalizeService {
	return &finalizeService{
		db:             db,
		matchRepo:      matchRepo,
		slotRepo:       slotRepo,
		submissionRepo: submissionRepo,
		gameRepo:       gameRepo,
		ratingRepo:     ratingRepo,
		auditRepo:      auditRepo,
		hub:            hub,
		logger:         logger,
	}
}

func (s *finalizeService) FinalizeInTx(ctx context.Context, tx *sql.Tx, match *models.Match, slot *models.MatchSlot, agreed *Scorecard) (*models.FinalizeAudit, error) {
	// (1) Идемпотентный барьер: условное обновление статуса. Ноль строк —
	// слот уже финализирован, повторная финализация невозможна.
	err := s.slotRepo.MarkFinalized(ctx, tx, slot.ID, agreed.ScoreP1, agreed.ScoreP2, agreed.WinnerID)
	if err != nil {
		if errors.Is(err, repositories.ErrSlotStateConflict) {
			return nil, ErrSlotAlreadyFinalized
		}
		return nil, err
	}

	// Ratings must have been frozen at start; a slot that reaches this
	// point without them is a programming error, not a user error.
	if slot.RatingP1 == nil || slot.ConfidenceP1 == nil || slot.RatingP2 == nil || slot.ConfidenceP2 == nil {
		return nil, fmt.Errorf("slot %d has no frozen ratings: %w", slot.ID, ErrSlotNotStarted)
	}

	// (2) Партии создаются как побочный продукт согласованного счёта.
	games := make([]*models.Game, 0, len(agreed.Games))
	for i, g := range agreed.Games {
		games = append(games, &models.Game{
			SlotID:       slot.ID,
			GameNumber:   i + 1,
			WinnerID:     g.WinnerID,
			Achievements: g.Achievements,
		})
	}
	if err := s.gameRepo.BatchCreate(ctx, tx, games); err != nil {
		return nil, err
	}

	// (3) Дельта считается от рейтингов, замороженных на старте слота, а
	// не от текущих значений: параллельная финализация другого слота не
	// должна влиять на эту.
	p1Won := agreed.WinnerID == match.P1ID
	delta := rating.ComputeDelta(*slot.RatingP1, *slot.ConfidenceP1, *slot.RatingP2, *slot.ConfidenceP2, p1Won)

	countersP1, countersP2 := splitCounters(match, agreed.Games)

	// (4) Применяем дельты и счётчики к записям обоих игроков. Строки
	// блокируются в порядке возрастания id игрока, чтобы два встречных
	// finalize не взяли их в противоположном порядке.
	recP1, recP2, err := s.lockRatingPair(ctx, tx, match)
	if err != nil {
		return nil, err
	}

	audit := &models.FinalizeAudit{
		SlotID:            slot.ID,
		RatingP1:          *slot.RatingP1,
		ConfidenceP1:      *slot.ConfidenceP1,
		RatingP2:          *slot.RatingP2,
		ConfidenceP2:      *slot.ConfidenceP2,
		WinnerID:          agreed.WinnerID,
		ExpectedWinProbP1: delta.ExpectedWinProbP1,
		BaseDelta:         delta.BaseDelta,
		ScaledDeltaP1:     delta.ScaledDeltaP1,
		ScaledDeltaP2:     delta.ScaledDeltaP2,
		FinalDeltaP1:      delta.FinalDeltaP1,
		FinalDeltaP2:      delta.FinalDeltaP2,
		ConfidenceIncP1:   rating.NextConfidence(recP1.Confidence) - recP1.Confidence,
		ConfidenceIncP2:   rating.NextConfidence(recP2.Confidence) - recP2.Confidence,
		RacksPlayedInc:    agreed.ScoreP1 + agreed.ScoreP2,
		RacksWonP1:        agreed.ScoreP1,
		RacksWonP2:        agreed.ScoreP2,
		CountersP1:        countersP1,
		CountersP2:        countersP2,
	}

	s.applyForward(recP1, delta.FinalDeltaP1, audit.ConfidenceIncP1, audit.RacksPlayedInc, audit.RacksWonP1, countersP1, p1Won)
	s.applyForward(recP2, delta.FinalDeltaP2, audit.ConfidenceIncP2, audit.RacksPlayedInc, audit.RacksWonP2, countersP2, !p1Won)

	if err := s.ratingRepo.Update(ctx, tx, recP1); err != nil {
		return nil, err
	}
	if err := s.ratingRepo.Update(ctx, tx, recP2); err != nil {
		return nil, err
	}

	// (5) Аудит со всеми промежуточными значениями — основа и для
	// разбора споров, и для точного отката.
	if err := s.auditRepo.Create(ctx, tx, audit); err != nil {
		return nil, err
	}

	s.logger.Info("slot finalized",
		slog.Int("slot_id", slot.ID),
		slog.Int("winner_id", agreed.WinnerID),
		slog.Int("delta_p1", delta.FinalDeltaP1),
		slog.Int("delta_p2", delta.FinalDeltaP2),
	)
	return audit, nil
}

func (s *finalizeService) Reverse(ctx context.Context, matchID int, discipline models.Discipline) (*models.MatchSlot, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}

	var reset *models.MatchSlot
	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		slot, err := s.slotRepo.GetForUpdate(ctx, tx, matchID, discipline)
		if err != nil {
			if errors.Is(err, repositories.ErrSlotNotFound) {
				return ErrSlotNotFound
			}
			return err
		}

		audit, err := s.auditRepo.GetBySlot(ctx, tx, slot.ID)
		if err != nil {
			if errors.Is(err, repositories.ErrAuditNotFound) {
				// Финализированный слот без аудита невозможен; слот
				// просто не финализирован.
				return ErrSlotNotFinalized
			}
			return err
		}

		// Обратный переход разрешён только из finalized.
		if err := s.slotRepo.ResetToScheduled(ctx, tx, slot.ID); err != nil {
			if errors.Is(err, repositories.ErrSlotStateConflict) {
				return ErrSlotNotFinalized
			}
			return err
		}

		// Вычитаем ровно то, что было применено при финализации, — не
		// пересчитываем заново.
		recP1, recP2, err := s.lockRatingPair(ctx, tx, match)
		if err != nil {
			return err
		}

		p1Won := audit.WinnerID == match.P1ID
		s.applyBackward(recP1, audit.FinalDeltaP1, audit.ConfidenceIncP1, audit.RacksPlayedInc, audit.RacksWonP1, audit.CountersP1, p1Won)
		s.applyBackward(recP2, audit.FinalDeltaP2, audit.ConfidenceIncP2, audit.RacksPlayedInc, audit.RacksWonP2, audit.CountersP2, !p1Won)

		if err := s.ratingRepo.Update(ctx, tx, recP1); err != nil {
			return err
		}
		if err := s.ratingRepo.Update(ctx, tx, recP2); err != nil {
			return err
		}

		if err := s.gameRepo.DeleteBySlot(ctx, tx, slot.ID); err != nil {
			return err
		}
		if err := s.submissionRepo.DeleteBySlot(ctx, tx, slot.ID); err != nil {
			return err
		}
		if err := s.auditRepo.DeleteBySlot(ctx, tx, slot.ID); err != nil {
			return err
		}

		reset, err = s.slotRepo.GetByMatchAndDiscipline(ctx, tx, matchID, discipline)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("slot reversed", slog.Int("slot_id", reset.ID), slog.Int("match_id", matchID))
	s.hub.BroadcastToRoom(matchRoom(matchID), SlotEvent{
		Type:       "SLOT_RESET",
		MatchID:    matchID,
		Discipline: discipline,
		Status:     models.SlotStatusScheduled,
	})
	return reset, nil
}

// lockRatingPair берёт обе записи рейтинга под FOR UPDATE в стабильном
// порядке (по возрастанию id игрока).
func (s *finalizeService) lockRatingPair(ctx context.Context, tx *sql.Tx, match *models.Match) (recP1, recP2 *models.PlayerRatingRecord, err error) {
	first, second := match.P1ID, match.P2ID
	if second < first {
		first, second = second, first
	}

	recFirst, err := s.ratingRepo.GetForUpdate(ctx, tx, match.LeagueID, first)
	if err != nil {
		if errors.Is(err, repositories.ErrRatingRecordNotFound) {
			recFirst, err = s.ratingRepo.GetOrCreate(ctx, tx, match.LeagueID, first)
		}
		if err != nil {
			return nil, nil, err
		}
	}
	recSecond, err := s.ratingRepo.GetForUpdate(ctx, tx, match.LeagueID, second)
	if err != nil {
		if errors.Is(err, repositories.ErrRatingRecordNotFound) {
			recSecond, err = s.ratingRepo.GetOrCreate(ctx, tx, match.LeagueID, second)
		}
		if err != nil {
			return nil, nil, err
		}
	}

	if first == match.P1ID {
		return recFirst, recSecond, nil
	}
	return recSecond, recFirst, nil
}

func (s *finalizeService) applyForward(rec *models.PlayerRatingRecord, ratingDelta, confidenceInc, racksPlayed, racksWon int, counters models.AchievementCounters, won bool) {
	rec.Rating += ratingDelta
	rec.Confidence += confidenceInc
	rec.RacksPlayed += racksPlayed
	rec.RacksWon += racksWon
	rec.MatchesPlayed++
	if won {
		rec.MatchesWon++
	}
	rec.Achievements = rec.Achievements.Add(counters)
}

func (s *finalizeService) applyBackward(rec *models.PlayerRatingRecord, ratingDelta, confidenceInc, racksPlayed, racksWon int, counters models.AchievementCounters, won bool) {
	rec.Rating -= ratingDelta
	rec.Confidence -= confidenceInc
	rec.RacksPlayed -= racksPlayed
	rec.RacksWon -= racksWon
	rec.MatchesPlayed--
	if won {
		rec.MatchesWon--
	}
	rec.Achievements = rec.Achievements.Sub(counters)
}

// splitCounters относит достижения каждой партии к её победителю.
func splitCounters(match *models.Match, games []models.GameResult) (p1, p2 models.AchievementCounters) {
	for _, g := range games {
		target := &p2
		if g.WinnerID == match.P1ID {
			target = &p1
		}
		if g.Achievements.BreakAndRun {
			target.BreakAndRuns++
		}
		if g.Achievements.RackAndRun {
			target.RackAndRuns++
		}
		if g.Achievements.SnapWin {
			target.SnapWins++
		}
		if g.Achievements.EarlyWin {
			target.EarlyWins++
		}
	}
	return p1, p2
}
