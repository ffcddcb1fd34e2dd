package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/chalkline/league-system/availability"
	"github.com/chalkline/league-system/models"
	"github.com/chalkline/league-system/race"
	"github.com/chalkline/league-system/repositories"
	"github.com/chalkline/league-system/storage"
	"github.com/google/uuid"
)

// SlotService владеет жизненным циклом слота до финализации: старт,
// независимые сабмиты обеих сторон и их сверка. Финализирует слот всегда
// FinalizeService, и только он.
type SlotService interface {
	StartSlot(ctx context.Context, matchID int, discipline models.Discipline, raceLength models.RaceLength, callerID int, callerRole models.PlayerRole) (*models.MatchSlot, error)
	SubmitScorecard(ctx context.Context, matchID int, discipline models.Discipline, submitterID int, card *Scorecard) (*models.MatchSlot, error)
	ResolveDispute(ctx context.Context, matchID int, discipline models.Discipline, override *Scorecard) (*models.FinalizeAudit, error)
	AttachEvidence(ctx context.Context, matchID int, discipline models.Discipline, submitterID int, contentType string, file io.Reader) (*models.Submission, error)
	GetSlot(ctx context.Context, matchID int, discipline models.Discipline) (*SlotView, error)
	GetAudit(ctx context.Context, matchID int, discipline models.Discipline) (*models.FinalizeAudit, error)
}

// SlotView — слот вместе с сабмитами обеих сторон и, после финализации,
// партиями.
type SlotView struct {
	Slot        *models.MatchSlot    `json:"slot"`
	Submissions []*models.Submission `json:"submissions"`
	Games       []*models.Game       `json:"games,omitempty"`
}

type slotService struct {
	db             *sql.DB
	matchRepo      repositories.MatchRepository
	slotRepo       repositories.SlotRepository
	submissionRepo repositories.SubmissionRepository
	gameRepo       repositories.GameRepository
	ratingRepo     repositories.RatingRepository
	auditRepo      repositories.AuditRepository
	finalizer      FinalizeService
	uploader       storage.FileUploader
	hub            Broadcaster
	logger         *slog.Logger
	now            func() time.Time
}

func NewSlotService(
	db *sql.DB,
	matchRepo repositories.MatchRepository,
	slotRepo repositories.SlotRepository,
	submissionRepo repositories.SubmissionRepository,
	gameRepo repositories.GameRepository,
	ratingRepo repositories.RatingRepository,
	auditRepo repositories.AuditRepository,
	finalizer FinalizeService,
	uploader storage.FileUploader,
	hub Broadcaster,
	logger *slog.Logger,
) SlotService {
	return &slotService{
		db:             db,
		matchRepo:      matchRepo,
		slotRepo:       slotRepo,
		submissionRepo: submissionRepo,
		gameRepo:       gameRepo,
		ratingRepo:     ratingRepo,
		auditRepo:      auditRepo,
		finalizer:      finalizer,
		uploader:       uploader,
		hub:            hub,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *slotService) StartSlot(ctx context.Context, matchID int, discipline models.Discipline, raceLength models.RaceLength, callerID int, callerRole models.PlayerRole) (*models.MatchSlot, error) {
	if !discipline.Valid() {
		return nil, ErrInvalidDiscipline
	}
	if !raceLength.Valid() {
		return nil, ErrInvalidRaceLength
	}

	match, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.HasParticipant(callerID) && callerRole == models.RolePlayer {
		return nil, ErrNotAParticipant
	}
	if err := s.checkWindow(match); err != nil {
		return nil, err
	}

	var started *models.MatchSlot
	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		slot, err := s.slotRepo.GetForUpdate(ctx, tx, matchID, discipline)
		if err != nil {
			if errors.Is(err, repositories.ErrSlotNotFound) {
				return ErrSlotNotFound
			}
			return err
		}
		if slot.Status != models.SlotStatusScheduled {
			return ErrSlotAlreadyStarted
		}

		// Рейтинги замораживаются здесь и используются позже и для
		// гонки, и для расчёта дельты. Для игрока без записи —
		// значения по умолчанию.
		recP1, err := s.ratingRepo.GetOrCreate(ctx, tx, match.LeagueID, match.P1ID)
		if err != nil {
			return err
		}
		recP2, err := s.ratingRepo.GetOrCreate(ctx, tx, match.LeagueID, match.P2ID)
		if err != nil {
			return err
		}

		targets := race.ForLength(recP1.Rating, recP2.Rating, raceLength == models.RaceLengthLong)

		length := raceLength
		slot.RaceLength = &length
		slot.RaceTargetP1 = &targets.P1
		slot.RaceTargetP2 = &targets.P2
		slot.RatingP1 = &recP1.Rating
		slot.ConfidenceP1 = &recP1.Confidence
		slot.RatingP2 = &recP2.Rating
		slot.ConfidenceP2 = &recP2.Confidence

		if err := s.slotRepo.MarkStarted(ctx, tx, slot); err != nil {
			if errors.Is(err, repositories.ErrSlotStateConflict) {
				return ErrSlotAlreadyStarted
			}
			return err
		}
		slot.Status = models.SlotStatusInProgress
		started = slot
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("slot started",
		slog.Int("match_id", matchID),
		slog.String("discipline", string(discipline)),
		slog.Int("race_target_p1", *started.RaceTargetP1),
		slog.Int("race_target_p2", *started.RaceTargetP2),
	)
	s.broadcast("SLOT_STARTED", matchID, discipline, models.SlotStatusInProgress)
	return started, nil
}

func (s *slotService) SubmitScorecard(ctx context.Context, matchID int, discipline models.Discipline, submitterID int, card *Scorecard) (*models.MatchSlot, error) {
	if !discipline.Valid() {
		return nil, ErrInvalidDiscipline
	}
	if card == nil {
		return nil, ErrScorecardInvalid
	}

	match, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.HasParticipant(submitterID) {
		return nil, ErrNotAParticipant
	}
	if err := s.checkWindow(match); err != nil {
		return nil, err
	}

	var (
		result    *models.MatchSlot
		eventType string
	)
	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		slot, err := s.slotRepo.GetForUpdate(ctx, tx, matchID, discipline)
		if err != nil {
			if errors.Is(err, repositories.ErrSlotNotFound) {
				return ErrSlotNotFound
			}
			return err
		}

		switch slot.Status {
		case models.SlotStatusFinalized:
			// Защита от повторной отправки устаревшим клиентом: явная
			// ошибка, а не тихое игнорирование.
			return ErrSlotAlreadyFinalized
		case models.SlotStatusScheduled:
			return ErrSlotNotStarted
		case models.SlotStatusDisputed:
			return ErrSlotDisputed
		}

		if err := validateScorecard(match, slot, card); err != nil {
			return err
		}

		submission := &models.Submission{
			SlotID:      slot.ID,
			SubmittedBy: submitterID,
			ScoreP1:     card.ScoreP1,
			ScoreP2:     card.ScoreP2,
			WinnerID:    card.WinnerID,
			Games:       card.Games,
		}
		if err := s.submissionRepo.Upsert(ctx, tx, submission); err != nil {
			return err
		}

		submissions, err := s.submissionRepo.ListBySlot(ctx, tx, slot.ID)
		if err != nil {
			return err
		}
		var other *models.Submission
		for _, sub := range submissions {
			if sub.SubmittedBy != submitterID {
				other = sub
			}
		}

		switch {
		case other == nil:
			if slot.Status == models.SlotStatusInProgress {
				if err := s.slotRepo.UpdateStatus(ctx, tx, slot.ID, models.SlotStatusInProgress, models.SlotStatusPendingVerification); err != nil {
					return err
				}
			}
			eventType = "SLOT_PENDING"

		case scorecardsMatch(submission, other):
			// Обе стороны согласны — единственный путь к финализации.
			if _, err := s.finalizer.FinalizeInTx(ctx, tx, match, slot, card); err != nil {
				return err
			}
			eventType = "SLOT_FINALIZED"

		default:
			if err := s.slotRepo.UpdateStatus(ctx, tx, slot.ID, models.SlotStatusPendingVerification, models.SlotStatusDisputed); err != nil {
				return err
			}
			eventType = "SLOT_DISPUTED"
		}

		result, err = s.slotRepo.GetByMatchAndDiscipline(ctx, tx, matchID, discipline)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(eventType, matchID, discipline, result.Status)
	return result, nil
}

func (s *slotService) ResolveDispute(ctx context.Context, matchID int, discipline models.Discipline, override *Scorecard) (*models.FinalizeAudit, error) {
	if !discipline.Valid() {
		return nil, ErrInvalidDiscipline
	}
	if override == nil {
		return nil, ErrScorecardInvalid
	}

	match, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	var audit *models.FinalizeAudit
	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		slot, err := s.slotRepo.GetForUpdate(ctx, tx, matchID, discipline)
		if err != nil {
			if errors.Is(err, repositories.ErrSlotNotFound) {
				return ErrSlotNotFound
			}
			return err
		}
		if slot.Status != models.SlotStatusDisputed {
			return ErrSlotNotDisputed
		}
		if err := validateScorecard(match, slot, override); err != nil {
			return err
		}

		// Решение оператора — синтетический согласованный сабмит.
		audit, err = s.finalizer.FinalizeInTx(ctx, tx, match, slot, override)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("dispute resolved",
		slog.Int("match_id", matchID),
		slog.String("discipline", string(discipline)),
		slog.Int("winner_id", audit.WinnerID),
	)
	s.broadcast("SLOT_FINALIZED", matchID, discipline, models.SlotStatusFinalized)
	return audit, nil
}

func (s *slotService) AttachEvidence(ctx context.Context, matchID int, discipline models.Discipline, submitterID int, contentType string, file io.Reader) (*models.Submission, error) {
	match, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.HasParticipant(submitterID) {
		return nil, ErrNotAParticipant
	}

	slot, err := s.slotRepo.GetByMatchAndDiscipline(ctx, nil, matchID, discipline)
	if err != nil {
		if errors.Is(err, repositories.ErrSlotNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	submission, err := s.submissionRepo.GetBySlotAndSubmitter(ctx, nil, slot.ID, submitterID)
	if err != nil {
		if errors.Is(err, repositories.ErrSubmissionNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	key := fmt.Sprintf("evidence/slot-%d/player-%d-%s", slot.ID, submitterID, uuid.NewString())
	uploaded, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload evidence: %w", err)
	}
	if err := s.submissionRepo.SetEvidenceKey(ctx, slot.ID, submitterID, uploaded.Key); err != nil {
		return nil, err
	}

	submission.EvidenceKey = &uploaded.Key
	url := s.uploader.GetPublicURL(uploaded.Key)
	submission.EvidenceURL = &url
	return submission, nil
}

func (s *slotService) GetSlot(ctx context.Context, matchID int, discipline models.Discipline) (*SlotView, error) {
	slot, err := s.slotRepo.GetByMatchAndDiscipline(ctx, nil, matchID, discipline)
	if err != nil {
		if errors.Is(err, repositories.ErrSlotNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	submissions, err := s.submissionRepo.ListBySlot(ctx, nil, slot.ID)
	if err != nil {
		return nil, err
	}
	for _, sub := range submissions {
		if sub.EvidenceKey != nil {
			url := s.uploader.GetPublicURL(*sub.EvidenceKey)
			sub.EvidenceURL = &url
		}
	}

	view := &SlotView{Slot: slot, Submissions: submissions}
	if slot.Status == models.SlotStatusFinalized {
		view.Games, err = s.gameRepo.ListBySlot(ctx, nil, slot.ID)
		if err != nil {
			return nil, err
		}
	}
	return view, nil
}

func (s *slotService) GetAudit(ctx context.Context, matchID int, discipline models.Discipline) (*models.FinalizeAudit, error) {
	slot, err := s.slotRepo.GetByMatchAndDiscipline(ctx, nil, matchID, discipline)
	if err != nil {
		if errors.Is(err, repositories.ErrSlotNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	audit, err := s.auditRepo.GetBySlot(ctx, nil, slot.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrAuditNotFound) {
			return nil, ErrAuditNotFound
		}
		return nil, err
	}
	return audit, nil
}

func (s *slotService) loadMatch(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func (s *slotService) checkWindow(match *models.Match) error {
	verdict, err := availability.Check(match.ScheduledDate, match.Timezone, s.now())
	if err != nil {
		return err
	}
	if verdict.Locked {
		return fmt.Errorf("%w: %s", ErrSlotLocked, verdict.Reason)
	}
	return nil
}

func (s *slotService) broadcast(eventType string, matchID int, discipline models.Discipline, status models.SlotStatus) {
	s.hub.BroadcastToRoom(matchRoom(matchID), SlotEvent{
		Type:       eventType,
		MatchID:    matchID,
		Discipline: discipline,
		Status:     status,
	})
}

// validateScorecard проверяет карточку против участников матча и целей
// гонки до того, как она попадёт в сверку.
func validateScorecard(match *models.Match, slot *models.MatchSlot, card *Scorecard) error {
	if card.ScoreP1 < 0 || card.ScoreP2 < 0 {
		return fmt.Errorf("%w: negative score", ErrScorecardInvalid)
	}
	if !match.HasParticipant(card.WinnerID) {
		return fmt.Errorf("%w: winner %d is not a participant", ErrScorecardInvalid, card.WinnerID)
	}
	if slot.RaceTargetP1 == nil || slot.RaceTargetP2 == nil {
		return ErrSlotNotStarted
	}

	winnerScore, winnerTarget := card.ScoreP1, *slot.RaceTargetP1
	loserScore, loserTarget := card.ScoreP2, *slot.RaceTargetP2
	if card.WinnerID == match.P2ID {
		winnerScore, winnerTarget = card.ScoreP2, *slot.RaceTargetP2
		loserScore, loserTarget = card.ScoreP1, *slot.RaceTargetP1
	}
	if winnerScore != winnerTarget {
		return fmt.Errorf("%w: winner score %d, race target %d", ErrScorecardScoreMismatch, winnerScore, winnerTarget)
	}
	if loserScore >= loserTarget {
		return fmt.Errorf("%w: loser score %d reaches race target %d", ErrScorecardScoreMismatch, loserScore, loserTarget)
	}

	if len(card.Games) > 0 {
		if len(card.Games) != card.ScoreP1+card.ScoreP2 {
			return fmt.Errorf("%w: %d games for %d racks", ErrScorecardInvalid, len(card.Games), card.ScoreP1+card.ScoreP2)
		}
		wonP1, wonP2 := 0, 0
		for _, g := range card.Games {
			switch g.WinnerID {
			case match.P1ID:
				wonP1++
			case match.P2ID:
				wonP2++
			default:
				return fmt.Errorf("%w: game winner %d is not a participant", ErrScorecardInvalid, g.WinnerID)
			}
		}
		if wonP1 != card.ScoreP1 || wonP2 != card.ScoreP2 {
			return fmt.Errorf("%w: per-game wins do not add up to the scores", ErrScorecardInvalid)
		}
	}
	return nil
}

type gameKey struct {
	winnerID int
	flags    models.AchievementFlags
}

// scorecardsMatch — правило сверки: счёт, победитель и мультимножество
// пометок по партиям должны совпадать в точности.
func scorecardsMatch(a, b *models.Submission) bool {
	if a.ScoreP1 != b.ScoreP1 || a.ScoreP2 != b.ScoreP2 || a.WinnerID != b.WinnerID {
		return false
	}
	if len(a.Games) != len(b.Games) {
		return false
	}
	counts := make(map[gameKey]int, len(a.Games))
	for _, g := range a.Games {
		counts[gameKey{g.WinnerID, g.Achievements}]++
	}
	for _, g := range b.Games {
		key := gameKey{g.WinnerID, g.Achievements}
		counts[key]--
		if counts[key] < 0 {
			return false
		}
	}
	return true
}
