package services

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/chalkline/league-system/models"
	"github.com/chalkline/league-system/repositories"
	"github.com/chalkline/league-system/storage"
	"github.com/stretchr/testify/require"
)

// Репозитории в тестах in-memory, но сервисы по-прежнему открывают и
// коммитят настоящие *sql.Tx. Заглушка драйвера даёт им пустые
// транзакции: Begin/Commit/Rollback — no-op, а любой настоящий запрос
// через неё — ошибка.
type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) { return &stubConn{}, nil }

type stubConn struct{}

func (*stubConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("stub connection does not execute queries")
}
func (*stubConn) Close() error              { return nil }
func (*stubConn) Begin() (driver.Tx, error) { return stubTx{}, nil }

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

func init() {
	sql.Register("leaguefakes", stubDriver{})
}

func newStubDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("leaguefakes", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type fakeMatchRepo struct {
	matches map[int]*models.Match
	nextID  int
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{matches: make(map[int]*models.Match)}
}

func (r *fakeMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, match *models.Match) error {
	r.nextID++
	match.ID = r.nextID
	match.CreatedAt = time.Now()
	stored := *match
	stored.Slots = nil
	r.matches[match.ID] = &stored
	return nil
}

func (r *fakeMatchRepo) GetByID(_ context.Context, id int) (*models.Match, error) {
	stored, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	match := *stored
	return &match, nil
}

func (r *fakeMatchRepo) ListByLeague(_ context.Context, leagueID int) ([]*models.Match, error) {
	out := make([]*models.Match, 0)
	for _, stored := range r.matches {
		if stored.LeagueID == leagueID {
			match := *stored
			out = append(out, &match)
		}
	}
	return out, nil
}

type fakeSlotRepo struct {
	slots  map[int]*models.MatchSlot
	nextID int
}

func newFakeSlotRepo() *fakeSlotRepo {
	return &fakeSlotRepo{slots: make(map[int]*models.MatchSlot)}
}

func (r *fakeSlotRepo) Create(_ context.Context, _ repositories.SQLExecutor, slot *models.MatchSlot) error {
	r.nextID++
	slot.ID = r.nextID
	slot.CreatedAt = time.Now()
	slot.UpdatedAt = slot.CreatedAt
	stored := *slot
	r.slots[slot.ID] = &stored
	return nil
}

func (r *fakeSlotRepo) find(matchID int, discipline models.Discipline) *models.MatchSlot {
	for _, stored := range r.slots {
		if stored.MatchID == matchID && stored.Discipline == discipline {
			return stored
		}
	}
	return nil
}

func (r *fakeSlotRepo) GetByMatchAndDiscipline(_ context.Context, _ repositories.SQLExecutor, matchID int, discipline models.Discipline) (*models.MatchSlot, error) {
	stored := r.find(matchID, discipline)
	if stored == nil {
		return nil, repositories.ErrSlotNotFound
	}
	slot := *stored
	return &slot, nil
}

func (r *fakeSlotRepo) GetForUpdate(ctx context.Context, _ *sql.Tx, matchID int, discipline models.Discipline) (*models.MatchSlot, error) {
	return r.GetByMatchAndDiscipline(ctx, nil, matchID, discipline)
}

func (r *fakeSlotRepo) ListByMatch(_ context.Context, _ repositories.SQLExecutor, matchID int) ([]models.MatchSlot, error) {
	out := make([]models.MatchSlot, 0, 2)
	for _, stored := range r.slots {
		if stored.MatchID == matchID {
			out = append(out, *stored)
		}
	}
	return out, nil
}

func (r *fakeSlotRepo) MarkStarted(_ context.Context, _ repositories.SQLExecutor, slot *models.MatchSlot) error {
	stored, ok := r.slots[slot.ID]
	if !ok || stored.Status != models.SlotStatusScheduled {
		return repositories.ErrSlotStateConflict
	}
	stored.Status = models.SlotStatusInProgress
	stored.RaceLength = slot.RaceLength
	stored.RaceTargetP1 = slot.RaceTargetP1
	stored.RaceTargetP2 = slot.RaceTargetP2
	stored.RatingP1 = slot.RatingP1
	stored.ConfidenceP1 = slot.ConfidenceP1
	stored.RatingP2 = slot.RatingP2
	stored.ConfidenceP2 = slot.ConfidenceP2
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *fakeSlotRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, slotID int, from, to models.SlotStatus) error {
	stored, ok := r.slots[slotID]
	if !ok || stored.Status != from {
		return repositories.ErrSlotStateConflict
	}
	stored.Status = to
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *fakeSlotRepo) MarkFinalized(_ context.Context, _ repositories.SQLExecutor, slotID int, scoreP1, scoreP2, winnerID int) error {
	stored, ok := r.slots[slotID]
	if !ok || stored.Status == models.SlotStatusFinalized {
		return repositories.ErrSlotStateConflict
	}
	stored.Status = models.SlotStatusFinalized
	stored.ScoreP1 = &scoreP1
	stored.ScoreP2 = &scoreP2
	stored.WinnerID = &winnerID
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *fakeSlotRepo) ResetToScheduled(_ context.Context, _ repositories.SQLExecutor, slotID int) error {
	stored, ok := r.slots[slotID]
	if !ok || stored.Status != models.SlotStatusFinalized {
		return repositories.ErrSlotStateConflict
	}
	stored.Status = models.SlotStatusScheduled
	stored.RaceLength = nil
	stored.RaceTargetP1 = nil
	stored.RaceTargetP2 = nil
	stored.RatingP1 = nil
	stored.ConfidenceP1 = nil
	stored.RatingP2 = nil
	stored.ConfidenceP2 = nil
	stored.ScoreP1 = nil
	stored.ScoreP2 = nil
	stored.WinnerID = nil
	stored.UpdatedAt = time.Now()
	return nil
}

type submissionKey struct {
	slotID      int
	submittedBy int
}

type fakeSubmissionRepo struct {
	submissions map[submissionKey]*models.Submission
	nextID      int
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{submissions: make(map[submissionKey]*models.Submission)}
}

func (r *fakeSubmissionRepo) Upsert(_ context.Context, _ repositories.SQLExecutor, submission *models.Submission) error {
	key := submissionKey{submission.SlotID, submission.SubmittedBy}
	if existing, ok := r.submissions[key]; ok {
		submission.ID = existing.ID
	} else {
		r.nextID++
		submission.ID = r.nextID
	}
	submission.SubmittedAt = time.Now()
	stored := *submission
	stored.Games = append([]models.GameResult(nil), submission.Games...)
	r.submissions[key] = &stored
	return nil
}

func (r *fakeSubmissionRepo) GetBySlotAndSubmitter(_ context.Context, _ repositories.SQLExecutor, slotID, submitterID int) (*models.Submission, error) {
	stored, ok := r.submissions[submissionKey{slotID, submitterID}]
	if !ok {
		return nil, repositories.ErrSubmissionNotFound
	}
	sub := *stored
	return &sub, nil
}

func (r *fakeSubmissionRepo) ListBySlot(_ context.Context, _ repositories.SQLExecutor, slotID int) ([]*models.Submission, error) {
	out := make([]*models.Submission, 0, 2)
	for key, stored := range r.submissions {
		if key.slotID == slotID {
			sub := *stored
			out = append(out, &sub)
		}
	}
	return out, nil
}

func (r *fakeSubmissionRepo) SetEvidenceKey(_ context.Context, slotID, submitterID int, key string) error {
	stored, ok := r.submissions[submissionKey{slotID, submitterID}]
	if !ok {
		return repositories.ErrSubmissionNotFound
	}
	stored.EvidenceKey = &key
	return nil
}

func (r *fakeSubmissionRepo) DeleteBySlot(_ context.Context, _ repositories.SQLExecutor, slotID int) error {
	for key := range r.submissions {
		if key.slotID == slotID {
			delete(r.submissions, key)
		}
	}
	return nil
}

type fakeGameRepo struct {
	games  map[int][]*models.Game
	nextID int
}

func newFakeGameRepo() *fakeGameRepo {
	return &fakeGameRepo{games: make(map[int][]*models.Game)}
}

func (r *fakeGameRepo) BatchCreate(_ context.Context, _ repositories.SQLExecutor, games []*models.Game) error {
	for _, game := range games {
		r.nextID++
		game.ID = r.nextID
		game.CreatedAt = time.Now()
		stored := *game
		r.games[game.SlotID] = append(r.games[game.SlotID], &stored)
	}
	return nil
}

func (r *fakeGameRepo) ListBySlot(_ context.Context, _ repositories.SQLExecutor, slotID int) ([]*models.Game, error) {
	out := make([]*models.Game, 0, len(r.games[slotID]))
	for _, stored := range r.games[slotID] {
		game := *stored
		out = append(out, &game)
	}
	return out, nil
}

func (r *fakeGameRepo) DeleteBySlot(_ context.Context, _ repositories.SQLExecutor, slotID int) error {
	delete(r.games, slotID)
	return nil
}

type ratingKey struct {
	leagueID int
	playerID int
}

type fakeRatingRepo struct {
	records map[ratingKey]*models.PlayerRatingRecord
	nextID  int
}

func newFakeRatingRepo() *fakeRatingRepo {
	return &fakeRatingRepo{records: make(map[ratingKey]*models.PlayerRatingRecord)}
}

func (r *fakeRatingRepo) Create(_ context.Context, _ repositories.SQLExecutor, record *models.PlayerRatingRecord) error {
	r.nextID++
	record.ID = r.nextID
	stored := *record
	r.records[ratingKey{record.LeagueID, record.PlayerID}] = &stored
	return nil
}

func (r *fakeRatingRepo) GetByLeagueAndPlayer(_ context.Context, _ repositories.SQLExecutor, leagueID, playerID int) (*models.PlayerRatingRecord, error) {
	stored, ok := r.records[ratingKey{leagueID, playerID}]
	if !ok {
		return nil, repositories.ErrRatingRecordNotFound
	}
	rec := *stored
	return &rec, nil
}

func (r *fakeRatingRepo) GetForUpdate(ctx context.Context, _ *sql.Tx, leagueID, playerID int) (*models.PlayerRatingRecord, error) {
	return r.GetByLeagueAndPlayer(ctx, nil, leagueID, playerID)
}

func (r *fakeRatingRepo) Update(_ context.Context, _ repositories.SQLExecutor, record *models.PlayerRatingRecord) error {
	for key, stored := range r.records {
		if stored.ID == record.ID {
			updated := *record
			updated.UpdatedAt = time.Now()
			r.records[key] = &updated
			return nil
		}
	}
	return repositories.ErrRatingRecordNotFound
}

func (r *fakeRatingRepo) GetOrCreate(ctx context.Context, exec repositories.SQLExecutor, leagueID, playerID int) (*models.PlayerRatingRecord, error) {
	if rec, err := r.GetByLeagueAndPlayer(ctx, exec, leagueID, playerID); err == nil {
		return rec, nil
	}
	record := &models.PlayerRatingRecord{
		LeagueID:   leagueID,
		PlayerID:   playerID,
		Rating:     models.DefaultRating,
		Confidence: models.DefaultConfidence,
	}
	if err := r.Create(ctx, exec, record); err != nil {
		return nil, err
	}
	return record, nil
}

type fakeAuditRepo struct {
	audits map[int]*models.FinalizeAudit
	nextID int
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{audits: make(map[int]*models.FinalizeAudit)}
}

func (r *fakeAuditRepo) Create(_ context.Context, _ repositories.SQLExecutor, audit *models.FinalizeAudit) error {
	r.nextID++
	audit.ID = r.nextID
	audit.CreatedAt = time.Now()
	stored := *audit
	r.audits[audit.SlotID] = &stored
	return nil
}

func (r *fakeAuditRepo) GetBySlot(_ context.Context, _ repositories.SQLExecutor, slotID int) (*models.FinalizeAudit, error) {
	stored, ok := r.audits[slotID]
	if !ok {
		return nil, repositories.ErrAuditNotFound
	}
	audit := *stored
	return &audit, nil
}

func (r *fakeAuditRepo) DeleteBySlot(_ context.Context, _ repositories.SQLExecutor, slotID int) error {
	delete(r.audits, slotID)
	return nil
}

type fakeHub struct {
	events []SlotEvent
}

func (h *fakeHub) BroadcastToRoom(_ string, message interface{}) {
	if event, ok := message.(SlotEvent); ok {
		h.events = append(h.events, event)
	}
}

func (h *fakeHub) lastEvent() SlotEvent {
	if len(h.events) == 0 {
		return SlotEvent{}
	}
	return h.events[len(h.events)-1]
}

type fakeUploader struct{}

func (fakeUploader) Upload(_ context.Context, key string, _ string, _ io.Reader) (*storage.UploadResult, error) {
	return &storage.UploadResult{Key: key, Location: "https://cdn.test/" + key}, nil
}

func (fakeUploader) Delete(context.Context, string) error { return nil }

func (fakeUploader) GetPublicURL(key string) string { return "https://cdn.test/" + key }

// testEnv собирает сервисы на фейковых репозиториях и драйвере-заглушке.
type testEnv struct {
	db          *sql.DB
	matches     *fakeMatchRepo
	slots       *fakeSlotRepo
	submissions *fakeSubmissionRepo
	games       *fakeGameRepo
	ratings     *fakeRatingRepo
	audits      *fakeAuditRepo
	hub         *fakeHub
	finalizer   FinalizeService
	slotSvc     SlotService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		db:          newStubDB(t),
		matches:     newFakeMatchRepo(),
		slots:       newFakeSlotRepo(),
		submissions: newFakeSubmissionRepo(),
		games:       newFakeGameRepo(),
		ratings:     newFakeRatingRepo(),
		audits:      newFakeAuditRepo(),
		hub:         &fakeHub{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	env.finalizer = NewFinalizeService(
		env.db, env.matches, env.slots, env.submissions,
		env.games, env.ratings, env.audits, env.hub, logger,
	)
	env.slotSvc = NewSlotService(
		env.db, env.matches, env.slots, env.submissions, env.games,
		env.ratings, env.audits, env.finalizer, fakeUploader{}, env.hub, logger,
	)
	return env
}

// seedMatch создаёт матч без назначенной даты (окно всегда открыто) с
// обоими слотами в статусе scheduled.
func (e *testEnv) seedMatch(t *testing.T) *models.Match {
	t.Helper()
	ctx := context.Background()

	match := &models.Match{LeagueID: 1, P1ID: 10, P2ID: 20, Timezone: "UTC"}
	require.NoError(t, e.matches.Create(ctx, nil, match))
	for _, discipline := range []models.Discipline{models.DisciplineEightBall, models.DisciplineNineBall} {
		slot := &models.MatchSlot{
			MatchID:    match.ID,
			Discipline: discipline,
			Status:     models.SlotStatusScheduled,
		}
		require.NoError(t, e.slots.Create(ctx, nil, slot))
	}
	return match
}

func (e *testEnv) ratingOf(t *testing.T, playerID int) models.PlayerRatingRecord {
	t.Helper()
	rec, err := e.ratings.GetByLeagueAndPlayer(context.Background(), nil, 1, playerID)
	require.NoError(t, err)
	rec.UpdatedAt = time.Time{}
	return *rec
}
