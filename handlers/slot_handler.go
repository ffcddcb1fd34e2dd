package handlers

import (
	"net/http"

	"github.com/chalkline/league-system/middleware"
	"github.com/chalkline/league-system/models"
	"github.com/chalkline/league-system/services"
)

type SlotHandler struct {
	slotService services.SlotService
	finalizer   services.FinalizeService
}

func NewSlotHandler(slotService services.SlotService, finalizer services.FinalizeService) *SlotHandler {
	return &SlotHandler{slotService: slotService, finalizer: finalizer}
}

type scorecardInput struct {
	ScoreP1  int                 `json:"score_p1"`
	ScoreP2  int                 `json:"score_p2"`
	WinnerID int                 `json:"winner_id"`
	Games    []models.GameResult `json:"games"`
}

func (in *scorecardInput) toScorecard() *services.Scorecard {
	return &services.Scorecard{
		ScoreP1:  in.ScoreP1,
		ScoreP2:  in.ScoreP2,
		WinnerID: in.WinnerID,
		Games:    in.Games,
	}
}

func (h *SlotHandler) slotParams(w http.ResponseWriter, r *http.Request) (int, models.Discipline, bool) {
	matchID, err := getIntParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return 0, "", false
	}
	discipline, err := getDisciplineParam(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return 0, "", false
	}
	return matchID, discipline, true
}

func (h *SlotHandler) Start(w http.ResponseWriter, r *http.Request) {
	matchID, discipline, ok := h.slotParams(w, r)
	if !ok {
		return
	}

	var input struct {
		RaceLength models.RaceLength `json:"race_length"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	callerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	callerRole, err := middleware.GetUserRoleFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	slot, err := h.slotService.StartSlot(r.Context(), matchID, discipline, input.RaceLength, callerID, callerRole)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"slot": slot}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SlotHandler) Submit(w http.ResponseWriter, r *http.Request) {
	matchID, discipline, ok := h.slotParams(w, r)
	if !ok {
		return
	}

	var input scorecardInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	submitterID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	slot, err := h.slotService.SubmitScorecard(r.Context(), matchID, discipline, submitterID, input.toScorecard())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusAccepted, jsonResponse{"slot": slot}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SlotHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	matchID, discipline, ok := h.slotParams(w, r)
	if !ok {
		return
	}

	var input scorecardInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	audit, err := h.slotService.ResolveDispute(r.Context(), matchID, discipline, input.toScorecard())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"audit": audit}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Reset откатывает финализированный слот к состоянию scheduled,
// возвращая рейтинги к значениям до финализации.
func (h *SlotHandler) Reset(w http.ResponseWriter, r *http.Request) {
	matchID, discipline, ok := h.slotParams(w, r)
	if !ok {
		return
	}

	slot, err := h.finalizer.Reverse(r.Context(), matchID, discipline)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"slot": slot}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SlotHandler) Get(w http.ResponseWriter, r *http.Request) {
	matchID, discipline, ok := h.slotParams(w, r)
	if !ok {
		return
	}

	view, err := h.slotService.GetSlot(r.Context(), matchID, discipline)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, view, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SlotHandler) GetAudit(w http.ResponseWriter, r *http.Request) {
	matchID, discipline, ok := h.slotParams(w, r)
	if !ok {
		return
	}

	audit, err := h.slotService.GetAudit(r.Context(), matchID, discipline)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"audit": audit}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AttachEvidence принимает multipart-файл со скан-копией протокола и
// прикрепляет его к сабмиту вызывающего.
func (h *SlotHandler) AttachEvidence(w http.ResponseWriter, r *http.Request) {
	matchID, discipline, ok := h.slotParams(w, r)
	if !ok {
		return
	}

	submitterID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	file, header, err := r.FormFile("evidence")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	submission, err := h.slotService.AttachEvidence(r.Context(), matchID, discipline, submitterID, contentType, file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"submission": submission}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
