package handlers

import (
	"net/http"
	"time"

	"github.com/chalkline/league-system/services"
)

type MatchHandler struct {
	dashboardService services.DashboardService
}

func NewMatchHandler(dashboardService services.DashboardService) *MatchHandler {
	return &MatchHandler{dashboardService: dashboardService}
}

func (h *MatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input struct {
		LeagueID      int        `json:"league_id"`
		P1ID          int        `json:"p1_id"`
		P2ID          int        `json:"p2_id"`
		ScheduledDate *time.Time `json:"scheduled_date"`
		Timezone      string     `json:"timezone"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.dashboardService.CreateMatch(r.Context(), input.LeagueID, input.P1ID, input.P2ID, input.ScheduledDate, input.Timezone)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIntParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	summary, err := h.dashboardService.GetMatchSummary(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"summary": summary}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
