package handlers

import (
	"net/http"

	"github.com/chalkline/league-system/services"
)

type RatingHandler struct {
	dashboardService services.DashboardService
}

func NewRatingHandler(dashboardService services.DashboardService) *RatingHandler {
	return &RatingHandler{dashboardService: dashboardService}
}

func (h *RatingHandler) GetPlayerRating(w http.ResponseWriter, r *http.Request) {
	leagueID, err := getIntParam(r, "leagueID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	playerID, err := getIntParam(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	record, err := h.dashboardService.GetPlayerRating(r.Context(), leagueID, playerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"rating": record}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
