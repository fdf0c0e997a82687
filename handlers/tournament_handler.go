package handlers

import (
	"net/http"

	"github.com/Dosada05/darts-league/services"
	"github.com/go-chi/chi/v5"
)

type TournamentHandler struct {
	tournamentService services.TournamentService
}

func NewTournamentHandler(tournamentService services.TournamentService) *TournamentHandler {
	return &TournamentHandler{tournamentService: tournamentService}
}

// Get собирает полные данные турнира, включая группы и актуальное
// состояние сетки плей-офф.
func (h *TournamentHandler) Get(w http.ResponseWriter, r *http.Request) {
	tournament, err := h.tournamentService.GetTournament(r.Context(), chi.URLParam(r, "tournamentID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListUnlinked отдаёт завершённые турниры, ещё не привязанные ни к одной
// лиге. Используется формой привязки.
func (h *TournamentHandler) ListUnlinked(w http.ResponseWriter, r *http.Request) {
	tournaments, err := h.tournamentService.ListUnlinked(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetSummary отдаёт номинации турнира: лучший средний набор, лучший
// чекаут, больше всего 180.
func (h *TournamentHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.tournamentService.GetSummary(r.Context(), chi.URLParam(r, "tournamentID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"summary": summary}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
