package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Dosada05/darts-league/services"
	"github.com/go-chi/chi/v5"
)

type LeagueHandler struct {
	leagueService  services.LeagueService
	scoringService services.ScoringService
}

func NewLeagueHandler(leagueService services.LeagueService, scoringService services.ScoringService) *LeagueHandler {
	return &LeagueHandler{
		leagueService:  leagueService,
		scoringService: scoringService,
	}
}

func (h *LeagueHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreateLeagueInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	league, err := h.leagueService.CreateLeague(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"league": league}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LeagueHandler) Get(w http.ResponseWriter, r *http.Request) {
	league, err := h.leagueService.GetLeague(r.Context(), chi.URLParam(r, "leagueID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"league": league}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LeagueHandler) List(w http.ResponseWriter, r *http.Request) {
	leagues, err := h.leagueService.ListLeagues(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"leagues": leagues}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LeagueHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input services.UpdateLeagueInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	league, err := h.leagueService.UpdateLeague(r.Context(), chi.URLParam(r, "leagueID"), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"league": league}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LeagueHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.leagueService.DeleteLeague(r.Context(), chi.URLParam(r, "leagueID")); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LeagueHandler) AddMembers(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Members []services.MemberInput `json:"members"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if len(input.Members) == 0 {
		badRequestResponse(w, r, errors.New("at least one member is required"))
		return
	}

	members, err := h.leagueService.AddMembers(r.Context(), chi.URLParam(r, "leagueID"), input.Members)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"members": members}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LeagueHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.leagueService.ListMembers(r.Context(), chi.URLParam(r, "leagueID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"members": members}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LeagueHandler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	var input services.UpdateMemberInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	member, err := h.leagueService.UpdateMember(r.Context(), chi.URLParam(r, "leagueID"), chi.URLParam(r, "playerID"), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"member": member}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LeagueHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	err := h.leagueService.RemoveMember(r.Context(), chi.URLParam(r, "leagueID"), chi.URLParam(r, "playerID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LeagueHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.leagueService.GetLeaderboard(r.Context(), chi.URLParam(r, "leagueID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"leaderboard": entries}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Recalculate запускает полный пересчёт результатов лиги и обновление
// кэша таблицы. Параметр ?force=true пересчитывает и уже посчитанные
// турниры.
func (h *LeagueHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	report, err := h.scoringService.UpdateLeaderboard(r.Context(), chi.URLParam(r, "leagueID"), force)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"report": report}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LeagueHandler) LinkTournament(w http.ResponseWriter, r *http.Request) {
	tournament, err := h.scoringService.LinkTournament(r.Context(), chi.URLParam(r, "leagueID"), chi.URLParam(r, "tournamentID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LeagueHandler) UnlinkTournament(w http.ResponseWriter, r *http.Request) {
	err := h.scoringService.UnlinkTournament(r.Context(), chi.URLParam(r, "leagueID"), chi.URLParam(r, "tournamentID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LeagueHandler) CalculateTournament(w http.ResponseWriter, r *http.Request) {
	results, err := h.scoringService.CalculateTournamentPlacements(r.Context(), chi.URLParam(r, "leagueID"), chi.URLParam(r, "tournamentID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"results": results}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LeagueHandler) SetPlayerPoints(w http.ResponseWriter, r *http.Request) {
	var input struct {
		TotalPoints *int `json:"total_points"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.TotalPoints == nil {
		badRequestResponse(w, r, errors.New("total_points is required"))
		return
	}

	err := h.scoringService.SetPlayerPoints(r.Context(), chi.URLParam(r, "leagueID"), chi.URLParam(r, "playerID"), *input.TotalPoints)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LeagueHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		badRequestResponse(w, r, fmt.Errorf("failed to parse multipart form: %w", err))
		return
	}

	file, header, err := r.FormFile("logo")
	if err != nil {
		badRequestResponse(w, r, fmt.Errorf("failed to get logo file from form: %w", err))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		badRequestResponse(w, r, errors.New("content-type header is required for logo"))
		return
	}

	league, err := h.leagueService.UploadLogo(r.Context(), chi.URLParam(r, "leagueID"), contentType, file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"league": league}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
