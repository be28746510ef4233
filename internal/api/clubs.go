package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/mercato/mercato/internal/auth"
	"github.com/mercato/mercato/internal/market"
)

type clubCreateRequest struct {
	Name   string `json:"name"`
	Budget int64  `json:"budget"`
}

func handleCreateClub(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Market == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "MARKET_NOT_CONFIGURED", "market dependency is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleMarketWrite); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var req clubCreateRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid create club request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "NAME_REQUIRED", "name is required", false, nil)
		return
	}
	if req.Budget < 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "BUDGET_INVALID", "budget must not be negative", false, nil)
		return
	}

	club, err := deps.Market.CreateClub(r.Context(), market.CreateClubInput{
		Name:   strings.TrimSpace(req.Name),
		Budget: req.Budget,
	})
	if err != nil {
		if errors.Is(err, market.ErrDuplicateName) {
			writeError(r.Context(), w, http.StatusConflict, "NAME_TAKEN", "a club with that name already exists", false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "MARKET_ERROR", "failed to create club", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, clubJSON(club))
}

func handleListClubs(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Market == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "MARKET_NOT_CONFIGURED", "market dependency is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleMarketRead); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	clubs, err := deps.Market.ListClubs(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "MARKET_ERROR", "failed to list clubs", true, map[string]any{"details": err.Error()})
		return
	}
	items := make([]map[string]any, 0, len(clubs))
	for _, club := range clubs {
		items = append(items, clubJSON(club))
	}
	writeJSON(w, http.StatusOK, map[string]any{"clubs": items})
}

func handleGetClub(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Market == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "MARKET_NOT_CONFIGURED", "market dependency is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleMarketRead); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_ID", err.Error(), false, nil)
		return
	}

	club, err := deps.Market.GetClub(r.Context(), id)
	if err != nil {
		if errors.Is(err, market.ErrNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "CLUB_NOT_FOUND", "club was not found", false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "MARKET_ERROR", "failed to load club", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, clubJSON(club))
}

func clubJSON(club market.Club) map[string]any {
	return map[string]any{
		"club_id":    club.ClubID,
		"name":       club.Name,
		"budget":     club.Budget,
		"created_at": club.CreatedAt,
	}
}
