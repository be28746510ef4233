package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/mercato/mercato/internal/auth"
	"github.com/mercato/mercato/internal/market"
)

type playerCreateRequest struct {
	Name        string `json:"name"`
	Position    string `json:"position"`
	MarketValue int64  `json:"market_value"`
	ClubID      *int64 `json:"club_id"`
}

func handleCreatePlayer(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Market == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "MARKET_NOT_CONFIGURED", "market dependency is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleMarketWrite); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var req playerCreateRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid create player request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "NAME_REQUIRED", "name is required", false, nil)
		return
	}
	if !market.ValidPosition(req.Position) {
		writeError(r.Context(), w, http.StatusBadRequest, "POSITION_INVALID", "position must be one of GK, DF, MF, FW", false, nil)
		return
	}
	if req.MarketValue < 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "MARKET_VALUE_INVALID", "market_value must not be negative", false, nil)
		return
	}

	player, err := deps.Market.CreatePlayer(r.Context(), market.CreatePlayerInput{
		Name:        strings.TrimSpace(req.Name),
		Position:    req.Position,
		MarketValue: req.MarketValue,
		ClubID:      req.ClubID,
	})
	if err != nil {
		if errors.Is(err, market.ErrNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "CLUB_NOT_FOUND", "club was not found", false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "MARKET_ERROR", "failed to create player", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, playerJSON(player))
}

func handleListPlayers(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Market == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "MARKET_NOT_CONFIGURED", "market dependency is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleMarketRead); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var filter market.PlayerFilter
	if raw := strings.TrimSpace(r.URL.Query().Get("club_id")); raw != "" {
		clubID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || clubID <= 0 {
			writeError(r.Context(), w, http.StatusBadRequest, "CLUB_ID_INVALID", "club_id must be a positive integer", false, nil)
			return
		}
		filter.ClubID = &clubID
	}

	players, err := deps.Market.ListPlayers(r.Context(), filter)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "MARKET_ERROR", "failed to list players", true, map[string]any{"details": err.Error()})
		return
	}
	items := make([]map[string]any, 0, len(players))
	for _, player := range players {
		items = append(items, playerJSON(player))
	}
	writeJSON(w, http.StatusOK, map[string]any{"players": items})
}

func handleGetPlayer(deps Dependencies, w http.ResponseWriter, r *http.Request) {
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

	player, err := deps.Market.GetPlayer(r.Context(), id)
	if err != nil {
		if errors.Is(err, market.ErrNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "PLAYER_NOT_FOUND", "player was not found", false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "MARKET_ERROR", "failed to load player", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, playerJSON(player))
}

func playerJSON(player market.Player) map[string]any {
	return map[string]any{
		"player_id":    player.PlayerID,
		"name":         player.Name,
		"position":     player.Position,
		"market_value": player.MarketValue,
		"club_id":      player.ClubID,
		"created_at":   player.CreatedAt,
	}
}
