package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/mercato/mercato/internal/auth"
	"github.com/mercato/mercato/internal/market"
	"github.com/mercato/mercato/internal/observability"
)

type transferRequest struct {
	PlayerID int64 `json:"player_id"`
	ToClubID int64 `json:"to_club_id"`
	Fee      int64 `json:"fee"`
}

func handleExecuteTransfer(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Market == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "MARKET_NOT_CONFIGURED", "market dependency is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleMarketWrite); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var req transferRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid transfer request body", false, map[string]any{"details": err.Error()})
		return
	}
	if req.PlayerID <= 0 || req.ToClubID <= 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "TRANSFER_INVALID", "player_id and to_club_id are required", false, nil)
		return
	}
	if req.Fee < 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "FEE_INVALID", "fee must not be negative", false, nil)
		return
	}

	transfer, err := deps.Market.ExecuteTransfer(r.Context(), market.TransferInput{
		PlayerID: req.PlayerID,
		ToClubID: req.ToClubID,
		Fee:      req.Fee,
	})
	if err != nil {
		switch {
		case errors.Is(err, market.ErrNotFound):
			writeError(r.Context(), w, http.StatusNotFound, "NOT_FOUND", "player or club was not found", false, nil)
		case errors.Is(err, market.ErrSameClub):
			writeError(r.Context(), w, http.StatusBadRequest, "SAME_CLUB", "player already belongs to that club", false, nil)
		case errors.Is(err, market.ErrInsufficientBudget):
			observability.IncrementTransfer("rejected")
			writeError(r.Context(), w, http.StatusConflict, "INSUFFICIENT_BUDGET", "buying club cannot afford the fee", false, map[string]any{
				"player_id":  req.PlayerID,
				"to_club_id": req.ToClubID,
				"fee":        req.Fee,
			})
		default:
			writeError(r.Context(), w, http.StatusInternalServerError, "MARKET_ERROR", "failed to execute transfer", true, map[string]any{"details": err.Error()})
		}
		return
	}
	observability.IncrementTransfer("completed")
	writeJSON(w, http.StatusCreated, transferJSON(transfer))
}

func handleListTransfers(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Market == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "MARKET_NOT_CONFIGURED", "market dependency is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleMarketRead); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(r.Context(), w, http.StatusBadRequest, "LIMIT_INVALID", "limit must be a positive integer", false, nil)
			return
		}
		limit = parsed
	}

	transfers, err := deps.Market.ListTransfers(r.Context(), limit)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "MARKET_ERROR", "failed to list transfers", true, map[string]any{"details": err.Error()})
		return
	}
	items := make([]map[string]any, 0, len(transfers))
	for _, transfer := range transfers {
		items = append(items, transferJSON(transfer))
	}
	writeJSON(w, http.StatusOK, map[string]any{"transfers": items})
}

func transferJSON(transfer market.Transfer) map[string]any {
	return map[string]any{
		"transfer_id":  transfer.TransferID,
		"player_id":    transfer.PlayerID,
		"from_club_id": transfer.FromClubID,
		"to_club_id":   transfer.ToClubID,
		"fee":          transfer.Fee,
		"created_at":   transfer.CreatedAt,
	}
}
