package api

import (
	"net/http"

	"github.com/mercato/mercato/internal/auth"
)

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Card == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "schema card is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleMarketRead); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tables": deps.Card.Tables(),
		"text":   deps.Card.Text(),
	})
}
