package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/mercato/mercato/internal/auth"
	"github.com/mercato/mercato/internal/chat"
	"github.com/mercato/mercato/internal/sqlguard"
)

type chatRequest struct {
	Question string `json:"question"`
}

func handleChat(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Chat == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CHAT_NOT_CONFIGURED", "chat dependencies are not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleChat); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var req chatRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid chat request body", false, map[string]any{"details": err.Error()})
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}

	ctx := r.Context()
	if deps.ChatTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, deps.ChatTimeout)
		defer cancel()
	}

	answer, err := deps.Chat.Ask(ctx, question)
	if err != nil {
		writeChatError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"answer":    answer.Answer,
		"sql":       answer.SQL,
		"row_count": answer.RowCount,
	})
}

// writeChatError maps pipeline failure kinds onto statuses: backend trouble
// is a 502, a rejected or failing generated query is a 422 the caller can
// rephrase away.
func writeChatError(ctx context.Context, w http.ResponseWriter, err error) {
	var perr *chat.PipelineError
	if !errors.As(err, &perr) {
		writeError(ctx, w, http.StatusInternalServerError, "CHAT_ERROR", "chat request failed", true, nil)
		return
	}

	var extra map[string]any
	var violation *sqlguard.Violation
	if errors.As(perr, &violation) {
		extra = map[string]any{"rule": violation.Rule}
	}

	switch perr.Kind {
	case chat.KindModelUnreachable:
		writeError(ctx, w, http.StatusBadGateway, "MODEL_UNREACHABLE", perr.Message, true, extra)
	case chat.KindModelMalformedResponse:
		writeError(ctx, w, http.StatusBadGateway, "MODEL_MALFORMED_RESPONSE", perr.Message, true, extra)
	case chat.KindUnsafeSQLRejected:
		writeError(ctx, w, http.StatusUnprocessableEntity, "UNSAFE_SQL_REJECTED", perr.Message, false, extra)
	case chat.KindQueryExecutionFailed:
		writeError(ctx, w, http.StatusUnprocessableEntity, "QUERY_EXECUTION_FAILED", perr.Message, false, extra)
	case chat.KindVerbalizationFailed:
		writeError(ctx, w, http.StatusBadGateway, "VERBALIZATION_FAILED", perr.Message, true, extra)
	default:
		writeError(ctx, w, http.StatusInternalServerError, "CHAT_ERROR", perr.Message, true, extra)
	}
}
