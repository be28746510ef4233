// Package chat drives the guarded question-to-answer pipeline: one model call
// to plan, an optional validated query against the market store, and at most
// one more model call to verbalize the rows. The model never holds a store
// handle; its output reaches the executor only as a sqlguard.ValidatedQuery.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mercato/mercato/internal/llm"
	"github.com/mercato/mercato/internal/observability"
	"github.com/mercato/mercato/internal/query"
	"github.com/mercato/mercato/internal/schema"
	"github.com/mercato/mercato/internal/sqlguard"
)

// Answer is the successful outcome of a chat request. SQL is empty when the
// model answered directly without touching the store.
type Answer struct {
	Answer   string `json:"answer"`
	SQL      string `json:"sql,omitempty"`
	RowCount int    `json:"row_count"`
}

type Service struct {
	model  llm.Client
	runner query.Runner
	card   *schema.Card
	logger *slog.Logger
}

func NewService(model llm.Client, runner query.Runner, card *schema.Card, logger *slog.Logger) (*Service, error) {
	if model == nil {
		return nil, fmt.Errorf("model client is required")
	}
	if runner == nil {
		return nil, fmt.Errorf("query runner is required")
	}
	if card == nil {
		return nil, fmt.Errorf("schema card is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{model: model, runner: runner, card: card, logger: logger}, nil
}

// Ask runs one question through the pipeline. Failures come back as a
// *PipelineError whose Kind distinguishes them for callers and monitoring;
// the flow never loops, so a request costs at most two model calls.
func (s *Service) Ask(ctx context.Context, question string) (*Answer, error) {
	started := time.Now()
	answer, err := s.ask(ctx, question)
	if err != nil {
		observability.ObserveChatRequest(outcomeLabel(err), time.Since(started))
		return nil, err
	}
	observability.ObserveChatRequest("ok", time.Since(started))
	return answer, nil
}

func (s *Service) ask(ctx context.Context, question string) (*Answer, error) {
	logger := s.logger
	if traceID := observability.TraceIDFromContext(ctx); traceID != "" {
		logger = logger.With(slog.String("trace_id", traceID))
	}

	planStarted := time.Now()
	raw, err := s.model.Complete(ctx, buildPlanPrompt(question, s.card.Text()))
	observability.ObserveModelCall("plan", time.Since(planStarted))
	if err != nil {
		if errors.Is(err, llm.ErrMalformed) {
			logger.Warn("plan response unusable", slog.String("error", err.Error()))
			return nil, newPipelineError(KindModelMalformedResponse, "the model returned a response that could not be understood", err)
		}
		logger.Warn("model unreachable during planning", slog.String("error", err.Error()))
		return nil, newPipelineError(KindModelUnreachable, "the language model backend is currently unreachable", err)
	}

	plan, err := ParsePlan(raw)
	if err != nil {
		logger.Warn("plan parse failed", slog.String("error", err.Error()), slog.String("raw", raw))
		return nil, newPipelineError(KindModelMalformedResponse, "the model returned a response that could not be understood", err)
	}
	if plan.IsFinal() {
		return &Answer{Answer: plan.Answer}, nil
	}

	validated, err := sqlguard.Validate(plan.SQL)
	if err != nil {
		var violation *sqlguard.Violation
		if errors.As(err, &violation) {
			observability.IncrementSQLRejected(violation.Rule)
			logger.Warn("generated sql rejected",
				slog.String("rule", violation.Rule),
				slog.String("sql", plan.SQL))
		}
		return nil, newPipelineError(KindUnsafeSQLRejected, "the generated query was rejected by the safety rules", err)
	}

	result, err := s.runner.Run(ctx, validated)
	if err != nil {
		logger.Warn("validated query failed",
			slog.String("sql", validated.SQL()),
			slog.String("error", err.Error()))
		return nil, newPipelineError(KindQueryExecutionFailed, "the generated query could not be executed against the market data", err)
	}
	observability.ObserveChatQueryRows(len(result.Rows))

	verbalizeStarted := time.Now()
	text, err := s.model.Complete(ctx, buildVerbalizePrompt(question, result))
	observability.ObserveModelCall("verbalize", time.Since(verbalizeStarted))
	if err != nil {
		logger.Warn("verbalization failed", slog.String("error", err.Error()))
		return nil, newPipelineError(KindVerbalizationFailed, "the query succeeded but the answer could not be written", err)
	}

	return &Answer{
		Answer:   strings.TrimSpace(text),
		SQL:      validated.SQL(),
		RowCount: len(result.Rows),
	}, nil
}

func outcomeLabel(err error) string {
	var perr *PipelineError
	if errors.As(err, &perr) {
		return string(perr.Kind)
	}
	return "error"
}
