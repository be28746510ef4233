package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mercato/mercato/internal/llm"
	"github.com/mercato/mercato/internal/query"
	"github.com/mercato/mercato/internal/schema"
	"github.com/mercato/mercato/internal/sqlguard"
)

type scriptedModel struct {
	responses []string
	errs      []error
	prompts   []string
}

func (m *scriptedModel) Complete(_ context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	call := len(m.prompts) - 1
	if call < len(m.errs) && m.errs[call] != nil {
		return "", m.errs[call]
	}
	if call < len(m.responses) {
		return m.responses[call], nil
	}
	return "", fmt.Errorf("unexpected model call %d", call+1)
}

type recordingRunner struct {
	result  *query.Result
	err     error
	queries []string
}

func (r *recordingRunner) Run(_ context.Context, q sqlguard.ValidatedQuery) (*query.Result, error) {
	r.queries = append(r.queries, q.SQL())
	if r.err != nil {
		return nil, r.err
	}
	return r.result, nil
}

func TestAskFinalPlanAnswersWithOneModelCall(t *testing.T) {
	model := &scriptedModel{responses: []string{`{"type":"final","answer":"Barcelona has 3 players"}`}}
	runner := &recordingRunner{}
	svc := newTestService(t, model, runner)

	answer, err := svc.Ask(context.Background(), "how many players does Barcelona have?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if answer.Answer != "Barcelona has 3 players" {
		t.Fatalf("Answer = %q", answer.Answer)
	}
	if answer.SQL != "" || answer.RowCount != 0 {
		t.Fatalf("final plan should not carry query details: %+v", answer)
	}
	if len(model.prompts) != 1 {
		t.Fatalf("model called %d times, want 1", len(model.prompts))
	}
	if len(runner.queries) != 0 {
		t.Fatal("store queried for a final plan")
	}
}

func TestAskSQLPlanExecutesThenVerbalizes(t *testing.T) {
	model := &scriptedModel{responses: []string{
		`{"type":"sql","sql":"SELECT name FROM players WHERE club_id = 1"}`,
		"Club 1 has Pedri, Gavi and Yamal.\n",
	}}
	runner := &recordingRunner{result: &query.Result{
		Columns: []string{"name"},
		Rows: []map[string]any{
			{"name": "Pedri"},
			{"name": "Gavi"},
			{"name": "Yamal"},
		},
	}}
	svc := newTestService(t, model, runner)

	answer, err := svc.Ask(context.Background(), "who plays for club 1?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if answer.Answer != "Club 1 has Pedri, Gavi and Yamal." {
		t.Fatalf("Answer = %q", answer.Answer)
	}
	if answer.RowCount != 3 {
		t.Fatalf("RowCount = %d, want 3", answer.RowCount)
	}
	if answer.SQL != "SELECT name FROM players WHERE club_id = 1 LIMIT 200" {
		t.Fatalf("SQL = %q", answer.SQL)
	}
	if len(model.prompts) != 2 {
		t.Fatalf("model called %d times, want 2", len(model.prompts))
	}
	if len(runner.queries) != 1 || runner.queries[0] != answer.SQL {
		t.Fatalf("executed queries = %v", runner.queries)
	}
	if !strings.Contains(model.prompts[1], "name=Pedri") {
		t.Fatalf("verbalize prompt missing result rows:\n%s", model.prompts[1])
	}
}

func TestAskRejectsUnsafePlanBeforeStore(t *testing.T) {
	model := &scriptedModel{responses: []string{`{"type":"sql","sql":"SELECT 1; DROP TABLE players"}`}}
	runner := &recordingRunner{}
	svc := newTestService(t, model, runner)

	_, err := svc.Ask(context.Background(), "wipe the squad")
	perr := assertPipelineError(t, err, KindUnsafeSQLRejected)

	var violation *sqlguard.Violation
	if !errors.As(perr, &violation) {
		t.Fatalf("error chain missing the violated rule: %v", err)
	}
	if violation.Rule != sqlguard.RuleMultiStatement {
		t.Fatalf("Rule = %q", violation.Rule)
	}
	if len(runner.queries) != 0 {
		t.Fatal("rejected sql reached the store")
	}
	if len(model.prompts) != 1 {
		t.Fatalf("model called %d times, want 1", len(model.prompts))
	}
}

func TestAskMalformedPlanNeverExecutes(t *testing.T) {
	cases := map[string]string{
		"unknown type": `{"type":"plan","sql":"SELECT 1"}`,
		"missing type": `{"sql":"SELECT 1"}`,
		"free text":    "sure, run SELECT 1",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			model := &scriptedModel{responses: []string{raw}}
			runner := &recordingRunner{}
			svc := newTestService(t, model, runner)

			_, err := svc.Ask(context.Background(), "anything")
			assertPipelineError(t, err, KindModelMalformedResponse)
			if len(runner.queries) != 0 {
				t.Fatal("malformed plan reached the store")
			}
			if len(model.prompts) != 1 {
				t.Fatalf("model called %d times, want 1", len(model.prompts))
			}
		})
	}
}

func TestAskMapsModelClientFailures(t *testing.T) {
	unreachable := &scriptedModel{errs: []error{fmt.Errorf("%w: connection refused", llm.ErrUnreachable)}}
	svc := newTestService(t, unreachable, &recordingRunner{})
	_, err := svc.Ask(context.Background(), "anything")
	assertPipelineError(t, err, KindModelUnreachable)

	malformed := &scriptedModel{errs: []error{fmt.Errorf("%w: no recognized envelope", llm.ErrMalformed)}}
	svc = newTestService(t, malformed, &recordingRunner{})
	_, err = svc.Ask(context.Background(), "anything")
	assertPipelineError(t, err, KindModelMalformedResponse)
}

func TestAskKeepsStoreErrorsOutOfUserMessage(t *testing.T) {
	model := &scriptedModel{responses: []string{`{"type":"sql","sql":"SELECT name FROM playerz"}`}}
	runner := &recordingRunner{err: fmt.Errorf(`run query: relation "playerz" does not exist`)}
	svc := newTestService(t, model, runner)

	_, err := svc.Ask(context.Background(), "who plays?")
	perr := assertPipelineError(t, err, KindQueryExecutionFailed)
	if strings.Contains(perr.Message, "playerz") {
		t.Fatalf("store internals leaked into user message: %q", perr.Message)
	}
	if len(model.prompts) != 1 {
		t.Fatalf("model called %d times, want 1", len(model.prompts))
	}
}

func TestAskReportsVerbalizationFailure(t *testing.T) {
	model := &scriptedModel{
		responses: []string{`{"type":"sql","sql":"SELECT name FROM players LIMIT 5"}`, ""},
		errs:      []error{nil, fmt.Errorf("%w: status=500", llm.ErrUnreachable)},
	}
	runner := &recordingRunner{result: &query.Result{
		Columns: []string{"name"},
		Rows:    []map[string]any{{"name": "Pedri"}},
	}}
	svc := newTestService(t, model, runner)

	_, err := svc.Ask(context.Background(), "who plays?")
	assertPipelineError(t, err, KindVerbalizationFailed)
	if len(model.prompts) != 2 {
		t.Fatalf("model called %d times, want 2", len(model.prompts))
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	card := testCard(t)
	model := &scriptedModel{}
	runner := &recordingRunner{}
	if _, err := NewService(nil, runner, card, nil); err == nil {
		t.Fatal("expected error for nil model")
	}
	if _, err := NewService(model, nil, card, nil); err == nil {
		t.Fatal("expected error for nil runner")
	}
	if _, err := NewService(model, runner, nil, nil); err == nil {
		t.Fatal("expected error for nil card")
	}
}

func newTestService(t *testing.T, model llm.Client, runner query.Runner) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := NewService(model, runner, testCard(t), logger)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc
}

func testCard(t *testing.T) *schema.Card {
	t.Helper()
	return schema.NewCard([]schema.Table{
		{Name: "clubs", Columns: []schema.Column{
			{Name: "club_id", Type: "bigint"},
			{Name: "name", Type: "text"},
			{Name: "budget", Type: "bigint"},
		}},
		{Name: "players", Columns: []schema.Column{
			{Name: "player_id", Type: "bigint"},
			{Name: "name", Type: "text"},
			{Name: "club_id", Type: "bigint"},
		}},
	})
}

func assertPipelineError(t *testing.T, err error, kind Kind) *PipelineError {
	t.Helper()
	if err == nil {
		t.Fatal("expected a pipeline error")
	}
	var perr *PipelineError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *PipelineError", err)
	}
	if perr.Kind != kind {
		t.Fatalf("Kind = %q, want %q", perr.Kind, kind)
	}
	return perr
}
