// Package query executes validated read-only SQL against the market store
// and materializes rows with stable column labels.
package query

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mercato/mercato/internal/sqlguard"
)

// Result holds an executed query's rows. Every row carries the same label
// set; labels are synthesized positionally when the driver supplies none.
type Result struct {
	Columns  []string
	Rows     []map[string]any
	Duration time.Duration
}

type Runner interface {
	Run(ctx context.Context, q sqlguard.ValidatedQuery) (*Result, error)
}

type Executor struct {
	db *sql.DB
}

func NewExecutor(db *sql.DB) *Executor {
	return &Executor{db: db}
}

// Run executes a query that already passed the safety validator. Accepting
// only sqlguard.ValidatedQuery keeps unvalidated model output away from the
// store at the type level.
func (e *Executor) Run(ctx context.Context, q sqlguard.ValidatedQuery) (*Result, error) {
	sqlText := q.SQL()
	if strings.TrimSpace(sqlText) == "" {
		return nil, fmt.Errorf("validated query is empty")
	}

	start := time.Now()
	rows, err := e.db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	labels := labelColumns(columns)

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(labels))
		scanTargets := make([]any, len(labels))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(map[string]any, len(labels))
		for i, value := range normalizeValues(values) {
			row[labels[i]] = value
		}
		resultRows = append(resultRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return &Result{
		Columns:  labels,
		Rows:     resultRows,
		Duration: time.Since(start),
	}, nil
}

// labelColumns fills in positional names for columns the driver left blank so
// verbalization always has a consistent mapping to render.
func labelColumns(columns []string) []string {
	labels := make([]string, len(columns))
	for i, column := range columns {
		if strings.TrimSpace(column) == "" {
			labels[i] = fmt.Sprintf("col%d", i+1)
		} else {
			labels[i] = column
		}
	}
	return labels
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}
