// Package schema builds the read-only description of the queryable tables
// that grounds every chat prompt. The card is built once at startup and
// never mutated, so concurrent requests share it without locking.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// migrationsTable is bookkeeping, not market data; it never appears in the card.
const migrationsTable = "mercato_schema_migrations"

type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Card is the immutable schema snapshot. Identical database schema always
// produces an identical Text(), table order and column order included, so
// prompts stay reproducible across restarts.
type Card struct {
	tables []Table
	text   string
}

// NewCard builds a card from an already-known table list. Build is the normal
// path; this one serves tests and clients that receive the table list over
// the wire.
func NewCard(tables []Table) *Card {
	copied := make([]Table, len(tables))
	copy(copied, tables)
	return &Card{tables: copied, text: renderText(copied)}
}

func Build(ctx context.Context, db *sql.DB) (*Card, error) {
	tableRows, err := db.QueryContext(ctx, `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = 'public'
  AND table_type = 'BASE TABLE'
  AND table_name <> $1
ORDER BY table_name ASC`, migrationsTable)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = tableRows.Close() }()

	names := make([]string, 0)
	for tableRows.Next() {
		var name string
		if err := tableRows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := tableRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table names: %w", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no queryable tables in schema")
	}

	columnRows, err := db.QueryContext(ctx, `
SELECT table_name, column_name, data_type
FROM information_schema.columns
WHERE table_schema = 'public'
  AND table_name <> $1
ORDER BY table_name ASC, ordinal_position ASC`, migrationsTable)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	defer func() { _ = columnRows.Close() }()

	columnsByTable := make(map[string][]Column, len(names))
	for columnRows.Next() {
		var tableName string
		var column Column
		if err := columnRows.Scan(&tableName, &column.Name, &column.Type); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		columnsByTable[tableName] = append(columnsByTable[tableName], column)
	}
	if err := columnRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate column rows: %w", err)
	}

	tables := make([]Table, 0, len(names))
	for _, name := range names {
		tables = append(tables, Table{Name: name, Columns: columnsByTable[name]})
	}
	return &Card{tables: tables, text: renderText(tables)}, nil
}

func (c *Card) Tables() []Table {
	return c.tables
}

func (c *Card) Text() string {
	return c.text
}

func renderText(tables []Table) string {
	var b strings.Builder
	for _, table := range tables {
		b.WriteString(table.Name)
		b.WriteString("(")
		for i, column := range table.Columns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(column.Name)
			b.WriteString(" ")
			b.WriteString(column.Type)
		}
		b.WriteString(")\n")
	}
	return b.String()
}
