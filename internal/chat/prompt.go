package chat

import (
	"fmt"
	"strings"

	"github.com/mercato/mercato/internal/query"
)

// Prompt rendering caps. The validator already bounds how many rows the store
// can return; these bound how much of that result is replayed into the
// verbalization prompt.
const (
	promptMaxRows     = 30
	promptMaxFieldLen = 120
)

func buildPlanPrompt(question, schemaText string) string {
	var b strings.Builder
	b.WriteString("You answer questions about a football transfer market database.\n\n")
	b.WriteString("Schema:\n")
	b.WriteString(schemaText)
	b.WriteString("\nIf the question needs data, write a single PostgreSQL SELECT statement. ")
	b.WriteString("If it can be answered without querying, answer directly.\n\n")
	b.WriteString("Respond with exactly one of these two JSON shapes and nothing else:\n")
	b.WriteString("{\"type\":\"sql\",\"sql\":\"<one SELECT statement>\"}\n")
	b.WriteString("{\"type\":\"final\",\"answer\":\"<direct answer>\"}\n")
	b.WriteString("No prose, no markdown, no explanation outside the JSON.\n\n")
	b.WriteString("Question: ")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n")
	return b.String()
}

func buildVerbalizePrompt(question string, result *query.Result) string {
	var b strings.Builder
	b.WriteString("Answer the question using ONLY the query result below. ")
	b.WriteString("Do not use outside knowledge. ")
	b.WriteString("If the result is empty, say that no matching data was found.\n\n")
	b.WriteString("Question: ")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n\nQuery result:\n")
	b.WriteString(renderRows(result))
	b.WriteString("\nAnswer in one or two plain sentences.\n")
	return b.String()
}

// renderRows writes at most promptMaxRows rows as label=value lines, each
// field truncated to promptMaxFieldLen runes.
func renderRows(result *query.Result) string {
	if result == nil || len(result.Rows) == 0 {
		return "(no rows)\n"
	}
	rows := result.Rows
	omitted := 0
	if len(rows) > promptMaxRows {
		omitted = len(rows) - promptMaxRows
		rows = rows[:promptMaxRows]
	}
	var b strings.Builder
	for _, row := range rows {
		fields := make([]string, 0, len(result.Columns))
		for _, column := range result.Columns {
			fields = append(fields, column+"="+truncateField(formatValue(row[column])))
		}
		b.WriteString(strings.Join(fields, ", "))
		b.WriteString("\n")
	}
	if omitted > 0 {
		fmt.Fprintf(&b, "(%d more rows omitted)\n", omitted)
	}
	return b.String()
}

func formatValue(value any) string {
	if value == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", value)
}

func truncateField(value string) string {
	runes := []rune(value)
	if len(runes) <= promptMaxFieldLen {
		return value
	}
	return string(runes[:promptMaxFieldLen]) + "..."
}
