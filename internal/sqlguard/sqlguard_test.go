package sqlguard

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateRejectsStackedStatements(t *testing.T) {
	_, err := Validate("SELECT 1; DROP TABLE players")
	assertViolation(t, err, RuleMultiStatement)
}

func TestValidateAllowsSemicolonInsideStringLiteral(t *testing.T) {
	q, err := Validate("SELECT name FROM players WHERE name = 'a;b'")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !strings.Contains(q.SQL(), "'a;b'") {
		t.Fatalf("SQL() = %q", q.SQL())
	}
}

func TestValidateStripsTrailingSemicolon(t *testing.T) {
	q, err := Validate("SELECT name FROM players;")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if strings.Contains(q.SQL(), ";") {
		t.Fatalf("SQL() = %q still contains separator", q.SQL())
	}
}

func TestValidateRejectsWriteStatements(t *testing.T) {
	statements := []string{
		"INSERT INTO players (name) VALUES ('x')",
		"insert into players (name) values ('x')",
		"UPDATE players SET name = 'x'",
		"DELETE FROM players",
		"DROP TABLE players",
		"DrOp TaBlE players",
		"ALTER TABLE players ADD COLUMN x int",
		"CREATE TABLE hacks (id int)",
		"TRUNCATE players",
		"MERGE INTO players USING x ON true",
		"EXEC evil",
		"CALL evil()",
		"GRANT ALL ON players TO public",
	}
	for _, stmt := range statements {
		if _, err := Validate(stmt); err == nil {
			t.Fatalf("Validate(%q) accepted a write statement", stmt)
		}
	}
}

func TestValidateRejectsSelectForUpdate(t *testing.T) {
	_, err := Validate("SELECT budget FROM clubs WHERE club_id = 1 FOR UPDATE")
	assertViolation(t, err, RuleForbiddenKeyword)
}

func TestValidateRejectsCTEWithMutation(t *testing.T) {
	_, err := Validate("WITH doomed AS (DELETE FROM players RETURNING *) SELECT * FROM doomed")
	assertViolation(t, err, RuleForbiddenKeyword)
}

func TestValidateRejectsNonSelect(t *testing.T) {
	for _, stmt := range []string{"", "   ", "EXPLAIN SELECT 1", "SHOW TABLES", "???"} {
		_, err := Validate(stmt)
		assertViolation(t, err, RuleNotSelect)
	}
}

func TestValidateAcceptsKeywordLikeIdentifiers(t *testing.T) {
	q, err := Validate("SELECT created_at, updated_name FROM transfers")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !strings.HasPrefix(q.SQL(), "SELECT created_at") {
		t.Fatalf("SQL() = %q", q.SQL())
	}
}

func TestValidateIgnoresKeywordsInsideStringLiterals(t *testing.T) {
	q, err := Validate("SELECT name FROM players WHERE name = 'DROP TABLE x'")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !strings.Contains(q.SQL(), "'DROP TABLE x'") {
		t.Fatalf("SQL() = %q", q.SQL())
	}
}

func TestValidateAppendsRowCap(t *testing.T) {
	q, err := Validate("SELECT name FROM players")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if q.SQL() != "SELECT name FROM players LIMIT 200" {
		t.Fatalf("SQL() = %q", q.SQL())
	}
}

func TestValidateClampsOversizedLimit(t *testing.T) {
	q, err := Validate("SELECT name FROM players LIMIT 5000")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if q.SQL() != "SELECT name FROM players LIMIT 200" {
		t.Fatalf("SQL() = %q", q.SQL())
	}
}

func TestValidatePreservesSmallLimit(t *testing.T) {
	q, err := Validate("SELECT name FROM players LIMIT 50")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if q.SQL() != "SELECT name FROM players LIMIT 50" {
		t.Fatalf("SQL() = %q", q.SQL())
	}
}

func TestValidatePreservesLimitEqualToCap(t *testing.T) {
	q, err := Validate("SELECT name FROM players LIMIT 200")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if q.SQL() != "SELECT name FROM players LIMIT 200" {
		t.Fatalf("SQL() = %q", q.SQL())
	}
}

func TestValidateSubqueryLimitDoesNotBoundOuterQuery(t *testing.T) {
	q, err := Validate("SELECT * FROM (SELECT name FROM players LIMIT 5) AS top_players")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !strings.HasSuffix(q.SQL(), "LIMIT 200") {
		t.Fatalf("SQL() = %q, want outer LIMIT appended", q.SQL())
	}
	if !strings.Contains(q.SQL(), "LIMIT 5)") {
		t.Fatalf("SQL() = %q, inner limit should be untouched", q.SQL())
	}
}

func TestValidateClampsOuterLimitOnly(t *testing.T) {
	q, err := Validate("SELECT * FROM (SELECT name FROM players LIMIT 5) AS p LIMIT 9999")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !strings.HasSuffix(q.SQL(), "LIMIT 200") {
		t.Fatalf("SQL() = %q", q.SQL())
	}
	if !strings.Contains(q.SQL(), "LIMIT 5)") {
		t.Fatalf("SQL() = %q, inner limit should be untouched", q.SQL())
	}
}

func TestValidateRejectsNonIntegerLimit(t *testing.T) {
	for _, stmt := range []string{
		"SELECT name FROM players LIMIT ALL",
		"SELECT name FROM players LIMIT $1",
		"SELECT name FROM players LIMIT",
	} {
		_, err := Validate(stmt)
		assertViolation(t, err, RuleBadLimit)
	}
}

func TestValidateAcceptsReadOnlyCTE(t *testing.T) {
	q, err := Validate("WITH squad AS (SELECT name FROM players WHERE club_id = 1) SELECT count(*) FROM squad")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !strings.HasPrefix(q.SQL(), "WITH squad") {
		t.Fatalf("SQL() = %q", q.SQL())
	}
	if !strings.HasSuffix(q.SQL(), "LIMIT 200") {
		t.Fatalf("SQL() = %q, want row cap appended", q.SQL())
	}
}

func TestValidateRejectsUnterminatedStringLiteral(t *testing.T) {
	_, err := Validate("SELECT name FROM players WHERE name = 'oops")
	assertViolation(t, err, RuleUnbalancedQuote)
}

func TestValidatedQueryZeroValueIsEmpty(t *testing.T) {
	var q ValidatedQuery
	if q.SQL() != "" {
		t.Fatalf("zero value SQL() = %q", q.SQL())
	}
}

func assertViolation(t *testing.T, err error, rule string) {
	t.Helper()
	if err == nil {
		t.Fatal("expected a validation error")
	}
	var violation *Violation
	if !errors.As(err, &violation) {
		t.Fatalf("error = %T, want *Violation", err)
	}
	if violation.Rule != rule {
		t.Fatalf("Rule = %q, want %q", violation.Rule, rule)
	}
}
