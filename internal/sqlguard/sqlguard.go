// Package sqlguard is the single trust boundary between the language model
// and the live database. Model output never reaches the executor directly:
// only Validate can mint a ValidatedQuery, and the executor accepts nothing
// else. The validator is conservative and rejects on ambiguity.
package sqlguard

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxRows caps the result size of every validated query. A missing LIMIT is
// appended, an oversized one clamped.
const MaxRows = 200

// Rule names recorded on rejection, in the order they are checked.
const (
	RuleUnbalancedQuote  = "unbalanced_quote"
	RuleMultiStatement   = "multi_statement"
	RuleNotSelect        = "not_select"
	RuleForbiddenKeyword = "forbidden_keyword"
	RuleBadLimit         = "bad_limit"
)

// forbiddenKeywords are rejected as statement-level tokens anywhere outside
// string literals. This is deliberately broader than the first-token check:
// it catches mutating sub-clauses such as SELECT ... FOR UPDATE.
var forbiddenKeywords = map[string]struct{}{
	"insert":   {},
	"update":   {},
	"delete":   {},
	"drop":     {},
	"alter":    {},
	"create":   {},
	"truncate": {},
	"merge":    {},
	"exec":     {},
	"call":     {},
	"grant":    {},
	"revoke":   {},
}

// ValidatedQuery is a SQL statement proven single, read-only, and
// row-bounded. The field is unexported so the only way to obtain a non-empty
// value is through Validate.
type ValidatedQuery struct {
	sql string
}

func (q ValidatedQuery) SQL() string {
	return q.sql
}

type Violation struct {
	Rule   string
	Detail string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("sql rejected (%s): %s", v.Rule, v.Detail)
}

// Validate applies the safety rules in order, first violation wins:
// single statement, SELECT/WITH only, keyword denylist, bounded LIMIT.
func Validate(candidate string) (ValidatedQuery, error) {
	text := stripTrailingSemicolons(candidate)
	if text == "" {
		return ValidatedQuery{}, &Violation{Rule: RuleNotSelect, Detail: "empty statement"}
	}

	tokens, balanced := scan(text)
	if !balanced {
		return ValidatedQuery{}, &Violation{Rule: RuleUnbalancedQuote, Detail: "unterminated string literal"}
	}

	for _, tok := range tokens {
		if tok.kind == tokenSeparator {
			return ValidatedQuery{}, &Violation{Rule: RuleMultiStatement, Detail: "statement separator outside string literal"}
		}
	}

	first := firstWord(tokens)
	if first != "select" && first != "with" {
		return ValidatedQuery{}, &Violation{Rule: RuleNotSelect, Detail: "statement must begin with SELECT or WITH"}
	}

	for _, tok := range tokens {
		if tok.kind != tokenWord {
			continue
		}
		if _, forbidden := forbiddenKeywords[tok.text]; forbidden {
			return ValidatedQuery{}, &Violation{Rule: RuleForbiddenKeyword, Detail: fmt.Sprintf("keyword %s is not allowed", strings.ToUpper(tok.text))}
		}
	}

	bounded, err := applyRowCap(text, tokens)
	if err != nil {
		return ValidatedQuery{}, err
	}
	return ValidatedQuery{sql: bounded}, nil
}

// applyRowCap enforces the row ceiling on the outermost LIMIT clause. A LIMIT
// inside a subquery does not count; only depth-zero clauses bound the result.
func applyRowCap(text string, tokens []token) (string, error) {
	limitIdx := -1
	for i, tok := range tokens {
		if tok.kind == tokenWord && tok.depth == 0 && tok.text == "limit" {
			limitIdx = i
		}
	}
	if limitIdx == -1 {
		return fmt.Sprintf("%s LIMIT %d", text, MaxRows), nil
	}
	if limitIdx+1 >= len(tokens) {
		return "", &Violation{Rule: RuleBadLimit, Detail: "limit clause has no argument"}
	}

	arg := tokens[limitIdx+1]
	if arg.kind != tokenNumber {
		return "", &Violation{Rule: RuleBadLimit, Detail: "limit argument must be a plain integer"}
	}
	n, err := strconv.Atoi(arg.text)
	if err != nil {
		return "", &Violation{Rule: RuleBadLimit, Detail: "limit argument must be a plain integer"}
	}
	if n > MaxRows {
		return text[:arg.start] + strconv.Itoa(MaxRows) + text[arg.end:], nil
	}
	return text, nil
}

type tokenKind int

const (
	tokenWord tokenKind = iota
	tokenNumber
	tokenSeparator
)

type token struct {
	text  string
	kind  tokenKind
	depth int
	start int
	end   int
}

// scan splits the statement into word, number, and separator tokens, skipping
// single-quoted literals and double-quoted identifiers ('' and "" escapes
// included) and tracking parenthesis depth. Returns false if a quote never
// closes.
func scan(text string) ([]token, bool) {
	tokens := make([]token, 0, 16)
	depth := 0
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == '\'' || c == '"':
			end, ok := skipQuoted(text, i, c)
			if !ok {
				return nil, false
			}
			i = end
		case c == '(':
			depth++
			i++
		case c == ')':
			if depth > 0 {
				depth--
			}
			i++
		case c == ';':
			tokens = append(tokens, token{text: ";", kind: tokenSeparator, depth: depth, start: i, end: i + 1})
			i++
		case isWordStart(c) || c == '$':
			start := i
			i++
			for i < len(text) && isWordChar(text[i]) {
				i++
			}
			tokens = append(tokens, token{
				text:  strings.ToLower(text[start:i]),
				kind:  tokenWord,
				depth: depth,
				start: start,
				end:   i,
			})
		case c >= '0' && c <= '9':
			start := i
			digitsOnly := true
			for i < len(text) && isWordChar(text[i]) {
				if text[i] < '0' || text[i] > '9' {
					digitsOnly = false
				}
				i++
			}
			kind := tokenNumber
			if !digitsOnly {
				kind = tokenWord
			}
			tokens = append(tokens, token{
				text:  strings.ToLower(text[start:i]),
				kind:  kind,
				depth: depth,
				start: start,
				end:   i,
			})
		default:
			i++
		}
	}
	return tokens, true
}

// skipQuoted advances past a quoted region starting at text[start], where a
// doubled quote is an escape. Returns the index after the closing quote.
func skipQuoted(text string, start int, quote byte) (int, bool) {
	i := start + 1
	for i < len(text) {
		if text[i] != quote {
			i++
			continue
		}
		if i+1 < len(text) && text[i+1] == quote {
			i += 2
			continue
		}
		return i + 1, true
	}
	return 0, false
}

func firstWord(tokens []token) string {
	for _, tok := range tokens {
		if tok.kind == tokenWord {
			return tok.text
		}
	}
	return ""
}

func isWordStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isWordChar(c byte) bool {
	return isWordStart(c) || (c >= '0' && c <= '9') || c == '.'
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
