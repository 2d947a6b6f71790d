// Package sqllit implements a minimal, WHERE-free SELECT parser: enough to
// drive the wire protocol end to end without pulling in a real SQL grammar.
// It recognises exactly two shapes:
//
//	SELECT <literal> [, <literal> ...]
//	SELECT <column> [, <column> ...] FROM <table>
//
// Anything else is a syntax error.
package sqllit

import (
	"fmt"
	"strconv"
	"strings"

	wire "github.com/splitgraph/convergence"
	"github.com/splitgraph/convergence/codes"
	psqlerr "github.com/splitgraph/convergence/errors"
)

// Kind distinguishes the two statement shapes Parse recognises.
type Kind int

const (
	// KindLiteralSelect is a SELECT with no FROM clause: a single constant row.
	KindLiteralSelect Kind = iota
	// KindTableSelect is a SELECT ... FROM <table> projection.
	KindTableSelect
)

// Literal is one value in a literal-select's projection list.
type Literal struct {
	Type wire.DataTypeOid
	Text string // unquoted text representation; meaningless when Null is true
	Null bool
}

// Statement is the AST Parse produces: either a literal row or a table
// projection, never both.
type Statement struct {
	Raw string
	Kind Kind

	Literals []Literal // KindLiteralSelect

	Columns []string // KindTableSelect; nil means "*"
	Table   string   // KindTableSelect
}

// String returns the original query text, which is all the core ever asks
// a Statement for.
func (s *Statement) String() string {
	return s.Raw
}

// Parser implements wire.Parser over the literal-list SELECT subset.
type Parser struct{}

// Parse splits sql on ';' and parses each non-empty segment independently.
// More than one non-empty segment is returned as more than one Statement,
// which the core rejects for a simple Query (unsupported multi-statement
// queries) but accepts one at a time via the extended-query Parse message.
func (Parser) Parse(sql string) ([]wire.Statement, error) {
	var statements []wire.Statement

	for _, segment := range strings.Split(sql, ";") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		stmt, err := parseSelect(segment)
		if err != nil {
			return nil, err
		}

		statements = append(statements, stmt)
	}

	return statements, nil
}

func parseSelect(text string) (*Statement, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.EqualFold(fields[0], "select") {
		return nil, newSyntaxError(text)
	}

	body := strings.TrimSpace(text[len(fields[0]):])

	if from := findFromClause(body); from >= 0 {
		projection := strings.TrimSpace(body[:from])
		table := strings.TrimSpace(body[from+len("from"):])
		tableFields := strings.Fields(table)
		if len(tableFields) != 1 {
			return nil, newSyntaxError(text)
		}

		return &Statement{
			Raw:     text,
			Kind:    KindTableSelect,
			Columns: parseColumnList(projection),
			Table:   tableFields[0],
		}, nil
	}

	literals, err := parseLiteralList(body)
	if err != nil {
		return nil, err
	}

	return &Statement{Raw: text, Kind: KindLiteralSelect, Literals: literals}, nil
}

// findFromClause returns the index of a top-level " from " keyword (case
// insensitive), or -1 if body has none. Occurrences inside a single-quoted
// literal are skipped; there is no nesting to worry about in this subset.
func findFromClause(body string) int {
	lower := strings.ToLower(body)
	inQuote := false
	for i := 0; i < len(lower); i++ {
		switch {
		case lower[i] == '\'':
			inQuote = !inQuote
		case !inQuote && strings.HasPrefix(lower[i:], " from "):
			return i + 1
		}
	}
	return -1
}

func parseColumnList(projection string) []string {
	projection = strings.TrimSpace(projection)
	if projection == "*" || projection == "" {
		return nil
	}

	parts := strings.Split(projection, ",")
	columns := make([]string, len(parts))
	for i, p := range parts {
		columns[i] = strings.TrimSpace(p)
	}

	return columns
}

func parseLiteralList(body string) ([]Literal, error) {
	parts := splitTopLevelCommas(body)
	if len(parts) == 0 {
		return nil, newSyntaxError(body)
	}

	literals := make([]Literal, len(parts))
	for i, raw := range parts {
		lit, err := parseLiteral(strings.TrimSpace(raw))
		if err != nil {
			return nil, err
		}
		literals[i] = lit
	}

	return literals, nil
}

// splitTopLevelCommas splits on commas that fall outside a single-quoted
// string literal.
func splitTopLevelCommas(s string) []string {
	var parts []string
	var current strings.Builder
	inQuote := false

	for _, r := range s {
		switch {
		case r == '\'':
			inQuote = !inQuote
			current.WriteRune(r)
		case r == ',' && !inQuote:
			parts = append(parts, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	parts = append(parts, current.String())

	return parts
}

func parseLiteral(token string) (Literal, error) {
	switch {
	case token == "":
		return Literal{}, newSyntaxError(token)
	case strings.EqualFold(token, "null"):
		return Literal{Type: wire.Text, Null: true}, nil
	case strings.EqualFold(token, "true"):
		return Literal{Type: wire.Text, Text: "t"}, nil
	case strings.EqualFold(token, "false"):
		return Literal{Type: wire.Text, Text: "f"}, nil
	case len(token) >= 2 && token[0] == '\'' && token[len(token)-1] == '\'':
		return Literal{Type: wire.Text, Text: token[1 : len(token)-1]}, nil
	}

	if i, err := strconv.ParseInt(token, 10, 64); err == nil {
		return Literal{Type: wire.Int8, Text: strconv.FormatInt(i, 10)}, nil
	}

	if f, err := strconv.ParseFloat(token, 64); err == nil {
		return Literal{Type: wire.Float8, Text: strconv.FormatFloat(f, 'g', -1, 64)}, nil
	}

	return Literal{}, newSyntaxError(token)
}

func newSyntaxError(text string) error {
	err := fmt.Errorf("cannot parse %q: expected SELECT <literal,...> or SELECT <col,...> FROM <table>", text)
	return psqlerr.WithSeverity(psqlerr.WithCode(err, codes.Syntax), psqlerr.LevelError)
}
