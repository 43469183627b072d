package sqlquery

import (
	"regexp"
	"strings"

	"github.com/xwb1989/sqlparser"

	"advisorsql-backend/internal/schema"
)

// ColumnExtractor returns the ordered output column names of a query. An
// empty result means the projection could not be located.
type ColumnExtractor interface {
	Extract(query string) []string
}

// Extractor kinds accepted by NewExtractor
const (
	ExtractorRegex  = "regex"
	ExtractorParser = "parser"
)

// NewExtractor returns the extractor registered under kind, defaulting to regex
func NewExtractor(kind string, reg *schema.Registry) ColumnExtractor {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case ExtractorParser:
		return NewParserExtractor(reg)
	default:
		return RegexExtractor{}
	}
}

var (
	projectionPattern = regexp.MustCompile(`(?is)SELECT\s+(?:DISTINCT\s+)?(.*?)\s+FROM\b`)
	aliasPattern      = regexp.MustCompile("(?is)^(.+?)\\s+AS\\s+(`(?:[^`]|``)+`|\"(?:[^\"]|\"\")+\"|'(?:[^']|'')+'|\\w+)$")
	bareIdentPattern  = regexp.MustCompile(`^\w+$`)
)

// RegexExtractor reads the first SELECT ... FROM projection as text.
//
// Known blind spots: implicit aliases without AS, subqueries in the
// projection, and columns whose quoted name contains the word FROM. An
// expression without an alias is reported by its source text.
type RegexExtractor struct{}

// Extract implements ColumnExtractor
func (RegexExtractor) Extract(query string) []string {
	match := projectionPattern.FindStringSubmatch(query)
	if match == nil {
		return []string{}
	}

	items := splitTopLevel(match[1], ',')
	columns := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		columns = append(columns, columnName(item))
	}
	return columns
}

// columnName resolves one projection item to the name the store reports for it
func columnName(item string) string {
	if m := aliasPattern.FindStringSubmatch(item); m != nil {
		return unquote(m[2])
	}

	if name, ok := unquoteWhole(item); ok {
		return name
	}

	// strip a table qualifier from t.col or t.`col`
	if parts := splitTopLevel(item, '.'); len(parts) > 1 {
		name := ""
		for _, part := range parts {
			ident, ok := unquoteWhole(strings.TrimSpace(part))
			if !ok {
				return item
			}
			name = ident
		}
		return name
	}

	return item
}

// unquoteWhole reports whether s is a single quoted or bare identifier
func unquoteWhole(s string) (string, bool) {
	if bareIdentPattern.MatchString(s) {
		return s, true
	}
	if len(s) < 2 {
		return "", false
	}

	q := s[0]
	if (q != '`' && q != '"') || s[len(s)-1] != q {
		return "", false
	}
	inner := s[1 : len(s)-1]
	if strings.Count(strings.ReplaceAll(inner, string(q)+string(q), ""), string(q)) != 0 {
		return "", false
	}
	return unquote(s), true
}

func unquote(s string) string {
	if len(s) >= 2 {
		q := s[0]
		if (q == '`' || q == '"' || q == '\'') && s[len(s)-1] == q {
			return strings.ReplaceAll(s[1:len(s)-1], string(q)+string(q), string(q))
		}
	}
	return s
}

// splitTopLevel splits s on sep, ignoring separators inside quotes or parentheses
func splitTopLevel(s string, sep byte) []string {
	var (
		parts []string
		depth int
		quote byte
		start int
	)

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '`' || c == '"' || c == '\'':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case c == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

// ParserExtractor walks the projection of a parsed SELECT. Queries the parser
// rejects are handed to the regex extractor.
type ParserExtractor struct {
	registry *schema.Registry
	fallback RegexExtractor
}

// NewParserExtractor builds a parser backed extractor. The registry expands
// wildcards that survived rewriting; it may be nil.
func NewParserExtractor(reg *schema.Registry) *ParserExtractor {
	return &ParserExtractor{registry: reg}
}

// Extract implements ColumnExtractor
func (p *ParserExtractor) Extract(query string) []string {
	stmt, err := sqlparser.Parse(query)
	if err != nil {
		return p.fallback.Extract(query)
	}

	sel := leftmostSelect(stmt)
	if sel == nil {
		return []string{}
	}

	columns := make([]string, 0, len(sel.SelectExprs))
	for _, expr := range sel.SelectExprs {
		switch e := expr.(type) {
		case *sqlparser.StarExpr:
			columns = append(columns, p.expandStar(e, sel.From)...)
		case *sqlparser.AliasedExpr:
			columns = append(columns, aliasedName(e))
		default:
			columns = append(columns, sqlparser.String(expr))
		}
	}
	return columns
}

func (p *ParserExtractor) expandStar(star *sqlparser.StarExpr, from sqlparser.TableExprs) []string {
	if p.registry == nil {
		return []string{"*"}
	}

	qualifier := star.TableName.Name.String()
	var columns []string
	for _, te := range from {
		aliased, ok := te.(*sqlparser.AliasedTableExpr)
		if !ok {
			return []string{"*"}
		}
		name, ok := aliased.Expr.(sqlparser.TableName)
		if !ok {
			return []string{"*"}
		}

		table := name.Name.String()
		if qualifier != "" && qualifier != table && qualifier != aliased.As.String() {
			continue
		}

		cols := p.registry.Columns(table)
		if cols == nil {
			return []string{"*"}
		}
		columns = append(columns, cols...)
		if qualifier != "" {
			break
		}
	}

	if len(columns) == 0 {
		return []string{"*"}
	}
	return columns
}

func aliasedName(e *sqlparser.AliasedExpr) string {
	if !e.As.IsEmpty() {
		return e.As.String()
	}

	switch col := e.Expr.(type) {
	case *sqlparser.ColName:
		return col.Name.String()
	case *sqlparser.SQLVal:
		// "quoted" identifiers parse as string literals in MySQL mode
		if col.Type == sqlparser.StrVal {
			return string(col.Val)
		}
	}
	return sqlparser.String(e.Expr)
}

func leftmostSelect(stmt sqlparser.Statement) *sqlparser.Select {
	switch s := stmt.(type) {
	case *sqlparser.Select:
		return s
	case *sqlparser.Union:
		return leftmostSelect(s.Left)
	case *sqlparser.ParenSelect:
		return leftmostSelect(s.Select)
	}
	return nil
}
