package sqlquery

import (
	"regexp"
	"strings"

	"advisorsql-backend/internal/schema"
)

// Rewriter expands `SELECT * FROM <table>` against registered tables into an
// explicit, identifier-quoted column list in registry order.
//
// Matching is textual: a wildcard inside a string literal or a comment is
// rewritten as well, and wildcards against unregistered tables, qualified
// wildcards (t.*) and SELECT DISTINCT * are left alone.
type Rewriter struct {
	rules []wildcardRule
}

type wildcardRule struct {
	table       string
	pattern     *regexp.Regexp
	replacement string
}

// NewRewriter prepares one wildcard rule per registered table
func NewRewriter(reg *schema.Registry) *Rewriter {
	rw := &Rewriter{}
	if reg == nil {
		return rw
	}

	for _, t := range reg.Tables() {
		name := regexp.QuoteMeta(t.Name)
		pattern := regexp.MustCompile(`(?i)\b(SELECT)(\s+)\*(\s+FROM\s+)(` +
			"`" + name + "`" + `|"` + name + `"|` + name + `\b)`)

		rw.rules = append(rw.rules, wildcardRule{
			table:       t.Name,
			pattern:     pattern,
			replacement: "${1}${2}" + strings.ReplaceAll(Projection(t.Columns), "$", "$$") + "${3}${4}",
		})
	}
	return rw
}

// Rewrite returns query with every wildcard projection against a registered
// table replaced. Queries without one are returned unchanged.
func (rw *Rewriter) Rewrite(query string) string {
	for _, rule := range rw.rules {
		if rule.pattern.MatchString(query) {
			query = rule.pattern.ReplaceAllString(query, rule.replacement)
		}
	}
	return query
}

// Projection renders columns as a comma separated, backtick quoted list
func Projection(columns []string) string {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = QuoteIdent(col)
	}
	return strings.Join(quoted, ", ")
}

// QuoteIdent wraps an identifier in backticks, doubling embedded backticks
func QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
