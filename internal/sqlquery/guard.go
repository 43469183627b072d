package sqlquery

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xwb1989/sqlparser"
)

var (
	ErrEmptyQuery          = errors.New("empty query")
	ErrStatementNotAllowed = errors.New("only SELECT statements are allowed")
	ErrMultipleStatements  = errors.New("exactly one statement is allowed")
)

// CheckReadOnly fails unless query is a single SELECT statement. Anything it
// cannot classify is rejected.
func CheckReadOnly(query string) error {
	statements := SplitStatements(query)
	switch len(statements) {
	case 0:
		return ErrEmptyQuery
	case 1:
	default:
		return fmt.Errorf("%w: got %d", ErrMultipleStatements, len(statements))
	}

	if sqlparser.Preview(statements[0]) != sqlparser.StmtSelect {
		return fmt.Errorf("%w: %q", ErrStatementNotAllowed, leadingKeyword(statements[0]))
	}
	return nil
}

// SplitStatements splits on semicolons outside quotes and comments, dropping
// empty pieces
func SplitStatements(query string) []string {
	var (
		pieces []string
		quote  byte
		start  int
	)

	flush := func(end int) {
		if piece := strings.TrimSpace(query[start:end]); piece != "" && !isCommentOnly(piece) {
			pieces = append(pieces, piece)
		}
	}

	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '-' && i+1 < len(query) && query[i+1] == '-':
			if nl := strings.IndexByte(query[i:], '\n'); nl >= 0 {
				i += nl
			} else {
				i = len(query) - 1
			}
		case c == '/' && i+1 < len(query) && query[i+1] == '*':
			if end := strings.Index(query[i+2:], "*/"); end >= 0 {
				i += end + 3
			} else {
				i = len(query) - 1
			}
		case c == ';':
			flush(i)
			start = i + 1
		}
	}
	flush(len(query))
	return pieces
}

func isCommentOnly(piece string) bool {
	for piece != "" {
		switch {
		case strings.HasPrefix(piece, "--"):
			nl := strings.IndexByte(piece, '\n')
			if nl < 0 {
				return true
			}
			piece = strings.TrimSpace(piece[nl+1:])
		case strings.HasPrefix(piece, "/*"):
			end := strings.Index(piece, "*/")
			if end < 0 {
				return true
			}
			piece = strings.TrimSpace(piece[end+2:])
		default:
			return false
		}
	}
	return true
}

func leadingKeyword(stmt string) string {
	fields := strings.Fields(sqlparser.StripLeadingComments(stmt))
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}
