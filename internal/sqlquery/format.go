package sqlquery

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// NoResultsMessage is returned instead of a payload when a query matches nothing
const NoResultsMessage = "No results found in the database. Please try another query."

// EncodePayload serializes rows as a JSON array of arrays
func EncodePayload(rows [][]any) (string, error) {
	if rows == nil {
		rows = [][]any{}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("encode rows: %w", err)
	}
	return string(data), nil
}

// DecodePayload parses a payload produced by EncodePayload. Numbers come back
// as json.Number so integers keep their form.
func DecodePayload(payload string) ([][]any, error) {
	var rows [][]any
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return rows, nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// RenderTable draws rows under the given headers for terminal output
func RenderTable(columns []string, rows [][]any) string {
	body := make([][]string, len(rows))
	for i, row := range rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = FormatValue(v)
		}
		body[i] = cells
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(columns...).
		Rows(body...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.String()
}

// FormatValue renders a scalar the way it appears in tables
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "Null"
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}
