package sqlquery

// DefaultPlaceholder substitutes nulls in columns without a registered default
const DefaultPlaceholder = "Unknown"

var defaultValues = map[string]any{
	"Target Portfolio":      "Conservative",
	"Asset Class":           "Cash",
	"Client":                "Unknown Client",
	"Target Allocation (%)": 0,
	"Sector":                "Unknown Sector",
	"Analyst Rating":        "Hold",
	"Risk Level":            "Medium",
}

// DefaultValues returns a copy of the built-in default value table
func DefaultValues() map[string]any {
	out := make(map[string]any, len(defaultValues))
	for k, v := range defaultValues {
		out[k] = v
	}
	return out
}

// Normalizer replaces nulls in result rows with per-column defaults
type Normalizer struct {
	defaults    map[string]any
	placeholder any
}

// NewNormalizer merges overrides on top of the built-in defaults. An empty
// placeholder keeps DefaultPlaceholder.
func NewNormalizer(overrides map[string]any, placeholder string) *Normalizer {
	defaults := DefaultValues()
	for k, v := range overrides {
		if v == nil {
			continue
		}
		defaults[k] = v
	}
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}
	return &Normalizer{defaults: defaults, placeholder: placeholder}
}

// DefaultFor returns the substitute for a null in column
func (n *Normalizer) DefaultFor(column string) any {
	if v, ok := n.defaults[column]; ok {
		return v
	}
	return n.placeholder
}

// Normalize returns a copy of rows with every nil replaced. Positions past the
// end of columns get the placeholder; rows are never truncated or padded.
func (n *Normalizer) Normalize(columns []string, rows [][]any) [][]any {
	out := make([][]any, len(rows))
	for r, row := range rows {
		normalized := make([]any, len(row))
		for i, value := range row {
			switch {
			case value != nil:
				normalized[i] = value
			case i < len(columns):
				normalized[i] = n.DefaultFor(columns[i])
			default:
				normalized[i] = n.placeholder
			}
		}
		out[r] = normalized
	}
	return out
}
