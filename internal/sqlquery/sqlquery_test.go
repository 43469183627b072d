package sqlquery

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisorsql-backend/internal/schema"
)

var (
	allocationColumns = []string{"Client", "Target Portfolio", "Asset Class", "Target Allocation (%)"}
	advisorColumns    = []string{"Client", "Sector", "Analyst Rating", "Risk Level"}
)

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg, err := schema.NewRegistry(
		schema.TableSchema{Name: schema.TableAllocations, Columns: allocationColumns},
		schema.TableSchema{Name: schema.TableAdvisorsClients, Columns: advisorColumns},
	)
	require.NoError(t, err)
	return reg
}

func TestRewriteWildcard(t *testing.T) {
	rw := NewRewriter(testRegistry(t))
	projection := "`Client`, `Target Portfolio`, `Asset Class`, `Target Allocation (%)`"

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"bare", "SELECT * FROM allocations", "SELECT " + projection + " FROM allocations"},
		{"backticked", "SELECT * FROM `allocations` WHERE `Client` = 'Client_1'", "SELECT " + projection + " FROM `allocations` WHERE `Client` = 'Client_1'"},
		{"lowercase keeps casing", "select * from advisors_clients limit 3", "select `Client`, `Sector`, `Analyst Rating`, `Risk Level` from advisors_clients limit 3"},
		{"trailing semicolon", "SELECT * FROM allocations;", "SELECT " + projection + " FROM allocations;"},
		{
			"both tables",
			"SELECT * FROM allocations UNION ALL SELECT * FROM advisors_clients",
			"SELECT " + projection + " FROM allocations UNION ALL SELECT `Client`, `Sector`, `Analyst Rating`, `Risk Level` FROM advisors_clients",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rw.Rewrite(tt.query))
		})
	}
}

func TestRewriteLeavesOtherQueriesAlone(t *testing.T) {
	rw := NewRewriter(testRegistry(t))

	for _, q := range []string{
		"SELECT `Client` FROM allocations",
		"SELECT COUNT(*) FROM allocations",
		"SELECT * FROM allocations_archive",
		"SELECT * FROM portfolios",
		"SELECT a.* FROM allocations a",
		"not a query at all",
		"",
	} {
		assert.Equal(t, q, rw.Rewrite(q), q)
	}
}

func TestRewriteThenExtractMatchesRegistry(t *testing.T) {
	reg := testRegistry(t)
	rw := NewRewriter(reg)

	for _, table := range reg.Names() {
		for _, q := range []string{"SELECT * FROM " + table, "SELECT * FROM `" + table + "`"} {
			got := RegexExtractor{}.Extract(rw.Rewrite(q))
			if diff := cmp.Diff(reg.Columns(table), got); diff != "" {
				t.Errorf("%s: columns mismatch (-want +got):\n%s", q, diff)
			}
		}
	}
}

func TestRewriterWithoutRegistry(t *testing.T) {
	rw := NewRewriter(nil)
	assert.Equal(t, "SELECT * FROM allocations", rw.Rewrite("SELECT * FROM allocations"))
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, "`Risk Level`", QuoteIdent("Risk Level"))
	assert.Equal(t, "`odd``name`", QuoteIdent("odd`name"))
	assert.Equal(t, "`a`, `b c`", Projection([]string{"a", "b c"}))
}

func TestRegexExtractor(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"backticked", "SELECT `A`, `B` FROM T", []string{"A", "B"}},
		{"not a select", "not a select statement", []string{}},
		{"bare identifiers", "SELECT Client, Sector FROM advisors_clients", []string{"Client", "Sector"}},
		{"distinct", "SELECT DISTINCT `Asset Class` FROM allocations", []string{"Asset Class"}},
		{"multiline", "select\n  `Client`,\n  `Target Allocation (%)`\nfrom allocations\nwhere `Asset Class` = 'Stocks'", []string{"Client", "Target Allocation (%)"}},
		{"double quoted", `SELECT "Client", "Asset Class" FROM allocations`, []string{"Client", "Asset Class"}},
		{
			"aliased aggregate",
			`SELECT "Asset Class", SUM("Target Allocation (%)") as "Total Allocation" FROM allocations GROUP BY "Asset Class"`,
			[]string{"Asset Class", "Total Allocation"},
		},
		{"bare alias", "SELECT COUNT(*) AS n FROM allocations", []string{"n"}},
		{"qualified", "SELECT a.`Client`, a.Sector FROM advisors_clients a", []string{"Client", "Sector"}},
		{"expression without alias", "SELECT COUNT(*) FROM allocations", []string{"COUNT(*)"}},
		{"function with commas", "SELECT ROUND(`Target Allocation (%)`, 2), `Client` FROM allocations", []string{"ROUND(`Target Allocation (%)`, 2)", "Client"}},
		{"cast keeps inner AS", "SELECT CAST(`Target Allocation (%)` AS INTEGER) FROM allocations", []string{"CAST(`Target Allocation (%)` AS INTEGER)"}},
		{"first select wins", "SELECT `Client` FROM allocations WHERE `Client` IN (SELECT `Client` FROM advisors_clients)", []string{"Client"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RegexExtractor{}.Extract(tt.query))
		})
	}
}

func TestParserExtractor(t *testing.T) {
	p := NewParserExtractor(testRegistry(t))

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			"backticked",
			"SELECT `Client`, `Target Allocation (%)` FROM allocations WHERE `Asset Class` = 'Stocks'",
			[]string{"Client", "Target Allocation (%)"},
		},
		{"wildcard expands from registry", "SELECT * FROM allocations", allocationColumns},
		{"qualified wildcard", "SELECT a.* FROM advisors_clients a", advisorColumns},
		{"unknown wildcard", "SELECT * FROM portfolios", []string{"*"}},
		{"alias", "SELECT SUM(`Target Allocation (%)`) AS total FROM allocations", []string{"total"}},
		{"qualified column", "SELECT a.`Risk Level` FROM advisors_clients a", []string{"Risk Level"}},
		{"double quoted", `SELECT "Client", "Asset Class" FROM allocations`, []string{"Client", "Asset Class"}},
		{"union takes left side", "SELECT `Client` FROM allocations UNION SELECT `Client` FROM advisors_clients", []string{"Client"}},
		{"parse error falls back", "SELECT `a`, `b` FROM t WHERE", []string{"a", "b"}},
		{"not sql", "not a select statement", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Extract(tt.query))
		})
	}
}

func TestNewExtractor(t *testing.T) {
	assert.IsType(t, RegexExtractor{}, NewExtractor("", nil))
	assert.IsType(t, RegexExtractor{}, NewExtractor("regex", nil))
	assert.IsType(t, &ParserExtractor{}, NewExtractor("Parser", nil))
}

func TestNormalizeIdentityOnPopulatedRows(t *testing.T) {
	n := NewNormalizer(nil, "")
	rows := [][]any{{"Client_1", "Growth", "Stocks", 40.5}, {"Client_2", "Balanced", "Bonds", int64(20)}}

	assert.Equal(t, rows, n.Normalize(allocationColumns, rows))
}

func TestNormalizeSubstitutesDefaults(t *testing.T) {
	n := NewNormalizer(nil, "")

	got := n.Normalize(allocationColumns, [][]any{{nil, nil, nil, nil}})
	assert.Equal(t, [][]any{{"Unknown Client", "Conservative", "Cash", 0}}, got)

	got = n.Normalize(advisorColumns, [][]any{{"Client_3", nil, nil, nil}})
	assert.Equal(t, [][]any{{"Client_3", "Unknown Sector", "Hold", "Medium"}}, got)

	got = n.Normalize([]string{"Market Value"}, [][]any{{nil}})
	assert.Equal(t, [][]any{{DefaultPlaceholder}}, got)
}

func TestNormalizeBeyondColumnList(t *testing.T) {
	n := NewNormalizer(nil, "")

	assert.NotPanics(t, func() {
		got := n.Normalize([]string{"Client"}, [][]any{{nil, nil, "x"}})
		assert.Equal(t, [][]any{{"Unknown Client", DefaultPlaceholder, "x"}}, got)
	})

	got := n.Normalize(nil, [][]any{{nil}, {}})
	assert.Equal(t, [][]any{{DefaultPlaceholder}, {}}, got)
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	n := NewNormalizer(nil, "")
	rows := [][]any{{"Client_1", nil}}

	n.Normalize([]string{"Client", "Target Allocation (%)"}, rows)
	assert.Nil(t, rows[0][1])
}

func TestNormalizerOverrides(t *testing.T) {
	n := NewNormalizer(map[string]any{"Risk Level": "Low", "Sector": nil}, "N/A")

	assert.Equal(t, "Low", n.DefaultFor("Risk Level"))
	assert.Equal(t, "Unknown Sector", n.DefaultFor("Sector"))
	assert.Equal(t, "N/A", n.DefaultFor("Other"))

	// the built-in table is not affected
	assert.Equal(t, "Medium", DefaultValues()["Risk Level"])
}

func TestPayloadRoundTrip(t *testing.T) {
	n := NewNormalizer(nil, "")
	rows := n.Normalize([]string{"Client", "Target Allocation (%)"}, [][]any{{"Client_1", nil}, {nil, 12.5}})

	payload, err := EncodePayload(rows)
	require.NoError(t, err)
	assert.Equal(t, `[["Client_1",0],["Unknown Client",12.5]]`, payload)

	decoded, err := DecodePayload(payload)
	require.NoError(t, err)
	for _, row := range decoded {
		for _, v := range row {
			assert.NotNil(t, v)
		}
	}

	again, err := EncodePayload(n.Normalize([]string{"Client", "Target Allocation (%)"}, decoded))
	require.NoError(t, err)
	assert.Equal(t, payload, again)
}

func TestEncodeEmptyPayload(t *testing.T) {
	payload, err := EncodePayload(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", payload)

	_, err = DecodePayload("not json")
	assert.Error(t, err)
}

func TestRenderTable(t *testing.T) {
	out := RenderTable([]string{"Client", "Target Allocation (%)"}, [][]any{{"Client_1", 0}, {"Client_2", 12.5}})

	assert.Contains(t, out, "Client")
	assert.Contains(t, out, "Target Allocation (%)")
	assert.Contains(t, out, "Client_2")
	assert.Contains(t, out, "12.5")
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "Null", FormatValue(nil))
	assert.Equal(t, "12.5", FormatValue(12.5))
	assert.Equal(t, "40", FormatValue(float64(40)))
	assert.Equal(t, "7", FormatValue(int64(7)))
	assert.Equal(t, "raw", FormatValue([]byte("raw")))
}

func TestCheckReadOnly(t *testing.T) {
	allowed := []string{
		"SELECT 1",
		"  select * from allocations;",
		"SELECT ';' FROM allocations",
		"SELECT `Client` FROM allocations WHERE `Client` = 'a;b'",
	}
	for _, q := range allowed {
		assert.NoError(t, CheckReadOnly(q), q)
	}

	rejected := map[string]error{
		"":                                    ErrEmptyQuery,
		"  ;  ":                               ErrEmptyQuery,
		"DROP TABLE allocations":              ErrStatementNotAllowed,
		"INSERT INTO allocations VALUES (1)":  ErrStatementNotAllowed,
		"update allocations set `Client` = 1": ErrStatementNotAllowed,
		"DELETE FROM advisors_clients":        ErrStatementNotAllowed,
		"SELECT 1; DROP TABLE allocations":    ErrMultipleStatements,
	}
	for q, want := range rejected {
		assert.ErrorIs(t, CheckReadOnly(q), want, q)
	}
}

func TestSplitStatements(t *testing.T) {
	assert.Equal(t, []string{"SELECT 1", "SELECT 2"}, SplitStatements("SELECT 1; SELECT 2;"))
	assert.Equal(t, []string{"SELECT 1"}, SplitStatements("SELECT 1; -- done"))
	assert.Equal(t, []string{"SELECT 1 -- trailing; comment"}, SplitStatements("SELECT 1 -- trailing; comment"))
	assert.Equal(t, []string{"/* a; b */ SELECT 1"}, SplitStatements("/* a; b */ SELECT 1"))
	assert.Equal(t, []string{"SELECT \"x;y\""}, SplitStatements("SELECT \"x;y\""))
	assert.Empty(t, SplitStatements(" ; ;"))
}
