package prompts

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Example pairs a question with the query that answers it
type Example struct {
	Input string
	Query string
}

var examples = []Example{
	{
		Input: "What is the target allocation percentage of stocks for each client?",
		Query: "SELECT `Client`, `Target Allocation (%)` FROM `allocations` WHERE `Asset Class` = 'Stocks';",
	},
	{
		Input: "List all clients with a 'Balanced' target portfolio and their respective asset classes.",
		Query: "SELECT `Client`, `Asset Class` FROM `allocations` WHERE `Target Portfolio` = 'Balanced';",
	},
	{
		Input: "Which clients have an allocation in bonds greater than 20%?",
		Query: "SELECT `Client` FROM `allocations` WHERE `Asset Class` = 'Bonds' AND `Target Allocation (%)` > 20;",
	},
	{
		Input: "Show the total allocation percentage for each asset class for Client_1.",
		Query: "SELECT `Asset Class`, SUM(`Target Allocation (%)`) AS `Total Allocation` FROM `allocations` WHERE `Client` = 'Client_1' GROUP BY `Asset Class`;",
	},
	{
		Input: "Find clients with 'Aggressive Growth' portfolios and their allocations in ETFs.",
		Query: "SELECT `Client`, `Target Allocation (%)` FROM `allocations` WHERE `Target Portfolio` = 'Aggressive Growth' AND `Asset Class` = 'ETFs';",
	},
	{
		Input: "What are the target allocations for all asset classes in the 'Conservative' portfolio?",
		Query: "SELECT `Asset Class`, `Target Allocation (%)` FROM `allocations` WHERE `Target Portfolio` = 'Conservative';",
	},
	{
		Input: "List all clients and their total target allocation in stocks.",
		Query: "SELECT `Client`, SUM(`Target Allocation (%)`) AS `Total Stock Allocation` FROM `allocations` WHERE `Asset Class` = 'Stocks' GROUP BY `Client`;",
	},
	{
		Input: "Show the target allocation for each client who has a 'Growth' portfolio.",
		Query: "SELECT `Client`, `Asset Class`, `Target Allocation (%)` FROM `allocations` WHERE `Target Portfolio` = 'Growth';",
	},
	{
		Input: "Which clients have more than 50% allocation in any single asset class?",
		Query: "SELECT `Client`, `Asset Class`, `Target Allocation (%)` FROM `allocations` WHERE `Target Allocation (%)` > 50;",
	},
	{
		Input: "List the target portfolios that do not have a specified client.",
		Query: "SELECT `Target Portfolio`, `Asset Class`, `Target Allocation (%)` FROM `allocations` WHERE `Client` IS NULL;",
	},
}

// Examples returns a copy of the built-in question/query pairs
func Examples() []Example {
	out := make([]Example, len(examples))
	copy(out, examples)
	return out
}

const fewShotPrefix = `Given an input question and considering the context of previous conversations, create a syntactically correct SQL query to run, then look at the results of the query and return the answer.
Unless the user specifies a specific number of examples they wish to obtain, always limit your query to at most %d results.
You can order the results by a relevant column to return the most interesting examples in the database.
Never query for all the columns from a specific table, only ask for the relevant columns given the question.
You have access to tools for interacting with the database.
Only use the given tools. Only use the information returned by the tools to construct your final answer.
You MUST double check your query before executing it. If you get an error while executing a query, rewrite the query and try again.

DO NOT make any DML statements (INSERT, UPDATE, DELETE, DROP etc.) to the database. Only SELECT statements are allowed.

Here are some examples of user inputs and their corresponding SQL queries:
`

// FewShot renders the prefix and the selected examples
func FewShot(topK int, selected []Example) string {
	var b strings.Builder
	fmt.Fprintf(&b, fewShotPrefix, topK)
	for _, ex := range selected {
		fmt.Fprintf(&b, "\nUser input: %s\nSQL query: %s\n", ex.Input, ex.Query)
	}
	return b.String()
}

var wordPattern = regexp.MustCompile(`[a-z0-9_]+`)

var stopWords = map[string]struct{}{
	"a": {}, "all": {}, "an": {}, "and": {}, "any": {}, "are": {}, "each": {},
	"for": {}, "have": {}, "in": {}, "is": {}, "of": {}, "the": {}, "their": {},
	"to": {}, "what": {}, "which": {}, "who": {}, "with": {},
}

func tokens(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range wordPattern.FindAllString(strings.ToLower(s), -1) {
		if _, stop := stopWords[w]; stop {
			continue
		}
		set[strings.TrimSuffix(w, "s")] = struct{}{}
	}
	return set
}

func similarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for w := range a {
		if _, ok := b[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(a)+len(b)-shared)
}

// SelectExamples picks the k examples whose wording is closest to input.
// Ties keep their declared order.
func SelectExamples(pool []Example, input string, k int) []Example {
	if k <= 0 || len(pool) == 0 {
		return nil
	}

	query := tokens(input)
	type scored struct {
		example Example
		score   float64
	}
	ranked := make([]scored, len(pool))
	for i, ex := range pool {
		ranked[i] = scored{example: ex, score: similarity(query, tokens(ex.Input))}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if k > len(ranked) {
		k = len(ranked)
	}
	out := make([]Example, k)
	for i := range out {
		out[i] = ranked[i].example
	}
	return out
}
