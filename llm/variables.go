package llm

import (
	"regexp"
	"sort"
	"strings"

	"github.com/samber/lo"
)

var variablePattern = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Placeholder returns the ${name} token for a variable.
func Placeholder(name string) string {
	return "${" + name + "}"
}

// BindText replaces every ${name} occurrence in text with value.
func BindText(text, name, value string) string {
	return strings.ReplaceAll(text, Placeholder(name), value)
}

// ExtractVariables returns the distinct variable names in text, sorted.
func ExtractVariables(text string) []string {
	matches := variablePattern.FindAllStringSubmatch(text, -1)
	names := lo.Map(matches, func(m []string, _ int) string { return m[1] })
	return SortedUnique(names)
}

// HasUnboundVariables reports whether text still contains a ${...} token.
func HasUnboundVariables(text string) bool {
	return variablePattern.MatchString(text)
}

// SortedUnique flattens name lists into a sorted set.
func SortedUnique(lists ...[]string) []string {
	out := lo.Uniq(lo.Flatten(lists))
	sort.Strings(out)
	return out
}

// SingleDigitLogProbs keeps only records whose token is a single ASCII digit.
func SingleDigitLogProbs(records []TokenLogProb) []TokenLogProb {
	return lo.Filter(records, func(r TokenLogProb, _ int) bool {
		return len(r.Token) == 1 && r.Token[0] >= '0' && r.Token[0] <= '9'
	})
}
