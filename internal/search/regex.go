package search

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/please-dev/please-gateway/internal/index"
)

// RegexStrategy matches the query as a case-insensitive pattern against
// each tool's searchable text.
type RegexStrategy struct{}

func NewRegexStrategy() *RegexStrategy { return &RegexStrategy{} }

func (s *RegexStrategy) Initialize(ctx context.Context) error { return nil }
func (s *RegexStrategy) Dispose() error                       { return nil }

func (s *RegexStrategy) Search(ctx context.Context, query string, tools []index.IndexedTool, opts Options) ([]Result, error) {
	pattern, err := compileQuery(query)
	if err != nil {
		return nil, err
	}
	queryLower := strings.ToLower(query)

	var results []Result
	for _, t := range tools {
		text := t.SearchableText
		matches := pattern.FindAllStringIndex(text, -1)
		if len(matches) == 0 {
			continue
		}

		matchedChars := 0
		exact := 0.0
		for _, m := range matches {
			matchedChars += m[1] - m[0]
			if strings.ToLower(text[m[0]:m[1]]) == queryLower {
				exact = 0.3
			}
		}

		density := float64(matchedChars) / float64(len(text))
		positionBonus := 1 - float64(matches[0][0])/float64(len(text))
		score := 2*density + 0.1*float64(len(matches)) + 0.2*positionBonus + exact
		if score > 1 {
			score = 1
		}
		score = math.Round(score*1000) / 1000

		results = append(results, Result{
			Name:        t.Tool.Name,
			Title:       t.Tool.Title,
			Description: t.Tool.Description,
			Score:       score,
			MatchType:   MatchRegex,
		})
	}

	return applyTopKAndThreshold(results, opts), nil
}

// compileQuery compiles query as a case-insensitive global pattern; on
// compile failure, it escapes every regex metacharacter and treats the
// query as a literal instead.
func compileQuery(query string) (*regexp.Regexp, error) {
	pattern, err := regexp.Compile("(?i)" + query)
	if err != nil {
		pattern = regexp.MustCompile("(?i)" + regexp.QuoteMeta(query))
	}
	return pattern, nil
}
