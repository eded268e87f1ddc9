package recognizers

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/athapong/pii-mcp/pkg/pii"
	mapset "github.com/deckarep/golang-set/v2"
)

const (
	// DefaultContextBoost is added to a match score when a context keyword
	// precedes the match.
	DefaultContextBoost = 0.35
	// DefaultMinContextScore floors a boosted score
	DefaultMinContextScore = 0.4
	// DefaultContextWindow is the number of words before a match searched
	// for context keywords.
	DefaultContextWindow = 5
)

// Pattern is one regular expression with its base score
type Pattern struct {
	Name  string
	Regex *regexp.Regexp
	Score float64
	// Group selects the capture group holding the entity value. Zero means
	// the whole match.
	Group int
	// Accept rejects matches the regex cannot exclude on its own
	Accept func(match string) bool
}

// PatternRecognizer emits one label for every match of its patterns, with
// scores boosted by nearby context keywords.
type PatternRecognizer struct {
	name     string
	label    string
	method   pii.Method
	patterns []Pattern
	trim     bool

	contextWords   mapset.Set[string]
	contextPhrases []string
	boost          float64
	minBoosted     float64
	window         int
}

// PatternOption configures a PatternRecognizer
type PatternOption func(*PatternRecognizer)

// WithContext sets the keywords that boost a match when they appear in the
// words preceding it. Multi-word keywords match as phrases.
func WithContext(keywords ...string) PatternOption {
	return func(r *PatternRecognizer) {
		for _, kw := range keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			if strings.Contains(kw, " ") {
				r.contextPhrases = append(r.contextPhrases, kw)
			} else {
				r.contextWords.Add(kw)
			}
		}
	}
}

// WithContextBoost overrides the boost magnitude, floor and window
func WithContextBoost(boost, minBoosted float64, window int) PatternOption {
	return func(r *PatternRecognizer) {
		r.boost = boost
		r.minBoosted = minBoosted
		r.window = window
	}
}

// WithMethod sets the provenance tag of emitted candidates
func WithMethod(method pii.Method) PatternOption {
	return func(r *PatternRecognizer) {
		r.method = method
	}
}

// WithTrim strips surrounding whitespace and punctuation from the value
func WithTrim() PatternOption {
	return func(r *PatternRecognizer) {
		r.trim = true
	}
}

// NewPatternRecognizer creates a recognizer that emits label for every
// accepted match of patterns.
func NewPatternRecognizer(name, label string, patterns []Pattern, opts ...PatternOption) *PatternRecognizer {
	r := &PatternRecognizer{
		name:         name,
		label:        label,
		method:       pii.MethodRule,
		patterns:     patterns,
		contextWords: mapset.NewSet[string](),
		boost:        DefaultContextBoost,
		minBoosted:   DefaultMinContextScore,
		window:       DefaultContextWindow,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name implements pii.Recognizer
func (r *PatternRecognizer) Name() string {
	return r.name
}

// Recognize implements pii.Recognizer
func (r *PatternRecognizer) Recognize(ctx context.Context, span pii.TextSpan) ([]pii.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := span.Text
	var candidates []pii.Candidate

	for _, p := range r.patterns {
		for _, loc := range p.Regex.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[0], loc[1]
			if p.Group > 0 {
				if 2*p.Group+1 >= len(loc) || loc[2*p.Group] < 0 {
					continue
				}
				start, end = loc[2*p.Group], loc[2*p.Group+1]
			}
			if r.trim {
				start, end = trimBounds(text, start, end)
			}
			if end <= start {
				continue
			}
			if p.Accept != nil && !p.Accept(text[start:end]) {
				continue
			}

			c := pii.Candidate{
				Label:      r.label,
				Start:      start,
				End:        end,
				Confidence: p.Score,
				Method:     r.method,
				Validations: map[string]interface{}{
					"pattern":    p.Name,
					"base_score": p.Score,
				},
			}
			r.enhance(text, &c)
			candidates = append(candidates, c)
		}
	}

	return removeDuplicates(candidates), nil
}

// enhance raises the candidate score when a context keyword occurs within
// the window of words preceding the match.
func (r *PatternRecognizer) enhance(text string, c *pii.Candidate) {
	if r.contextWords.Cardinality() == 0 && len(r.contextPhrases) == 0 {
		c.Validations["context_score"] = c.Confidence
		return
	}

	words := precedingWords(text[:c.Start], r.window)
	keyword := ""
	for _, w := range words {
		if r.contextWords.Contains(w) {
			keyword = w
			break
		}
	}
	if keyword == "" && len(r.contextPhrases) > 0 {
		joined := " " + strings.Join(words, " ") + " "
		for _, phrase := range r.contextPhrases {
			if strings.Contains(joined, " "+phrase+" ") {
				keyword = phrase
				break
			}
		}
	}

	if keyword != "" {
		c.Confidence = math.Min(1.0, math.Max(c.Confidence+r.boost, r.minBoosted))
		c.Validations["context_keyword"] = keyword
	}
	c.Validations["context_score"] = c.Confidence
}

// precedingWords returns up to n lowercased words at the end of prefix
func precedingWords(prefix string, n int) []string {
	if n <= 0 {
		return nil
	}
	words := strings.FieldsFunc(strings.ToLower(prefix), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) > n {
		words = words[len(words)-n:]
	}
	return words
}

func trimBounds(text string, start, end int) (int, int) {
	const cutset = " \t\r\n,.;:"
	for start < end && strings.ContainsRune(cutset, rune(text[start])) {
		start++
	}
	for end > start && strings.ContainsRune(cutset, rune(text[end-1])) {
		end--
	}
	return start, end
}

// removeDuplicates drops candidates contained in a higher or equally scored
// candidate, then restores offset order.
func removeDuplicates(candidates []pii.Candidate) []pii.Candidate {
	if len(candidates) < 2 {
		return candidates
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].End-candidates[i].Start > candidates[j].End-candidates[j].Start
	})

	kept := make([]pii.Candidate, 0, len(candidates))
	for _, c := range candidates {
		contained := false
		for _, k := range kept {
			if k.Start <= c.Start && c.End <= k.End {
				contained = true
				break
			}
		}
		if !contained {
			kept = append(kept, c)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Start < kept[j].Start
	})
	return kept
}
