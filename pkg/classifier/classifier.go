// Package classifier routes free-text queries to a response strategy with
// an ordered, data-driven rule cascade.
package classifier

import (
	"regexp"
	"strings"
)

// Category is the kind of query.
type Category string

const (
	Greeting   Category = "greeting"
	About      Category = "about"
	Simple     Category = "simple"
	Commercial Category = "commercial"
	Selection  Category = "selection"
	Technical  Category = "technical"
	General    Category = "general"
	Unknown    Category = "unknown"
)

const thresholdDefaultKey = "default"

// Result is the outcome of Classify. Confidence is in [0, 1].
type Result struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
}

type cascadeStep struct {
	category   Category
	confidence float64
	patterns   []*regexp.Regexp
}

// Classifier is immutable after construction and safe for concurrent use.
type Classifier struct {
	cascade    []cascadeStep
	selection  []*regexp.Regexp
	technical  []*regexp.Regexp
	scoring    Scoring
	thresholds map[Category]float64
	fallback   float64
	replies    map[Category]string
	keywords   []*regexp.Regexp
}

// Option configures New.
type Option func(*options)

type options struct {
	rules     *Rules
	rulesPath string
}

// WithRules uses rules instead of the built-in rules.
func WithRules(r *Rules) Option {
	return func(o *options) { o.rules = r }
}

// WithRulesFile loads rules from path. An empty path keeps the built-in rules.
func WithRulesFile(path string) Option {
	return func(o *options) { o.rulesPath = path }
}

// New compiles the rules into a Classifier.
func New(opts ...Option) (*Classifier, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	rules := o.rules
	var err error
	switch {
	case rules != nil:
		err = rules.validate()
	case o.rulesPath != "":
		rules, err = LoadRules(o.rulesPath)
	default:
		rules, err = DefaultRules()
	}
	if err != nil {
		return nil, err
	}

	c := &Classifier{
		scoring:    rules.Scoring,
		thresholds: make(map[Category]float64, len(rules.Thresholds)),
		replies:    make(map[Category]string, len(rules.Replies)),
	}

	for _, step := range rules.Cascade {
		patterns, err := compileAll(step.Patterns)
		if err != nil {
			return nil, err
		}
		c.cascade = append(c.cascade, cascadeStep{
			category:   step.Category,
			confidence: step.Confidence,
			patterns:   patterns,
		})
	}

	if c.selection, err = compileAll(rules.Evidence.Selection); err != nil {
		return nil, err
	}
	if c.technical, err = compileAll(rules.Evidence.Technical); err != nil {
		return nil, err
	}

	for name, v := range rules.Thresholds {
		if name == thresholdDefaultKey {
			c.fallback = v
			continue
		}
		c.thresholds[Category(name)] = v
	}
	for name, text := range rules.Replies {
		c.replies[Category(name)] = strings.TrimSpace(text)
	}

	for _, term := range rules.Keywords {
		re, err := regexp.Compile("(?i)" + leadBoundary + "(" + regexp.QuoteMeta(term) + wordChar + "*)")
		if err != nil {
			return nil, err
		}
		c.keywords = append(c.keywords, re)
	}

	return c, nil
}

// Classify scores text against the rules. It has no side effects, so the
// same text always yields the same result.
func (c *Classifier) Classify(text string) Result {
	normalized := strings.ToLower(strings.TrimSpace(text))

	for _, step := range c.cascade {
		if matchesAny(step.patterns, normalized) {
			return Result{Category: step.category, Confidence: step.confidence}
		}
	}

	selection := countMatches(c.selection, normalized)
	technical := countMatches(c.technical, normalized)

	switch {
	case selection >= 1 && technical >= 1:
		return Result{Category: Selection, Confidence: c.scoring.SelectionWithTechnical}
	case selection >= 1:
		return Result{Category: Selection, Confidence: c.scoring.SelectionOnly}
	case technical >= 1:
		idx := min(technical, len(c.scoring.Technical)) - 1
		return Result{Category: Technical, Confidence: c.scoring.Technical[idx]}
	}

	if len(strings.Fields(text)) > c.scoring.GeneralMinWords {
		return Result{Category: General, Confidence: c.scoring.General}
	}
	return Result{Category: Unknown, Confidence: c.scoring.Unknown}
}

// TechnicalScore returns the number of distinct technical patterns in text.
func (c *Classifier) TechnicalScore(text string) int {
	return countMatches(c.technical, strings.ToLower(text))
}

// Threshold returns the minimum confidence required to attempt retrieval
// for category. Unlisted categories use the default threshold.
func (c *Classifier) Threshold(category Category) float64 {
	if v, ok := c.thresholds[category]; ok {
		return v
	}
	return c.fallback
}

// ExtractKeywords returns the words of text that start with a vocabulary
// term, as written in text. Words come in vocabulary order, each once.
func (c *Classifier) ExtractKeywords(text string) []string {
	found := []string{}
	seen := map[string]bool{}
	for _, re := range c.keywords {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		word := m[1]
		if key := strings.ToLower(word); !seen[key] {
			seen[key] = true
			found = append(found, word)
		}
	}
	return found
}

// CannedReply returns the fixed reply for category, if it has one.
func (c *Classifier) CannedReply(category Category) (string, bool) {
	reply, ok := c.replies[category]
	return reply, ok && reply != ""
}

func matchesAny(patterns []*regexp.Regexp, text string) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func countMatches(patterns []*regexp.Regexp, text string) int {
	n := 0
	for _, re := range patterns {
		if re.MatchString(text) {
			n++
		}
	}
	return n
}
