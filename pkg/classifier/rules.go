package classifier

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed rules.toml
var defaultRulesTOML []byte

// ErrInvalidRules is returned when a rules document cannot be used.
var ErrInvalidRules = errors.New("invalid classifier rules")

// Rules is the data behind a Classifier.
type Rules struct {
	Keywords   []string           `toml:"keywords"`
	Cascade    []CascadeRule      `toml:"cascade"`
	Evidence   EvidenceRules      `toml:"evidence"`
	Scoring    Scoring            `toml:"scoring"`
	Thresholds map[string]float64 `toml:"thresholds"`
	Replies    map[string]string  `toml:"replies"`
}

// CascadeRule assigns Confidence to Category when any pattern matches.
type CascadeRule struct {
	Category   Category `toml:"category"`
	Confidence float64  `toml:"confidence"`
	Patterns   []string `toml:"patterns"`
}

// EvidenceRules are counted rather than matched first-wins.
type EvidenceRules struct {
	Selection []string `toml:"selection"`
	Technical []string `toml:"technical"`
}

// Scoring is the decision table applied to the evidence counts.
type Scoring struct {
	SelectionWithTechnical float64   `toml:"selection_with_technical"`
	SelectionOnly          float64   `toml:"selection_only"`
	Technical              []float64 `toml:"technical"`
	GeneralMinWords        int       `toml:"general_min_words"`
	General                float64   `toml:"general"`
	Unknown                float64   `toml:"unknown"`
}

// DefaultRules returns the built-in rules.
func DefaultRules() (*Rules, error) {
	return ParseRules(defaultRulesTOML)
}

// LoadRules reads a rules file.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules %s: %w", path, err)
	}
	return ParseRules(data)
}

// ParseRules decodes a TOML rules document.
func ParseRules(data []byte) (*Rules, error) {
	rules := &Rules{}
	md, err := toml.Decode(string(data), rules)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRules, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: unknown keys %v", ErrInvalidRules, undecoded)
	}
	if err := rules.validate(); err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *Rules) validate() error {
	for i, c := range r.Cascade {
		if c.Category == "" {
			return fmt.Errorf("%w: cascade rule %d has no category", ErrInvalidRules, i)
		}
		if len(c.Patterns) == 0 {
			return fmt.Errorf("%w: cascade rule %q has no patterns", ErrInvalidRules, c.Category)
		}
	}
	if len(r.Scoring.Technical) == 0 {
		return fmt.Errorf("%w: scoring.technical must list at least one confidence", ErrInvalidRules)
	}
	if _, ok := r.Thresholds[thresholdDefaultKey]; !ok {
		return fmt.Errorf("%w: thresholds.%s is required", ErrInvalidRules, thresholdDefaultKey)
	}
	return nil
}

const (
	wordChar      = `[\p{L}\p{N}_]`
	leadBoundary  = `(?:^|[^\p{L}\p{N}_])`
	trailBoundary = `(?:$|[^\p{L}\p{N}_])`
)

// translatePattern rewrites \b and \w into Unicode-aware forms, since RE2
// only knows ASCII word characters. A \b at the start of the pattern or
// after "(", "|" or a space opens a word; any other \b closes one.
func translatePattern(p string) string {
	var b strings.Builder
	for i := 0; i < len(p); i++ {
		if p[i] == '\\' && i+1 < len(p) {
			switch p[i+1] {
			case 'w':
				b.WriteString(wordChar)
				i++
				continue
			case 'b':
				if i == 0 || strings.ContainsRune("(| ", rune(p[i-1])) {
					b.WriteString(leadBoundary)
				} else {
					b.WriteString(trailBoundary)
				}
				i++
				continue
			default:
				b.WriteByte(p[i])
				b.WriteByte(p[i+1])
				i++
				continue
			}
		}
		b.WriteByte(p[i])
	}
	return b.String()
}

// compilePattern compiles a rules pattern case-insensitively.
func compilePattern(p string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("(?i)" + translatePattern(p))
	if err != nil {
		return nil, fmt.Errorf("%w: pattern %q: %w", ErrInvalidRules, p, err)
	}
	return re, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := compilePattern(p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}
