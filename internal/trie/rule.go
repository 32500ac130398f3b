package trie

import (
	"unicode"

	"github.com/pkg/errors"
	"golang.org/x/text/width"
)

// Rule is the per-character equality policy of a trie. Two runes are equal
// under a rule when Fold maps them to the same rune. Fold is applied to every
// rune before insertion and before lookup; a nil Fold means exact matching.
// Fold must be idempotent: stored prefixes are already folded and are folded
// again when probed.
type Rule struct {
	Name string
	Fold func(rune) rune
}

var (
	// Exact compares runes as-is.
	Exact = Rule{Name: "exact"}

	// FoldCase compares runes case-insensitively.
	FoldCase = Rule{Name: "fold-case", Fold: unicode.ToLower}

	// FoldWidth treats fullwidth and halfwidth forms as their canonical
	// counterparts, e.g. 'Ａ' == 'A' and 'ｶ' == 'カ'.
	FoldWidth = Rule{Name: "fold-width", Fold: foldWidth}

	// FoldCaseWidth applies FoldWidth then FoldCase.
	FoldCaseWidth = Rule{Name: "fold-case-width", Fold: func(r rune) rune {
		return unicode.ToLower(foldWidth(r))
	}}
)

var builtinRules = map[string]Rule{
	Exact.Name:         Exact,
	FoldCase.Name:      FoldCase,
	FoldWidth.Name:     FoldWidth,
	FoldCaseWidth.Name: FoldCaseWidth,
}

// NewRule returns a custom rule. fn must be deterministic and idempotent.
func NewRule(name string, fn func(rune) rune) Rule {
	return Rule{Name: name, Fold: fn}
}

// RuleByName resolves one of the built-in rules. The empty name is Exact.
func RuleByName(name string) (Rule, error) {
	if name == "" {
		return Exact, nil
	}
	r, ok := builtinRules[name]
	if !ok {
		return Rule{}, errors.Wrapf(ErrInvalidArgument, "unknown rule %q", name)
	}
	return r, nil
}

// RuleNames lists the built-in rule names.
func RuleNames() []string {
	return []string{Exact.Name, FoldCase.Name, FoldWidth.Name, FoldCaseWidth.Name}
}

func (r Rule) apply(c rune) rune {
	if r.Fold == nil {
		return c
	}
	return r.Fold(c)
}

func foldWidth(r rune) rune {
	p := width.LookupRune(r)
	switch p.Kind() {
	case width.EastAsianFullwidth:
		if n := p.Narrow(); n != 0 {
			return n
		}
	case width.EastAsianHalfwidth:
		// Halfwidth runes whose wide form is itself fullwidth (e.g. the won
		// sign) stay put so the fold is idempotent.
		if w := p.Wide(); w != 0 && width.LookupRune(w).Kind() != width.EastAsianFullwidth {
			return w
		}
	}
	return r
}
