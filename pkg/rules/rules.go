// Package rules provides the static detection rule catalog used by the
// pattern scanner. Rules are data, not code: the catalog is an embedded
// YAML document validated and compiled once at startup, and the resulting
// RuleSet is read-only and safe to share across scanning workers.
package rules

import (
	_ "embed"
	"regexp"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/jingkaihe/skillscan/pkg/types/scan"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

// LanguageAny marks a rule as applicable to every source language.
const LanguageAny = "any"

// Rule is one immutable detection rule from the catalog.
type Rule struct {
	ID          string        `yaml:"id"`
	Title       string        `yaml:"title"`
	Category    scan.Category `yaml:"category"`
	Severity    scan.Severity `yaml:"severity"`
	Languages   []string      `yaml:"languages"`
	Pattern     string        `yaml:"pattern"`
	Unless      string        `yaml:"unless,omitempty"`
	Rationale   string        `yaml:"rationale"`
	Remediation string        `yaml:"remediation,omitempty"`

	matcher *regexp.Regexp
	unless  *regexp.Regexp
}

// Matches reports whether the rule fires on the given line window. A rule
// with an `unless` pattern is suppressed when the negative pattern also
// matches the same window; this is the only context-sensitivity the
// engine supports.
func (r *Rule) Matches(window string) bool {
	if !r.matcher.MatchString(window) {
		return false
	}
	if r.unless != nil && r.unless.MatchString(window) {
		return false
	}
	return true
}

// AppliesTo reports whether the rule covers the given source language.
func (r *Rule) AppliesTo(language string) bool {
	for _, l := range r.Languages {
		if l == LanguageAny || l == language {
			return true
		}
	}
	return false
}

type catalog struct {
	Version int     `yaml:"version"`
	Rules   []*Rule `yaml:"rules"`
}

// RuleSet is the compiled, validated catalog. Read-only after Load, so it
// is shared across scanning workers without locking.
type RuleSet struct {
	Version int
	rules   []*Rule
}

// Load parses, validates, and compiles the embedded catalog. Any invalid
// rule makes the whole load fail; every defect is reported, not just the
// first one found.
func Load() (*RuleSet, error) {
	return loadCatalog(embeddedCatalog)
}

func loadCatalog(data []byte) (*RuleSet, error) {
	var cat catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, errors.Wrap(err, "failed to parse rule catalog")
	}
	if len(cat.Rules) == 0 {
		return nil, errors.New("rule catalog contains no rules")
	}

	var verr *multierror.Error
	seen := make(map[string]bool, len(cat.Rules))
	for i, r := range cat.Rules {
		if r.ID == "" {
			verr = multierror.Append(verr, errors.Errorf("rule %d: missing id", i))
			continue
		}
		if seen[r.ID] {
			verr = multierror.Append(verr, errors.Errorf("rule %s: duplicate id", r.ID))
		}
		seen[r.ID] = true

		if !r.Severity.Valid() {
			verr = multierror.Append(verr, errors.Errorf("rule %s: invalid severity %q", r.ID, r.Severity))
		}
		if !r.Category.Valid() {
			verr = multierror.Append(verr, errors.Errorf("rule %s: invalid category %q", r.ID, r.Category))
		}
		if len(r.Languages) == 0 {
			verr = multierror.Append(verr, errors.Errorf("rule %s: no languages (use %q for all)", r.ID, LanguageAny))
		}
		if r.Pattern == "" {
			verr = multierror.Append(verr, errors.Errorf("rule %s: empty pattern", r.ID))
			continue
		}

		matcher, err := regexp.Compile(r.Pattern)
		if err != nil {
			verr = multierror.Append(verr, errors.Wrapf(err, "rule %s: pattern does not compile", r.ID))
			continue
		}
		r.matcher = matcher

		if r.Unless != "" {
			unless, err := regexp.Compile(r.Unless)
			if err != nil {
				verr = multierror.Append(verr, errors.Wrapf(err, "rule %s: unless pattern does not compile", r.ID))
				continue
			}
			r.unless = unless
		}
	}
	if err := verr.ErrorOrNil(); err != nil {
		return nil, errors.Wrap(err, "rule catalog validation failed")
	}

	return &RuleSet{Version: cat.Version, rules: cat.Rules}, nil
}

// Rules returns every rule in catalog order.
func (rs *RuleSet) Rules() []*Rule {
	return rs.rules
}

// Len returns the number of rules in the set.
func (rs *RuleSet) Len() int {
	return len(rs.rules)
}

// MatchersFor returns the rules applicable to the given language, in
// catalog order.
func (rs *RuleSet) MatchersFor(language string) []*Rule {
	out := make([]*Rule, 0, len(rs.rules))
	for _, r := range rs.rules {
		if r.AppliesTo(language) {
			out = append(out, r)
		}
	}
	return out
}
