// Package rules evaluates the ordered pattern rule list against incoming
// filenames and expands rule destinations from captured groups.
package rules

import (
	"fmt"
	"regexp"
	"strings"

	"printdrop/internal/config"
)

// PrintMode describes the print policy attached to a rule.
type PrintMode int

const (
	PrintNever PrintMode = iota
	PrintAlways
	PrintPrompt
)

func (m PrintMode) String() string {
	switch m {
	case PrintAlways:
		return "always"
	case PrintPrompt:
		return "prompt"
	default:
		return "never"
	}
}

// Rule is one compiled pattern rule.
type Rule struct {
	Pattern     *regexp.Regexp
	Destination string
	Mode        PrintMode
	Printer     string
	Index       int
}

// Set holds compiled rules in declaration order.
type Set struct {
	rules []*Rule
}

// Match pairs the winning rule with the named groups it captured.
type Match struct {
	Rule     *Rule
	Captures map[string]string
}

// Compile builds a rule set from configuration. Patterns are anchored at the
// start of the filename so a rule matches as a prefix.
func Compile(cfgRules []config.RuleConfig) (*Set, error) {
	compiled := make([]*Rule, 0, len(cfgRules))
	for i, rc := range cfgRules {
		pattern := rc.Pattern
		if !strings.HasPrefix(pattern, "^") {
			pattern = "^" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %d: compile pattern: %w", i, err)
		}
		mode, err := parsePrintMode(rc.Print)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		compiled = append(compiled, &Rule{
			Pattern:     re,
			Destination: strings.TrimSpace(rc.Destination),
			Mode:        mode,
			Printer:     strings.TrimSpace(rc.Printer),
			Index:       i,
		})
	}
	return &Set{rules: compiled}, nil
}

func parsePrintMode(value any) (PrintMode, error) {
	switch v := value.(type) {
	case nil:
		return PrintNever, nil
	case bool:
		if v {
			return PrintAlways, nil
		}
		return PrintNever, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "prompt":
			return PrintPrompt, nil
		case "always", "true":
			return PrintAlways, nil
		case "never", "false", "":
			return PrintNever, nil
		}
		return PrintNever, fmt.Errorf("unsupported print value %q", v)
	default:
		return PrintNever, fmt.Errorf("unsupported print value of type %T", value)
	}
}

// Len reports the number of rules in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rules)
}

// Match returns the first rule matching filename together with its named
// captures, or nil when no rule matches. Later rules are never consulted
// once one has matched.
func (s *Set) Match(filename string) *Match {
	if s == nil {
		return nil
	}
	for _, rule := range s.rules {
		groups := rule.Pattern.FindStringSubmatch(filename)
		if groups == nil {
			continue
		}
		captures := make(map[string]string)
		for i, name := range rule.Pattern.SubexpNames() {
			if name == "" || i >= len(groups) {
				continue
			}
			captures[name] = groups[i]
		}
		return &Match{Rule: rule, Captures: captures}
	}
	return nil
}

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// DestinationDir expands the rule's destination template with the captured
// groups. Referencing a group the pattern did not capture is an error.
func (m *Match) DestinationDir() (string, error) {
	var missing []string
	expanded := placeholderPattern.ReplaceAllStringFunc(m.Rule.Destination, func(token string) string {
		name := token[1 : len(token)-1]
		value, ok := m.Captures[name]
		if !ok {
			missing = append(missing, name)
			return token
		}
		return value
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("destination references unknown capture group %q", missing[0])
	}
	return config.ExpandPath(expanded)
}
