// Package rules loads Adblock-Plus-style cosmetic-hide rules and
// answers, for a given hostname, which CSS selectors apply.
package rules

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/AdguardTeam/urlfilter/rules"
)

// Oracle answers selector-applicability queries for a hostname,
// implementing the domain-scope semantics of spec.md §4.2:
//   - no domain on the rule at all        -> universal, always applies
//   - every domain on the rule is an
//     exclusion (restricted) domain       -> universal, always applies
//   - otherwise                            -> applies when hostname
//     matches (by substring) one of the permitted domains; restricted
//     domains are dropped once any permitted domain exists and are
//     never consulted as a veto
type Oracle struct {
	parsed []parsedRule
}

type parsedRule struct {
	selector  string
	permitted []string
	universal bool
}

// Load parses element-hiding cosmetic rules (the "##selector" and
// "domain1,domain2##selector" forms) from r, one rule per line.
// Non-cosmetic rules (network blocking rules, comments, blank lines)
// are skipped rather than rejected, matching filter lists in the wild
// that mix rule kinds in one file.
func Load(r io.Reader) (*Oracle, error) {
	o := &Oracle{}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "!") || strings.HasPrefix(line, "[") {
			continue
		}
		if !strings.Contains(line, "##") {
			continue // not an element-hiding rule; out of scope
		}

		rule, err := rules.NewCosmeticRule(line, 0)
		if err != nil {
			continue // malformed or unsupported cosmetic syntax; skip
		}
		if rule.IsWhitelist() {
			continue // exception rules ("#@#") don't add a selector
		}

		permitted := rule.PermittedDomains()

		pr := parsedRule{
			selector:  rule.Content,
			permitted: permitted,
		}
		if len(permitted) == 0 {
			pr.universal = true
		}
		o.parsed = append(o.parsed, pr)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("rules: scan failed at line %d: %w", lineNo, err)
	}
	return o, nil
}

// Applicable returns the CSS selectors whose domain scope covers
// hostname, in the order the rules were loaded.
func (o *Oracle) Applicable(hostname string) []string {
	var out []string
	for _, pr := range o.parsed {
		if pr.applies(hostname) {
			out = append(out, pr.selector)
		}
	}
	return out
}

// applies matches _is_rule_applicable in the original implementation:
// once any permitted (positive-scope) domain exists on the rule,
// restricted (exclusion) domains are never consulted at all — they're
// dropped before this check runs, not treated as a veto. A rule with
// both kinds present still applies on any hostname substring match
// against one of its permitted domains.
func (pr parsedRule) applies(hostname string) bool {
	if pr.universal {
		return true
	}
	for _, permitted := range pr.permitted {
		if domainMatches(hostname, permitted) {
			return true
		}
	}
	return false
}

// domainMatches implements spec.md §4.2's substring rule exactly: a
// rule domain applies to hostname if domain appears anywhere in
// hostname as a substring, matching the original implementation's
// unconstrained `domain in hostname` check.
func domainMatches(hostname, domain string) bool {
	return strings.Contains(strings.ToLower(hostname), strings.ToLower(domain))
}

// Len reports how many cosmetic rules were loaded, for diagnostics.
func (o *Oracle) Len() int {
	return len(o.parsed)
}
