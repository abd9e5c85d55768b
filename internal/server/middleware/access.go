package middleware

import (
	"fmt"
	"sort"
	"strings"
)

// Policy says what the gate does with a request path.
type Policy int

const (
	// PolicyOptional resolves a session when a token is present and forwards
	// the request either way.
	PolicyOptional Policy = iota
	// PolicyBypass forwards the request without looking at credentials.
	PolicyBypass
	// PolicyAdmin requires a valid session and redirects to the login page
	// otherwise.
	PolicyAdmin
)

func (p Policy) String() string {
	switch p {
	case PolicyBypass:
		return "bypass"
	case PolicyAdmin:
		return "admin"
	default:
		return "optional"
	}
}

// Rule maps a path pattern to a policy. Exact rules match the whole path;
// the others match any path starting with Pattern.
type Rule struct {
	Pattern string
	Exact   bool
	Policy  Policy
}

// AccessTable is an immutable, ordered set of rules. Paths are compared in
// lower case. Exact rules win over prefix rules and longer prefixes win over
// shorter ones; paths matching nothing get PolicyOptional.
type AccessTable struct {
	rules []Rule
}

// LoginPath is where unauthenticated admin requests are redirected.
const LoginPath = "/admin/login"

// DefaultRules is the access table of the application.
var DefaultRules = []Rule{
	{Pattern: "/admin/login", Policy: PolicyBypass},
	{Pattern: "/api/auth", Policy: PolicyBypass},
	{Pattern: "/swagger", Policy: PolicyBypass},
	{Pattern: "/_framework", Policy: PolicyBypass},
	{Pattern: "/css", Policy: PolicyBypass},
	{Pattern: "/js", Policy: PolicyBypass},
	{Pattern: "/assets", Policy: PolicyBypass},
	{Pattern: "/", Exact: true, Policy: PolicyBypass},
	{Pattern: "/index.html", Exact: true, Policy: PolicyBypass},
	{Pattern: "/admin", Policy: PolicyAdmin},
}

// NewAccessTable validates rules and returns them as a lookup table.
// Patterns must start with "/" and may not repeat.
func NewAccessTable(rules []Rule) (*AccessTable, error) {
	seen := make(map[string]bool, len(rules))
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if !strings.HasPrefix(r.Pattern, "/") {
			return nil, fmt.Errorf("access rule %q: pattern must start with /", r.Pattern)
		}
		r.Pattern = strings.ToLower(r.Pattern)
		key := fmt.Sprintf("%t:%s", r.Exact, r.Pattern)
		if seen[key] {
			return nil, fmt.Errorf("access rule %q: duplicate pattern", r.Pattern)
		}
		seen[key] = true
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Exact != out[j].Exact {
			return out[i].Exact
		}
		return len(out[i].Pattern) > len(out[j].Pattern)
	})
	return &AccessTable{rules: out}, nil
}

// DefaultAccessTable returns the table built from DefaultRules.
func DefaultAccessTable() *AccessTable {
	t, err := NewAccessTable(DefaultRules)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the policy for path.
func (t *AccessTable) Lookup(path string) Policy {
	path = strings.ToLower(path)
	for _, r := range t.rules {
		if r.Exact {
			if path == r.Pattern {
				return r.Policy
			}
			continue
		}
		if strings.HasPrefix(path, r.Pattern) {
			return r.Policy
		}
	}
	return PolicyOptional
}

// Rules returns a copy of the table in match order.
func (t *AccessTable) Rules() []Rule {
	return append([]Rule(nil), t.rules...)
}
