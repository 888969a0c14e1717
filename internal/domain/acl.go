package domain

import "strings"

// ExpressionMatches reports whether an ACL expression matches a user
// identified by their short names and group memberships. An expression
// is one of: "*" (any authenticated user), "person:<handle>" (exact
// short-name match), or "position:<group>" (exact group match).
func ExpressionMatches(expr string, shortNames, groups []string) bool {
	if expr == "*" {
		return true
	}
	if name, ok := strings.CutPrefix(expr, "person:"); ok {
		for _, sn := range shortNames {
			if sn == name {
				return true
			}
		}
		return false
	}
	if group, ok := strings.CutPrefix(expr, "position:"); ok {
		for _, g := range groups {
			if g == group {
				return true
			}
		}
		return false
	}
	return false
}

// MatchesAny reports whether any expression in exprs matches the given
// user attributes.
func MatchesAny(exprs []string, shortNames, groups []string) bool {
	for _, expr := range exprs {
		if ExpressionMatches(expr, shortNames, groups) {
			return true
		}
	}
	return false
}
