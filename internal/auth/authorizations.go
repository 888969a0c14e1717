// Package auth computes the six-flag Authorizations bitset for a
// (user, event) pair and implements the ACL match rule.
package auth

// Authorizations is the capability bitset a handler checks before
// acting on a request.
type Authorizations uint8

const (
	AuthImsAdmin Authorizations = 1 << iota
	AuthReadPersonnel
	AuthReadIncidents
	AuthWriteIncidents
	AuthReadIncidentReports
	AuthWriteIncidentReports
)

// Has reports whether every flag in want is set.
func (a Authorizations) Has(want Authorizations) bool {
	return a&want == want
}

// baseline is granted to any authenticated user regardless of event.
const baseline = AuthReadPersonnel | AuthReadIncidentReports | AuthWriteIncidentReports
