package domain

// Event is a top-level tenant, typically one per year's gathering. It
// owns per-event ACLs, a concentric-street dictionary, and namespaces of
// incidents and field reports. Created explicitly; the core never
// deletes one.
type Event struct {
	ID EventID
}

// Access holds the per-mode ACL expression sets for one event. Order
// within a mode is insignificant and duplicates are collapsed by the
// store before persisting (see pkg/stringutil.DedupeAndTrim).
type Access struct {
	Readers   []string `json:"readers"`
	Writers   []string `json:"writers"`
	Reporters []string `json:"reporters"`
}

// ConcentricStreets is a per-event ordered map from opaque ID to
// human-readable name. IDs are never renumbered and the set is add-only
// from the core's perspective — there is deliberately no delete
// operation anywhere in the store interface.
type ConcentricStreets struct {
	Event EventID
	Names map[ConcentricStreetID]string
}
