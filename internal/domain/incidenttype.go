package domain

// IncidentType is a process-wide catalog entry. A hidden type may not
// be freshly assigned to an incident by the API but remains valid on
// incidents that already carry it.
type IncidentType struct {
	Name   string `json:"name"`
	Hidden bool   `json:"hidden"`
}

// Known system types that are always present in a fresh store.
const (
	IncidentTypeAdmin = "Admin"
	IncidentTypeJunk  = "Junk"
)

// DefaultIncidentTypes seeds a new store with the system types every
// deployment must carry.
func DefaultIncidentTypes() []IncidentType {
	return []IncidentType{
		{Name: IncidentTypeAdmin, Hidden: false},
		{Name: IncidentTypeJunk, Hidden: false},
	}
}
