package domain

// User is the external identity resolved by the directory for the
// duration of one request. Immutable once resolved.
type User struct {
	ShortNames     []string
	Groups         []string
	Active         bool
	UserID         string
	HashedPassword string
}

// HasShortName reports whether name is one of the user's short names.
func (u User) HasShortName(name string) bool {
	for _, sn := range u.ShortNames {
		if sn == name {
			return true
		}
	}
	return false
}

// RangerStatus classifies a roster entry's standing.
type RangerStatus string

const (
	RangerStatusActive   RangerStatus = "active"
	RangerStatusInactive RangerStatus = "inactive"
	RangerStatusVintage  RangerStatus = "vintage"
)

// Ranger is the personnel-directory read model returned by
// Directory.Personnel and serialized by the personnel/ endpoint. The
// roster distinguishes active, inactive, and vintage personnel.
type Ranger struct {
	Handle RangerHandle
	Name   string
	Status RangerStatus
	Email  string
}
