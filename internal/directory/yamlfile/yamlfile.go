// Package yamlfile implements internal/directory.Directory against a
// YAML roster file: a schema-versioned document of rangers and
// positions, reloaded when the file's mtime advances past the last
// load, throttled by a minimum recheck interval.
package yamlfile

import (
	"context"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"ims/internal/directory"
	"ims/internal/domain"
	dErrors "ims/pkg/domainerrors"
)

// checkInterval bounds how often the roster file is re-stat'd.
const checkInterval = time.Second

type document struct {
	Schema    int        `yaml:"schema"`
	Rangers   []rangerYAML `yaml:"rangers"`
	Positions []positionYAML `yaml:"positions"`
}

type rangerYAML struct {
	Handle   string `yaml:"handle"`
	Name     string `yaml:"name"`
	Status   string `yaml:"status"`
	Email    string `yaml:"email"`
	Enabled  bool   `yaml:"enabled"`
	Password string `yaml:"password"`
}

type positionYAML struct {
	Name    string   `yaml:"name"`
	Members []string `yaml:"members"`
}

// Directory is a YAML-file-backed personnel directory. masterKey, when
// non-empty, is an operator break-glass password that validates against
// any account; deployments leave it unset in production.
type Directory struct {
	path      string
	masterKey string

	mu           sync.Mutex
	lastLoadTime time.Time
	lastModTime  time.Time
	rangers      map[string]rangerYAML
	positions    []positionYAML
}

// New constructs a Directory reading from path. The file is loaded
// lazily on first use.
func New(path string, masterKey string) *Directory {
	return &Directory{path: path, masterKey: masterKey, rangers: map[string]rangerYAML{}}
}

func (d *Directory) reload() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	if now.Sub(d.lastLoadTime) < checkInterval {
		return nil
	}

	info, err := os.Stat(d.path)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to stat directory file")
	}
	if !info.ModTime().After(d.lastModTime) && !d.lastLoadTime.IsZero() {
		d.lastLoadTime = now
		return nil
	}

	raw, err := os.ReadFile(d.path)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read directory file")
	}

	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to parse directory YAML")
	}
	if doc.Schema != 0 {
		return dErrors.Newf(dErrors.CodeInternal, "unknown directory schema version %d", doc.Schema)
	}

	rangers := make(map[string]rangerYAML, len(doc.Rangers))
	for _, r := range doc.Rangers {
		if r.Handle == "" {
			return dErrors.New(dErrors.CodeInternal, "ranger entry missing handle")
		}
		rangers[r.Handle] = r
	}

	d.rangers = rangers
	d.positions = doc.Positions
	d.lastLoadTime = now
	d.lastModTime = info.ModTime()
	return nil
}

func (d *Directory) groupsFor(handle string) []string {
	var groups []string
	for _, p := range d.positions {
		for _, m := range p.Members {
			if m == handle {
				groups = append(groups, p.Name)
				break
			}
		}
	}
	return groups
}

func statusFromYAML(s string) domain.RangerStatus {
	switch s {
	case "active":
		return domain.RangerStatusActive
	case "inactive":
		return domain.RangerStatusInactive
	case "vintage":
		return domain.RangerStatusVintage
	default:
		return domain.RangerStatusInactive
	}
}

// toUser is called with d.mu held.
func (d *Directory) toUser(r rangerYAML) domain.User {
	groups := d.groupsFor(r.Handle)

	return domain.User{
		ShortNames:     []string{r.Handle},
		Groups:         groups,
		Active:         r.Enabled,
		UserID:         r.Handle,
		HashedPassword: r.Password,
	}
}

// LookupUser matches searchTerm against a ranger's handle or email,
// case-insensitively.
func (d *Directory) LookupUser(_ context.Context, searchTerm string) (domain.User, bool, error) {
	if err := d.reload(); err != nil {
		return domain.User{}, false, err
	}

	term := strings.ToLower(strings.TrimSpace(searchTerm))
	if term == "" {
		return domain.User{}, false, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if r, ok := d.rangers[searchTerm]; ok {
		return d.toUser(r), true, nil
	}
	for _, r := range d.rangers {
		if strings.ToLower(r.Handle) == term || strings.ToLower(r.Email) == term {
			return d.toUser(r), true, nil
		}
	}
	return domain.User{}, false, nil
}

// Personnel returns the full ranger roster.
func (d *Directory) Personnel(_ context.Context) ([]domain.Ranger, error) {
	if err := d.reload(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]domain.Ranger, 0, len(d.rangers))
	for _, r := range d.rangers {
		out = append(out, domain.Ranger{
			Handle: domain.RangerHandle(r.Handle),
			Name:   r.Name,
			Status: statusFromYAML(r.Status),
			Email:  r.Email,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out, nil
}

// VerifyPassword checks the master-key escape hatch first, then falls
// back to a bcrypt comparison against the ranger's stored hash.
func (d *Directory) VerifyPassword(_ context.Context, user domain.User, plaintext string) (bool, error) {
	if directory.MasterKeyBypass(d.masterKey, plaintext) {
		return true, nil
	}
	return directory.CompareHashAndPassword(user.HashedPassword, plaintext), nil
}

var _ directory.Directory = (*Directory)(nil)
