// Package sqlfile implements internal/directory.Directory against an
// external relational roster, for deployments whose personnel system
// lives in its own database. The connection is opened by the caller;
// in production the roster is a separate database from the IMS
// transactional store.
package sqlfile

import (
	"context"
	"database/sql"
	"strings"

	"ims/internal/directory"
	"ims/internal/domain"
	dErrors "ims/pkg/domainerrors"
)

// Directory is a SQL-backed personnel directory. It expects a roster
// table shaped like:
//
//	personnel(handle TEXT PRIMARY KEY, name TEXT, status TEXT, email TEXT,
//	          enabled BOOLEAN, password_hash TEXT)
//	personnel_position(handle TEXT, position TEXT)
type Directory struct {
	db        *sql.DB
	masterKey string
}

// New constructs a Directory over an already-opened *sql.DB.
func New(db *sql.DB, masterKey string) *Directory {
	return &Directory{db: db, masterKey: masterKey}
}

func (d *Directory) groupsFor(ctx context.Context, handle string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT position FROM personnel_position WHERE handle = $1`, handle)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query personnel positions")
	}
	defer rows.Close()

	var groups []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to scan personnel position")
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// LookupUser matches searchTerm against handle or email.
func (d *Directory) LookupUser(ctx context.Context, searchTerm string) (domain.User, bool, error) {
	term := strings.TrimSpace(searchTerm)
	if term == "" {
		return domain.User{}, false, nil
	}

	var handle, passwordHash string
	var enabled bool
	err := d.db.QueryRowContext(ctx, `
		SELECT handle, enabled, password_hash FROM personnel
		WHERE handle = $1 OR email = $1
	`, term).Scan(&handle, &enabled, &passwordHash)
	if err == sql.ErrNoRows {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query personnel")
	}

	groups, err := d.groupsFor(ctx, handle)
	if err != nil {
		return domain.User{}, false, err
	}

	return domain.User{
		ShortNames:     []string{handle},
		Groups:         groups,
		Active:         enabled,
		UserID:         handle,
		HashedPassword: passwordHash,
	}, true, nil
}

// Personnel returns the full roster.
func (d *Directory) Personnel(ctx context.Context) ([]domain.Ranger, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT handle, name, status, email FROM personnel`)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query personnel")
	}
	defer rows.Close()

	var out []domain.Ranger
	for rows.Next() {
		var handle, name, status, email string
		if err := rows.Scan(&handle, &name, &status, &email); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to scan personnel row")
		}
		out = append(out, domain.Ranger{
			Handle: domain.RangerHandle(handle),
			Name:   name,
			Status: domain.RangerStatus(status),
			Email:  email,
		})
	}
	return out, rows.Err()
}

// VerifyPassword checks the master-key escape hatch first, then falls
// back to a bcrypt comparison against the roster's stored hash.
func (d *Directory) VerifyPassword(_ context.Context, user domain.User, plaintext string) (bool, error) {
	if directory.MasterKeyBypass(d.masterKey, plaintext) {
		return true, nil
	}
	return directory.CompareHashAndPassword(user.HashedPassword, plaintext), nil
}

var _ directory.Directory = (*Directory)(nil)
