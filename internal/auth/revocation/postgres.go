package revocation

import (
	"context"
	"database/sql"
	"time"

	dErrors "ims/pkg/domainerrors"
)

// PostgresList persists revoked JTIs in a token_revocations table:
// upsert-on-conflict revoke, expiry-checked read.
type PostgresList struct {
	db    *sql.DB
	clock func() time.Time
}

// NewPostgresList constructs a PostgresList over an already-opened
// *sql.DB.
func NewPostgresList(db *sql.DB) *PostgresList {
	return &PostgresList{db: db, clock: time.Now}
}

func (l *PostgresList) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	expiresAt := l.clock().Add(ttl)
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO token_revocations (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO UPDATE SET expires_at = EXCLUDED.expires_at
	`, jti, expiresAt)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token")
	}
	return nil
}

func (l *PostgresList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var expiresAt time.Time
	err := l.db.QueryRowContext(ctx, `SELECT expires_at FROM token_revocations WHERE jti = $1`, jti).Scan(&expiresAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check token revocation")
	}
	return l.clock().Before(expiresAt), nil
}

var _ List = (*PostgresList)(nil)
