package directory

import (
	"context"
	"log/slog"

	"ims/internal/domain"
	"ims/pkg/circuit"
)

// DegradingDirectory wraps a Directory with pkg/circuit so a flaky
// personnel backend degrades the personnel/ endpoint to an empty list
// instead of blocking every request on a slow or dead dependency.
// Login still surfaces the backend's error: LookupUser is not guarded,
// since a failed login must be visible, not quietly empty.
type DegradingDirectory struct {
	backend Directory
	breaker *circuit.Breaker
	logger  *slog.Logger
}

// NewDegrading wraps backend with a named circuit breaker.
func NewDegrading(backend Directory, logger *slog.Logger) *DegradingDirectory {
	return &DegradingDirectory{
		backend: backend,
		breaker: circuit.New("personnel-directory"),
		logger:  logger,
	}
}

// Breaker exposes the underlying breaker for metrics sampling.
func (d *DegradingDirectory) Breaker() *circuit.Breaker { return d.breaker }

func (d *DegradingDirectory) LookupUser(ctx context.Context, searchTerm string) (domain.User, bool, error) {
	return d.backend.LookupUser(ctx, searchTerm)
}

func (d *DegradingDirectory) Personnel(ctx context.Context) ([]domain.Ranger, error) {
	if d.breaker.IsOpen() {
		return nil, nil
	}

	personnel, err := d.backend.Personnel(ctx)
	if err != nil {
		useFallback, change := d.breaker.RecordFailure()
		if change.Opened {
			d.logger.WarnContext(ctx, "personnel directory circuit opened", "error", err)
		}
		if useFallback {
			return nil, nil
		}
		return nil, err
	}

	if _, change := d.breaker.RecordSuccess(); change.Closed {
		d.logger.InfoContext(ctx, "personnel directory circuit closed")
	}
	return personnel, nil
}

func (d *DegradingDirectory) VerifyPassword(ctx context.Context, user domain.User, plaintext string) (bool, error) {
	return d.backend.VerifyPassword(ctx, user, plaintext)
}

var _ Directory = (*DegradingDirectory)(nil)
