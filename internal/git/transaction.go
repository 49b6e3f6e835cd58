package git

import (
	"context"

	"github.com/ryanmoran/scriptrepository/internal/failure"
)

// Recoverable is the part of a working copy a transaction needs: a way to
// capture the current revision and a way to return to it.
type Recoverable interface {
	CurrentRevision(ctx context.Context) (string, error)
	ResetHard(ctx context.Context, revision string) error
}

// RunTransaction captures the current revision of repo as a recovery point and
// runs body. If body fails or panics, repo is hard reset to the recovery point
// before the failure is passed on, so no partial local change survives. A
// failed reset is reported as a failure.Rollback error carrying both causes.
//
// Durability comes from the commit and push body performs; on success the
// recovery point is simply dropped.
func RunTransaction(ctx context.Context, repo Recoverable, body func() error) (err error) {
	recoveryPoint, err := repo.CurrentRevision(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			_ = repo.ResetHard(context.WithoutCancel(ctx), recoveryPoint)
			panic(r)
		}
	}()

	if err := body(); err != nil {
		if resetErr := repo.ResetHard(context.WithoutCancel(ctx), recoveryPoint); resetErr != nil {
			return failure.NewRollback(err, resetErr)
		}
		return err
	}

	return nil
}
