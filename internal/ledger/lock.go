package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"

	"github.com/zinc-sig/tally/internal/retry"
)

// LockSuffix is appended to a guarded file's path to form its lock file.
const LockSuffix = ".lock"

// lockSet holds exclusive locks acquired in order.
type lockSet struct {
	held []*flock.Flock
	log  logrus.FieldLogger
}

// acquireLocks takes an exclusive lock for each path, in the order given. On
// failure every lock taken so far is released.
func acquireLocks(ctx context.Context, policy retry.Policy, log logrus.FieldLogger, paths ...string) (*lockSet, error) {
	set := &lockSet{log: log}
	for _, path := range paths {
		lock := flock.New(path + LockSuffix)
		err := retry.Poll(ctx, policy, func(attempt int) (bool, error) {
			ok, err := lock.TryLock()
			if err != nil {
				return false, err
			}
			if !ok && attempt == 0 {
				log.WithField("file", path).Info("Waiting for ledger lock")
			}
			return ok, nil
		})
		if err != nil {
			set.release()
			return nil, fmt.Errorf("locking %s: %w", path, err)
		}
		set.held = append(set.held, lock)
	}
	return set, nil
}

// release unlocks in reverse acquisition order.
func (s *lockSet) release() error {
	var errs []error
	for i := len(s.held) - 1; i >= 0; i-- {
		if err := s.held[i].Unlock(); err != nil {
			s.log.WithError(err).WithField("file", s.held[i].Path()).Warn("Failed to release lock")
			errs = append(errs, err)
		}
	}
	s.held = nil
	return errors.Join(errs...)
}
