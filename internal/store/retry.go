package store

import (
	"context"
	"strings"

	"github.com/cenkalti/backoff/v4"
)

const maxBusyRetries = 5

// retry runs op, retrying with exponential backoff while SQLite reports the
// database as locked. Any other error is returned immediately.
func (s *Store) retry(ctx context.Context, op func() error) error {
	operation := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !isBusy(err) {
			return backoff.Permanent(err)
		}
		s.log.Debug().Err(err).Msg("store: database busy, retrying")
		return err
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxBusyRetries), ctx)
	return backoff.Retry(operation, bo)
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
