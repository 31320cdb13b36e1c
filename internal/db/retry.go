package db

import (
	"strings"
	"time"
)

const (
	busyRetries = 5
	busyBackoff = 50 * time.Millisecond
)

// retryOnBusy runs op until it succeeds, fails with something other than a
// lock conflict, or the retries run out.
func retryOnBusy(op func() error) error {
	var err error
	for attempt := 0; attempt < busyRetries; attempt++ {
		if err = op(); err == nil || !isBusy(err) {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * busyBackoff)
	}
	return err
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
