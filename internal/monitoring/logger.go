// Package monitoring holds the diagnostic logger shared by the evaluator
// packages.
package monitoring

import (
	"log"
	"sync"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

var (
	warnedMu sync.Mutex
	warned   = map[string]bool{}
)

// WarnOnce logs a warning the first time key is seen in this process and
// reports whether it logged.
func WarnOnce(key, format string, v ...interface{}) bool {
	warnedMu.Lock()
	seen := warned[key]
	warned[key] = true
	warnedMu.Unlock()
	if seen {
		return false
	}
	Logf("warning: "+format, v...)
	return true
}

// ResetWarnings forgets which warnings have been issued.
func ResetWarnings() {
	warnedMu.Lock()
	warned = map[string]bool{}
	warnedMu.Unlock()
}
