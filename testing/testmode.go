// Package testing pins package tests to the in-memory ledger backends.
// Import it for side effects from any test that builds a Ledger.
package testing

import (
	"os"
	"sync"
)

// Pinned lists the variables forced on import.
var Pinned = map[string]string{
	"LEDGER_TEST_MODE": "1",
	"LEDGER_STORE":     "memory",
	"LEDGER_NUMBERING": "memory",
	"REDIS_ADDR":       "",
}

var once sync.Once

// Pin applies Pinned once per process.
func Pin() {
	once.Do(func() {
		for k, v := range Pinned {
			_ = os.Setenv(k, v)
		}
	})
}

func init() {
	Pin()
}
