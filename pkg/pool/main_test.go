package pool

import (
	"io"
	"os"
	"testing"

	"github.com/shoalstore/shoal/pkg/log"
)

func TestMain(m *testing.M) {
	// Invariant violations panic through the logger; it must be initialized
	// for those panics to fire in tests.
	log.Init(log.Config{Level: log.ErrorLevel, JSONOutput: true, Output: io.Discard})
	os.Exit(m.Run())
}
