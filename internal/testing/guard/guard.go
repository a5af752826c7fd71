// Package guard forces test mode before any runtime bootstrap code runs.
// Blank-import it from test files that touch the app package.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("SHELLCN_TEST_MODE") == "" {
			_ = os.Setenv("SHELLCN_TEST_MODE", "1")
		}
	})
}
