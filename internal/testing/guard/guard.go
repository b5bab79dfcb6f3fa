package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("CONSOLE_TEST_MODE") == "" {
			_ = os.Setenv("CONSOLE_TEST_MODE", "1")
		}
	})
}
