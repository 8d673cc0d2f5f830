package safe

import (
	"CollectBox/logger"
)

// Go starts a goroutine that recovers from panic, so a misbehaving
// pump cannot take down the whole process.
func Go(name string, f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("[safe.Go] %s panic recovered: %v", name, r)
			}
		}()
		f()
	}()
}
