package ingest

import (
	"os"

	"github.com/apex/log"
)

// Rollback removes an upload's directory and everything in it. It never
// fails; problems are logged so the error that caused the rollback is the
// one reported to the caller.
func Rollback(dir string) {
	if dir == "" {
		return
	}

	if err := os.RemoveAll(dir); err != nil {
		log.WithField("dir", dir).Warnf("Rollback failed to remove upload directory: %s", err)
		return
	}

	log.WithField("dir", dir).Infof("Rolled back upload directory")
}
