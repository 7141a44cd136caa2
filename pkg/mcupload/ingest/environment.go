package ingest

import (
	"os"

	"github.com/materials-commons/mcupload/pkg/mcupload/uperr"
)

// ValidateEnvironment checks that files can be created in root by writing
// and removing a probe file. It must run before any of the request body is read.
func ValidateEnvironment(root string) error {
	probe, err := os.CreateTemp(root, ".write_test-*")
	if err != nil {
		return uperr.Wrap(err, uperr.NoWritePermissions, "no write permission in upload directory")
	}

	probePath := probe.Name()
	_, werr := probe.WriteString("test")
	cerr := probe.Close()
	rerr := os.Remove(probePath)

	for _, err := range []error{werr, cerr, rerr} {
		if err != nil {
			return uperr.Wrap(err, uperr.NoWritePermissions, "no write permission in upload directory")
		}
	}

	return nil
}
