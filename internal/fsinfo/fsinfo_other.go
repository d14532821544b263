//go:build !linux

package fsinfo

import (
	"os"

	"github.com/pkg/errors"
)

// Probe only checks that path exists; the filesystem type is not reported
// on this platform.
func Probe(path string) (Info, error) {
	if _, err := os.Stat(path); err != nil {
		return Info{}, errors.Wrapf(err, "stat %s", path)
	}
	return Info{Type: "unknown"}, nil
}
