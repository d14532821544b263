package workload

import (
	"os"

	"github.com/pkg/errors"
)

const (
	DefaultDirs      = 1000
	DefaultFiles     = 10
	DefaultChunkSize = 1024
	DefaultChmodMode = os.FileMode(0600)
)

// Config describes the shape of one run. It is built once from the command
// line and never modified afterwards.
type Config struct {
	Dirs      int
	Files     int
	FileSize  int64
	ChunkSize int64
	Root      string

	// Container creates a private mdbench.<host>.<pid> directory under Root.
	Container bool
	Cleanup   bool
	Extended  bool

	// Sync forces every created file to stable storage before it is closed.
	// The flush is part of the timed create.
	Sync bool

	// RandomPayload fills files with printable random bytes instead of zeros.
	RandomPayload bool

	ChmodMode os.FileMode
}

func DefaultConfig(root string) Config {
	return Config{
		Dirs:      DefaultDirs,
		Files:     DefaultFiles,
		ChunkSize: DefaultChunkSize,
		Root:      root,
		Container: true,
		Cleanup:   true,
		ChmodMode: DefaultChmodMode,
	}
}

func (c Config) Validate() error {
	switch {
	case c.Root == "":
		return errors.New("target path is required")
	case c.Dirs < 0:
		return errors.Errorf("directory count must not be negative: %d", c.Dirs)
	case c.Files < 0:
		return errors.Errorf("file count must not be negative: %d", c.Files)
	case c.FileSize < 0:
		return errors.Errorf("file size must not be negative: %d", c.FileSize)
	case c.ChunkSize <= 0:
		return errors.Errorf("chunk size must be positive: %d", c.ChunkSize)
	}
	return nil
}

// FileCount is the number of files the run creates.
func (c Config) FileCount() int {
	if c.Dirs == 0 {
		return c.Files
	}
	return c.Dirs * c.Files
}
