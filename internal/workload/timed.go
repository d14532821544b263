package workload

import (
	"io"
	"os"
	"time"

	"github.com/spf13/afero"

	"mdbench/internal/stats"
)

const (
	dirMode  = os.FileMode(0755)
	fileMode = os.FileMode(0644)
)

// Timed wraps single filesystem calls with a timer and feeds the elapsed
// time into the accumulator of one phase. Only the call itself is timed;
// callers build paths before invoking it. Failed calls are not recorded.
type Timed struct {
	fs    afero.Fs
	phase Phase
	stats *stats.Running
}

func NewTimed(fs afero.Fs, phase Phase, acc *stats.Running) *Timed {
	return &Timed{fs: fs, phase: phase, stats: acc}
}

func (t *Timed) fail(op, path string, err error) error {
	return &OpError{Phase: t.phase, Op: op, Path: path, Err: err}
}

func (t *Timed) Mkdir(path string) error {
	start := time.Now()
	err := t.fs.Mkdir(path, dirMode)
	elapsed := time.Since(start)
	if err != nil {
		return t.fail("mkdir", path, err)
	}
	t.stats.Update(elapsed)
	return nil
}

// Stat returns the observed FileInfo so callers may check it outside the
// timing window.
func (t *Timed) Stat(path string) (os.FileInfo, error) {
	start := time.Now()
	fi, err := t.fs.Stat(path)
	elapsed := time.Since(start)
	if err != nil {
		return nil, t.fail("stat", path, err)
	}
	t.stats.Update(elapsed)
	return fi, nil
}

func (t *Timed) RemoveFile(path string) error {
	return t.remove("unlink", path)
}

func (t *Timed) RemoveDir(path string) error {
	return t.remove("rmdir", path)
}

func (t *Timed) remove(op, path string) error {
	start := time.Now()
	err := t.fs.Remove(path)
	elapsed := time.Since(start)
	if err != nil {
		return t.fail(op, path, err)
	}
	t.stats.Update(elapsed)
	return nil
}

func (t *Timed) Chmod(path string, mode os.FileMode) error {
	start := time.Now()
	err := t.fs.Chmod(path, mode)
	elapsed := time.Since(start)
	if err != nil {
		return t.fail("chmod", path, err)
	}
	t.stats.Update(elapsed)
	return nil
}

// RenameRoundTrip renames path away and back again. Both renames fall into a
// single timing window, so the recorded sample is the cost of two renames.
func (t *Timed) RenameRoundTrip(path string) error {
	moved := path + renameSuffix

	start := time.Now()
	if err := t.fs.Rename(path, moved); err != nil {
		return t.fail("rename", path, err)
	}
	if err := t.fs.Rename(moved, path); err != nil {
		return t.fail("rename", moved, err)
	}
	t.stats.Update(time.Since(start))
	return nil
}

// CreateFile creates path exclusively and writes data to it in chunk sized
// pieces, the remainder last. An existing path is an error. With sync set the
// file is flushed to stable storage before it is closed. data is only read.
func (t *Timed) CreateFile(path string, data []byte, chunk int64, sync bool) error {
	start := time.Now()
	f, err := t.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, fileMode)
	if err != nil {
		return t.fail("create", path, err)
	}
	if err := writeChunks(f, data, chunk); err != nil {
		_ = f.Close()
		return t.fail("write", path, err)
	}
	if sync {
		if err := f.Sync(); err != nil {
			_ = f.Close()
			return t.fail("fsync", path, err)
		}
	}
	if err := f.Close(); err != nil {
		return t.fail("close", path, err)
	}
	t.stats.Update(time.Since(start))
	return nil
}

func writeChunks(w io.Writer, data []byte, chunk int64) error {
	n := int64(len(data))
	full := n - n%chunk
	for off := int64(0); off < full; off += chunk {
		if _, err := w.Write(data[off : off+chunk]); err != nil {
			return err
		}
	}
	if full < n {
		if _, err := w.Write(data[full:]); err != nil {
			return err
		}
	}
	return nil
}
