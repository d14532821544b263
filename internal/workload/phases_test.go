package workload

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdbench/internal/stats"
)

type titleRecorder struct {
	titles []string
	counts []uint64
}

func (r *titleRecorder) Report(title string, acc *stats.Running) error {
	r.titles = append(r.titles, title)
	r.counts = append(r.counts, acc.Count())
	return nil
}

// openRecorder remembers the order in which files are created.
type openRecorder struct {
	afero.Fs
	created []string
}

func (o *openRecorder) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&os.O_CREATE != 0 {
		o.created = append(o.created, name)
	}
	return o.Fs.OpenFile(name, flag, perm)
}

type countingProgress struct {
	added    int
	finished int
}

func (c *countingProgress) Add(n int) error { c.added += n; return nil }
func (c *countingProgress) Finish() error   { c.finished++; return nil }

func countTree(t *testing.T, root string) (dirs, files int) {
	t.Helper()
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		require.NoError(t, err)
		if path == root {
			return nil
		}
		if info.IsDir() {
			dirs++
		} else {
			files++
		}
		return nil
	})
	require.NoError(t, err)
	return dirs, files
}

func TestRunDirectoryTreeWithCleanup(t *testing.T) {
	target := t.TempDir()
	cfg := DefaultConfig(target)
	cfg.Dirs, cfg.Files, cfg.FileSize = 3, 2, 0
	cfg.Cleanup = false

	rec := &titleRecorder{}
	r := NewRunner(afero.NewOsFs(), cfg, rec)
	require.NoError(t, r.Run())

	assert.Equal(t, filepath.Join(target, ContainerName()), r.Root())
	dirs, files := countTree(t, r.Root())
	assert.Equal(t, 3, dirs)
	assert.Equal(t, 6, files)
	assert.Equal(t, []string{"dir creates", "file creates", "file stats", "dir stats"}, rec.titles)
	assert.Equal(t, []uint64{3, 6, 6, 3}, rec.counts)

	// Same shape with cleanup on a fresh target.
	target = t.TempDir()
	cfg.Root = target
	cfg.Cleanup = true
	rec = &titleRecorder{}
	r = NewRunner(afero.NewOsFs(), cfg, rec)
	require.NoError(t, r.Run())

	assert.Equal(t, []Phase{DirCreate, FileCreate, FileStat, DirStat, FileRemove, DirRemove}, r.Executed())
	assert.Equal(t, []uint64{3, 6, 6, 3, 6, 3}, rec.counts)
	entries, err := os.ReadDir(target)
	require.NoError(t, err)
	assert.Empty(t, entries, "container must be removed")
}

func TestRunFlatLayout(t *testing.T) {
	target := t.TempDir()
	cfg := DefaultConfig(target)
	cfg.Dirs, cfg.Files, cfg.FileSize = 0, 5, 1024
	cfg.Container = false
	cfg.Cleanup = false

	rec := &titleRecorder{}
	r := NewRunner(afero.NewOsFs(), cfg, rec)
	require.NoError(t, r.Run())

	assert.Equal(t, target, r.Root())
	entries, err := os.ReadDir(target)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	for _, e := range entries {
		assert.False(t, e.IsDir())
		info, err := e.Info()
		require.NoError(t, err)
		assert.Equal(t, int64(1024), info.Size())
	}
	assert.Equal(t, []string{"file creates", "file stats"}, rec.titles)
	assert.Equal(t, uint64(5), r.Stats(FileStat).Count())
	assert.Nil(t, r.Stats(DirCreate))
}

func TestRunExtendedChecksPreserveContent(t *testing.T) {
	target := t.TempDir()
	cfg := DefaultConfig(target)
	cfg.Dirs, cfg.Files, cfg.FileSize = 2, 3, 2500
	cfg.Container = false
	cfg.Cleanup = false
	cfg.Extended = true
	cfg.RandomPayload = true

	rec := &titleRecorder{}
	r := NewRunner(afero.NewOsFs(), cfg, rec)
	require.NoError(t, r.Run())

	assert.Equal(t, []string{"dir creates", "file creates", "file stats", "file chmods", "file renames", "dir stats"}, rec.titles)
	for j := 0; j < cfg.Files; j++ {
		for i := 0; i < cfg.Dirs; i++ {
			path := FilePath(target, i, j, cfg.Dirs)
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, r.payload, data)

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, DefaultChmodMode, info.Mode().Perm())

			_, err = os.Stat(path + renameSuffix)
			assert.True(t, os.IsNotExist(err))
		}
	}
}

func TestRunFileMajorOrder(t *testing.T) {
	rfs := &openRecorder{Fs: afero.NewMemMapFs()}
	cfg := DefaultConfig("/bench")
	cfg.Dirs, cfg.Files = 2, 2
	cfg.Container = false

	require.NoError(t, NewRunner(rfs, cfg, nil).Run())
	assert.Equal(t, []string{
		"/bench/dir.0/file.0",
		"/bench/dir.1/file.0",
		"/bench/dir.0/file.1",
		"/bench/dir.1/file.1",
	}, rfs.created)
}

func TestRunTwiceCollides(t *testing.T) {
	for _, dirs := range []int{0, 4} {
		mfs := afero.NewMemMapFs()
		cfg := DefaultConfig("/bench")
		cfg.Dirs, cfg.Files = dirs, 3
		cfg.Container = false
		cfg.Cleanup = false

		require.NoError(t, NewRunner(mfs, cfg, nil).Run())

		rec := &titleRecorder{}
		err := NewRunner(mfs, cfg, rec).Run()
		require.Error(t, err)
		assert.ErrorIs(t, err, fs.ErrExist)

		var opErr *OpError
		require.ErrorAs(t, err, &opErr)
		if dirs == 0 {
			assert.Equal(t, FileCreate, opErr.Phase)
		} else {
			assert.Equal(t, DirCreate, opErr.Phase)
		}
		assert.Empty(t, rec.titles, "no phase may complete after a collision")
	}
}

func TestRunAbortsOnFailure(t *testing.T) {
	mfs := afero.NewMemMapFs()
	cfg := DefaultConfig("/bench")
	cfg.Dirs, cfg.Files = 2, 2
	cfg.Container = false
	require.NoError(t, mfs.MkdirAll("/bench/dir.1", 0755))

	rec := &titleRecorder{}
	r := NewRunner(mfs, cfg, rec)
	err := r.Run()
	require.Error(t, err)
	assert.Empty(t, r.Executed())

	exists, err := afero.DirExists(mfs, "/bench/dir.0")
	require.NoError(t, err)
	assert.True(t, exists, "partial tree stays on disk")
}

func TestRunWithProgress(t *testing.T) {
	mfs := afero.NewMemMapFs()
	cfg := DefaultConfig("/bench")
	cfg.Dirs, cfg.Files = 3, 4
	cfg.Container = false

	bars := map[string]*countingProgress{}
	r := NewRunner(mfs, cfg, nil).WithProgress(func(title string, total int) Progress {
		p := &countingProgress{}
		bars[title] = p
		return p
	})
	require.NoError(t, r.Run())

	assert.Equal(t, 3, bars["dir creates"].added)
	assert.Equal(t, 12, bars["file creates"].added)
	assert.Equal(t, 12, bars["file removes"].added)
	for _, b := range bars {
		assert.Equal(t, 1, b.finished)
	}
	assert.Len(t, r.Results(), 6)

	exists, err := afero.DirExists(mfs, "/bench")
	require.NoError(t, err)
	assert.True(t, exists, "cleanup without a container keeps the target")
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	mfs := afero.NewMemMapFs()
	cfg := DefaultConfig("/bench")
	cfg.Dirs = -1
	require.Error(t, NewRunner(mfs, cfg, nil).Run())

	exists, err := afero.Exists(mfs, "/bench")
	require.NoError(t, err)
	assert.False(t, exists)
}
