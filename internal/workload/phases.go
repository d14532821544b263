package workload

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"mdbench/internal/stats"
	"mdbench/pkg/utils"
)

// Reporter receives the accumulated statistics of every finished phase.
type Reporter interface {
	Report(title string, acc *stats.Running) error
}

// Progress is advanced once per operation, outside the timing window.
type Progress interface {
	Add(n int) error
	Finish() error
}

// ProgressFunc creates a progress indicator for a phase of total operations.
type ProgressFunc func(title string, total int) Progress

// PhaseResult pairs a phase with its summary.
type PhaseResult struct {
	Phase  Phase
	Result stats.Result
}

// Runner executes the phases of one run strictly in sequence and owns the
// accumulator of every phase.
type Runner struct {
	fs       afero.Fs
	cfg      Config
	reporter Reporter
	progress ProgressFunc

	acc      map[Phase]*stats.Running
	executed []Phase

	root    string
	created bool
	payload []byte
}

type step struct {
	phase Phase
	total int
	run   func(t *Timed, tick func()) error
}

func NewRunner(fs afero.Fs, cfg Config, reporter Reporter) *Runner {
	return &Runner{
		fs:       fs,
		cfg:      cfg,
		reporter: reporter,
		acc:      make(map[Phase]*stats.Running),
	}
}

// WithProgress installs a progress indicator factory.
func (r *Runner) WithProgress(fn ProgressFunc) *Runner {
	r.progress = fn
	return r
}

// ContainerName is the private directory a run creates under the target.
func ContainerName() string {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	return fmt.Sprintf("mdbench.%s.%d", host, os.Getpid())
}

// Root is the directory the workload tree is generated in. It is only known
// once Run has started.
func (r *Runner) Root() string {
	return r.root
}

// Stats returns the accumulator of a phase, nil if the phase never ran.
func (r *Runner) Stats(p Phase) *stats.Running {
	return r.acc[p]
}

// Executed lists the completed phases in execution order.
func (r *Runner) Executed() []Phase {
	return append([]Phase(nil), r.executed...)
}

// Results summarizes every completed phase that recorded samples.
func (r *Runner) Results() []PhaseResult {
	var out []PhaseResult
	for _, p := range r.executed {
		res, err := r.acc[p].Summarize()
		if err != nil {
			continue
		}
		out = append(out, PhaseResult{Phase: p, Result: res})
	}
	return out
}

// Run executes the workload. The first failing filesystem call aborts the
// remaining phases; whatever was created so far stays on disk.
func (r *Runner) Run() error {
	if err := r.cfg.Validate(); err != nil {
		return err
	}

	r.root = r.cfg.Root
	if r.cfg.Container {
		r.root = filepath.Join(r.cfg.Root, ContainerName())
		if err := r.fs.Mkdir(r.root, dirMode); err != nil {
			return errors.Wrapf(err, "failed to create container directory %s", r.root)
		}
		r.created = true
		logrus.Infof("created container directory %s", r.root)
	}

	logrus.WithFields(logrus.Fields{
		"root":  r.root,
		"dirs":  r.cfg.Dirs,
		"files": r.cfg.Files,
		"size":  r.cfg.FileSize,
	}).Info("starting metadata benchmark")

	for _, s := range r.plan() {
		if err := r.runStep(s); err != nil {
			return err
		}
	}

	if r.created && r.cfg.Cleanup {
		if err := r.fs.Remove(r.root); err != nil {
			return errors.Wrapf(err, "failed to remove container directory %s", r.root)
		}
		logrus.Infof("removed container directory %s", r.root)
	}
	return nil
}

func (r *Runner) plan() []step {
	cfg := r.cfg
	nfiles := cfg.FileCount()
	var steps []step

	if cfg.Dirs > 0 {
		steps = append(steps, step{DirCreate, cfg.Dirs, func(t *Timed, tick func()) error {
			return r.eachDir(tick, t.Mkdir)
		}})
	}

	steps = append(steps,
		step{FileCreate, nfiles, func(t *Timed, tick func()) error {
			r.allocPayload()
			return r.eachFile(tick, func(path string) error {
				return t.CreateFile(path, r.payload, cfg.ChunkSize, cfg.Sync)
			})
		}},
		step{FileStat, nfiles, func(t *Timed, tick func()) error {
			return r.eachFile(tick, func(path string) error {
				fi, err := t.Stat(path)
				if err != nil {
					return err
				}
				if fi.Size() != cfg.FileSize {
					logrus.Warnf("stat %s: size %d, expected %d", path, fi.Size(), cfg.FileSize)
				}
				return nil
			})
		}},
	)

	if cfg.Extended {
		steps = append(steps,
			step{FileChmod, nfiles, func(t *Timed, tick func()) error {
				return r.eachFile(tick, func(path string) error {
					return t.Chmod(path, cfg.ChmodMode)
				})
			}},
			step{FileRename, nfiles, func(t *Timed, tick func()) error {
				return r.eachFile(tick, t.RenameRoundTrip)
			}},
		)
	}

	if cfg.Dirs > 0 {
		steps = append(steps, step{DirStat, cfg.Dirs, func(t *Timed, tick func()) error {
			return r.eachDir(tick, func(path string) error {
				_, err := t.Stat(path)
				return err
			})
		}})
	}

	if cfg.Cleanup {
		steps = append(steps, step{FileRemove, nfiles, func(t *Timed, tick func()) error {
			return r.eachFile(tick, t.RemoveFile)
		}})
		if cfg.Dirs > 0 {
			steps = append(steps, step{DirRemove, cfg.Dirs, func(t *Timed, tick func()) error {
				return r.eachDir(tick, t.RemoveDir)
			}})
		}
	}
	return steps
}

func (r *Runner) runStep(s step) error {
	acc := &stats.Running{}
	r.acc[s.phase] = acc
	log := logrus.WithField("phase", s.phase.String())
	log.Debugf("running %d operations", s.total)

	tick := func() {}
	var bar Progress
	if r.progress != nil {
		bar = r.progress(s.phase.String(), s.total)
		tick = func() { _ = bar.Add(1) }
	}

	err := s.run(NewTimed(r.fs, s.phase, acc), tick)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		log.Errorf("aborting run: %v", err)
		return err
	}

	r.executed = append(r.executed, s.phase)
	if r.reporter != nil {
		if err := r.reporter.Report(s.phase.String(), acc); err != nil {
			return errors.Wrapf(err, "failed to report %s", s.phase)
		}
	}
	return nil
}

// allocPayload builds the file content once per run; every create shares it.
func (r *Runner) allocPayload() {
	if r.payload != nil {
		return
	}
	r.payload = make([]byte, r.cfg.FileSize)
	if r.cfg.RandomPayload {
		utils.FillPrintable(r.payload, time.Now().UnixNano())
	}
}

func (r *Runner) eachDir(tick func(), fn func(path string) error) error {
	for i := 0; i < r.cfg.Dirs; i++ {
		path := DirPath(r.root, i)
		if err := fn(path); err != nil {
			return err
		}
		tick()
	}
	return nil
}

// eachFile visits files file-major, directory-minor: file j is handled in
// every directory before file j+1.
func (r *Runner) eachFile(tick func(), fn func(path string) error) error {
	dirs := r.cfg.Dirs
	for j := 0; j < r.cfg.Files; j++ {
		if dirs == 0 {
			if err := fn(FilePath(r.root, 0, j, 0)); err != nil {
				return err
			}
			tick()
			continue
		}
		for i := 0; i < dirs; i++ {
			path := FilePath(r.root, i, j, dirs)
			if err := fn(path); err != nil {
				return err
			}
			tick()
		}
	}
	return nil
}
