package tools

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"mdbench/internal/fsinfo"
	"mdbench/internal/report"
	"mdbench/internal/workload"
	"mdbench/pkg/ceph"
)

// ArchiveOptions point at an S3 compatible bucket that receives the record
// file after a successful run.
type ArchiveOptions struct {
	Endpoint     string
	Region       string
	Bucket       string
	Prefix       string
	AccessKey    string
	AccessSecret string
}

func (a ArchiveOptions) Enabled() bool {
	return a.Bucket != ""
}

// Options is everything a benchmark run needs besides the workload shape.
type Options struct {
	RecordFile string
	Table      bool
	Progress   bool
	Archive    ArchiveOptions

	Stdout io.Writer
	Stderr io.Writer
	Fs     afero.Fs
}

// MetadataBenchmark runs the workload described by cfg and reports every
// phase to opts.Stdout.
func MetadataBenchmark(cfg workload.Config, opts Options) error {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}

	if info, err := fsinfo.Probe(cfg.Root); err != nil {
		logrus.Warnf("Failed to probe filesystem of %s, error: %s", cfg.Root, err.Error())
	} else {
		logrus.WithFields(logrus.Fields{
			"fstype":      info.Type,
			"block_size":  info.BlockSize,
			"free_bytes":  info.FreeBytes,
			"free_inodes": info.FreeInodes,
		}).Infof("target %s", cfg.Root)
		need := uint64(cfg.FileCount() + cfg.Dirs)
		if info.FreeInodes > 0 && need > info.FreeInodes {
			logrus.Warnf("workload needs %d inodes, only %d free", need, info.FreeInodes)
		}
	}

	reporter, err := report.New(opts.Stdout, opts.RecordFile)
	if err != nil {
		return err
	}
	defer reporter.Close()

	runner := workload.NewRunner(opts.Fs, cfg, reporter)
	if opts.Progress {
		runner.WithProgress(func(title string, total int) workload.Progress {
			return progressbar.NewOptions(total,
				progressbar.OptionSetDescription(title),
				progressbar.OptionSetWriter(opts.Stderr),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
				progressbar.OptionClearOnFinish(),
			)
		})
	}

	if err := runner.Run(); err != nil {
		return err
	}

	if opts.Table {
		if err := reporter.Summary(runner.Results()); err != nil {
			logrus.Warnf("Failed to render summary table, error: %s", err.Error())
		}
	}

	if err := reporter.Close(); err != nil {
		return errors.Wrap(err, "failed to close record file")
	}
	if opts.Archive.Enabled() && opts.RecordFile != "" {
		return archive(opts.Archive, opts.RecordFile)
	}
	return nil
}

func archive(a ArchiveOptions, recordFile string) error {
	client, err := ceph.NewCephClient(a.Region, a.Endpoint, a.AccessKey, a.AccessSecret)
	if err != nil {
		return err
	}
	return client.UploadFileToS3ObjectStore(recordFile, a.Bucket, ceph.ObjectName(a.Prefix, recordFile))
}
