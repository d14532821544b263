package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"mdbench/internal/tools"
	"mdbench/internal/workload"
	"mdbench/pkg/utils"
)

// ConfigError is reported for invalid input before the filesystem is touched.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func configError(format string, args ...interface{}) error {
	return &ConfigError{Err: errors.Errorf(format, args...)}
}

func addWorkloadFlags(flags *pflag.FlagSet) {
	flags.IntP("files", "f", workload.DefaultFiles, "number of generated files per directory")
	flags.IntP("dirs", "d", workload.DefaultDirs, "number of generated directories (0 puts all files in the target)")
	flags.StringP("size", "s", "0", "size of generated files in B/K/M/G")
	flags.String("chunk-size", "1k", "write chunk size in B/K/M/G")
	flags.Bool("sync", false, "fsync every created file before it is closed")
	flags.Bool("random-payload", false, "fill files with random bytes instead of zeros")
	flags.Bool("no-clean", false, "keep the generated tree")
	flags.Bool("no-container", false, "run directly in the target instead of a mdbench.<host>.<pid> directory")
	flags.Bool("extended-checks", false, "also benchmark chmod and rename")
}

func addOutputFlags(flags *pflag.FlagSet) {
	flags.String("csv-file", "", "write per-phase records to this file")
	flags.Bool("table", false, "print a summary table after the run")
	flags.Bool("progress", false, "show a progress bar per phase on stderr")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-file", "", "write logs to this file instead of stderr")
}

func addArchiveFlags(flags *pflag.FlagSet) {
	flags.String("s3-endpoint", "", "S3 compatible endpoint that receives the csv file")
	flags.String("s3-region", "us-east-1", "s3 region name")
	flags.String("s3-bucket", "", "bucket for the csv file (upload disabled if empty)")
	flags.String("s3-prefix", "", "object key prefix for the csv file")
	flags.String("s3-access-key", "", "s3 access key")
	flags.String("s3-secret-key", "", "s3 secret access key")
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	vp := v.New()

	cmd := &cobra.Command{
		Use:   "mdbench [flags] <path>",
		Short: "Simple filesystem metadata operations benchmark",
		Long: `mdbench creates a tree of directories and files under <path> and times
every mkdir, create, stat, chmod, rename and remove call on its own.
For each phase it prints mean latency, standard deviation and throughput.

All flags can also be given through environment variables prefixed by
MDBENCH_ (e.g. MDBENCH_DIRS=0) or a config file named .mdbench.{toml,yaml,json}
in the current or home directory.

Sizes accept a B, K, M or G suffix, e.g. 1K, 256M, 4G.`,
		Args:          exactlyOnePath,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(vp, cmd, cfgFile); err != nil {
				return err
			}
			return setupLog(vp.GetString("log-level"), vp.GetString("log-file"), cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, opts, err := resolve(vp, args[0])
			if err != nil {
				return err
			}
			opts.Stdout = cmd.OutOrStdout()
			opts.Stderr = cmd.ErrOrStderr()
			return tools.MetadataBenchmark(cfg, opts)
		},
	}

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &ConfigError{Err: err}
	})

	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	flags := cmd.Flags()
	addWorkloadFlags(flags)
	addOutputFlags(flags)
	addArchiveFlags(flags)

	return cmd
}

func exactlyOnePath(cmd *cobra.Command, args []string) error {
	switch len(args) {
	case 1:
		return nil
	case 0:
		return configError("missing target path")
	default:
		return configError("expected exactly one target path, got %d", len(args))
	}
}

func initConfig(vp *v.Viper, cmd *cobra.Command, cfgFile string) error {
	if cfgFile == "" {
		vp.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			vp.AddConfigPath(home)
		}
		vp.SetConfigName(".mdbench")
	} else {
		vp.SetConfigFile(cfgFile)
	}

	vp.SetEnvPrefix("MDBENCH")
	vp.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	vp.AutomaticEnv()

	if err := vp.BindPFlags(cmd.Flags()); err != nil {
		return errors.Wrap(err, "failed to bind flags")
	}

	if err := vp.ReadInConfig(); err != nil {
		var notFound v.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return &ConfigError{Err: errors.Wrap(err, "failed to read config file")}
		}
	}
	return nil
}

func setupLog(level, file string, stderr io.Writer) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return &ConfigError{Err: err}
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if file == "" {
		logrus.SetOutput(stderr)
		return nil
	}
	logrus.SetOutput(&lumberjack.Logger{
		Filename:   file,
		MaxSize:    100,
		MaxAge:     14,
		MaxBackups: 10,
	})
	return nil
}

// settings reads typed values from flags, env and config file. Values that
// do not convert are configuration errors; the first one is kept.
type settings struct {
	vp  *v.Viper
	err error
}

func (s *settings) fail(key string, err error) {
	if s.err == nil {
		s.err = &ConfigError{Err: errors.Wrapf(err, "invalid value for %s", key)}
	}
}

func (s *settings) int(key string) int {
	n, err := cast.ToIntE(s.vp.Get(key))
	if err != nil {
		s.fail(key, err)
	}
	return n
}

func (s *settings) bool(key string) bool {
	b, err := cast.ToBoolE(s.vp.Get(key))
	if err != nil {
		s.fail(key, err)
	}
	return b
}

// resolve turns the merged flag, env and config file values into a
// validated workload configuration.
func resolve(vp *v.Viper, target string) (workload.Config, tools.Options, error) {
	root, err := homedir.Expand(target)
	if err != nil {
		return workload.Config{}, tools.Options{}, &ConfigError{Err: err}
	}

	in := &settings{vp: vp}
	cfg := workload.DefaultConfig(root)
	cfg.Dirs = in.int("dirs")
	cfg.Files = in.int("files")
	cfg.Container = !in.bool("no-container")
	cfg.Cleanup = !in.bool("no-clean")
	cfg.Extended = in.bool("extended-checks")
	cfg.Sync = in.bool("sync")
	cfg.RandomPayload = in.bool("random-payload")
	table, progress := in.bool("table"), in.bool("progress")
	if in.err != nil {
		return cfg, tools.Options{}, in.err
	}

	if cfg.FileSize, err = utils.ParseSize(vp.GetString("size")); err != nil {
		return cfg, tools.Options{}, &ConfigError{Err: errors.Wrap(err, "--size")}
	}
	if cfg.ChunkSize, err = utils.ParseSize(vp.GetString("chunk-size")); err != nil {
		return cfg, tools.Options{}, &ConfigError{Err: errors.Wrap(err, "--chunk-size")}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, tools.Options{}, &ConfigError{Err: err}
	}

	opts := tools.Options{
		RecordFile: vp.GetString("csv-file"),
		Table:      table,
		Progress:   progress,
		Archive: tools.ArchiveOptions{
			Endpoint:     vp.GetString("s3-endpoint"),
			Region:       vp.GetString("s3-region"),
			Bucket:       vp.GetString("s3-bucket"),
			Prefix:       vp.GetString("s3-prefix"),
			AccessKey:    vp.GetString("s3-access-key"),
			AccessSecret: vp.GetString("s3-secret-key"),
		},
	}
	if opts.Archive.Enabled() && opts.RecordFile == "" {
		return cfg, opts, configError("--s3-bucket requires --csv-file")
	}
	if opts.Archive.Enabled() && opts.Archive.Endpoint == "" {
		return cfg, opts, configError("--s3-bucket requires --s3-endpoint")
	}

	if fi, err := os.Stat(root); err != nil || !fi.IsDir() {
		return cfg, opts, configError("target %s is not a directory", root)
	}
	logrus.Debugf("resolved configuration: %s", describe(cfg))
	return cfg, opts, nil
}

func describe(cfg workload.Config) string {
	return fmt.Sprintf("root=%s dirs=%d files=%d size=%d chunk=%d container=%t cleanup=%t extended=%t sync=%t",
		cfg.Root, cfg.Dirs, cfg.Files, cfg.FileSize, cfg.ChunkSize, cfg.Container, cfg.Cleanup, cfg.Extended, cfg.Sync)
}
