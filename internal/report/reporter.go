// Package report prints per-phase summaries and keeps the record file.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"mdbench/internal/stats"
	"mdbench/internal/workload"
)

var bold = color.New(color.Bold)

// Reporter writes one human readable line per phase to out and, when a
// record file is configured, one delimited record per phase to that file.
type Reporter struct {
	out    io.Writer
	path   string
	file   *os.File
	record *csv.Writer
}

// New creates a reporter. A non-empty recordPath is truncated once here and
// only appended to afterwards.
func New(out io.Writer, recordPath string) (*Reporter, error) {
	r := &Reporter{out: out, path: recordPath}
	if recordPath == "" {
		return r, nil
	}
	f, err := os.OpenFile(recordPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open record file %s", recordPath)
	}
	r.file = f
	r.record = csv.NewWriter(f)
	return r, nil
}

// RecordPath is the path of the record file, empty if none.
func (r *Reporter) RecordPath() string {
	return r.path
}

// Report prints the summary of acc under title. A phase without samples has
// no throughput; it is logged and skipped.
func (r *Reporter) Report(title string, acc *stats.Running) error {
	res, err := acc.Summarize()
	if errors.Is(err, stats.ErrNoSamples) {
		logrus.Warnf("%s: no operations recorded", title)
		return nil
	}
	if err != nil {
		return err
	}
	if res.Unresolved() {
		logrus.WithField("count", res.Count).Warnf("%s: elapsed time below clock resolution, throughput unbounded", title)
	}

	mean, std := res.MeanMillis(), res.StdDevMillis()
	if _, err := fmt.Fprintf(r.out, "%s: %.3fms ±%.3fms, %.2f op/s\n", title, mean, std, res.OpsPerSec); err != nil {
		return errors.Wrap(err, "failed to write summary")
	}

	if r.record == nil {
		return nil
	}
	rec := []string{
		title,
		strconv.FormatFloat(mean, 'f', 6, 64),
		strconv.FormatFloat(std, 'f', 6, 64),
		strconv.FormatFloat(res.OpsPerSec, 'f', 2, 64),
	}
	if err := r.record.Write(rec); err != nil {
		return errors.Wrapf(err, "failed to append to %s", r.path)
	}
	r.record.Flush()
	return errors.Wrapf(r.record.Error(), "failed to append to %s", r.path)
}

// Summary renders all phase results as a table.
func (r *Reporter) Summary(results []workload.PhaseResult) error {
	if len(results) == 0 {
		return nil
	}
	fmt.Fprintln(r.out)
	_, _ = bold.Fprintln(r.out, "METADATA OPERATIONS SUMMARY")

	table := tablewriter.NewWriter(r.out)
	table.Header("Phase", "Ops", "Mean", "Std Dev", "Total", "Ops/sec")
	for _, pr := range results {
		res := pr.Result
		_ = table.Append(
			pr.Phase.String(),
			strconv.FormatUint(res.Count, 10),
			res.Mean.Round(time.Microsecond).String(),
			res.StdDev.Round(time.Microsecond).String(),
			res.Total.Round(time.Millisecond).String(),
			fmt.Sprintf("%.2f", res.OpsPerSec),
		)
	}
	return table.Render()
}

// Close flushes and closes the record file. It is safe to call twice.
func (r *Reporter) Close() error {
	if r.file == nil {
		return nil
	}
	f := r.file
	r.file = nil
	r.record.Flush()
	if err := r.record.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
