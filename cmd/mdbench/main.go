package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/pkg/errors"
)

func main() {
	// ./mdbench --dirs=1000 --files=10 --size=4k --extended-checks --csv-file=results.csv /mnt/cephfs
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		red := color.New(color.FgRed)
		_, _ = red.Fprintf(os.Stderr, "mdbench: %v\n", err)

		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) {
			fmt.Fprintln(os.Stderr, cmd.UsageString())
			os.Exit(2)
		}
		os.Exit(1)
	}
}
