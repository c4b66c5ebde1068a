// Command bufrdump decodes a BUFR message and prints its section framing
// and value tree to stdout.
//
// Usage:
//
//	bufrdump [--show-data] <path>
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/castelao/bufr"
	"github.com/castelao/bufr/internal/tables"
)

func main() {
	var showData bool

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	root := &cobra.Command{
		Use:   "bufrdump <path>",
		Short: "Decode a BUFR message and print its value tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.OutOrStdout(), logger, args[0], showData)
		},
		SilenceUsage: true,
	}
	root.Flags().BoolVar(&showData, "show-data", false, "include raw section 4 bytes in the dump")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "bufrdump: %v\n", err)
		os.Exit(1)
	}
}

func run(w io.Writer, logger *slog.Logger, path string, showData bool) error {
	f, err := openInput(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	reg, err := tables.Default()
	if err != nil {
		return fmt.Errorf("loading tables: %w", err)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	start := time.Now()
	msg, err := bufr.DecodeWithRegistry(data, reg)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	logger.Debug("decoded message", "path", path, "elapsed", time.Since(start), "subsets", len(msg.Subsets))
	for _, warning := range msg.Warnings {
		logger.Warn(warning, "path", path)
	}

	dumpTree(w, msg, reg, showData)
	return nil
}

// openInput returns an io.ReadCloser for path, reading stdin when path is "-".
func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}
