package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/parcelops/hubsync/internal/hubspot"
	"github.com/parcelops/hubsync/internal/output"
)

type outputSink struct {
	writer io.Writer
	close  func() error
	path   string
}

func resolveOutputFormat() (output.Format, error) {
	return output.ParseFormat(outputFormat)
}

// openSink opens path for writing, or the command's stdout when path is empty or "-".
func openSink(cmd *cobra.Command, path string) (*outputSink, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || trimmed == "-" {
		return &outputSink{writer: cmd.OutOrStdout(), close: func() error { return nil }, path: "-"}, nil
	}

	if err := os.MkdirAll(filepath.Dir(trimmed), 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	file, err := os.Create(trimmed)
	if err != nil {
		return nil, err
	}
	return &outputSink{writer: file, close: file.Close, path: trimmed}, nil
}

// render formats a result with the selected formatter and writes it to the selected sink.
func render(cmd *cobra.Command, fn func(output.Formatter) (string, error)) error {
	format, err := resolveOutputFormat()
	if err != nil {
		return err
	}

	rendered, err := fn(output.NewFormatter(format))
	if err != nil {
		return err
	}

	sink, err := openSink(cmd, outPath)
	if err != nil {
		return err
	}
	defer func() { _ = sink.close() }()

	if !strings.HasSuffix(rendered, "\n") {
		rendered += "\n"
	}
	_, err = fmt.Fprint(sink.writer, rendered)
	return err
}

func renderRecords(cmd *cobra.Command, records []hubspot.Object) error {
	return render(cmd, func(f output.Formatter) (string, error) {
		return f.FormatObjects(records, nil)
	})
}
