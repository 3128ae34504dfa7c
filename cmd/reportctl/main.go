// Command reportctl works with report definitions and artifacts offline.
//
//	reportctl build -source tickets -fields "Id,Subject" [-filters '[...]']
//	reportctl parse '<definition json>'        (or the document on stdin)
//	reportctl page -file run.csv [-page 1] [-take 50]
//	reportctl xlsx -file run.csv -out run.xlsx [-sheet Report]
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"deskreport/internal/config"
	"deskreport/internal/definition"
	"deskreport/internal/exporter"
	"deskreport/internal/infrastructure"
	"deskreport/internal/runs"
	"deskreport/pkg/contracts/domain"
)

var errUsage = errors.New("usage: reportctl <build|parse|page|xlsx> [flags]")

func main() {
	logger := infrastructure.NewLogger(config.LoggingConfig{Level: "warn"}, os.Stderr)
	if err := run(os.Args[1:], os.Stdin, os.Stdout, logger); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer, logger *slog.Logger) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "build":
		return buildCmd(args[1:], stdout)
	case "parse":
		return parseCmd(args[1:], stdin, stdout)
	case "page":
		return pageCmd(args[1:], stdout, logger)
	case "xlsx":
		return xlsxCmd(args[1:])
	default:
		return fmt.Errorf("unknown command %q\n%w", args[0], errUsage)
	}
}

func buildCmd(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	source := fs.String("source", definition.DefaultSource, "source name")
	fields := fs.String("fields", "", "comma separated field list")
	filters := fs.String("filters", "", "filter JSON, replaced by [] when invalid")
	if err := fs.Parse(args); err != nil {
		return err
	}

	catalog := definition.DefaultCatalog()
	if !catalog.HasSource(strings.TrimSpace(*source)) {
		return fmt.Errorf("unknown source %q (known: %s)", *source, strings.Join(catalog.SourceNames(), ", "))
	}

	_, err := fmt.Fprintln(stdout, definition.Build(*source, *fields, *filters))
	return err
}

type parseOutput struct {
	domain.ReportDefinition
	UnknownFields []string `json:"unknown_fields"`
}

func parseCmd(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("parse", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	raw := strings.Join(fs.Args(), " ")
	if raw == "" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("failed to read definition: %w", err)
		}
		raw = string(data)
	}

	def := definition.Parse(raw)
	unknown := definition.DefaultCatalog().UnknownFields(def)
	if unknown == nil {
		unknown = []string{}
	}
	return writeJSON(stdout, parseOutput{ReportDefinition: def, UnknownFields: unknown})
}

func pageCmd(args []string, stdout io.Writer, logger *slog.Logger) error {
	fs := flag.NewFlagSet("page", flag.ContinueOnError)
	file := fs.String("file", "", "CSV artifact to page through")
	page := fs.Int("page", 1, "1-based page number")
	take := fs.Int("take", 50, "rows per page")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("page: -file is required")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("failed to read artifact: %w", err)
	}
	rows, err := countRows(data)
	if err != nil {
		return err
	}

	run := domain.ReportRun{ID: *file, RowCount: rows, FileBytes: data}
	n := max(*take, 1)
	p := min(max(*page, 1), max(runs.TotalPages(rows, n), 1))
	return writeJSON(stdout, runs.NewPager(logger).GetRunPage(run, p, n))
}

func xlsxCmd(args []string) error {
	fs := flag.NewFlagSet("xlsx", flag.ContinueOnError)
	file := fs.String("file", "", "CSV artifact to convert")
	out := fs.String("out", "", "output workbook path")
	sheet := fs.String("sheet", "Report", "sheet name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" || *out == "" {
		return errors.New("xlsx: -file and -out are required")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("failed to read artifact: %w", err)
	}
	book, err := exporter.ToXLSX(data, *sheet)
	if err != nil {
		return err
	}
	return os.WriteFile(*out, book, 0o644)
}

// countRows returns the number of data records after the header.
func countRows(data []byte) (int, error) {
	records, err := exporter.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return 0, fmt.Errorf("failed to read artifact: %w", err)
	}
	return max(len(records)-1, 0), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
