// Command contentctl normalises activity content from the command line.
//
// Usage:
//
//	contentctl normalize [-check] < content
//	contentctl view < content
//	contentctl import-xlsx FILE
//	contentctl export-xlsx OUT < content
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Ethan041028/audacieuses-content/internal/content"
	"github.com/Ethan041028/audacieuses-content/internal/importer"
	"github.com/Ethan041028/audacieuses-content/internal/platform/config"
	"github.com/Ethan041028/audacieuses-content/internal/platform/logging"
)

const usage = `usage: contentctl <command> [arguments]

commands:
  normalize [-check]   read content on stdin, print the canonical encoding
  view                 read content on stdin, print the repaired typed view
  import-xlsx FILE     read a QCM workbook, print the canonical encoding
  export-xlsx OUT      read QCM content on stdin, write a workbook to OUT
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	slog.SetDefault(logging.New(stderr, config.LogConfig{
		Level:  envOr("AUDA_LOG_LEVEL", "warn"),
		Format: envOr("AUDA_LOG_FORMAT", "text"),
	}))

	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var err error
	switch cmd, rest := args[0], args[1:]; cmd {
	case "normalize":
		err = runNormalize(rest, stdin, stdout, stderr)
	case "view":
		err = runView(rest, stdin, stdout)
	case "import-xlsx":
		err = runImport(rest, stdout, stderr)
	case "export-xlsx":
		err = runExport(rest, stdin)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "contentctl: unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	if err == nil || errors.Is(err, flag.ErrHelp) {
		return 0
	}
	fmt.Fprintln(stderr, "contentctl:", err)
	return 1
}

func runNormalize(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("normalize", flag.ContinueOnError)
	fs.SetOutput(stderr)
	check := fs.Bool("check", false, "fail if the input is not already canonical")
	if err := fs.Parse(args); err != nil {
		return err
	}

	raw, err := readContent(stdin)
	if err != nil {
		return err
	}
	env, notes := content.Repair(content.Decode(raw))
	canonical, err := content.Encode(env)
	if err != nil {
		return err
	}

	for _, n := range notes {
		fmt.Fprintln(stderr, "repair:", n)
	}
	fmt.Fprintln(stdout, canonical)

	if *check {
		if err := content.CheckCanonical(raw); err != nil {
			return fmt.Errorf("input is not canonical: %w", err)
		}
		if raw != canonical {
			return errors.New("input is not canonical: encoding differs from canonical output")
		}
	}
	return nil
}

type view struct {
	Kind    content.Kind     `json:"kind"`
	Content content.Envelope `json:"content"`
	Notes   []string         `json:"notes"`
}

func runView(args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) != 0 {
		return fmt.Errorf("view takes no arguments")
	}
	raw, err := readContent(stdin)
	if err != nil {
		return err
	}

	env, notes := content.Repair(content.Decode(raw))
	if notes == nil {
		notes = []string{}
	}
	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(view{Kind: env.Kind(), Content: env, Notes: notes})
}

func runImport(args []string, stdout, stderr io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("import-xlsx takes exactly one FILE argument")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	q, report, err := importer.ImportQcm(f)
	if err != nil {
		return err
	}
	for _, w := range report.Warnings {
		fmt.Fprintf(stderr, "row %d: %s\n", w.Row, w.Message)
	}
	slog.Info("workbook imported",
		"file", args[0],
		"rows", report.TotalRows,
		"imported", report.ImportedRows,
		"skipped", report.SkippedRows,
	)

	canonical, err := content.Encode(q)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, canonical)
	return nil
}

func runExport(args []string, stdin io.Reader) error {
	if len(args) != 1 {
		return fmt.Errorf("export-xlsx takes exactly one OUT argument")
	}
	raw, err := readContent(stdin)
	if err != nil {
		return err
	}

	q, ok := content.Decode(raw).(content.Qcm)
	if !ok {
		return fmt.Errorf("content is not a QCM")
	}
	data, err := importer.ExportQcm(q)
	if err != nil {
		return err
	}
	return os.WriteFile(args[0], data, 0o644)
}

// readContent reads all of r. Trailing line breaks are dropped since shells
// and editors add them.
func readContent(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
