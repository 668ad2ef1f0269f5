package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"jsonsplit/internal/logctx"
	"jsonsplit/pkg/itemstream"
	"jsonsplit/pkg/splitter"
)

func runSplit(args []string) error {
	fs := flag.NewFlagSet("split", flag.ContinueOnError)
	in := fs.String("in", "", `input JSON document ("-" reads stdin)`)
	outDir := fs.String("out-dir", ".", "output directory")
	baseName := fs.String("base-name", "", "output name prefix (default: input file stem)")
	by := fs.String("by", "", "split strategy: count, size, or key")
	value := fs.String("value", "", "strategy value: item count, byte size like 10MB, or key name")
	selector := fs.String("path", "item", `dotted path to the items ("item" steps into array elements, empty takes the whole document)`)
	format := fs.String("format", "json", "output format: json or jsonl")
	maxRecords := fs.Int64("max-records", 0, "secondary cap on items per output file")
	maxSize := fs.String("max-size", "", "secondary cap on estimated bytes per output file (accepts 10MB forms)")
	template := fs.String("filename-format", "", "output filename template")
	reportInterval := fs.Int64("report-interval", 10000, "items between progress reports (0 disables)")
	maxOpen := fs.Int("max-open-files", 0, "open file bound for key splitting (0 derives from the descriptor limit)")
	onMissing := fs.String("on-missing-key", "group", "missing grouping key policy: group, skip, or error")
	onInvalid := fs.String("on-invalid-item", "warn", "non-object item policy: warn, skip, or error")
	keepPartial := fs.Bool("keep-partial", false, "keep partial output files after a failed run")
	verbose := fs.Bool("v", false, "enable debug logging")
	pretty := fs.Bool("pretty", false, "human-readable log output")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *in == "" {
		return errors.New("--in is required")
	}
	if *by == "" {
		return errors.New("--by is required")
	}
	if *value == "" {
		return errors.New("--value is required")
	}

	name := *baseName
	if name == "" {
		name = inputStem(*in)
	}

	cfg, err := buildConfig(splitOptions{
		Strategy:       *by,
		Value:          *value,
		Format:         *format,
		MaxRecords:     *maxRecords,
		MaxSize:        *maxSize,
		Template:       *template,
		ReportInterval: *reportInterval,
		MaxOpenFiles:   *maxOpen,
		OnMissingKey:   *onMissing,
		OnInvalidItem:  *onInvalid,
		OutDir:         *outDir,
		BaseName:       name,
	})
	if err != nil {
		return err
	}

	log := logctx.New(*verbose, *pretty)
	ctx := logctx.WithLogger(context.Background(), log)

	src, err := openInput(*in, *selector)
	if err != nil {
		return err
	}

	runner, err := splitter.New(cfg, log)
	if err != nil {
		src.Close()
		return err
	}

	sum, runErr := runner.Run(ctx, src)
	if err := src.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("close input: %w", err)
	}

	if runErr != nil {
		if !*keepPartial {
			removePartial(log, sum.CreatedPaths)
		}
		return runErr
	}
	return nil
}

// openInput opens the document to split. Files go through extension-based
// compression detection; stdin is read as-is.
func openInput(in, selector string) (*itemstream.Source, error) {
	if in == "-" {
		return itemstream.New(bufio.NewReaderSize(os.Stdin, 1<<20), selector)
	}
	return itemstream.Open(in, selector)
}
