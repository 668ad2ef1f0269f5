package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"jsonsplit/internal/logctx"
	"jsonsplit/pkg/itemstream"
	"jsonsplit/pkg/s3io"
	"jsonsplit/pkg/splitter"
)

// Environment fallbacks for the s3 command, for schedulers that configure
// jobs through the environment. Flags win over the environment.
const (
	envInputURL       = "INPUT_URL"
	envStrategy       = "SPLIT_STRATEGY"
	envValue          = "SPLIT_VALUE"
	envPath           = "JSON_PATH"
	envBaseName       = "BASE_NAME"
	envFormat         = "OUTPUT_FORMAT"
	envMaxRecords     = "MAX_RECORDS"
	envMaxSize        = "MAX_SIZE"
	envTemplate       = "FILENAME_FORMAT"
	envReportInterval = "REPORT_INTERVAL"
	envOnMissingKey   = "ON_MISSING_KEY"
	envOnInvalidItem  = "ON_INVALID_ITEM"
	envOutputPrefix   = "OUTPUT_PREFIX"
)

func runS3(args []string) error {
	fs := flag.NewFlagSet("s3", flag.ContinueOnError)
	in := fs.String("in", "", "input object URI (s3://bucket/key, or INPUT_URL)")
	out := fs.String("out", "", "output URI prefix (s3://bucket/prefix, or OUTPUT_PREFIX; default: a split/ prefix next to the input)")
	by := fs.String("by", "", "split strategy: count, size, or key (or SPLIT_STRATEGY)")
	value := fs.String("value", "", "strategy value (or SPLIT_VALUE)")
	selector := fs.String("path", "", "dotted path to the items (or JSON_PATH)")
	baseName := fs.String("base-name", "", "output name prefix (or BASE_NAME; default: input object stem)")
	format := fs.String("format", "", "output format: json or jsonl (or OUTPUT_FORMAT)")
	maxRecords := fs.String("max-records", "", "secondary cap on items per file (or MAX_RECORDS)")
	maxSize := fs.String("max-size", "", "secondary cap on bytes per file (or MAX_SIZE)")
	template := fs.String("filename-format", "", "output filename template (or FILENAME_FORMAT)")
	reportInterval := fs.String("report-interval", "", "items between progress reports (or REPORT_INTERVAL; default 10000)")
	maxOpen := fs.Int("max-open-files", 0, "open file bound for key splitting (0 derives from the descriptor limit)")
	workDir := fs.String("work-dir", "", "local scratch directory (default: a fresh temp dir)")
	concurrency := fs.Int("concurrency", 0, "parallel uploads (0 sizes to the machine)")
	onMissing := fs.String("on-missing-key", "", "missing grouping key policy (or ON_MISSING_KEY)")
	onInvalid := fs.String("on-invalid-item", "", "non-object item policy (or ON_INVALID_ITEM)")
	verbose := fs.Bool("v", false, "enable debug logging")
	pretty := fs.Bool("pretty", false, "human-readable log output")

	if err := fs.Parse(args); err != nil {
		return err
	}

	inURI := resolveString(*in, envInputURL, "")
	if inURI == "" {
		return errors.New("--in or INPUT_URL is required")
	}
	inBucket, inKey, err := s3io.ParseURI(inURI)
	if err != nil {
		return fmt.Errorf("--in: %w", err)
	}
	if inKey == "" {
		return errors.New("--in must name an object, not a bucket")
	}

	outURI := resolveString(*out, envOutputPrefix, "")
	var outBucket, outPrefix string
	if outURI != "" {
		outBucket, outPrefix, err = s3io.ParseURI(outURI)
		if err != nil {
			return fmt.Errorf("--out: %w", err)
		}
	}

	strategy := resolveString(*by, envStrategy, "")
	if strategy == "" {
		return errors.New("--by or SPLIT_STRATEGY is required")
	}
	val := resolveString(*value, envValue, "")
	if val == "" {
		return errors.New("--value or SPLIT_VALUE is required")
	}

	records, err := resolveInt(*maxRecords, envMaxRecords, 0)
	if err != nil {
		return fmt.Errorf("--max-records: %w", err)
	}
	interval, err := resolveInt(*reportInterval, envReportInterval, 10000)
	if err != nil {
		return fmt.Errorf("--report-interval: %w", err)
	}

	// An explicitly empty -path selects the whole document, so the env
	// fallback only applies when the flag was not given at all.
	sel := *selector
	pathSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "path" {
			pathSet = true
		}
	})
	if !pathSet {
		sel = resolveString("", envPath, "item")
	}

	name := resolveString(*baseName, envBaseName, "")
	if name == "" {
		name = inputStem(inKey)
	}

	log := logctx.New(*verbose, *pretty)
	ctx := logctx.WithLogger(context.Background(), log)

	if outURI == "" {
		outBucket = inBucket
		outPrefix = splitOutputPrefix(inKey)
		log.Debug().
			Str("bucket", outBucket).
			Str("prefix", outPrefix).
			Msg("output prefix derived from input location")
	}

	work := *workDir
	if work == "" {
		var err error
		work, err = os.MkdirTemp("", "jsonsplit-*")
		if err != nil {
			return fmt.Errorf("create scratch directory: %w", err)
		}
		defer os.RemoveAll(work)
	}

	cfg, err := buildConfig(splitOptions{
		Strategy:       strategy,
		Value:          val,
		Format:         resolveString(*format, envFormat, "json"),
		MaxRecords:     records,
		MaxSize:        resolveString(*maxSize, envMaxSize, ""),
		Template:       resolveString(*template, envTemplate, ""),
		ReportInterval: interval,
		MaxOpenFiles:   *maxOpen,
		OnMissingKey:   resolveString(*onMissing, envOnMissingKey, "group"),
		OnInvalidItem:  resolveString(*onInvalid, envOnInvalidItem, "warn"),
		OutDir:         filepath.Join(work, "out"),
		BaseName:       name,
	})
	if err != nil {
		return err
	}

	client, err := s3io.NewClient(ctx)
	if err != nil {
		return err
	}
	transfer := s3io.NewTransfer(client, s3io.TransferConfig{Concurrency: *concurrency})

	localIn := filepath.Join(work, filepath.Base(inKey))
	if _, err := transfer.Download(ctx, inBucket, inKey, localIn); err != nil {
		return err
	}

	src, err := itemstream.Open(localIn, sel)
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
		return runErr
	}

	if err := transfer.UploadAll(ctx, outBucket, outPrefix, sum.CreatedPaths); err != nil {
		return err
	}
	log.Info().
		Int("files", len(sum.CreatedPaths)).
		Str("bucket", outBucket).
		Str("prefix", outPrefix).
		Msg("split outputs uploaded")
	return nil
}

// splitOutputPrefix places outputs in a split/ prefix alongside the input
// object when no explicit destination is configured.
func splitOutputPrefix(key string) string {
	dir := path.Dir(key)
	if dir == "." || dir == "/" {
		return "split"
	}
	return dir + "/split"
}

// resolveInt returns the flag value if set, then the environment variable,
// then the default.
func resolveInt(flagVal, envName string, def int64) (int64, error) {
	s := resolveString(flagVal, envName, "")
	if s == "" {
		return def, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
