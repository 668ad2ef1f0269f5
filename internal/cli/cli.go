// Package cli implements the command-line interface for jsonsplit.
package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"jsonsplit/pkg/humanfmt"
	"jsonsplit/pkg/itemstream"
	"jsonsplit/pkg/splitter"
)

// Run executes the CLI with the given arguments.
func Run(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: jsonsplit <command> [options]\ncommands: split, s3")
	}

	switch args[0] {
	case "split":
		return runSplit(args[1:])
	case "s3":
		return runS3(args[1:])
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

// splitOptions is the strategy surface shared by the split and s3 commands,
// collected as strings so environment fallbacks can fill unset values before
// parsing.
type splitOptions struct {
	Strategy       string
	Value          string
	Format         string
	MaxRecords     int64
	MaxSize        string
	Template       string
	ReportInterval int64
	MaxOpenFiles   int
	OnMissingKey   string
	OnInvalidItem  string
	OutDir         string
	BaseName       string
}

// buildConfig validates the options and assembles the splitter configuration.
func buildConfig(opt splitOptions) (splitter.Config, error) {
	cfg := splitter.Config{
		MaxRecords:     opt.MaxRecords,
		OutDir:         opt.OutDir,
		BaseName:       opt.BaseName,
		Template:       opt.Template,
		ReportInterval: opt.ReportInterval,
		MaxOpenFiles:   opt.MaxOpenFiles,
	}

	strategy, err := splitter.ParseStrategy(opt.Strategy)
	if err != nil {
		return cfg, fmt.Errorf("--by: %w", err)
	}
	cfg.Strategy = strategy

	switch strategy {
	case splitter.StrategyCount:
		n, err := parsePositiveInt(opt.Value)
		if err != nil {
			return cfg, fmt.Errorf("--value for a count split must be a positive integer, got %q", opt.Value)
		}
		cfg.Count = n
	case splitter.StrategySize:
		n, err := humanfmt.ParseBytes(opt.Value)
		if err != nil {
			return cfg, fmt.Errorf("--value for a size split: %w", err)
		}
		cfg.SizeBudget = n
	case splitter.StrategyKey:
		cfg.Key = opt.Value
	}

	format, err := splitter.ParseFormat(opt.Format)
	if err != nil {
		return cfg, fmt.Errorf("--format: %w", err)
	}
	cfg.Format = format

	if opt.MaxSize != "" {
		n, err := humanfmt.ParseBytes(opt.MaxSize)
		if err != nil {
			return cfg, fmt.Errorf("--max-size: %w", err)
		}
		cfg.MaxSize = n
	}

	missing, err := splitter.ParseMissingKeyPolicy(opt.OnMissingKey)
	if err != nil {
		return cfg, fmt.Errorf("--on-missing-key: %w", err)
	}
	cfg.OnMissingKey = missing

	invalid, err := splitter.ParseInvalidItemPolicy(opt.OnInvalidItem)
	if err != nil {
		return cfg, fmt.Errorf("--on-invalid-item: %w", err)
	}
	cfg.OnInvalidItem = invalid

	return cfg, nil
}

func parsePositiveInt(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}

// inputStem derives the default output prefix from the input name: the base
// name with compression and serialization extensions stripped.
func inputStem(in string) string {
	if in == "" || in == "-" {
		return "chunk"
	}
	name := filepath.Base(itemstream.StripCompression(in))
	if ext := filepath.Ext(name); ext != "" {
		name = strings.TrimSuffix(name, ext)
	}
	if name == "" || name == "." {
		return "chunk"
	}
	return name
}

// resolveString returns the flag value if set, then the environment
// variable, then the default.
func resolveString(flagVal, envName, def string) string {
	if flagVal != "" {
		return flagVal
	}
	if v := os.Getenv(envName); v != "" {
		return v
	}
	return def
}

// removePartial deletes the files a failed run managed to create.
func removePartial(log zerolog.Logger, paths []string) {
	removed := 0
	for _, p := range paths {
		if err := os.Remove(p); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				log.Warn().Err(err).Str("path", p).Msg("could not remove partial output")
			}
			continue
		}
		removed++
	}
	if removed > 0 {
		log.Info().Int("files", removed).Msg("partial output removed")
	}
}
