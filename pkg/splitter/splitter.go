// Package splitter turns one large JSON item stream into many output files.
//
// Three strategies decide file boundaries: count fills each file with a
// fixed number of items, size fills each file to an approximate byte budget,
// and key groups items by the value of a named field. A Runner owns one
// strategy engine and drives the pull loop over the item source; engines
// write through the package's sink and filename resolver, and every path
// they touch is recorded so the caller can clean up after a failed run.
package splitter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"jsonsplit/pkg/fdlimit"
	"jsonsplit/pkg/humanfmt"
	"jsonsplit/pkg/progress"
)

// Strategy selects the splitting criterion.
type Strategy string

const (
	StrategyCount Strategy = "count"
	StrategySize  Strategy = "size"
	StrategyKey   Strategy = "key"
)

// ParseStrategy maps a user-supplied strategy name to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch v := Strategy(strings.ToLower(s)); v {
	case StrategyCount, StrategySize, StrategyKey:
		return v, nil
	default:
		return "", fmt.Errorf("unknown strategy %q (want count, size, or key)", s)
	}
}

// Format is the output serialization.
type Format string

const (
	// FormatJSON writes each file as a single JSON array document.
	FormatJSON Format = "json"
	// FormatJSONL writes one JSON value per line.
	FormatJSONL Format = "jsonl"
)

// ParseFormat maps a user-supplied format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch v := Format(strings.ToLower(s)); v {
	case FormatJSON, FormatJSONL:
		return v, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want json or jsonl)", s)
	}
}

// MissingKeyPolicy decides what happens to items without the grouping key.
type MissingKeyPolicy string

const (
	MissingKeyGroup MissingKeyPolicy = "group"
	MissingKeySkip  MissingKeyPolicy = "skip"
	MissingKeyError MissingKeyPolicy = "error"
)

// ParseMissingKeyPolicy maps a user-supplied policy name.
func ParseMissingKeyPolicy(s string) (MissingKeyPolicy, error) {
	switch v := MissingKeyPolicy(strings.ToLower(s)); v {
	case MissingKeyGroup, MissingKeySkip, MissingKeyError:
		return v, nil
	default:
		return "", fmt.Errorf("unknown missing-key policy %q (want group, skip, or error)", s)
	}
}

// InvalidItemPolicy decides what happens to non-object items in a key split.
type InvalidItemPolicy string

const (
	InvalidItemWarn  InvalidItemPolicy = "warn"
	InvalidItemSkip  InvalidItemPolicy = "skip"
	InvalidItemError InvalidItemPolicy = "error"
)

// ParseInvalidItemPolicy maps a user-supplied policy name.
func ParseInvalidItemPolicy(s string) (InvalidItemPolicy, error) {
	switch v := InvalidItemPolicy(strings.ToLower(s)); v {
	case InvalidItemWarn, InvalidItemSkip, InvalidItemError:
		return v, nil
	default:
		return "", fmt.Errorf("unknown invalid-item policy %q (want warn, skip, or error)", s)
	}
}

// Config describes one split run.
type Config struct {
	// Strategy selects the splitting criterion.
	Strategy Strategy

	// Count is the number of items per file for StrategyCount.
	Count int64

	// SizeBudget is the approximate bytes per file for StrategySize.
	SizeBudget int64

	// Key is the item field to group by for StrategyKey.
	Key string

	// MaxRecords optionally caps items per file within the primary
	// criterion. For StrategyCount with no MaxSize set it replaces the
	// primary count outright.
	MaxRecords int64

	// MaxSize optionally caps estimated bytes per file within the primary
	// criterion.
	MaxSize int64

	// OutDir receives the output files. Created if absent.
	OutDir string

	// BaseName prefixes every output file name.
	BaseName string

	// Template overrides the output naming scheme; empty selects the
	// default for the strategy.
	Template string

	// Format selects the output serialization. Key splitting always writes
	// jsonl; a json request is overridden with a warning.
	Format Format

	// OnMissingKey and OnInvalidItem govern key-strategy item errors.
	OnMissingKey  MissingKeyPolicy
	OnInvalidItem InvalidItemPolicy

	// MaxOpenFiles bounds concurrently open outputs for key splitting.
	// 0 derives a bound from the process descriptor limit.
	MaxOpenFiles int

	// ReportInterval is the item count between progress lines; 0 disables
	// periodic reporting.
	ReportInterval int64
}

func (c Config) withDefaults() Config {
	if c.OutDir == "" {
		c.OutDir = "."
	}
	if c.BaseName == "" {
		c.BaseName = "chunk"
	}
	if c.Format == "" {
		c.Format = FormatJSON
	}
	if c.OnMissingKey == "" {
		c.OnMissingKey = MissingKeyGroup
	}
	if c.OnInvalidItem == "" {
		c.OnInvalidItem = InvalidItemWarn
	}
	return c
}

func (c Config) validate() error {
	switch c.Strategy {
	case StrategyCount:
		if c.Count <= 0 {
			return fmt.Errorf("count strategy requires a positive item count, got %d", c.Count)
		}
	case StrategySize:
		if c.SizeBudget <= 0 {
			return fmt.Errorf("size strategy requires a positive byte budget, got %d", c.SizeBudget)
		}
	case StrategyKey:
		if c.Key == "" {
			return fmt.Errorf("key strategy requires a key name")
		}
	default:
		return fmt.Errorf("unknown strategy %q", c.Strategy)
	}

	if c.MaxRecords < 0 {
		return fmt.Errorf("max records must not be negative, got %d", c.MaxRecords)
	}
	if c.MaxSize < 0 {
		return fmt.Errorf("max size must not be negative, got %d", c.MaxSize)
	}
	if c.MaxOpenFiles < 0 {
		return fmt.Errorf("max open files must not be negative, got %d", c.MaxOpenFiles)
	}
	if c.Format != FormatJSON && c.Format != FormatJSONL {
		return fmt.Errorf("unknown output format %q", c.Format)
	}
	if strings.ContainsAny(c.BaseName, `/\`) || !filepath.IsLocal(c.BaseName) {
		return fmt.Errorf("base name %q is not a plain file name prefix", c.BaseName)
	}

	switch c.OnMissingKey {
	case MissingKeyGroup, MissingKeySkip, MissingKeyError:
	default:
		return fmt.Errorf("unknown missing-key policy %q", c.OnMissingKey)
	}
	switch c.OnInvalidItem {
	case InvalidItemWarn, InvalidItemSkip, InvalidItemError:
	default:
		return fmt.Errorf("unknown invalid-item policy %q", c.OnInvalidItem)
	}
	return nil
}

// Action classifies what an engine did with one item.
type Action int

const (
	// ActionContinue: the item was accepted without closing any output unit.
	ActionContinue Action = iota
	// ActionFlush: accepting the item closed at least one output unit.
	ActionFlush
	// ActionSkip: the item was dropped by policy or a recoverable error.
	ActionSkip
	// ActionAbort: a policy demands the run stop; nothing was written for
	// the item. Always accompanied by an error.
	ActionAbort
)

// engine is one strategy state machine. advance consumes one item, finish
// flushes trailing state after a clean end of stream, and close releases
// resources on every exit path.
type engine interface {
	advance(ctx context.Context, item any) (Action, error)
	finish(ctx context.Context) error
	close(ctx context.Context)
}

// PolicyError reports a run aborted by an item-level policy.
type PolicyError struct {
	// Position is the 1-based position of the offending item.
	Position int64
	Reason   string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("item %d: %s", e.Position, e.Reason)
}

// CreatedPaths records, in creation order, every output path a run attempted
// to create. The caller uses it to remove partial output after a failure.
type CreatedPaths struct {
	order []string
	seen  map[string]struct{}
}

func newCreatedPaths() *CreatedPaths {
	return &CreatedPaths{seen: make(map[string]struct{})}
}

// Add records a path; re-adding is a no-op. Returns true on first sight.
func (c *CreatedPaths) Add(path string) bool {
	if _, ok := c.seen[path]; ok {
		return false
	}
	c.seen[path] = struct{}{}
	c.order = append(c.order, path)
	return true
}

// Paths returns the recorded paths in creation order.
func (c *CreatedPaths) Paths() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Len reports how many distinct paths were recorded.
func (c *CreatedPaths) Len() int {
	return len(c.order)
}

// Summary carries the counters of one run. It is returned on failure too, so
// callers can report progress made and clean up created paths.
type Summary struct {
	Strategy          Strategy
	Items             int64
	ItemsWritten      int64
	ItemsSkipped      int64
	SerializeFailures int64
	WriteFailures     int64
	FilesCreated      int64
	DistinctKeys      int64
	Elapsed           time.Duration
	CreatedPaths      []string
}

// ItemSource is the lazy item sequence a run drains: forward-only, not
// restartable. Err reports why iteration stopped, nil meaning a clean end.
type ItemSource interface {
	Next() bool
	Item() any
	Err() error
}

// Runner drives one split run over one item source.
type Runner struct {
	cfg Config
	log zerolog.Logger
}

// New validates the configuration and prepares a Runner. The logger is
// injected here and flows into every component of the run.
func New(cfg Config, log zerolog.Logger) (*Runner, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log = log.With().Str("strategy", string(cfg.Strategy)).Logger()

	if cfg.Strategy == StrategyKey {
		if cfg.Format != FormatJSONL {
			log.Warn().Str("format", string(cfg.Format)).Msg("key splitting writes jsonl, overriding requested format")
			cfg.Format = FormatJSONL
		}
		if cfg.MaxOpenFiles == 0 {
			cfg.MaxOpenFiles = fdlimit.HandleCap()
			log.Debug().Int("max_open_files", cfg.MaxOpenFiles).Msg("handle bound derived from descriptor limit")
		}
	}

	return &Runner{cfg: cfg, log: log}, nil
}

// Run pulls every item from src through the strategy engine. The returned
// Summary is never nil; on error it still carries the counters and created
// paths accumulated before the failure.
func (r *Runner) Run(ctx context.Context, src ItemSource) (*Summary, error) {
	start := time.Now()
	sum := &Summary{Strategy: r.cfg.Strategy}
	created := newCreatedPaths()

	finalize := func(runErr error) (*Summary, error) {
		sum.Elapsed = time.Since(start)
		sum.CreatedPaths = created.Paths()
		r.logCompletion(sum, runErr)
		return sum, runErr
	}

	if err := os.MkdirAll(r.cfg.OutDir, 0o755); err != nil {
		return finalize(fmt.Errorf("create output directory: %w", err))
	}

	eng, err := r.newEngine(sum, created)
	if err != nil {
		return finalize(err)
	}

	tracker := progress.New(r.log, r.cfg.ReportInterval)

	var runErr error
	for src.Next() {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		sum.Items++
		if _, err := eng.advance(ctx, src.Item()); err != nil {
			runErr = err
			break
		}
		tracker.Update(sum.Items)
	}

	if runErr == nil {
		if err := src.Err(); err != nil {
			// A structural stream error discards the in-flight chunk: no
			// trailing flush happens on this path.
			runErr = fmt.Errorf("item stream: %w", err)
		}
	}
	if runErr == nil {
		runErr = eng.finish(ctx)
	}
	eng.close(ctx)
	tracker.Finish()

	return finalize(runErr)
}

func (r *Runner) newEngine(sum *Summary, created *CreatedPaths) (engine, error) {
	switch r.cfg.Strategy {
	case StrategyCount:
		return newCountEngine(r.cfg, r.log, sum, created), nil
	case StrategySize:
		return newSizeEngine(r.cfg, r.log, sum, created), nil
	default:
		return newKeyEngine(r.cfg, r.log, sum, created)
	}
}

func (r *Runner) logCompletion(sum *Summary, runErr error) {
	if runErr != nil {
		r.log.Error().
			Err(runErr).
			Int64("items", sum.Items).
			Int64("files", sum.FilesCreated).
			Int64("duration_ms", sum.Elapsed.Milliseconds()).
			Msg("split failed")
		return
	}

	evt := r.log.Info().
		Str("event", "split_completed").
		Int64("items", sum.Items).
		Int64("items_written", sum.ItemsWritten).
		Int64("items_skipped", sum.ItemsSkipped).
		Int64("files", sum.FilesCreated).
		Int64("serialize_failures", sum.SerializeFailures).
		Int64("write_failures", sum.WriteFailures).
		Int64("duration_ms", sum.Elapsed.Milliseconds()).
		Str("duration_h", humanfmt.Duration(sum.Elapsed)).
		Str("out_dir", r.cfg.OutDir)
	if r.cfg.Strategy == StrategyKey {
		evt = evt.Int64("keys", sum.DistinctKeys)
	}
	evt.Msg("split complete")
}
