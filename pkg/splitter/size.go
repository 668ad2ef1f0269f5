package splitter

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"

	"jsonsplit/pkg/filename"
)

// sizeEngine fills each output to an approximate byte budget.
//
// The projected file size is checked before every append, so a chunk that
// already holds an item never accepts one that would push it over budget;
// the pending item starts the next file instead. A single item too large
// for the budget on its own is still written, alone, with a warning. Files
// advance the file index on every flush; the size strategy never emits part
// suffixes.
type sizeEngine struct {
	log      zerolog.Logger
	format   Format
	outDir   string
	resolver *filename.Resolver
	created  *CreatedPaths
	sum      *Summary

	budget     int64
	maxRecords int64
	base       int64

	chunk      []any
	chunkBytes int64
	fileIndex  int
}

func newSizeEngine(cfg Config, log zerolog.Logger, sum *Summary, created *CreatedPaths) *sizeEngine {
	base, _ := overheads(cfg.Format)
	return &sizeEngine{
		log:        log,
		format:     cfg.Format,
		outDir:     cfg.OutDir,
		resolver:   filename.New(log, cfg.Template, cfg.BaseName, string(cfg.Format), false),
		created:    created,
		sum:        sum,
		budget:     cfg.SizeBudget,
		maxRecords: cfg.MaxRecords,
		base:       base,
		chunkBytes: base,
	}
}

func (e *sizeEngine) advance(ctx context.Context, item any) (Action, error) {
	itemSize, err := estimateItem(item, e.format)
	if err != nil {
		e.sum.SerializeFailures++
		e.log.Warn().Err(err).Msg("item size unavailable, counted as zero bytes")
		itemSize = 0
	}

	act := ActionContinue
	if e.mustFlush(itemSize) {
		e.flush()
		act = ActionFlush
	}

	e.chunk = append(e.chunk, item)
	e.chunkBytes += itemSize

	if len(e.chunk) == 1 && e.chunkBytes > e.budget {
		e.log.Warn().
			Int64("bytes", e.chunkBytes).
			Int64("budget", e.budget).
			Msg("single item exceeds the size budget, writing it alone")
		e.flush()
		act = ActionFlush
	}
	return act, nil
}

// mustFlush reports whether the chunk must be written before the pending
// item can be accepted.
func (e *sizeEngine) mustFlush(itemSize int64) bool {
	if len(e.chunk) == 0 {
		return false
	}
	if e.chunkBytes+itemSize > e.budget {
		return true
	}
	return e.maxRecords > 0 && int64(len(e.chunk))+1 > e.maxRecords
}

func (e *sizeEngine) flush() {
	if len(e.chunk) == 0 {
		return
	}
	name := e.resolver.Chunk(e.fileIndex, 0)
	flushChunk(e.log, filepath.Join(e.outDir, name), e.chunk, e.format, e.sum, e.created)
	e.fileIndex++
	e.chunk = e.chunk[:0]
	e.chunkBytes = e.base
}

func (e *sizeEngine) finish(ctx context.Context) error {
	if len(e.chunk) > 0 {
		e.flush()
	}
	return nil
}

func (e *sizeEngine) close(ctx context.Context) {}
