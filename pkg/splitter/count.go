package splitter

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"

	"jsonsplit/pkg/filename"
)

// countTransition classifies the pending item against the current part:
// append it, flush the part and carry the item into the next part of the
// same primary chunk, or close the whole primary chunk and carry the item
// into the next one. The last fires when a secondary limit trips on the
// item that would also complete the primary count; the chunk closes as a
// primary chunk and no extra part suffix is emitted for the carried item.
type countTransition int

const (
	txAppend countTransition = iota
	txFlushCarry
	txFlushPrimary
)

// countEngine fills each output with a fixed number of items.
//
// Secondary limits subdivide a primary chunk into parts: a record cap rolls
// the part before an append would exceed it, and a byte cap carries the
// incoming item over into a fresh part. When only a record cap is
// configured it replaces the primary count outright and parts never happen.
type countEngine struct {
	log      zerolog.Logger
	format   Format
	outDir   string
	resolver *filename.Resolver
	created  *CreatedPaths
	sum      *Summary

	limit        int64
	partsEnabled bool
	maxRecords   int64
	maxSize      int64
	base         int64

	chunk        []any
	chunkBytes   int64
	primaryCount int64
	fileIndex    int
	partIndex    int
}

func newCountEngine(cfg Config, log zerolog.Logger, sum *Summary, created *CreatedPaths) *countEngine {
	limit := cfg.Count
	partsEnabled := true
	maxRecords := cfg.MaxRecords
	if cfg.MaxRecords > 0 && cfg.MaxSize == 0 {
		// Records-only mode: the record cap is the primary count.
		limit = cfg.MaxRecords
		partsEnabled = false
		maxRecords = 0
		log.Info().Int64("records_per_file", limit).Msg("record cap replaces primary item count")
	}
	base, _ := overheads(cfg.Format)
	return &countEngine{
		log:          log,
		format:       cfg.Format,
		outDir:       cfg.OutDir,
		resolver:     filename.New(log, cfg.Template, cfg.BaseName, string(cfg.Format), false),
		created:      created,
		sum:          sum,
		limit:        limit,
		partsEnabled: partsEnabled,
		maxRecords:   maxRecords,
		maxSize:      cfg.MaxSize,
		base:         base,
		chunkBytes:   base,
	}
}

func (e *countEngine) advance(ctx context.Context, item any) (Action, error) {
	var itemSize int64
	if e.maxSize > 0 {
		sz, err := estimateItem(item, e.format)
		if err != nil {
			e.sum.SerializeFailures++
			e.log.Warn().Err(err).Msg("item size unavailable, counted as zero bytes")
		} else {
			itemSize = sz
		}
	}

	act := ActionContinue
	switch e.transition(itemSize) {
	case txFlushCarry:
		e.flushPart()
		act = ActionFlush
	case txFlushPrimary:
		e.flushPrimary()
		act = ActionFlush
	}

	e.chunk = append(e.chunk, item)
	e.chunkBytes += itemSize
	e.primaryCount++

	if e.primaryCount >= e.limit {
		e.flushPrimary()
		act = ActionFlush
	}
	return act, nil
}

func (e *countEngine) transition(itemSize int64) countTransition {
	if !e.partsEnabled || len(e.chunk) == 0 {
		return txAppend
	}
	tripped := e.maxRecords > 0 && int64(len(e.chunk)) >= e.maxRecords
	if !tripped && e.maxSize > 0 && itemSize > 0 && e.chunkBytes+itemSize > e.maxSize {
		tripped = true
	}
	if !tripped {
		return txAppend
	}
	// Primary-count precedence: when the carried item would complete the
	// primary count anyway, the chunk closes as a primary chunk and the
	// item starts the next one at part 0.
	if e.primaryCount+1 >= e.limit {
		return txFlushPrimary
	}
	return txFlushCarry
}

// flushPart writes the current part and starts the next one within the same
// primary chunk.
func (e *countEngine) flushPart() {
	e.writeChunk()
	e.partIndex++
	e.resetChunk()
}

// flushPrimary closes the primary chunk: the file index advances and the
// part counter resets.
func (e *countEngine) flushPrimary() {
	e.writeChunk()
	e.fileIndex++
	e.partIndex = 0
	e.primaryCount = 0
	e.resetChunk()
}

func (e *countEngine) resetChunk() {
	e.chunk = e.chunk[:0]
	e.chunkBytes = e.base
}

func (e *countEngine) writeChunk() {
	if len(e.chunk) == 0 {
		return
	}
	name := e.resolver.Chunk(e.fileIndex, e.partIndex)
	flushChunk(e.log, filepath.Join(e.outDir, name), e.chunk, e.format, e.sum, e.created)
}

func (e *countEngine) finish(ctx context.Context) error {
	if len(e.chunk) > 0 {
		e.flushPrimary()
	}
	return nil
}

func (e *countEngine) close(ctx context.Context) {}
