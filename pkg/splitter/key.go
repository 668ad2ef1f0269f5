package splitter

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"jsonsplit/pkg/filename"
	"jsonsplit/pkg/jsoncodec"
)

// Reserved bucket names. They already follow the safe-name alphabet and
// bypass sanitization, which would otherwise strip their underscores.
const (
	// MissingKeyBucket collects items without the grouping key under the
	// group policy.
	MissingKeyBucket = "__missing_key__"

	complexObjectBucket = "__complex_type_object"
	complexArrayBucket  = "__complex_type_array"
)

// keyEngine routes each item to a bucket file named for the sanitized value
// of one field.
//
// Buckets append as they go, so an active bucket wants an open file; the
// handle cache bounds how many stay open at once. Counters and the part
// index live in the states map outside the cache and survive eviction.
// Rollover happens before a write would exceed a secondary limit, closing
// the bucket's current part and advancing to the next.
type keyEngine struct {
	log      zerolog.Logger
	outDir   string
	resolver *filename.Resolver
	created  *CreatedPaths
	sum      *Summary

	keyName       string
	onMissingKey  MissingKeyPolicy
	onInvalidItem InvalidItemPolicy
	maxRecords    int64
	maxSize       int64
	perItem       int64

	states   map[string]*unitState
	handles  *handleCache
	position int64
}

func newKeyEngine(cfg Config, log zerolog.Logger, sum *Summary, created *CreatedPaths) (*keyEngine, error) {
	handles, err := newHandleCache(cfg.MaxOpenFiles, log)
	if err != nil {
		return nil, fmt.Errorf("handle cache: %w", err)
	}
	_, perItem := overheads(cfg.Format)
	return &keyEngine{
		log:           log,
		outDir:        cfg.OutDir,
		resolver:      filename.New(log, cfg.Template, cfg.BaseName, string(cfg.Format), true),
		created:       created,
		sum:           sum,
		keyName:       cfg.Key,
		onMissingKey:  cfg.OnMissingKey,
		onInvalidItem: cfg.OnInvalidItem,
		maxRecords:    cfg.MaxRecords,
		maxSize:       cfg.MaxSize,
		perItem:       perItem,
		states:        make(map[string]*unitState),
		handles:       handles,
	}, nil
}

func (e *keyEngine) advance(ctx context.Context, item any) (Action, error) {
	e.position++

	obj, ok := item.(map[string]any)
	if !ok {
		return e.invalidItem()
	}

	bucket, act, err := e.bucketFor(obj)
	if err != nil || act == ActionSkip {
		return act, err
	}

	enc, err := jsoncodec.Marshal(item)
	if err != nil {
		e.sum.SerializeFailures++
		e.sum.ItemsSkipped++
		e.log.Error().Err(err).Int64("position", e.position).Str("key", bucket).Msg("item serialization failed, skipped")
		return ActionSkip, nil
	}
	itemSize := int64(len(enc)) + e.perItem

	st := e.state(bucket)
	act = ActionContinue
	for st.count > 0 && e.overLimit(st, itemSize) {
		e.rollPart(st)
		act = ActionFlush
	}

	if err := e.write(st, enc); err != nil {
		e.sum.WriteFailures++
		e.sum.ItemsSkipped++
		e.log.Error().Err(err).Str("key", st.key).Msg("bucket write failed, dropping its handle and skipping the item")
		e.handles.drop(st.key)
		return ActionSkip, nil
	}

	st.count++
	st.approxBytes += itemSize
	e.sum.ItemsWritten++
	return act, nil
}

func (e *keyEngine) invalidItem() (Action, error) {
	switch e.onInvalidItem {
	case InvalidItemError:
		return ActionAbort, &PolicyError{Position: e.position, Reason: "item is not an object"}
	case InvalidItemSkip:
		e.sum.ItemsSkipped++
		return ActionSkip, nil
	default:
		e.sum.ItemsSkipped++
		e.log.Warn().Int64("position", e.position).Msg("item is not an object, skipped")
		return ActionSkip, nil
	}
}

// bucketFor resolves the grouping value of one object to a bucket name,
// applying the missing-key policy. A JSON null value counts as missing.
func (e *keyEngine) bucketFor(obj map[string]any) (string, Action, error) {
	raw, present := obj[e.keyName]
	if !present || raw == nil {
		switch e.onMissingKey {
		case MissingKeyError:
			return "", ActionAbort, &PolicyError{Position: e.position, Reason: fmt.Sprintf("key %q missing", e.keyName)}
		case MissingKeySkip:
			e.sum.ItemsSkipped++
			return "", ActionSkip, nil
		default:
			return MissingKeyBucket, ActionContinue, nil
		}
	}

	switch v := raw.(type) {
	case string:
		return filename.Sanitize(v), ActionContinue, nil
	case json.Number:
		return filename.Sanitize(v.String()), ActionContinue, nil
	case bool:
		return filename.Sanitize(strconv.FormatBool(v)), ActionContinue, nil
	case map[string]any:
		e.log.Warn().Int64("position", e.position).Str("key", e.keyName).Msg("key value is an object, grouping by type")
		return complexObjectBucket, ActionContinue, nil
	case []any:
		e.log.Warn().Int64("position", e.position).Str("key", e.keyName).Msg("key value is an array, grouping by type")
		return complexArrayBucket, ActionContinue, nil
	default:
		return filename.Sanitize(fmt.Sprint(v)), ActionContinue, nil
	}
}

func (e *keyEngine) state(bucket string) *unitState {
	st, ok := e.states[bucket]
	if !ok {
		st = &unitState{key: bucket}
		e.states[bucket] = st
	}
	return st
}

// overLimit reports whether one more item of itemSize would push the
// bucket's current part past a secondary limit.
func (e *keyEngine) overLimit(st *unitState, itemSize int64) bool {
	if e.maxRecords > 0 && st.count >= e.maxRecords {
		return true
	}
	return e.maxSize > 0 && st.approxBytes+itemSize > e.maxSize
}

// rollPart closes the bucket's current part and advances to the next one.
func (e *keyEngine) rollPart(st *unitState) {
	e.handles.drop(st.key)
	st.partIndex++
	st.count = 0
	st.approxBytes = 0
	st.opened = false
	e.log.Debug().Str("key", st.key).Int("part", st.partIndex).Msg("bucket part rollover")
}

// write appends one line to the bucket, opening or reopening its current
// part as needed.
func (e *keyEngine) write(st *unitState, enc []byte) error {
	if st.handle == nil {
		name := e.resolver.Key(st.key, st.partIndex)
		a, err := openAppend(filepath.Join(e.outDir, name), e.created)
		if err != nil {
			return err
		}
		st.handle = a
		if !st.opened {
			st.opened = true
			e.sum.FilesCreated++
		}
		e.handles.track(st)
	} else {
		e.handles.touch(st.key)
	}
	return st.handle.writeLine(enc)
}

func (e *keyEngine) finish(ctx context.Context) error {
	return nil
}

// close closes every bucket still holding an open file. It runs on success
// and failure alike so buffered appends always reach disk.
func (e *keyEngine) close(ctx context.Context) {
	e.handles.closeAll()
	e.sum.DistinctKeys = int64(len(e.states))
}
