package splitter

import (
	"bufio"
	"bytes"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"jsonsplit/pkg/jsoncodec"
)

// encodeChunk renders a whole chunk as one file payload.
func encodeChunk(items []any, format Format) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatJSONL:
		for i, item := range items {
			enc, err := jsoncodec.Marshal(item)
			if err != nil {
				return nil, fmt.Errorf("serialize item %d: %w", i, err)
			}
			buf.Write(enc)
			buf.WriteByte('\n')
		}
	default:
		buf.WriteString("[\n")
		for i, item := range items {
			enc, err := jsoncodec.Marshal(item)
			if err != nil {
				return nil, fmt.Errorf("serialize item %d: %w", i, err)
			}
			if i > 0 {
				buf.WriteString(",\n")
			}
			buf.WriteString("  ")
			buf.Write(enc)
		}
		buf.WriteString("\n]")
	}
	return buf.Bytes(), nil
}

// flushChunk serializes and writes one chunk to path, keeping the summary
// counters current. A serialization failure skips the whole file; the items
// are already interleaved in one array and cannot be written piecemeal. The
// path is recorded before the write so a failed attempt is still subject to
// caller cleanup. Returns true when the file landed on disk.
func flushChunk(log zerolog.Logger, path string, chunk []any, format Format, sum *Summary, created *CreatedPaths) bool {
	payload, err := encodeChunk(chunk, format)
	if err != nil {
		sum.SerializeFailures++
		log.Error().Err(err).Str("path", path).Int("items", len(chunk)).Msg("chunk serialization failed, file skipped")
		return false
	}
	created.Add(path)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		sum.WriteFailures++
		log.Error().Err(err).Str("path", path).Msg("chunk write failed")
		return false
	}
	sum.FilesCreated++
	sum.ItemsWritten += int64(len(chunk))
	log.Debug().Str("path", path).Int("items", len(chunk)).Int("bytes", len(payload)).Msg("chunk written")
	return true
}

// appender is one open line-oriented output. Writes go through a buffer;
// Close flushes it before releasing the descriptor.
type appender struct {
	path string
	f    *os.File
	w    *bufio.Writer
}

// openAppend opens path for appending, creating it on first use. Append
// mode matters: when a key's handle was evicted and the key comes back, its
// file must continue where it stopped, not restart.
func openAppend(path string, created *CreatedPaths) (*appender, error) {
	created.Add(path)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}
	return &appender{path: path, f: f, w: bufio.NewWriter(f)}, nil
}

func (a *appender) writeLine(enc []byte) error {
	if _, err := a.w.Write(enc); err != nil {
		return err
	}
	return a.w.WriteByte('\n')
}

func (a *appender) Close() error {
	flushErr := a.w.Flush()
	closeErr := a.f.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
