// Package filename resolves output file names for split runs.
//
// Names come from a template over the placeholders {base_name}, {type},
// {index} (or {index:04d}), {part}, and {ext}. A template that fails to
// resolve, resolves to nothing, or resolves to something that would leave the
// output directory falls back to a fixed scheme, so a bad template degrades
// the naming but never the run.
package filename

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Default templates. Chunk-style names carry a zero-padded numeric index;
// key-style names carry the sanitized grouping key in its place.
const (
	DefaultChunkTemplate = "{base_name}_{type}_{index:04d}{part}.{ext}"
	DefaultKeyTemplate   = "{base_name}_key_{index}{part}.{ext}"
)

// ErrBadTemplate reports a template that could not be resolved to a safe
// basename.
var ErrBadTemplate = errors.New("unresolvable filename template")

// Resolver produces output basenames for one run. Resolution is
// deterministic; the only side effect is logging when a template falls back.
type Resolver struct {
	log      zerolog.Logger
	template string
	baseName string
	ext      string
	keyed    bool
	warned   bool
}

// New builds a Resolver. An empty template selects the default for the
// naming style. Keyed templates authored with the numeric {index:04d}
// placeholder are corrected to {index}, since a key index is a string.
func New(log zerolog.Logger, template, baseName, ext string, keyed bool) *Resolver {
	if template == "" {
		if keyed {
			template = DefaultKeyTemplate
		} else {
			template = DefaultChunkTemplate
		}
	}
	if keyed && strings.Contains(template, "{index:04d}") {
		template = strings.ReplaceAll(template, "{index:04d}", "{index}")
		log.Debug().Str("template", template).Msg("numeric index placeholder corrected for key naming")
	}
	return &Resolver{
		log:      log,
		template: template,
		baseName: baseName,
		ext:      ext,
		keyed:    keyed,
	}
}

// Chunk returns the basename for a numbered chunk file.
func (r *Resolver) Chunk(index, part int) string {
	return r.named(fmt.Sprintf("%04d", index), part)
}

// Key returns the basename for a key bucket file. The key must already be
// sanitized.
func (r *Resolver) Key(sanitizedKey string, part int) string {
	return r.named(sanitizedKey, part)
}

func (r *Resolver) named(indexValue string, part int) string {
	name, err := resolve(r.template, r.baseName, indexValue, r.ext, part)
	if err == nil {
		return name
	}

	if !r.warned {
		r.warned = true
		r.log.Warn().Err(err).Str("template", r.template).Msg("filename template invalid, using default naming")
	} else {
		r.log.Debug().Err(err).Str("template", r.template).Msg("filename template invalid, using default naming")
	}

	fallback := DefaultChunkTemplate
	if r.keyed {
		fallback = DefaultKeyTemplate
	}
	name, err = resolve(fallback, r.baseName, indexValue, r.ext, part)
	if err != nil {
		// The defaults only misresolve when the base name itself is unsafe;
		// Config validation rejects that before a Resolver exists.
		r.log.Error().Err(err).Msg("default filename template unresolvable")
		return fmt.Sprintf("chunk_%s%s.%s", indexValue, PartSuffix(part), r.ext)
	}
	return name
}

// resolve substitutes every placeholder and validates the result.
func resolve(template, baseName, indexValue, ext string, part int) (string, error) {
	rep := strings.NewReplacer(
		"{base_name}", baseName,
		"{type}", "chunk",
		"{index:04d}", indexValue,
		"{index}", indexValue,
		"{part}", PartSuffix(part),
		"{ext}", ext,
	)
	name := rep.Replace(template)

	if strings.ContainsAny(name, "{}") {
		return "", fmt.Errorf("%w: unknown placeholder in %q", ErrBadTemplate, template)
	}
	if name == "" {
		return "", fmt.Errorf("%w: resolved to empty name", ErrBadTemplate)
	}
	if strings.ContainsAny(name, `/\`) || !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: %q is not a plain file name", ErrBadTemplate, name)
	}
	return name, nil
}

// PartSuffix renders a part index as a filename fragment: empty for part 0,
// zero-padded "_part_NNNN" for part 1 and up.
func PartSuffix(part int) string {
	if part <= 0 {
		return ""
	}
	return fmt.Sprintf("_part_%04d", part)
}
