// Package itemstream yields one JSON value at a time from a byte stream.
//
// A selector chooses which values become items. Selectors are dotted paths:
// each segment names an object member to descend through, and the segment
// "item" additionally descends into array elements at that position. The
// selector "item" iterates a top-level array; "data.records.item" iterates
// the array under data.records; the empty selector yields the whole document
// as a single item. Values outside the selected path are skipped token-wise,
// so memory is bounded by one item rather than the document.
package itemstream

import (
	"errors"
	"fmt"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"jsonsplit/pkg/jsoncodec"
)

// ArraySegment is the selector segment that descends into array elements.
const ArraySegment = "item"

// StructuralError reports input that is not well-formed JSON of the expected
// shape at the selected path. It is fatal: iteration cannot continue past it.
type StructuralError struct {
	Selector string
	Detail   string
	Err      error
}

func (e *StructuralError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed JSON at path %q: %v", e.Selector, e.Err)
	}
	return fmt.Sprintf("malformed JSON at path %q: %s", e.Selector, e.Detail)
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}

const parseBufSize = 64 * 1024

type frameKind uint8

const (
	frameObject frameKind = iota
	frameArray
)

// frame is one container being walked. depth is the selector segment index
// values inside the container are matched against: for an object, the
// segment its member names must equal; for an array, the segment index of
// its elements (the element match happened when the array was entered).
type frame struct {
	kind  frameKind
	depth int
}

// Source is a forward-only iterator over the selected items of one JSON
// document. It is not restartable and not safe for concurrent use.
type Source struct {
	iter     *jsoniter.Iterator
	selector []string
	raw      string

	stack    []frame
	item     any
	err      error
	rootSeen bool
	done     bool

	closers []io.Closer
}

// New builds a Source reading from r. The selector must be empty or a
// dot-separated path with no empty segments.
func New(r io.Reader, selector string) (*Source, error) {
	segments, err := parseSelector(selector)
	if err != nil {
		return nil, err
	}
	return &Source{
		iter:     jsoniter.Parse(jsoncodec.API, r, parseBufSize),
		selector: segments,
		raw:      selector,
	}, nil
}

func parseSelector(selector string) ([]string, error) {
	if selector == "" {
		return nil, nil
	}
	segments := strings.Split(selector, ".")
	for _, seg := range segments {
		if seg == "" {
			return nil, fmt.Errorf("invalid selector %q: empty path segment", selector)
		}
	}
	return segments, nil
}

// Next advances to the next selected item. It returns false at the end of
// the stream or on error; check Err afterwards.
func (s *Source) Next() bool {
	if s.done || s.err != nil {
		return false
	}
	for {
		if len(s.stack) == 0 {
			if s.rootSeen {
				s.finish()
				return false
			}
			s.rootSeen = true
			if s.value(0) {
				return true
			}
			if s.err != nil {
				return false
			}
			continue
		}

		f := &s.stack[len(s.stack)-1]
		switch f.kind {
		case frameArray:
			more := s.iter.ReadArray()
			if s.failed() {
				return false
			}
			if !more {
				s.stack = s.stack[:len(s.stack)-1]
				continue
			}
			if s.value(f.depth) {
				return true
			}
			if s.err != nil {
				return false
			}
		case frameObject:
			name := s.iter.ReadObject()
			if s.failed() {
				return false
			}
			if name == "" {
				s.stack = s.stack[:len(s.stack)-1]
				continue
			}
			if name == s.selector[f.depth] {
				if s.value(f.depth + 1) {
					return true
				}
				if s.err != nil {
					return false
				}
			} else {
				s.iter.Skip()
				if s.failed() {
					return false
				}
			}
		}
	}
}

// value decides what to do with the next value in the stream: yield it when
// the selector is fully matched, walk into it when it can still match, skip
// it otherwise. Returns true when an item was produced.
func (s *Source) value(depth int) bool {
	if depth == len(s.selector) {
		v := s.iter.Read()
		if s.failed() {
			return false
		}
		s.item = v
		return true
	}

	switch s.iter.WhatIsNext() {
	case jsoniter.ObjectValue:
		// Objects are always walked member-wise: the next segment may name
		// any member, including one literally called "item".
		s.stack = append(s.stack, frame{kind: frameObject, depth: depth})
	case jsoniter.ArrayValue:
		if s.selector[depth] == ArraySegment {
			s.stack = append(s.stack, frame{kind: frameArray, depth: depth + 1})
		} else {
			s.iter.Skip()
		}
	default:
		s.iter.Skip()
	}
	s.failed()
	return false
}

// failed records a tokenizer error, if any, as a structural error. Any error
// while the walker still expects tokens, including EOF, means truncated or
// malformed input.
func (s *Source) failed() bool {
	if s.err != nil {
		return true
	}
	err := s.iter.Error
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) {
		s.err = &StructuralError{Selector: s.raw, Detail: "unexpected end of input"}
	} else {
		s.err = &StructuralError{Selector: s.raw, Err: err}
	}
	return true
}

// finish runs once the root value is consumed: anything but clean EOF is
// trailing garbage.
func (s *Source) finish() {
	s.done = true
	if s.iter.WhatIsNext() == jsoniter.InvalidValue && errors.Is(s.iter.Error, io.EOF) {
		return
	}
	if err := s.iter.Error; err != nil && !errors.Is(err, io.EOF) {
		s.err = &StructuralError{Selector: s.raw, Err: err}
		return
	}
	s.err = &StructuralError{Selector: s.raw, Detail: "trailing data after top-level value"}
}

// Item returns the current item. It is valid until the next call to Next.
func (s *Source) Item() any {
	return s.item
}

// Err returns the first structural error encountered, if any.
func (s *Source) Err() error {
	return s.err
}

// Close releases the underlying readers, decompressors before the file.
func (s *Source) Close() error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}
