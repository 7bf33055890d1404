// Package render formats selection records for output.
package render

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/agentic-research/nixsel/internal/selector"
	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// Format selects an output encoding.
type Format string

const (
	Text  Format = "text"
	JSON  Format = "json"
	Lines Format = "jsonl"
)

// ErrUnknownFormat is returned by ParseFormat.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat accepts text, json and jsonl.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case Text, JSON, Lines:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Generic converts a record into plain maps and slices for ojg.
func Generic(r selector.Record) map[string]any {
	frames := make([]any, len(r.Frames))
	for i, f := range r.Frames {
		frames[i] = f
	}
	m := map[string]any{
		"path":         r.Path,
		"index":        int64(r.Index),
		"value":        r.Value,
		"value_span":   span(int64(r.ValueSpan.Start), int64(r.ValueSpan.End)),
		"context":      nil,
		"context_span": nil,
		"frames":       frames,
	}
	if r.Context != nil {
		m["context"] = *r.Context
	}
	if r.ContextSpan != nil {
		m["context_span"] = span(int64(r.ContextSpan.Start), int64(r.ContextSpan.End))
	}
	return m
}

func span(start, end int64) map[string]any {
	return map[string]any{"start": start, "end": end}
}

// TextLine renders one record the way the select command prints it:
//
//	context: lib.maintainers - value: a
func TextLine(r selector.Record) string {
	ctx := "none"
	if r.Context != nil {
		ctx = *r.Context
	}
	return fmt.Sprintf("context: %s - value: %s", ctx, r.Value)
}

// Writer streams records in one format. JSON output is buffered until
// Flush because it is a single array; the other formats write through.
type Writer struct {
	w       io.Writer
	format  Format
	filter  jp.Expr
	pending []any
}

// NewWriter returns a writer. A non-empty jsonpath is applied to the
// array of all records and forces buffering; its results print as one
// JSON array for json, and one per line otherwise.
func NewWriter(w io.Writer, format Format, jsonpath string) (*Writer, error) {
	rw := &Writer{w: w, format: format}
	if jsonpath != "" {
		x, err := jp.ParseString(jsonpath)
		if err != nil {
			return nil, fmt.Errorf("invalid jsonpath '%s': %w", jsonpath, err)
		}
		rw.filter = x
	}
	return rw, nil
}

// Write emits or buffers r.
func (rw *Writer) Write(r selector.Record) error {
	if rw.filter != nil || rw.format == JSON {
		rw.pending = append(rw.pending, Generic(r))
		return nil
	}
	var line string
	switch rw.format {
	case Lines:
		line = oj.JSON(Generic(r), &ojg.Options{Sort: true})
	default:
		line = TextLine(r)
	}
	_, err := fmt.Fprintln(rw.w, line)
	return err
}

// Flush writes buffered output. It is a no-op for streaming formats.
func (rw *Writer) Flush() error {
	if rw.filter == nil && rw.format != JSON {
		return nil
	}
	data := rw.pending
	if data == nil {
		data = []any{}
	}
	rw.pending = nil

	if rw.filter == nil {
		_, err := fmt.Fprintln(rw.w, oj.JSON(data, &ojg.Options{Sort: true, Indent: 2}))
		return err
	}
	results := rw.filter.Get(data)
	if results == nil {
		results = []any{}
	}
	if rw.format == JSON {
		_, err := fmt.Fprintln(rw.w, oj.JSON(results, &ojg.Options{Sort: true, Indent: 2}))
		return err
	}
	for _, v := range results {
		out, ok := v.(string)
		if !ok || rw.format == Lines {
			out = oj.JSON(v, &ojg.Options{Sort: true})
		}
		if _, err := fmt.Fprintln(rw.w, out); err != nil {
			return err
		}
	}
	return nil
}
