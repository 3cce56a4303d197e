// Copyright (c) 2025, the apigate authors.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package serializer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

const defaultValueKey = "value"

// Writer handles serialization of data to various formats.
// Close must be called to release file handles when using NewFileWriterOrStdout.
type Writer struct {
	format Format
	output io.Writer
	closer io.Closer
}

// NewWriter creates a new Writer with the specified format and output destination.
// If output is nil, os.Stdout will be used.
// If format is unknown, defaults to YAML format.
func NewWriter(format Format, output io.Writer) *Writer {
	if output == nil {
		output = os.Stdout
	}
	if format.IsUnknown() {
		slog.Warn("unknown format, defaulting to YAML", "format", format)
		format = FormatYAML
	}
	return &Writer{
		format: format,
		output: output,
	}
}

// NewFileWriterOrStdout creates a Writer that outputs to the specified file
// path in the given format. If the file cannot be created or path is empty,
// it falls back to stdout. Remember to call Close() on the returned Writer.
func NewFileWriterOrStdout(format Format, path string) *Writer {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return NewWriter(format, os.Stdout)
	}

	file, err := os.Create(trimmed)
	if err != nil {
		slog.Error("failed to create output file, falling back to stdout",
			"error", err, "path", trimmed)
		return NewWriter(format, os.Stdout)
	}

	w := NewWriter(format, file)
	w.closer = file
	return w
}

// Serialize writes v to the configured output in the configured format.
func (w *Writer) Serialize(ctx context.Context, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch w.format {
	case FormatJSON:
		enc := json.NewEncoder(w.output)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to serialize to json: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w.output)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to serialize to yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to flush yaml encoder: %w", err)
		}
	case FormatTable:
		if err := w.serializeTable(v); err != nil {
			return fmt.Errorf("failed to serialize to table: %w", err)
		}
	default:
		return fmt.Errorf("unsupported format: %s", w.format)
	}

	return nil
}

// Close releases the underlying file handle if any. Safe to call on
// stdout-backed writers.
func (w *Writer) Close() error {
	if w.closer == nil {
		return nil
	}
	return w.closer.Close()
}

// serializeTable renders v as a two-column key/value table with flattened,
// dot-joined keys. Structures are round-tripped through YAML so the same
// field names appear as in the YAML output.
func (w *Writer) serializeTable(v any) error {
	raw, err := yaml.Marshal(v)
	if err != nil {
		return err
	}

	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return err
	}

	flat := map[string]string{}
	flatten("", generic, flat)

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	titler := cases.Title(language.English)
	tw := tabwriter.NewWriter(w.output, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\n", titler.String("key"), titler.String(defaultValueKey))
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%s\n", k, flat[k])
	}
	return tw.Flush()
}

// flatten walks nested maps and slices producing dot-joined scalar leaves.
func flatten(prefix string, v any, out map[string]string) {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			flatten(joinKey(prefix, k), item, out)
		}
	case []any:
		for i, item := range val {
			flatten(fmt.Sprintf("%s[%d]", prefix, i), item, out)
		}
	case nil:
		out[keyOrDefault(prefix)] = ""
	default:
		out[keyOrDefault(prefix)] = fmt.Sprintf("%v", val)
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func keyOrDefault(key string) string {
	if key == "" {
		return defaultValueKey
	}
	return key
}
