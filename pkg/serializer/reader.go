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
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FormatFromPath determines the serialization format based on file extension.
// Supported extensions:
//   - .json → FormatJSON
//   - .yaml, .yml → FormatYAML
//
// Returns FormatYAML as default for unknown extensions.
// Extension matching is case-insensitive.
func FormatFromPath(filePath string) Format {
	lowerPath := strings.ToLower(filePath)
	switch {
	case strings.HasSuffix(lowerPath, ".json"):
		return FormatJSON
	case strings.HasSuffix(lowerPath, ".yaml"), strings.HasSuffix(lowerPath, ".yml"):
		return FormatYAML
	default:
		return FormatYAML
	}
}

// Decode deserializes data from r into a value of type T.
// Table format is write-only and is rejected.
func Decode[T any](format Format, r io.Reader) (*T, error) {
	var out T

	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&out); err != nil {
			return nil, fmt.Errorf("failed to decode json: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&out); err != nil {
			return nil, fmt.Errorf("failed to decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported input format: %s", format)
	}

	return &out, nil
}

// FromFile reads and deserializes a value of type T from the given path,
// inferring the format from the file extension.
func FromFile[T any](path string) (*T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return Decode[T](FormatFromPath(path), f)
}
