// Package document reads application documents from JSON or YAML and hands
// them to the resolver as untyped values.
package document

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/omnera-dev/omnera/model"
)

// Format is the syntax of a document source.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrNotObject is returned when the top level of a document is not a mapping.
var ErrNotObject = errors.New("document: top level must be an object")

// Document is a parsed application document.
type Document struct {
	Raw      model.RawDocument
	Checksum string
	Format   Format
	Source   string
}

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("document: unsupported file extension %q", filepath.Ext(path))
}

// FormatFromContentType maps a request Content-Type to a format. Anything
// that is not YAML is read as JSON.
func FormatFromContentType(contentType string) Format {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return FormatJSON
	}
	switch mt {
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return FormatYAML
	}
	return FormatJSON
}

// Checksum returns the hex sha256 of data.
func Checksum(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

// Loader reads documents from disk or memory.
type Loader struct{}

func NewLoader() *Loader {
	return &Loader{}
}

// LoadFile reads and parses a .json, .yaml or .yml file and records its
// checksum and path.
func (l *Loader) LoadFile(path string) (*Document, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	doc, err := l.Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	doc.Source = path
	return doc, nil
}

// Parse decodes data in the given format. An empty or null document is an
// empty object so that the resolver reports what is missing.
func (l *Loader) Parse(data []byte, format Format) (*Document, error) {
	var (
		v   any
		err error
	)
	switch format {
	case FormatJSON:
		v, err = decodeJSON(data)
	case FormatYAML:
		v, err = decodeYAML(data)
	default:
		return nil, fmt.Errorf("document: unsupported format %q", format)
	}
	if err != nil {
		return nil, err
	}

	var raw model.RawDocument
	switch obj := v.(type) {
	case nil:
		raw = model.RawDocument{}
	case map[string]any:
		raw = obj
	default:
		return nil, ErrNotObject
	}
	return &Document{Raw: raw, Checksum: Checksum(data), Format: format}, nil
}

// decodeJSON keeps numbers as json.Number so large integers and decimals
// reach the validators unrounded.
func decodeJSON(data []byte) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("document: invalid JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("document: invalid JSON: trailing data after the top-level value")
	}
	return v, nil
}

func decodeYAML(data []byte) (any, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("document: invalid YAML: %w", err)
	}
	return normalize(v)
}

// normalize converts YAML values to the shapes encoding/json produces:
// mappings get string keys and timestamps become RFC 3339 strings.
func normalize(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			n, err := normalize(item)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			key, ok := k.(string)
			if !ok {
				key = fmt.Sprint(k)
			}
			if _, dup := out[key]; dup {
				return nil, fmt.Errorf("document: invalid YAML: key %q appears twice after conversion to a string", key)
			}
			n, err := normalize(item)
			if err != nil {
				return nil, err
			}
			out[key] = n
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			n, err := normalize(item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case time.Time:
		return t.Format(time.RFC3339), nil
	}
	return v, nil
}
