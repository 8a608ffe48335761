package parsers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"golang-transfer-reconciler/pkg/errors"
)

// Format identifies the encoding of a batch document
type Format string

const (
	FormatAuto Format = "auto"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat maps a user-supplied format name onto a Format
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported input format: %s", s)
	}
}

// batchDocument is the object form of an input document: {"batches": [...]}
type batchDocument struct {
	Batches []RawBatch `json:"batches" yaml:"batches"`
}

// LoadBatches reads a batch document from disk
func LoadBatches(path string, format Format) ([]RawBatch, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeFileNotFound, path, err)
		}
		if os.IsPermission(err) {
			return nil, errors.FileError(errors.CodeFilePermission, path, err)
		}
		return nil, errors.FileError(errors.CodeDirectoryError, path, err)
	}
	defer file.Close()

	if format == FormatAuto {
		format = formatFromPath(path)
	}

	batches, err := DecodeBatches(file, format)
	if err != nil {
		if re, ok := errors.AsReconcilerError(err); ok {
			return nil, re.WithContext("file_path", path)
		}
		return nil, err
	}
	return batches, nil
}

// DecodeBatches decodes either a top-level list of batches or an object with a
// "batches" key. FormatAuto sniffs JSON by its first character.
func DecodeBatches(r io.Reader, format Format) ([]RawBatch, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.ParseError(errors.CodeInvalidFormat, "input", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []RawBatch{}, nil
	}

	if format == FormatAuto {
		format = FormatYAML
		if trimmed[0] == '[' || trimmed[0] == '{' {
			format = FormatJSON
		}
	}

	switch format {
	case FormatJSON:
		return decodeJSON(trimmed)
	case FormatYAML:
		return decodeYAML(trimmed)
	default:
		return nil, errors.ParseError(errors.CodeInvalidFormat, string(format), fmt.Errorf("unsupported format"))
	}
}

func decodeJSON(data []byte) ([]RawBatch, error) {
	if data[0] == '{' {
		var doc batchDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, errors.ParseError(errors.CodeInvalidFormat, "json input", err)
		}
		return nonNil(doc.Batches), nil
	}

	var batches []RawBatch
	if err := json.Unmarshal(data, &batches); err != nil {
		return nil, errors.ParseError(errors.CodeInvalidFormat, "json input", err)
	}
	return nonNil(batches), nil
}

func decodeYAML(data []byte) ([]RawBatch, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, errors.ParseError(errors.CodeInvalidFormat, "yaml input", err)
	}
	if len(root.Content) == 0 {
		return []RawBatch{}, nil
	}

	node := root.Content[0]
	switch node.Kind {
	case yaml.SequenceNode:
		var batches []RawBatch
		if err := node.Decode(&batches); err != nil {
			return nil, errors.ParseError(errors.CodeInvalidData, "yaml input", err)
		}
		return nonNil(batches), nil
	case yaml.MappingNode:
		var doc batchDocument
		if err := node.Decode(&doc); err != nil {
			return nil, errors.ParseError(errors.CodeInvalidData, "yaml input", err)
		}
		return nonNil(doc.Batches), nil
	default:
		return nil, errors.ParseError(errors.CodeInvalidFormat, "yaml input",
			fmt.Errorf("expected a list of batches or a mapping with a batches key"))
	}
}

func formatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	default:
		return FormatAuto
	}
}

func nonNil(batches []RawBatch) []RawBatch {
	if batches == nil {
		return []RawBatch{}
	}
	return batches
}
