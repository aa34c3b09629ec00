package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/f-sync/igfollow/internal/matrix"
)

// Report formats understood by NewWriter.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatYAML     = "yaml"

	jsonIndentPrefix = ""
	jsonIndentString = "  "
	yamlIndentSpaces = 2

	errMessageUnsupportedFormat = "unsupported report format"
	errMessageEncodeJSON        = "encode json report"
	errMessageEncodeYAML        = "encode yaml report"
	unsupportedFormatTemplate   = "%w %q (expected one of %s)"
	formatListSeparator         = ", "
)

// ErrUnsupportedFormat is returned for a format name outside Formats.
var ErrUnsupportedFormat = errors.New(errMessageUnsupportedFormat)

// Writer renders a comparison to its configured destination.
type Writer interface {
	Write(comparison matrix.ComparisonResult) error
}

// Formats lists the accepted format names.
func Formats() []string {
	return []string{FormatMarkdown, FormatJSON, FormatYAML}
}

// ParseFormat normalizes a user supplied format name.
func ParseFormat(rawFormat string) (string, error) {
	normalizedFormat := strings.ToLower(strings.TrimSpace(rawFormat))
	for _, knownFormat := range Formats() {
		if normalizedFormat == knownFormat {
			return knownFormat, nil
		}
	}
	return "", fmt.Errorf(unsupportedFormatTemplate, ErrUnsupportedFormat, rawFormat, strings.Join(Formats(), formatListSeparator))
}

// NewWriter constructs the Writer for format. Markdown options are ignored by the other formats.
func NewWriter(output io.Writer, format string, markdownOptions ...MarkdownWriterOption) (Writer, error) {
	resolvedFormat, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	switch resolvedFormat {
	case FormatJSON:
		return NewJSONWriter(output), nil
	case FormatYAML:
		return NewYAMLWriter(output), nil
	default:
		return NewMarkdownWriter(output, markdownOptions...), nil
	}
}

// JSONWriter emits the comparison as indented JSON.
type JSONWriter struct {
	output io.Writer
}

// NewJSONWriter creates a JSONWriter writing to output.
func NewJSONWriter(output io.Writer) *JSONWriter {
	return &JSONWriter{output: output}
}

// Write encodes the comparison.
func (writer *JSONWriter) Write(comparison matrix.ComparisonResult) error {
	encoder := json.NewEncoder(writer.output)
	encoder.SetIndent(jsonIndentPrefix, jsonIndentString)
	if err := encoder.Encode(comparison); err != nil {
		return fmt.Errorf("%s: %w", errMessageEncodeJSON, err)
	}
	return nil
}

// YAMLWriter emits the comparison as a YAML document.
type YAMLWriter struct {
	output io.Writer
}

// NewYAMLWriter creates a YAMLWriter writing to output.
func NewYAMLWriter(output io.Writer) *YAMLWriter {
	return &YAMLWriter{output: output}
}

// Write encodes the comparison.
func (writer *YAMLWriter) Write(comparison matrix.ComparisonResult) error {
	encoder := yaml.NewEncoder(writer.output)
	encoder.SetIndent(yamlIndentSpaces)
	if err := encoder.Encode(comparison); err != nil {
		return fmt.Errorf("%s: %w", errMessageEncodeYAML, err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("%s: %w", errMessageEncodeYAML, err)
	}
	return nil
}
