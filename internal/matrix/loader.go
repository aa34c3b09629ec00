package matrix

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/language"

	"github.com/f-sync/igfollow/internal/exportname"
)

const (
	parseStageDecode         = "decode"
	parseStageTable          = "table"
	byteOrderMark            = "\ufeff"
	errMessageEmptyExport    = "export contains no header row"
	errMessageInvalidUTF8    = "export is not valid UTF-8"
	errMessageRowShape       = "row has more fields than the header"
	parseErrorFormat         = "parse export (%s): %v"
	parseErrorWithLineFormat = "parse export (%s, line %d): %v"
)

var (
	// ErrEmptyExport indicates the content had no header row at all.
	ErrEmptyExport = errors.New(errMessageEmptyExport)
	// ErrInvalidEncoding indicates byte content that is not UTF-8.
	ErrInvalidEncoding = errors.New(errMessageInvalidUTF8)
	// ErrRowShape indicates a data row wider than the header row.
	ErrRowShape = errors.New(errMessageRowShape)
)

// ParseError reports export content that cannot be decoded or read as delimited rows.
type ParseError struct {
	Stage string
	Line  int
	Err   error
}

func (parseError *ParseError) Error() string {
	if parseError.Line > 0 {
		return fmt.Sprintf(parseErrorWithLineFormat, parseError.Stage, parseError.Line, parseError.Err)
	}
	return fmt.Sprintf(parseErrorFormat, parseError.Stage, parseError.Err)
}

func (parseError *ParseError) Unwrap() error {
	return parseError.Err
}

// IsParseError reports whether err is, or wraps, a *ParseError.
func IsParseError(err error) bool {
	var parseError *ParseError
	return errors.As(err, &parseError)
}

// ExportTable is a header row plus data rows, each row padded to the header width.
type ExportTable struct {
	Headers []string
	Rows    [][]string
	Columns ColumnIndex
}

// ParseExportBytes decodes raw export bytes, dropping a leading byte order mark, and parses them.
func ParseExportBytes(content []byte, fileName string) (ParsedExport, error) {
	text, err := decodeExportBytes(content)
	if err != nil {
		return ParsedExport{}, err
	}
	return parseExport(text, fileName)
}

// ParseExportText parses already decoded export text.
func ParseExportText(content string, fileName string) (ParsedExport, error) {
	return parseExport(strings.TrimPrefix(content, byteOrderMark), fileName)
}

func parseExport(text string, fileName string) (ParsedExport, error) {
	table, err := ReadExportTable(strings.NewReader(text))
	if err != nil {
		return ParsedExport{}, err
	}
	records := BuildRecords(table)

	parsed := ParsedExport{
		FileName: fileName,
		Records:  records,
		Metadata: summarizeCounts(records),
	}
	if fileName != "" {
		filenameMetadata := exportname.Parse(fileName)
		parsed.FilenameMetadata = &filenameMetadata
		parsed.Metadata = mergeFilenameMetadata(parsed.Metadata, filenameMetadata)
	}
	return parsed, nil
}

func decodeExportBytes(content []byte) (string, error) {
	if !utf8.Valid(content) {
		return "", &ParseError{Stage: parseStageDecode, Err: ErrInvalidEncoding}
	}
	decoded, err := unicode.UTF8BOM.NewDecoder().Bytes(content)
	if err != nil {
		return "", &ParseError{Stage: parseStageDecode, Err: err}
	}
	return string(decoded), nil
}

// ReadExportTable reads comma-separated rows with a header row.
// Short rows are padded with empty cells; wider rows and malformed quoting fail with a *ParseError.
func ReadExportTable(source io.Reader) (ExportTable, error) {
	reader := csv.NewReader(source)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ExportTable{}, &ParseError{Stage: parseStageTable, Err: ErrEmptyExport}
		}
		return ExportTable{}, &ParseError{Stage: parseStageTable, Err: err}
	}

	table := ExportTable{Headers: headers, Columns: ResolveColumns(headers)}
	for {
		row, readErr := reader.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return ExportTable{}, &ParseError{Stage: parseStageTable, Err: readErr}
		}
		if len(row) > len(headers) {
			line, _ := reader.FieldPos(0)
			return ExportTable{}, &ParseError{Stage: parseStageTable, Line: line, Err: ErrRowShape}
		}
		table.Rows = append(table.Rows, padRow(row, len(headers)))
	}
	return table, nil
}

func padRow(row []string, width int) []string {
	if len(row) == width {
		return row
	}
	padded := make([]string, width)
	copy(padded, row)
	return padded
}

// BuildRecords converts table rows into canonical records in row order.
func BuildRecords(table ExportTable) []AccountRecord {
	upperCaser := cases.Upper(language.Und)
	records := make([]AccountRecord, 0, len(table.Rows))
	for _, row := range table.Rows {
		records = append(records, AccountRecord{
			AccountID:     cellValue(row, table.Columns, ColumnUserID),
			UserName:      cellValue(row, table.Columns, ColumnUserName),
			FullName:      cellValue(row, table.Columns, ColumnFullName),
			FollowedByYou: upperCaser.String(cellValue(row, table.Columns, ColumnFollowedByYou)),
			IsVerified:    upperCaser.String(cellValue(row, table.Columns, ColumnIsVerified)),
			ProfileURL:    cellValue(row, table.Columns, ColumnProfileURL),
		})
	}
	return records
}

func cellValue(row []string, columns ColumnIndex, canonical string) string {
	position := columns.Position(canonical)
	if position < 0 || position >= len(row) {
		return ""
	}
	return row[position]
}

// WriteCanonicalCSV writes records with canonical headers, in a shape ReadExportTable accepts.
func WriteCanonicalCSV(destination io.Writer, records []AccountRecord) error {
	writer := csv.NewWriter(destination)
	if err := writer.Write(canonicalRecordColumns); err != nil {
		return err
	}
	for _, record := range records {
		row := []string{
			record.AccountID,
			record.UserName,
			record.FullName,
			record.FollowedByYou,
			record.IsVerified,
			record.ProfileURL,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
