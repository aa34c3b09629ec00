package exportname

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	structuredNamePattern = `(?i)^IGFollow_(.+?)_(\d+)_(followers|following)\.csv$`
	keywordFollowing      = "following"
	keywordFollower       = "follower"

	// FileTypeFollowers marks an export listing the accounts that follow the owner.
	FileTypeFollowers = "followers"
	// FileTypeFollowing marks an export listing the accounts the owner follows.
	FileTypeFollowing = "following"
)

var structuredNameRegex = regexp.MustCompile(structuredNamePattern)

// Metadata holds the hints derived from an export file name.
type Metadata struct {
	IGUserName string `json:"ig_username,omitempty" yaml:"ig_username,omitempty"`
	Count      *int   `json:"count,omitempty" yaml:"count,omitempty"`
	FileType   string `json:"file_type" yaml:"file_type"`
}

// HasUserName reports whether the file name carried an export owner handle.
func (metadata Metadata) HasUserName() bool {
	return metadata.IGUserName != ""
}

// ExportNameParser extracts owner, count and type hints from an export file name.
type ExportNameParser struct {
	fileName string
}

// NewExportNameParser constructs a parser for the provided file name.
func NewExportNameParser(fileName string) ExportNameParser {
	return ExportNameParser{fileName: fileName}
}

// Parse is shorthand for NewExportNameParser(fileName).ExtractMetadata().
func Parse(fileName string) Metadata {
	return NewExportNameParser(fileName).ExtractMetadata()
}

// ExtractMetadata never fails: unrecognized names fall back to a followers export with no owner or count.
func (parser ExportNameParser) ExtractMetadata() Metadata {
	metadata := Metadata{FileType: parser.DetectFileType()}

	match := structuredNameRegex.FindStringSubmatch(parser.fileName)
	if len(match) != 4 {
		return metadata
	}
	metadata.IGUserName = match[1]
	if count, err := strconv.Atoi(match[2]); err == nil {
		metadata.Count = &count
	}
	metadata.FileType = strings.ToLower(match[3])
	return metadata
}

// DetectFileType classifies the export by keyword, preferring "following" over "follower".
func (parser ExportNameParser) DetectFileType() string {
	lowerName := strings.ToLower(parser.fileName)
	switch {
	case strings.Contains(lowerName, keywordFollowing):
		return FileTypeFollowing
	case strings.Contains(lowerName, keywordFollower):
		return FileTypeFollowers
	default:
		return FileTypeFollowers
	}
}
