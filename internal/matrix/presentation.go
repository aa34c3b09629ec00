package matrix

import (
	"fmt"
	"sort"
	"strings"
)

const (
	instagramProfileBaseURL = "https://www.instagram.com/"
	accountHandlePrefix     = "@"
	displayHandleFormat     = "%s (%s%s)"
	unknownLabelText        = "Unknown"
)

// IdentityLabel returns a display label constructed from the record's full name and handle.
// The label includes both when available and falls back to the handle, the account ID or a placeholder.
func IdentityLabel(record AccountRecord) string {
	trimmedFullName := strings.TrimSpace(record.FullName)
	trimmedUserName := strings.TrimSpace(record.UserName)
	switch {
	case trimmedFullName != "" && trimmedUserName != "":
		return fmt.Sprintf(displayHandleFormat, trimmedFullName, accountHandlePrefix, trimmedUserName)
	case trimmedFullName != "":
		return trimmedFullName
	case trimmedUserName != "":
		return accountHandlePrefix + trimmedUserName
	case strings.TrimSpace(record.AccountID) != "":
		return strings.TrimSpace(record.AccountID)
	default:
		return unknownLabelText
	}
}

// ProfileLink prefers the exported profile URL and otherwise derives one from the handle.
func ProfileLink(record AccountRecord) string {
	if trimmedURL := strings.TrimSpace(record.ProfileURL); trimmedURL != "" {
		return trimmedURL
	}
	trimmedUserName := strings.TrimSpace(record.UserName)
	if trimmedUserName == "" {
		return ""
	}
	return instagramProfileBaseURL + trimmedUserName
}

// SortedForDisplay returns a copy of records ordered case-insensitively by their display key.
// Engine results keep export order; only presentation code should call this.
func SortedForDisplay(records []AccountRecord) []AccountRecord {
	sortedRecords := make([]AccountRecord, len(records))
	copy(sortedRecords, records)
	sort.SliceStable(sortedRecords, func(firstIndex, secondIndex int) bool {
		firstKey := strings.ToLower(recordSortKey(sortedRecords[firstIndex]))
		secondKey := strings.ToLower(recordSortKey(sortedRecords[secondIndex]))
		return firstKey < secondKey
	})
	return sortedRecords
}

func recordSortKey(record AccountRecord) string {
	if record.FullName != "" {
		return record.FullName
	}
	if record.UserName != "" {
		return record.UserName
	}
	return record.AccountID
}
