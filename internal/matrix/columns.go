package matrix

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Canonical column names of a normalized export.
const (
	ColumnUserID        = "user_id"
	ColumnUserName      = "username"
	ColumnFullName      = "fullname"
	ColumnFollowedByYou = "followed_by_you"
	ColumnIsVerified    = "is_verified"
	ColumnProfileURL    = "profile_url"
	ColumnAvatarURL     = "avatar_url"

	headerSpace      = " "
	headerSeparator  = "_"
	columnNotPresent = -1
)

type columnSpelling struct {
	canonical string
	spellings []string
}

// canonicalColumnSpellings lists accepted header spellings in priority order, per canonical column.
var canonicalColumnSpellings = []columnSpelling{
	{canonical: ColumnUserID, spellings: []string{"user_id", "userid", "id"}},
	{canonical: ColumnUserName, spellings: []string{"username", "user_name", "handle"}},
	{canonical: ColumnFullName, spellings: []string{"fullname", "full_name", "name", "display_name"}},
	{canonical: ColumnFollowedByYou, spellings: []string{"followed_by_you", "following", "you_follow"}},
	{canonical: ColumnIsVerified, spellings: []string{"is_verified", "verified"}},
	{canonical: ColumnProfileURL, spellings: []string{"profile_url", "url", "profile"}},
	{canonical: ColumnAvatarURL, spellings: []string{"avatar_url", "avatar", "picture"}},
}

// canonicalRecordColumns is the column order used when writing records back out.
var canonicalRecordColumns = []string{
	ColumnUserID,
	ColumnUserName,
	ColumnFullName,
	ColumnFollowedByYou,
	ColumnIsVerified,
	ColumnProfileURL,
}

// AcceptedSpellings returns the accepted header spellings for a canonical column, in priority order.
func AcceptedSpellings(canonical string) []string {
	for _, spelling := range canonicalColumnSpellings {
		if spelling.canonical == canonical {
			return append([]string{}, spelling.spellings...)
		}
	}
	return nil
}

// CanonicalColumns returns every canonical column name the normalizer recognizes.
func CanonicalColumns() []string {
	columns := make([]string, 0, len(canonicalColumnSpellings))
	for _, spelling := range canonicalColumnSpellings {
		columns = append(columns, spelling.canonical)
	}
	return columns
}

// NormalizeHeader trims, lowercases and underscores a raw header cell.
func NormalizeHeader(header string) string {
	return normalizeHeader(cases.Lower(language.Und), header)
}

func normalizeHeader(lowerCaser cases.Caser, header string) string {
	lowered := lowerCaser.String(strings.TrimSpace(header))
	return strings.ReplaceAll(lowered, headerSpace, headerSeparator)
}

// ColumnIndex maps canonical column names to positions in an export row.
type ColumnIndex map[string]int

// Position returns the row position of a canonical column, or -1 when the export lacks it.
func (index ColumnIndex) Position(canonical string) int {
	if position, exists := index[canonical]; exists {
		return position
	}
	return columnNotPresent
}

// Has reports whether the export provides the canonical column.
func (index ColumnIndex) Has(canonical string) bool {
	return index.Position(canonical) != columnNotPresent
}

// ResolveColumns assigns each canonical column to the first matching header.
// Spelling priority decides between different headers; the leftmost column wins among identical ones.
// Columns that lose either contest are ignored.
func ResolveColumns(headers []string) ColumnIndex {
	lowerCaser := cases.Lower(language.Und)
	firstPositionByName := make(map[string]int, len(headers))
	for position, header := range headers {
		normalized := normalizeHeader(lowerCaser, header)
		if _, seen := firstPositionByName[normalized]; seen {
			continue
		}
		firstPositionByName[normalized] = position
	}

	index := make(ColumnIndex, len(canonicalColumnSpellings))
	for _, spelling := range canonicalColumnSpellings {
		for _, candidate := range spelling.spellings {
			if position, exists := firstPositionByName[candidate]; exists {
				index[spelling.canonical] = position
				break
			}
		}
	}
	return index
}
