package matrix

import "github.com/f-sync/igfollow/internal/exportname"

const (
	// FlagYes is the normalized affirmative value of a relationship flag.
	FlagYes = "YES"
	// FlagNo is the normalized negative value of a relationship flag.
	FlagNo = "NO"
)

// AccountRecord represents a single exported account entry in canonical form.
// Every field is always a defined string; values missing from the export are empty.
type AccountRecord struct {
	AccountID     string `json:"user_id" yaml:"user_id"`
	UserName      string `json:"username" yaml:"username"`
	FullName      string `json:"fullname" yaml:"fullname"`
	FollowedByYou string `json:"followed_by_you" yaml:"followed_by_you"`
	IsVerified    string `json:"is_verified" yaml:"is_verified"`
	ProfileURL    string `json:"profile_url" yaml:"profile_url"`
}

// BatchMetadata summarizes one parsed export.
type BatchMetadata struct {
	Total            int    `json:"total" yaml:"total"`
	FollowingBack    int    `json:"following_back" yaml:"following_back"`
	NotFollowingBack int    `json:"not_following_back" yaml:"not_following_back"`
	Verified         int    `json:"verified" yaml:"verified"`
	IGUserName       string `json:"ig_username,omitempty" yaml:"ig_username,omitempty"`
	DetectedType     string `json:"detected_type,omitempty" yaml:"detected_type,omitempty"`
}

// ParsedExport is the outcome of parsing one tabular export.
type ParsedExport struct {
	FileName         string               `json:"file_name,omitempty" yaml:"file_name,omitempty"`
	FilenameMetadata *exportname.Metadata `json:"filename_metadata,omitempty" yaml:"filename_metadata,omitempty"`
	Records          []AccountRecord      `json:"records" yaml:"records"`
	Metadata         BatchMetadata        `json:"metadata" yaml:"metadata"`
}

// RelationshipBuckets partitions a followers export by the followed_by_you flag.
// YouFollowBack and Mutual share one slice, as do YouDontFollowBack and Fans.
// Fans here is flag based; see FindFansBySet for the cross-export definition.
type RelationshipBuckets struct {
	Followers         []AccountRecord `json:"followers" yaml:"followers"`
	YouFollowBack     []AccountRecord `json:"you_follow_back" yaml:"you_follow_back"`
	YouDontFollowBack []AccountRecord `json:"you_dont_follow_back" yaml:"you_dont_follow_back"`
	Mutual            []AccountRecord `json:"mutual" yaml:"mutual"`
	Fans              []AccountRecord `json:"fans" yaml:"fans"`
}

// ReconciliationResult holds the asymmetric differences between a followers and a following export.
type ReconciliationResult struct {
	NonFollowers []AccountRecord `json:"non_followers" yaml:"non_followers"`
	FansBySet    []AccountRecord `json:"fans_by_set" yaml:"fans_by_set"`
}

// SnapshotChange describes how a followers list moved between two snapshots.
type SnapshotChange struct {
	Gained      []AccountRecord `json:"gained" yaml:"gained"`
	Lost        []AccountRecord `json:"lost" yaml:"lost"`
	GainedCount int             `json:"gained_count" yaml:"gained_count"`
	LostCount   int             `json:"lost_count" yaml:"lost_count"`
	NetChange   int             `json:"net_change" yaml:"net_change"`
}

// ComparisonInput gathers the exports available for one account.
// Following and PreviousFollowers are optional.
type ComparisonInput struct {
	Followers         ParsedExport
	Following         *ParsedExport
	PreviousFollowers *ParsedExport
}

// ComparisonResult holds all derived data required to report on one account.
type ComparisonResult struct {
	Followers      ParsedExport          `json:"followers" yaml:"followers"`
	Following      *ParsedExport         `json:"following,omitempty" yaml:"following,omitempty"`
	Buckets        RelationshipBuckets   `json:"buckets" yaml:"buckets"`
	Reconciliation *ReconciliationResult `json:"reconciliation,omitempty" yaml:"reconciliation,omitempty"`
	Change         *SnapshotChange       `json:"change,omitempty" yaml:"change,omitempty"`
}

// OwnerUserName returns the first export owner handle found in the exports' file names.
func (comparison ComparisonResult) OwnerUserName() string {
	if comparison.Followers.Metadata.IGUserName != "" {
		return comparison.Followers.Metadata.IGUserName
	}
	if comparison.Following != nil {
		return comparison.Following.Metadata.IGUserName
	}
	return ""
}
