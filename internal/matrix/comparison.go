package matrix

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// BuildComparison classifies the followers export and, when the optional exports are present,
// reconciles it against the following export and the previous followers snapshot.
func BuildComparison(input ComparisonInput) ComparisonResult {
	comparisonResult := ComparisonResult{
		Followers: input.Followers,
		Following: input.Following,
		Buckets:   ClassifyRelationships(input.Followers.Records),
	}

	if input.Following != nil {
		reconciliation := Reconcile(input.Followers.Records, input.Following.Records)
		comparisonResult.Reconciliation = &reconciliation
	}
	if input.PreviousFollowers != nil {
		change := CompareSnapshots(input.PreviousFollowers.Records, input.Followers.Records)
		comparisonResult.Change = &change
	}
	return comparisonResult
}

// ClassifyRelationships buckets a followers export by its followed_by_you flag.
// Records with an empty flag land in neither subset.
func ClassifyRelationships(records []AccountRecord) RelationshipBuckets {
	followedBack := filterByFollowFlag(records, FlagYes)
	notFollowedBack := filterByFollowFlag(records, FlagNo)
	return RelationshipBuckets{
		Followers:         records,
		YouFollowBack:     followedBack,
		YouDontFollowBack: notFollowedBack,
		Mutual:            followedBack,
		Fans:              notFollowedBack,
	}
}

// FindNonFollowers returns the accounts in following whose username does not appear in followers.
func FindNonFollowers(followers []AccountRecord, following []AccountRecord) []AccountRecord {
	return excludeMatchingUserNames(following, followers)
}

// FindFansBySet returns the accounts in followers whose username does not appear in following.
// This differs from RelationshipBuckets.Fans, which trusts the followed_by_you column instead.
func FindFansBySet(followers []AccountRecord, following []AccountRecord) []AccountRecord {
	return excludeMatchingUserNames(followers, following)
}

// Reconcile computes both set differences between a followers and a following export.
func Reconcile(followers []AccountRecord, following []AccountRecord) ReconciliationResult {
	return ReconciliationResult{
		NonFollowers: FindNonFollowers(followers, following),
		FansBySet:    FindFansBySet(followers, following),
	}
}

// CompareSnapshots reports the followers gained and lost between two snapshots of the same list.
func CompareSnapshots(previous []AccountRecord, current []AccountRecord) SnapshotChange {
	gained := excludeMatchingUserNames(current, previous)
	lost := excludeMatchingUserNames(previous, current)
	return SnapshotChange{
		Gained:      gained,
		Lost:        lost,
		GainedCount: len(gained),
		LostCount:   len(lost),
		NetChange:   len(gained) - len(lost),
	}
}

func filterByFollowFlag(records []AccountRecord, flag string) []AccountRecord {
	filtered := make([]AccountRecord, 0, len(records))
	for _, record := range records {
		if record.FollowedByYou == flag {
			filtered = append(filtered, record)
		}
	}
	return filtered
}

// excludeMatchingUserNames keeps the candidates whose lowercased username is absent from reference.
// Usernames are not trimmed. An empty username never matches anything, so such candidates are always kept.
func excludeMatchingUserNames(candidates []AccountRecord, reference []AccountRecord) []AccountRecord {
	lowerCaser := cases.Lower(language.Und)
	referenceKeys := userNameKeys(lowerCaser, reference)

	remaining := make([]AccountRecord, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.UserName != "" {
			if _, matched := referenceKeys[lowerCaser.String(candidate.UserName)]; matched {
				continue
			}
		}
		remaining = append(remaining, candidate)
	}
	return remaining
}

func userNameKeys(lowerCaser cases.Caser, records []AccountRecord) map[string]struct{} {
	keys := make(map[string]struct{}, len(records))
	for _, record := range records {
		if record.UserName == "" {
			continue
		}
		keys[lowerCaser.String(record.UserName)] = struct{}{}
	}
	return keys
}
