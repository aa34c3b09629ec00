package matrix

import "github.com/f-sync/igfollow/internal/exportname"

// SummarizeRecords counts a batch of records and, when fileName is not empty, merges the file name hints.
// The hints are never checked against the counts.
func SummarizeRecords(records []AccountRecord, fileName string) BatchMetadata {
	metadata := summarizeCounts(records)
	if fileName == "" {
		return metadata
	}
	return mergeFilenameMetadata(metadata, exportname.Parse(fileName))
}

func summarizeCounts(records []AccountRecord) BatchMetadata {
	metadata := BatchMetadata{Total: len(records)}
	for _, record := range records {
		switch record.FollowedByYou {
		case FlagYes:
			metadata.FollowingBack++
		case FlagNo:
			metadata.NotFollowingBack++
		}
		if record.IsVerified == FlagYes {
			metadata.Verified++
		}
	}
	return metadata
}

func mergeFilenameMetadata(metadata BatchMetadata, filenameMetadata exportname.Metadata) BatchMetadata {
	metadata.IGUserName = filenameMetadata.IGUserName
	metadata.DetectedType = filenameMetadata.FileType
	return metadata
}

// Unclassified returns how many records carry neither flag value.
func (metadata BatchMetadata) Unclassified() int {
	return metadata.Total - metadata.FollowingBack - metadata.NotFollowingBack
}
