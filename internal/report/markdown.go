package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/f-sync/igfollow/internal/matrix"
)

const (
	reportTitle                 = "Instagram follower report"
	reportTitleOwnerTemplate    = "Instagram follower report for @%s"
	summaryHeading              = "Summary"
	youDontFollowBackHeading    = "Followers you don't follow back"
	nonFollowersHeading         = "Accounts that don't follow you back"
	fansBySetHeading            = "Followers missing from your following export"
	changeHeading               = "Change since the previous snapshot"
	gainedHeading               = "Gained"
	lostHeading                 = "Lost"
	propertyColumnHeader        = "Property"
	valueColumnHeader           = "Value"
	accountColumnHeader         = "Account"
	profileColumnHeader         = "Profile"
	verifiedColumnHeader        = "Verified"
	emptySectionText            = "None."
	everyoneFollowsBackText     = "Everyone you follow follows you back."
	missingFollowingExportText  = "Provide a following export to list accounts that don't follow you back."
	filenameCountMismatchFormat = "The file name %s reports %d accounts but the export holds %d rows."
	verifiedMarker              = "✓"
	footerText                  = "Usernames are compared case-insensitively; rows without a username never match."
)

// MarkdownWriter renders a comparison as a Markdown document.
type MarkdownWriter struct {
	output         io.Writer
	sortForDisplay bool
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithDisplaySort lists accounts alphabetically instead of in export order.
func WithDisplaySort(enabled bool) MarkdownWriterOption {
	return func(writer *MarkdownWriter) {
		writer.sortForDisplay = enabled
	}
}

// NewMarkdownWriter creates a MarkdownWriter writing to output.
func NewMarkdownWriter(output io.Writer, options ...MarkdownWriterOption) *MarkdownWriter {
	writer := &MarkdownWriter{output: output}
	for _, option := range options {
		option(writer)
	}
	return writer
}

// Write renders the comparison.
func (writer *MarkdownWriter) Write(comparison matrix.ComparisonResult) error {
	md := markdown.NewMarkdown(writer.output)

	writer.writeHeader(md, comparison)
	writer.writeSummary(md, comparison)
	writer.writeFilenameWarnings(md, comparison)
	writer.writeAccountSection(md, youDontFollowBackHeading, comparison.Buckets.YouDontFollowBack)
	writer.writeReconciliation(md, comparison)
	writer.writeChange(md, comparison.Change)

	md.HorizontalRule()
	md.PlainText(footerText)
	return md.Build()
}

func (writer *MarkdownWriter) writeHeader(md *markdown.Markdown, comparison matrix.ComparisonResult) {
	if owner := comparison.OwnerUserName(); owner != "" {
		md.H1(fmt.Sprintf(reportTitleOwnerTemplate, owner))
	} else {
		md.H1(reportTitle)
	}
	md.PlainText("")
}

func (writer *MarkdownWriter) writeSummary(md *markdown.Markdown, comparison matrix.ComparisonResult) {
	followersMetadata := comparison.Followers.Metadata
	rows := [][]string{
		{"Followers", strconv.Itoa(followersMetadata.Total)},
		{"You follow back", strconv.Itoa(followersMetadata.FollowingBack)},
		{"You don't follow back", strconv.Itoa(followersMetadata.NotFollowingBack)},
		{"Without a follow flag", strconv.Itoa(followersMetadata.Unclassified())},
		{"Verified followers", strconv.Itoa(followersMetadata.Verified)},
	}
	if comparison.Following != nil {
		rows = append(rows, []string{"Following", strconv.Itoa(comparison.Following.Metadata.Total)})
	}
	if comparison.Reconciliation != nil {
		rows = append(rows,
			[]string{"Don't follow you back", strconv.Itoa(len(comparison.Reconciliation.NonFollowers))},
			[]string{"Missing from following", strconv.Itoa(len(comparison.Reconciliation.FansBySet))},
		)
	}
	if comparison.Change != nil {
		rows = append(rows,
			[]string{"Gained", strconv.Itoa(comparison.Change.GainedCount)},
			[]string{"Lost", strconv.Itoa(comparison.Change.LostCount)},
			[]string{"Net change", formatSigned(comparison.Change.NetChange)},
		)
	}

	md.H2(summaryHeading)
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{propertyColumnHeader, valueColumnHeader},
		Rows:   rows,
	})
	md.PlainText("")
}

func (writer *MarkdownWriter) writeFilenameWarnings(md *markdown.Markdown, comparison matrix.ComparisonResult) {
	exports := []*matrix.ParsedExport{&comparison.Followers, comparison.Following}
	for _, export := range exports {
		if export == nil || export.FilenameMetadata == nil || export.FilenameMetadata.Count == nil {
			continue
		}
		if *export.FilenameMetadata.Count == export.Metadata.Total {
			continue
		}
		md.Warningf(filenameCountMismatchFormat, export.FileName, *export.FilenameMetadata.Count, export.Metadata.Total)
		md.PlainText("")
	}
}

func (writer *MarkdownWriter) writeReconciliation(md *markdown.Markdown, comparison matrix.ComparisonResult) {
	if comparison.Reconciliation == nil {
		md.Note(missingFollowingExportText)
		md.PlainText("")
		return
	}
	if len(comparison.Reconciliation.NonFollowers) == 0 {
		md.Tip(everyoneFollowsBackText)
		md.PlainText("")
	} else {
		writer.writeAccountSection(md, nonFollowersHeading, comparison.Reconciliation.NonFollowers)
	}
	writer.writeAccountSection(md, fansBySetHeading, comparison.Reconciliation.FansBySet)
}

func (writer *MarkdownWriter) writeChange(md *markdown.Markdown, change *matrix.SnapshotChange) {
	if change == nil {
		return
	}
	md.H2(changeHeading)
	md.PlainText("")
	md.PlainTextf("%s followers gained, %s lost, net %s.",
		strconv.Itoa(change.GainedCount), strconv.Itoa(change.LostCount), formatSigned(change.NetChange))
	md.PlainText("")
	writer.writeAccountSection(md, gainedHeading, change.Gained)
	writer.writeAccountSection(md, lostHeading, change.Lost)
}

func (writer *MarkdownWriter) writeAccountSection(md *markdown.Markdown, heading string, records []matrix.AccountRecord) {
	md.H2(heading)
	md.PlainText("")
	if len(records) == 0 {
		md.PlainText(emptySectionText)
		md.PlainText("")
		return
	}

	displayRecords := records
	if writer.sortForDisplay {
		displayRecords = matrix.SortedForDisplay(records)
	}

	rows := make([][]string, 0, len(displayRecords))
	for _, record := range displayRecords {
		rows = append(rows, []string{
			matrix.IdentityLabel(record),
			matrix.ProfileLink(record),
			verifiedCell(record),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{accountColumnHeader, profileColumnHeader, verifiedColumnHeader},
		Rows:   rows,
	})
	md.PlainText("")
}

func verifiedCell(record matrix.AccountRecord) string {
	if record.IsVerified == matrix.FlagYes {
		return verifiedMarker
	}
	return ""
}

func formatSigned(value int) string {
	if value > 0 {
		return "+" + strconv.Itoa(value)
	}
	return strconv.Itoa(value)
}
