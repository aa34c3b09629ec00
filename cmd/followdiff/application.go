package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/f-sync/igfollow/internal/matrix"
	"github.com/f-sync/igfollow/internal/report"
)

// FollowdiffConfiguration selects the exports to compare and where the report goes.
type FollowdiffConfiguration struct {
	FollowersPath         string
	FollowingPath         string
	PreviousFollowersPath string
	Format                string
	OutputPath            string
	SortForDisplay        bool
}

// FollowdiffDependencies holds the side effects of a run so tests can replace them.
type FollowdiffDependencies struct {
	ReadExportFile  func(string) ([]byte, error)
	ParseExport     func([]byte, string) (matrix.ParsedExport, error)
	WriteOutputFile func(string, []byte) error
	Stdout          io.Writer
	Logger          *zap.Logger
}

// FollowdiffApplication loads exports, compares them and writes a report.
type FollowdiffApplication struct {
	dependencies FollowdiffDependencies
}

// NewFollowdiffApplicationWithDependencies fills unset dependencies with their defaults.
func NewFollowdiffApplicationWithDependencies(dependencies FollowdiffDependencies) FollowdiffApplication {
	defaultDependencies := newDefaultFollowdiffDependencies()

	if dependencies.ReadExportFile == nil {
		dependencies.ReadExportFile = defaultDependencies.ReadExportFile
	}
	if dependencies.ParseExport == nil {
		dependencies.ParseExport = defaultDependencies.ParseExport
	}
	if dependencies.WriteOutputFile == nil {
		dependencies.WriteOutputFile = defaultDependencies.WriteOutputFile
	}
	if dependencies.Stdout == nil {
		dependencies.Stdout = defaultDependencies.Stdout
	}
	if dependencies.Logger == nil {
		dependencies.Logger = defaultDependencies.Logger
	}

	return FollowdiffApplication{dependencies: dependencies}
}

// Run executes one comparison.
func (application FollowdiffApplication) Run(executionContext context.Context, configuration FollowdiffConfiguration) error {
	if configuration.FollowersPath == "" {
		return ErrMissingFollowersPath
	}
	format := configuration.Format
	if format == "" {
		format = report.FormatMarkdown
	}
	resolvedFormat, formatError := report.ParseFormat(format)
	if formatError != nil {
		return formatError
	}

	comparisonInput, loadError := application.loadComparisonInput(executionContext, configuration)
	if loadError != nil {
		return loadError
	}
	comparison := matrix.BuildComparison(comparisonInput)

	var renderedReport bytes.Buffer
	reportWriter, writerError := report.NewWriter(&renderedReport, resolvedFormat, report.WithDisplaySort(configuration.SortForDisplay))
	if writerError != nil {
		return writerError
	}
	if renderError := reportWriter.Write(comparison); renderError != nil {
		return fmt.Errorf(renderErrorFormat, renderError)
	}

	if configuration.OutputPath == "" {
		_, writeError := application.dependencies.Stdout.Write(renderedReport.Bytes())
		return writeError
	}
	if writeError := application.dependencies.WriteOutputFile(configuration.OutputPath, renderedReport.Bytes()); writeError != nil {
		return writeError
	}
	fmt.Fprintf(application.dependencies.Stdout, writeSuccessMessageFormat+"\n", configuration.OutputPath)
	return nil
}

// loadComparisonInput reads and parses the configured exports concurrently.
// Concurrent loads of the same path share one read and parse.
func (application FollowdiffApplication) loadComparisonInput(executionContext context.Context, configuration FollowdiffConfiguration) (matrix.ComparisonInput, error) {
	var (
		followersExport         matrix.ParsedExport
		followingExport         *matrix.ParsedExport
		previousFollowersExport *matrix.ParsedExport
		loadGroup               singleflight.Group
	)

	group, groupContext := errgroup.WithContext(executionContext)
	group.Go(func() error {
		parsedExport, err := application.loadExport(groupContext, &loadGroup, configuration.FollowersPath)
		followersExport = parsedExport
		return err
	})
	if configuration.FollowingPath != "" {
		group.Go(func() error {
			parsedExport, err := application.loadExport(groupContext, &loadGroup, configuration.FollowingPath)
			followingExport = &parsedExport
			return err
		})
	}
	if configuration.PreviousFollowersPath != "" {
		group.Go(func() error {
			parsedExport, err := application.loadExport(groupContext, &loadGroup, configuration.PreviousFollowersPath)
			previousFollowersExport = &parsedExport
			return err
		})
	}
	if err := group.Wait(); err != nil {
		return matrix.ComparisonInput{}, err
	}

	return matrix.ComparisonInput{
		Followers:         followersExport,
		Following:         followingExport,
		PreviousFollowers: previousFollowersExport,
	}, nil
}

func (application FollowdiffApplication) loadExport(executionContext context.Context, loadGroup *singleflight.Group, exportPath string) (matrix.ParsedExport, error) {
	if err := executionContext.Err(); err != nil {
		return matrix.ParsedExport{}, err
	}

	loaded, err, _ := loadGroup.Do(exportPath, func() (interface{}, error) {
		content, readError := application.dependencies.ReadExportFile(exportPath)
		if readError != nil {
			return matrix.ParsedExport{}, fmt.Errorf(loadErrorFormat, exportPath, readError)
		}
		parsedExport, parseError := application.dependencies.ParseExport(content, filepath.Base(exportPath))
		if parseError != nil {
			return matrix.ParsedExport{}, fmt.Errorf(loadErrorFormat, exportPath, parseError)
		}
		application.dependencies.Logger.Info(logMessageExportLoaded,
			zap.String(logFieldExportPath, exportPath),
			zap.Int(logFieldRecordCount, parsedExport.Metadata.Total),
		)
		return parsedExport, nil
	})
	if err != nil {
		return matrix.ParsedExport{}, err
	}
	parsedExport, _ := loaded.(matrix.ParsedExport)
	return parsedExport, nil
}

func newDefaultFollowdiffDependencies() FollowdiffDependencies {
	return FollowdiffDependencies{
		ReadExportFile:  os.ReadFile,
		ParseExport:     matrix.ParseExportBytes,
		WriteOutputFile: defaultWriteOutputFile,
		Stdout:          os.Stdout,
		Logger:          zap.NewNop(),
	}
}

func defaultWriteOutputFile(outputPath string, contents []byte) error {
	file, createError := os.Create(outputPath)
	if createError != nil {
		return fmt.Errorf(createFileErrorFormat, outputPath, createError)
	}
	defer file.Close()

	if _, writeError := file.Write(contents); writeError != nil {
		return fmt.Errorf(writeFileErrorFormat, outputPath, writeError)
	}
	return nil
}
