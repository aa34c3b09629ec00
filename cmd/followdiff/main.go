package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/f-sync/igfollow/internal/report"
	"github.com/f-sync/igfollow/internal/settings"
)

const (
	commandUse                      = "followdiff"
	commandShortDescription         = "Compare Instagram follower and following exports"
	envPrefix                       = "FOLLOWDIFF"
	configName                      = "followdiff"
	flagFollowersName               = "followers"
	flagFollowersDescription        = "Path to the followers export (required)"
	flagFollowingName               = "following"
	flagFollowingDescription        = "Path to the following export"
	flagPreviousFollowersName       = "previous-followers"
	flagPreviousFollowersDesc       = "Path to an older followers export to diff against"
	flagFormatName                  = "format"
	flagFormatDescription           = "Report format: %s"
	flagOutName                     = "out"
	flagOutDescription              = "Output file path (defaults to stdout)"
	flagSortName                    = "sort"
	flagSortDescription             = "List accounts alphabetically in markdown reports"
	flagVerboseName                 = "verbose"
	flagVerboseDescription          = "Log progress to stderr"
	missingFollowersErrorMessage    = "--followers is required"
	renderErrorFormat               = "render: %w"
	loadErrorFormat                 = "load %s: %w"
	createFileErrorFormat           = "create %s: %w"
	writeFileErrorFormat            = "write %s: %w"
	writeSuccessMessageFormat       = "Wrote %s"
	errMessageLoggerCreate          = "create logger"
	logMessageExportLoaded          = "export loaded"
	logMessageConfigurationFileUsed = "configuration file loaded"
	logFieldExportPath              = "path"
	logFieldRecordCount             = "record_count"
	logFieldConfigFile              = "config_file"
)

// ErrMissingFollowersPath is returned when no followers export is configured.
var ErrMissingFollowersPath = errors.New(missingFollowersErrorMessage)

func main() {
	cobra.CheckErr(newFollowdiffCommand(newFileSystemApplication, viper.GetViper()).Execute())
}

// applicationBuilder wires the command's output stream and logger into an application.
type applicationBuilder func(stdout io.Writer, logger *zap.Logger) FollowdiffApplication

func newFileSystemApplication(stdout io.Writer, logger *zap.Logger) FollowdiffApplication {
	return NewFollowdiffApplicationWithDependencies(FollowdiffDependencies{Stdout: stdout, Logger: logger})
}

func newFollowdiffCommand(buildApplication applicationBuilder, configuration *viper.Viper) *cobra.Command {
	command := &cobra.Command{
		Use:          commandUse,
		Short:        commandShortDescription,
		SilenceUsage: true,
		RunE: func(command *cobra.Command, _ []string) error {
			return runFollowdiffCommand(command, buildApplication, configuration)
		},
	}

	command.Flags().String(flagFollowersName, "", flagFollowersDescription)
	command.Flags().String(flagFollowingName, "", flagFollowingDescription)
	command.Flags().String(flagPreviousFollowersName, "", flagPreviousFollowersDesc)
	command.Flags().String(flagFormatName, report.FormatMarkdown, fmt.Sprintf(flagFormatDescription, strings.Join(report.Formats(), ", ")))
	command.Flags().String(flagOutName, "", flagOutDescription)
	command.Flags().Bool(flagSortName, false, flagSortDescription)
	command.Flags().Bool(flagVerboseName, false, flagVerboseDescription)
	command.Flags().String(settings.FlagConfigName, "", settings.FlagConfigDescription)

	for _, flagName := range []string{
		flagFollowersName,
		flagFollowingName,
		flagPreviousFollowersName,
		flagFormatName,
		flagOutName,
		flagSortName,
		flagVerboseName,
	} {
		cobra.CheckErr(configuration.BindPFlag(flagName, command.Flags().Lookup(flagName)))
	}

	return command
}

func runFollowdiffCommand(command *cobra.Command, buildApplication applicationBuilder, configuration *viper.Viper) error {
	configFilePath, err := command.Flags().GetString(settings.FlagConfigName)
	if err != nil {
		return err
	}
	if err := settings.Configure(configuration, settings.Options{
		EnvPrefix:      envPrefix,
		ConfigName:     configName,
		ConfigFilePath: configFilePath,
	}); err != nil {
		return err
	}

	logger := zap.NewNop()
	if configuration.GetBool(flagVerboseName) {
		productionLogger, loggerErr := zap.NewProduction()
		if loggerErr != nil {
			return fmt.Errorf("%s: %w", errMessageLoggerCreate, loggerErr)
		}
		logger = productionLogger
	}
	defer func() {
		_ = logger.Sync()
	}()
	if configFileUsed := configuration.ConfigFileUsed(); configFileUsed != "" {
		logger.Info(logMessageConfigurationFileUsed, zap.String(logFieldConfigFile, configFileUsed))
	}

	application := buildApplication(command.OutOrStdout(), logger)
	return application.Run(command.Context(), FollowdiffConfiguration{
		FollowersPath:         configuration.GetString(flagFollowersName),
		FollowingPath:         configuration.GetString(flagFollowingName),
		PreviousFollowersPath: configuration.GetString(flagPreviousFollowersName),
		Format:                configuration.GetString(flagFormatName),
		OutputPath:            configuration.GetString(flagOutName),
		SortForDisplay:        configuration.GetBool(flagSortName),
	})
}
