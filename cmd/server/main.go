package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/f-sync/igfollow/internal/server"
	"github.com/f-sync/igfollow/internal/settings"
)

const (
	commandUse                      = "server"
	commandShortDescription         = "Serve export normalization and reconciliation over HTTP"
	envPrefix                       = "IGFOLLOW_SERVER"
	configName                      = "server"
	flagHostName                    = "host"
	flagHostDescription             = "Host interface for the HTTP server"
	flagPortName                    = "port"
	flagPortDescription             = "Port for the HTTP server"
	flagMaxUploadBytesName          = "max-upload-bytes"
	flagMaxUploadBytesDescription   = "Largest accepted multipart request in bytes"
	defaultHost                     = "127.0.0.1"
	defaultPort                     = 8080
	errMessageLoggerCreate          = "create logger"
	errMessageListenAndServe        = "listen and serve"
	logMessageStartingServer        = "starting HTTP server"
	logMessageServerStopped         = "server stopped"
	logMessageListenError           = "server listen failure"
	logMessageConfigurationFileUsed = "configuration file loaded"
	logFieldAddress                 = "address"
	logFieldConfigFile              = "config_file"
	logFieldMaxUploadBytes          = "max_upload_bytes"
)

func main() {
	cobra.CheckErr(newServerCommand().Execute())
}

func newServerCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   commandUse,
		Short: commandShortDescription,
		RunE:  runServerCommand,
	}

	command.Flags().String(flagHostName, defaultHost, flagHostDescription)
	command.Flags().Int(flagPortName, defaultPort, flagPortDescription)
	command.Flags().Int64(flagMaxUploadBytesName, server.DefaultMaxUploadBytes, flagMaxUploadBytesDescription)
	command.Flags().String(settings.FlagConfigName, "", settings.FlagConfigDescription)

	bindFlagToViper(command, flagHostName)
	bindFlagToViper(command, flagPortName)
	bindFlagToViper(command, flagMaxUploadBytesName)

	return command
}

func bindFlagToViper(command *cobra.Command, flagName string) {
	cobra.CheckErr(viper.BindPFlag(flagName, command.Flags().Lookup(flagName)))
}

func runServerCommand(command *cobra.Command, _ []string) error {
	configFilePath, err := command.Flags().GetString(settings.FlagConfigName)
	if err != nil {
		return err
	}
	if err := settings.Configure(viper.GetViper(), settings.Options{
		EnvPrefix:      envPrefix,
		ConfigName:     configName,
		ConfigFilePath: configFilePath,
	}); err != nil {
		return err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("%s: %w", errMessageLoggerCreate, err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if configFileUsed := viper.ConfigFileUsed(); configFileUsed != "" {
		logger.Info(logMessageConfigurationFileUsed, zap.String(logFieldConfigFile, configFileUsed))
	}

	maxUploadBytes := viper.GetInt64(flagMaxUploadBytesName)
	router, err := server.NewRouter(server.RouterConfig{
		Logger:         logger,
		MaxUploadBytes: maxUploadBytes,
	})
	if err != nil {
		return err
	}

	host := viper.GetString(flagHostName)
	port := viper.GetInt(flagPortName)
	address := fmt.Sprintf("%s:%d", host, port)
	logger.Info(logMessageStartingServer, zap.String(logFieldAddress, address), zap.Int64(logFieldMaxUploadBytes, maxUploadBytes))

	httpServer := &http.Server{Addr: address, Handler: router}
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error(logMessageListenError, zap.Error(err))
		return fmt.Errorf("%s: %w", errMessageListenAndServe, err)
	}

	logger.Info(logMessageServerStopped)
	return nil
}
