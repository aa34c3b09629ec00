package settings

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

const (
	// ApplicationName names the configuration directory under the XDG config home.
	ApplicationName = "igfollow"
	// FlagConfigName is the flag commands use for an explicit configuration file.
	FlagConfigName = "config"
	// FlagConfigDescription describes FlagConfigName.
	FlagConfigDescription = "Path to a YAML configuration file"

	configFileType        = "yaml"
	flagNameSeparator     = "-"
	envVariableSeparator  = "_"
	errMessageReadConfig  = "read configuration"
	errMessageMissingName = "configuration name is required"
)

// ErrMissingConfigName is returned when neither a file path nor a configuration name is given.
var ErrMissingConfigName = errors.New(errMessageMissingName)

// Options describes where a command finds its settings.
type Options struct {
	// EnvPrefix is prepended to upper-cased flag names, with dashes turned into underscores.
	EnvPrefix string
	// ConfigName is the file name, without extension, looked up in ConfigDirectory.
	ConfigName string
	// ConfigDirectory overrides the XDG based default directory.
	ConfigDirectory string
	// ConfigFilePath is an explicit file that must exist when set.
	ConfigFilePath string
}

// DefaultConfigDirectory returns $XDG_CONFIG_HOME/igfollow.
func DefaultConfigDirectory() string {
	return filepath.Join(xdg.ConfigHome, ApplicationName)
}

// Configure binds environment variables and reads the optional configuration file into configuration.
// Flags bound with BindPFlag keep precedence over both. A missing default file is not an error.
func Configure(configuration *viper.Viper, options Options) error {
	configuration.SetEnvPrefix(options.EnvPrefix)
	configuration.SetEnvKeyReplacer(strings.NewReplacer(flagNameSeparator, envVariableSeparator))
	configuration.AutomaticEnv()

	if options.ConfigFilePath != "" {
		configuration.SetConfigFile(options.ConfigFilePath)
		if err := configuration.ReadInConfig(); err != nil {
			return fmt.Errorf("%s %s: %w", errMessageReadConfig, options.ConfigFilePath, err)
		}
		return nil
	}

	if options.ConfigName == "" {
		return ErrMissingConfigName
	}
	configDirectory := options.ConfigDirectory
	if configDirectory == "" {
		configDirectory = DefaultConfigDirectory()
	}
	configuration.SetConfigName(options.ConfigName)
	configuration.SetConfigType(configFileType)
	configuration.AddConfigPath(configDirectory)
	if err := configuration.ReadInConfig(); err != nil {
		var notFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &notFoundError) {
			return nil
		}
		return fmt.Errorf("%s: %w", errMessageReadConfig, err)
	}
	return nil
}
