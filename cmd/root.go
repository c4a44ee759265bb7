// Package cmd provides the toolinger command-line interface.
//
// Configuration is read, in order of precedence, from command-line flags,
// TOOLINGER_<SECTION>_<OPTION> environment variables and a YAML file. The
// file is the one named by --config, else TOOLINGER_CONFIG_FILE, else
// .toolinger.yml in the working directory, else
// $XDG_CONFIG_HOME/toolinger/config.yml.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/toolinger/toolinger/internal/config"
	"github.com/toolinger/toolinger/internal/logging"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "toolinger",
	Short: "Serve sanitized HTML articles from a content directory",
	Long: `Toolinger serves pre-authored HTML articles and tool pages from a
content directory holding pages/ and tools/ namespaces. Every article is
extracted and sanitized before it leaves the server.

Quick Start:
  toolinger serve                  Start the article server
  toolinger list                   List content files and tools
  toolinger render home.html       Print the sanitized markup of a file
  toolinger fetch home.html        Fetch an article from a running server`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .toolinger.yml, can also use TOOLINGER_CONFIG_FILE)")
	rootCmd.PersistentFlags().String("content-root", "", "directory holding the pages/ and tools/ namespaces")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	_ = viper.BindPFlag("content.root", rootCmd.PersistentFlags().Lookup("content-root"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if path := configFilePath(cfgFile, os.Getenv(config.EnvPrefix+"_CONFIG_FILE")); path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".toolinger")
	}

	config.BindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// configFilePath picks an explicit config file: the flag, then the
// environment, then the user config directory when .toolinger.yml is absent.
// An empty result means the working directory is searched.
func configFilePath(flag, env string) string {
	switch {
	case flag != "":
		return flag
	case env != "":
		return env
	}

	if fileExists(".toolinger.yml") {
		return ""
	}
	if path := userConfigFile(); fileExists(path) {
		return path
	}
	return ""
}

func userConfigFile() string {
	return filepath.Join(xdg.ConfigHome, "toolinger", "config.yml")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// loadConfig decodes and validates the configuration held by viper.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) logging.Logger {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logging.LevelInfo
	}
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: strings.ToLower(cfg.Log.Format),
		Output: os.Stderr,
	})
}
