package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mapgame/mapgame/internal/config"
)

var (
	cfgFile    string
	appVersion string // set in Execute, reported by serve, openapi and mcp

	// configUsed is the config file read by initConfig, if any. configErr
	// holds a read or parse failure, reported by loadConfig.
	configUsed string
	configErr  error
)

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	appVersion = version
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mapgame",
		Short: "Interactive museum map server",
		Long: `mapgame serves the interactive museum map: the public exhibit catalog API,
player interaction logging, and the session-authenticated admin back office.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./"+config.FileName+")")
	cmd.PersistentFlags().String("data-dir", "", "data directory for the SQLite store (default: ~/.mapgame)")
	viper.BindPFlag("database.data_dir", cmd.PersistentFlags().Lookup("data-dir"))

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))
	cmd.AddCommand(newAdminCmd())
	cmd.AddCommand(newSessionCmd())
	cmd.AddCommand(newOpenAPICmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

// initConfig registers defaults and environment overrides, then reads the
// config file with ${VAR} references expanded.
func initConfig() {
	v := viper.GetViper()
	config.SetDefaults(v)
	v.SetConfigType("yaml")

	path := cfgFile
	if path == "" {
		path = findConfigFile()
	}
	if path == "" {
		return // config file is optional
	}

	data, err := config.ReadFile(path)
	if err != nil {
		configErr = err
		return
	}
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		configErr = fmt.Errorf("parse %s: %w", path, err)
		return
	}
	configUsed = path
}

// findConfigFile looks for the config file in the working directory, then in
// ~/.mapgame.
func findConfigFile() string {
	candidates := []string{config.FileName}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".mapgame", config.FileName))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// loadConfig returns the effective, validated configuration.
func loadConfig() (*config.Config, error) {
	if configErr != nil {
		return nil, configErr
	}
	return config.FromViper(viper.GetViper())
}
