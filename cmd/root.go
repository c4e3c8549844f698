// Package cmd is for command line interactions with ksites
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/kkokay07/K-Sites/config"
	"github.com/kkokay07/K-Sites/internal/guides"
	"github.com/kkokay07/K-Sites/internal/logger"
	"github.com/kkokay07/K-Sites/internal/seqio"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// settingsFile is the --config flag
	settingsFile string

	// conf is loaded before any command runs
	conf = config.Default()
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use: "ksites",
	Short: `Design CRISPR guide RNAs for a gene. Guides are scored for on-target
efficiency and off-target risk, and flagged when an off-target hits a gene
in the same pathway as the target`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// RootCmd is the root of the command tree, used to generate documentation
func RootCmd() *cobra.Command {
	return rootCmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log := logger.Get()
		log.Error().Err(err).Msg(rootCmd.Name() + " failed")
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&settingsFile, "config", "", fmt.Sprintf("settings file (default %s)", config.RootSettingsFile))
	rootCmd.PersistentFlags().String("log-level", "info", "log level: trace, debug, info, warn, error or off")
	rootCmd.PersistentFlags().String("log-format", "console", "log format: console or json")
	rootCmd.PersistentFlags().String("nuclease-db", config.NucleaseDBFile, "custom nuclease database")

	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("nuclease-db", rootCmd.PersistentFlags().Lookup("nuclease-db"))
}

// setup reads the settings file and environment and starts the logger
func setup(cmd *cobra.Command, args []string) error {
	v := viper.GetViper()
	config.SetDefaults(v)
	config.SetEnv(v)

	switch {
	case settingsFile != "":
		v.SetConfigFile(settingsFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read settings file %s: %w", settingsFile, err)
		}
	default:
		if _, err := os.Stat(config.RootSettingsFile); err == nil {
			v.SetConfigFile(config.RootSettingsFile)
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read settings file %s: %w", config.RootSettingsFile, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	c, err := config.New()
	if err != nil {
		return err
	}
	conf = c

	logger.Init(logger.Options{Level: conf.Log.Level, Format: conf.Log.Format})
	return nil
}

// registry returns the built-in nucleases and those in the nuclease database
func registry() (*guides.Registry, *seqio.NucleaseDB, error) {
	reg := guides.NewRegistry()
	db := seqio.NewNucleaseDB(conf.NucleaseDB)
	if err := db.Load(reg); err != nil {
		return nil, nil, err
	}
	return reg, db, nil
}
