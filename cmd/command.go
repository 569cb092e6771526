// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

// Package cmd provides the CLI entry points for the strata server.
package cmd

import (
	"os"
	"strings"

	"github.com/stratastore/strata/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "Strata - a versioned object store",
	Long: `Strata is an S3-style object store with versioned keys, bucket policies,
object ACLs and tagging, and an external authorization oracle. Bytes live on
a filesystem-backed physical store; metadata lives in a SQL catalog.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config_dir", ".", "Directory for configuration files")
}

// loadConfiguration merges an optional config file into viper.
func loadConfiguration(name string) {
	viper.SetConfigName(name)
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.strata")
	viper.AddConfigPath("/etc/strata/")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.MergeInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.Debug().Str("name", name).Msg("no config file found")
			return
		}
		logger.Fatal().Err(err).Str("name", name).Msg("failed to load config file")
	}
	logger.Info().Str("file", viper.ConfigFileUsed()).Msg("loaded config file")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
