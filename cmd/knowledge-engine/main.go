// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the knowledge-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/knowledge-engine/internal/config"
	"github.com/pdiddy/knowledge-engine/internal/logging"
	"github.com/pdiddy/knowledge-engine/internal/secrets"
	"github.com/pdiddy/knowledge-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// Populated by PersistentPreRunE.
var (
	engineCfg types.EngineConfig
	logger    zerolog.Logger
)

// rootCmd is the base command for the knowledge-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "knowledge-engine",
	Short: "Search patents, Wikipedia and PubMed and answer questions about the results",
	Long: `knowledge-engine fans one query out to Google Patents (through Google
Custom Search), Wikipedia and PubMed. Patent results are scraped and stored
in a warehouse table; an optional question is answered by a language model.

Use query for a single submission, ask for the chatbot, serve for the web
form, and rows to read back stored patent rows.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}

		s, err := secrets.Load(".secrets/", os.Stderr)
		if err != nil {
			return err
		}
		envFile, _ := cmd.Flags().GetString("env-file")
		env, err := secrets.LoadEnvFile(envFile)
		if err != nil {
			return err
		}
		s.Merge(env)
		if keys := s.Keys(); len(keys) > 0 {
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}

		cfg, err := config.Load(viper.GetViper(), s)
		if err != nil {
			return err
		}
		engineCfg = cfg

		logger, err = logging.New(os.Stderr, cfg.LogLevel)
		return err
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./knowledge-engine.yaml or ~/.config/knowledge-engine/config.yaml)")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file with credentials")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	config.SetDefaults(viper.GetViper())

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("knowledge-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "knowledge-engine"))
		}
	}

	viper.SetEnvPrefix("KNOWLEDGE_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
