// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the casesync CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/casesync/internal/secrets"
	"github.com/pdiddy/casesync/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets secrets.Set

// rootCmd is the base command for the casesync CLI.
var rootCmd = &cobra.Command{
	Use:   "casesync",
	Short: "Reconcile case identities and investigator assignments",
	Long: `casesync reads cases, assignments and the investigator directory from the
case-management backend, reconciles case records that refer to the same case
under different identifiers, and reports which investigators hold each case.

Assignments made with casesync are kept in a local pending overlay until the
backend confirms them, so they show up immediately in every report.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is normal outside development.
		_ = godotenv.Load()

		s, err := secrets.Load(secrets.DefaultDir, nil)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if names := s.Names(); len(names) > 0 {
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", names)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./casesync.yaml or ~/.config/casesync/casesync.yaml)")
	rootCmd.PersistentFlags().String("base-url", "", "backend API root")
	rootCmd.PersistentFlags().String("cache", "", "cache backend: memory, sqlite, redis")
	rootCmd.PersistentFlags().String("namespace", "", "cache namespace")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")

	viper.BindPFlag("backend.base_url", rootCmd.PersistentFlags().Lookup("base-url"))
	viper.BindPFlag("cache.backend", rootCmd.PersistentFlags().Lookup("cache"))
	viper.BindPFlag("cache.namespace", rootCmd.PersistentFlags().Lookup("namespace"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("casesync")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "casesync"))
		}
	}

	setDefaults(viper.GetViper(), types.DefaultConfig())
	viper.SetEnvPrefix("CASESYNC")
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
