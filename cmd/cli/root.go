// Package cli implements the portsleuth command-line interface: one-shot
// scans, single-port checks, the API server, and API key management.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nvestad/portsleuth/internal/config"
	"github.com/nvestad/portsleuth/internal/logging"
	"github.com/nvestad/portsleuth/internal/version"
)

var (
	cfgFile string
	verbose bool

	// appConfig is loaded once during initialization and shared by all
	// commands.
	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "portsleuth",
	Short: "TCP port scanner with service and OS detection",
	Long: `Portsleuth probes TCP ports on a target host and classifies each as
open, closed, filtered, or errored. Open ports can optionally be enriched
with banner-based service identification and SMB-based OS fingerprinting.`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is ./portsleuth.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	if err := viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to bind verbose flag: %v\n", err)
	}
}

// initConfig loads the YAML config and environment overrides, then sets up
// logging.
func initConfig() {
	if cfgFile == "" {
		if _, err := os.Stat("portsleuth.yaml"); err == nil {
			cfgFile = "portsleuth.yaml"
		}
	}

	viper.SetEnvPrefix("PORTSLEUTH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(1)
	}
	applyEnvOverrides(cfg)
	appConfig = cfg

	if verbose {
		appConfig.Logging.Level = logging.LevelDebug
	}
	logger, err := logging.New(appConfig.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error initializing logging:", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)
}

// applyEnvOverrides lets secrets stay out of the config file. Only values
// that are set in the environment replace file values.
func applyEnvOverrides(cfg *config.Config) {
	if v := viper.GetString("database.password"); v != "" {
		cfg.Database.Password = v
	}
	if v := viper.GetString("database.username"); v != "" {
		cfg.Database.Username = v
	}
	if v := viper.GetString("api.api_key_hash"); v != "" {
		cfg.API.APIKeyHash = v
	}
	if v := viper.GetString("logging.level"); v != "" {
		cfg.Logging.Level = logging.LogLevel(v)
	}
}
