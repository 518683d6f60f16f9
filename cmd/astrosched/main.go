package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"astrosched/internal/config"
	appLog "astrosched/internal/log"
)

const version = "0.1.0"

// rootOptions are the flags shared by every command.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "astrosched",
		Short: "Compile sunrise/sunset schedules into EBO import files",
		Long: `astrosched turns schedule rules (absolute times or offsets from local
sunrise and sunset) into a year of dated special events that EcoStruxure
Building Operation can import.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			appLog.Configure(opts.logLevel, opts.logFormat)
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to YAML config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "console", "Log format: console or json")

	root.AddCommand(
		newCompileCmd(opts),
		newTemplateCmd(),
		newDumpConfigCmd(opts),
		newServeCmd(opts),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file when one is given and otherwise returns
// the defaults without touching the disk. Log settings from the file apply
// unless the flags were set explicitly.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	var cfg *config.Config
	if opts.configPath == "" {
		cfg = config.DefaultConfig()
	} else {
		var err error
		cfg, err = config.Load(opts.configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	level, format := opts.logLevel, opts.logFormat
	if !cmd.Flags().Changed("log-level") {
		level = cfg.LogLevel
	}
	if !cmd.Flags().Changed("log-format") {
		format = cfg.LogFormat
	}
	appLog.Configure(level, format)
	return cfg, nil
}
