// cmd/lottiecolor/root.go
package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/codr1/lottiecolor/internal/config"
	"github.com/codr1/lottiecolor/internal/lottie"
)

// commandContext carries the persistent flags and the engine they configure.
type commandContext struct {
	configPath string
	jsonOutput bool
	verbose    bool

	engine *lottie.Engine
	logger zerolog.Logger
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "lottiecolor",
		Short:         "Inspect and recolor Lottie animations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.setup(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configPath, "config", "c", "", "Configuration file with engine tolerances")
	rootCmd.PersistentFlags().BoolVar(&ctx.jsonOutput, "json", false, "Print machine-readable JSON")
	rootCmd.PersistentFlags().BoolVarP(&ctx.verbose, "verbose", "v", false, "Log every rewritten color site")

	rootCmd.AddCommand(newColorsCommand(ctx))
	rootCmd.AddCommand(newGroupsCommand(ctx))
	rootCmd.AddCommand(newReplaceCommand(ctx))
	rootCmd.AddCommand(newReplaceAllCommand(ctx))
	rootCmd.AddCommand(newPackCommand(ctx))

	return rootCmd
}

// setup builds the engine from --config, or from defaults when no file is given.
func (c *commandContext) setup(stderr io.Writer) error {
	level := zerolog.WarnLevel
	if c.verbose {
		level = zerolog.DebugLevel
	}
	c.logger = zerolog.New(zerolog.ConsoleWriter{Out: stderr, NoColor: true}).Level(level).With().Timestamp().Logger()

	engineCfg := lottie.DefaultConfig()
	if c.configPath != "" {
		cfg, err := config.Load(c.configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		engineCfg = cfg.LottieConfig()
	}
	if c.verbose {
		engineCfg.Logger = &c.logger
	}
	c.engine = lottie.New(engineCfg)
	return nil
}
