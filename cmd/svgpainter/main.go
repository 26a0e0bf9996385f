// Package main provides the svgpainter CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/richinex/svgpainter/cli"
	"github.com/richinex/svgpainter/config"
	"github.com/richinex/svgpainter/prompt"
	"github.com/spf13/cobra"
)

// defaultDBPath is where the runs subcommands look when --transcript-db is not set.
const defaultDBPath = ".svgpainter/transcripts.db"

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		title string
		opts  cli.Options
	)

	cmd := &cobra.Command{
		Use:   "svgpainter [title]",
		Short: "Paint a subject as SVG with an LLM that sees its own renders",
		Long: `Ask an LLM to paint a subject as SVG.

Each draft is rendered to PNG and shown back to the model, which keeps
refining the picture until it calls the complete tool.

The latest drafts are written to image/image.svg and image/image.png;
earlier drafts are kept as image/image-NNNNN.svg and .png. Notes go to
work/ and the transcript to logs/research_log_<timestamp>.txt.

Settings are read from PAINTER_* environment variables and .env.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				title = args[0]
			}
			return cli.Paint(cmd.Context(), title, opts)
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", cli.DefaultTitle, "Subject to paint")
	cmd.PersistentFlags().StringVarP(&opts.Provider, "provider", "p", "",
		"LLM provider ("+strings.Join(config.SupportedProviders(), ", ")+")")
	cmd.Flags().StringVarP(&opts.Usecase, "usecase", "u", "",
		"System prompt ("+strings.Join(prompt.Usecases(), ", ")+")")
	cmd.PersistentFlags().StringVar(&opts.TranscriptDB, "transcript-db", "",
		"SQLite database that records every run")
	cmd.Flags().IntVar(&opts.MaxTurns, "max-turns", 0, "Stop after this many model turns (0 = no limit)")

	cmd.AddCommand(toolsCmd())
	cmd.AddCommand(runsCmd(&opts))

	return cmd
}

func toolsCmd() *cobra.Command {
	var verboseTools bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools offered to the model",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ListTools(verboseTools)
		},
	}

	cmd.Flags().BoolVarP(&verboseTools, "verbose", "V", false, "Show tool parameters")

	return cmd
}

func runsCmd(opts *cli.Options) *cobra.Command {
	dbPath := func() string {
		if opts.TranscriptDB != "" {
			return opts.TranscriptDB
		}
		if env := os.Getenv(config.EnvPrefix + "TRANSCRIPT_DB"); env != "" {
			return env
		}
		return defaultDBPath
	}

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List recorded runs, or show the events of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return cli.ShowRun(cmd.Context(), dbPath(), args[0])
			}
			return cli.ListRuns(cmd.Context(), dbPath())
		},
	}

	return cmd
}
