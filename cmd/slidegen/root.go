package main

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/slidedeckflow/internal/config"
	"github.com/Lllllllleong/slidedeckflow/internal/deck"
	"github.com/Lllllllleong/slidedeckflow/internal/gcp"
	"github.com/Lllllllleong/slidedeckflow/internal/logging"
	"github.com/Lllllllleong/slidedeckflow/internal/sources"
)

type options struct {
	configFile  string
	images      []string
	directory   string
	instruction string
	output      string
	model       string
	validate    bool
	verbose     bool
	noProgress  bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "slidegen [flags] [images...]",
		Short: "Generate an HTML slide deck from images",
		Long: `slidegen describes each image with a vision model, extracts a structure
guided by the instruction, outlines and details the slides, and renders a
self-contained HTML deck.

Images are given with --images (extra positional arguments are appended) or
found by scanning --directory. PDFs are expanded into their embedded images.
Paths may be gs:// URIs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configFile, "config", "c", "", "config file path")
	f.StringSliceVarP(&opts.images, "images", "i", nil, "image or PDF paths, in slide order")
	f.StringVarP(&opts.directory, "directory", "d", "", "directory or gs:// prefix to scan for images")
	f.StringVar(&opts.instruction, "instruction", "", "instruction for the deck (required)")
	f.StringVarP(&opts.output, "output", "o", "", "output HTML path or gs:// URI (default from config, slides.html)")
	f.StringVarP(&opts.model, "model", "m", "", "model for every stage: opus, sonnet, haiku, pro, flash, or a full model ID")
	f.BoolVar(&opts.validate, "validate", false, "require the detailed slide content to be valid JSON")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	f.BoolVar(&opts.noProgress, "no-progress", false, "hide the progress bar")

	_ = cmd.MarkFlagRequired("instruction")
	cmd.MarkFlagsMutuallyExclusive("images", "directory")
	cmd.MarkFlagsOneRequired("images", "directory")
	return cmd
}

func run(cmd *cobra.Command, opts *options, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if opts.directory != "" && len(args) > 0 {
		return fmt.Errorf("positional images cannot be combined with --directory")
	}
	inputs := append(slices.Clone(opts.images), args...)

	// Local directories are scanned before any client is created so that an
	// empty directory fails fast.
	if opts.directory != "" && !gcp.IsGCSURI(opts.directory) {
		paths, err := sources.NewResolver(nil).ScanDirectory(ctx, opts.directory)
		if err != nil {
			return err
		}
		inputs = paths
		fmt.Fprintf(out, "Found %d images.\n", len(inputs))
	}

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	needsStorage := gcp.IsGCSURI(opts.directory) || gcp.IsGCSURI(cfg.Output.Path) ||
		slices.ContainsFunc(inputs, gcp.IsGCSURI)
	g, err := deck.New(ctx, cfg, deck.Options{Storage: needsStorage})
	if err != nil {
		return err
	}
	defer g.Close()

	if gcp.IsGCSURI(opts.directory) {
		inputs, err = g.ScanDirectory(ctx, opts.directory)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Found %d images.\n", len(inputs))
	}

	fmt.Fprintln(out, "Starting slide generation...")
	observer := progressObserver(cmd, opts, cfg)
	res, err := g.Generate(ctx, deck.Request{Inputs: inputs, Instruction: opts.instruction}, observer)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Slides generated: %s\n", cfg.Output.Path)
	fmt.Fprintf(out, "\nOpen the deck in a browser:\n%s\n", res.OutputURL)
	return nil
}

// loadConfig loads the config file and environment, then applies flags.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, err
	}
	if opts.model != "" {
		cfg.SetModel(opts.model)
	}
	if cmd.Flags().Changed("validate") {
		cfg.Pipeline.ValidateSlides = opts.validate
	}
	if opts.output != "" {
		cfg.Output.Path = opts.output
	}
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logging.Init(level, cfg.Logging.Format, os.Stderr)
	return cfg, nil
}

func progressObserver(cmd *cobra.Command, opts *options, cfg *config.Config) *progress {
	if opts.noProgress {
		return newProgress(nil, 0)
	}
	stages := 5
	if cfg.Pipeline.ValidateSlides {
		stages++
	}
	return newProgress(cmd.ErrOrStderr(), stages)
}
