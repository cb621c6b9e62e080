package main

import (
	"context"
	"fmt"

	"trialgraph/pkg/config"
	"trialgraph/pkg/curie"
	"trialgraph/pkg/fetch"
	"trialgraph/pkg/fetch/ctgov"
	"trialgraph/pkg/fetch/who"
	"trialgraph/pkg/graph"
	"trialgraph/pkg/ground"
	"trialgraph/pkg/logger"
	"trialgraph/pkg/store"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/spf13/cobra"
)

var (
	processRegistry string
	processReload   bool
	processAppend   bool
	processParallel int
	processSamples  int
	noValidate      bool
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Fetch, ground, and write the graph for one registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd.Context())
	},
}

func init() {
	processCmd.Flags().StringVarP(&processRegistry, "registry", "r", "", "Registry to process (e.g. ctgov, who)")
	processCmd.Flags().BoolVar(&processReload, "reload", false, "Refetch records instead of using the raw cache")
	processCmd.Flags().BoolVar(&processAppend, "append", false, "Append to existing flat files instead of replacing them")
	processCmd.Flags().IntVar(&processParallel, "parallel", 0, "Number of trials to ground concurrently (overrides config)")
	processCmd.Flags().IntVar(&processSamples, "samples", -1, "Rows to copy into the sample files (overrides config)")
	processCmd.Flags().BoolVar(&noValidate, "no-validate", false, "Skip validating the written flat files")
	_ = processCmd.MarkFlagRequired("registry")
	rootCmd.AddCommand(processCmd)
}

func runProcess(ctx context.Context) error {
	cfg, err := config.Load(configPath, processRegistry)
	if err != nil {
		return err
	}
	if processParallel > 0 {
		cfg.Parallel = processParallel
	}
	if processSamples >= 0 {
		cfg.NumSampleEntries = processSamples
	}

	registry, err := curie.NewRegistry()
	if err != nil {
		return err
	}

	runID, err := gonanoid.New()
	if err != nil {
		return err
	}
	logger.Info("[Process] Starting run", "run_id", runID, "registry", cfg.Registry, "parallel", cfg.Parallel)

	fetcher, interventionPre, err := newFetcher(cfg, registry)
	if err != nil {
		return err
	}

	trials, err := fetcher.Fetch(ctx, processReload)
	if err != nil {
		return fmt.Errorf("failed to fetch %s records: %w", cfg.Registry, err)
	}
	logger.Info("[Process] Fetched trial records", "run_id", runID, "trials", len(trials))

	var mesh ground.MeshLookup
	if cfg.Grounder.MeshTermsFile != "" {
		lookup, err := ground.LoadMeshTerms(cfg.Grounder.MeshTermsFile)
		if err != nil {
			return err
		}
		mesh = lookup
	}

	processor := graph.NewProcessor(graph.ProcessorParams{
		Config:   cfg,
		Registry: registry,
		Grounder: ground.NewRESTGrounder(ground.RESTGrounderParams{
			BaseURL:    cfg.Grounder.URL,
			MaxRetries: cfg.Grounder.MaxRetries,
		}),
		Mesh:                     mesh,
		InterventionPreprocessor: interventionPre,
	})

	g, err := processor.Build(ctx, trials)
	if err != nil {
		return err
	}

	mode := store.Truncate
	if processAppend {
		mode = store.Append
	}
	if err := processor.Save(g, mode); err != nil {
		return err
	}

	if !noValidate {
		violations, err := processor.Validate(false)
		if err != nil {
			return err
		}
		if len(violations) > 0 {
			return fmt.Errorf("flat files contain %d invalid values", len(violations))
		}
	}

	if cfg.S3.Enabled {
		if err := uploadFiles(ctx, cfg); err != nil {
			return err
		}
	}

	logger.Info("[Process] Run complete", "run_id", runID,
		"trials", len(g.Trials), "entities", len(g.Entities), "edges", len(g.Edges))
	return nil
}

func newFetcher(cfg *config.Config, registry *curie.Registry) (fetch.Fetcher, ground.Preprocessor, error) {
	switch cfg.Registry {
	case "ctgov":
		return ctgov.NewFetcher(cfg), nil, nil
	case "who":
		return who.NewFetcher(cfg, registry), who.InterventionPreprocessor, nil
	}
	return nil, nil, fmt.Errorf("no fetcher implemented for registry %q", cfg.Registry)
}

func uploadFiles(ctx context.Context, cfg *config.Config) error {
	client, err := store.NewS3Client(ctx)
	if err != nil {
		return err
	}
	return store.Upload(ctx, client, store.UploadParams{
		Bucket:   cfg.S3.Bucket,
		Prefix:   cfg.S3.Prefix,
		Registry: cfg.Registry,
	}, cfg.TrialsPath(), cfg.BioEntitiesPath(), cfg.EdgesPath())
}
