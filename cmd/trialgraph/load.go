package main

import (
	"trialgraph/pkg/config"
	"trialgraph/pkg/logger"
	"trialgraph/pkg/neo4j"

	"github.com/spf13/cobra"
)

var loadRegistry string

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Bulk-load a registry's flat files into Neo4j",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := config.Load(configPath, loadRegistry)
		if err != nil {
			return err
		}

		loader, err := neo4j.NewLoader(ctx, cfg.Neo4j)
		if err != nil {
			return err
		}
		defer func() {
			if err := loader.Close(ctx); err != nil {
				logger.Error("[Neo4j] Failed to close driver", "error", err)
			}
		}()

		return loader.LoadGraph(ctx, cfg)
	},
}

func init() {
	loadCmd.Flags().StringVarP(&loadRegistry, "registry", "r", "", "Registry whose flat files to load")
	_ = loadCmd.MarkFlagRequired("registry")
	rootCmd.AddCommand(loadCmd)
}
