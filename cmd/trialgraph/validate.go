package main

import (
	"fmt"

	"trialgraph/pkg/curie"
	"trialgraph/pkg/logger"
	"trialgraph/pkg/validate"

	"github.com/spf13/cobra"
)

var validateStrict bool

var validateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Check flat files against the column type vocabulary",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := curie.NewRegistry()
		if err != nil {
			return err
		}
		validator := validate.New(registry, validateStrict)

		total := 0
		for _, path := range args {
			violations, err := validator.ValidateFile(path)
			if err != nil {
				return err
			}
			total += len(violations)
		}
		if total > 0 {
			return fmt.Errorf("%d invalid values across %d files", total, len(args))
		}

		logger.Info("[Validate] All files valid", "files", len(args))
		return nil
	},
}

func init() {
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "Stop at the first invalid value")
	rootCmd.AddCommand(validateCmd)
}
