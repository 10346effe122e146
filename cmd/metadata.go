package main

import (
	"github.com/spf13/cobra"

	"github.com/sensingcity/greenview-cli/internal/collector"
	"github.com/sensingcity/greenview-cli/internal/sampler"
)

var metadataCmd = &cobra.Command{
	Use:   "metadata <point-shapefile> <output-dir>",
	Short: "Resolve sample points to panorama metadata",
	Long:  "Looks up the nearest panorama for every sample point and writes deduplicated metadata batches. Existing batch files are skipped, so interrupted runs resume.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		points, err := sampler.ReadPoints(args[0])
		if err != nil {
			return err
		}

		coll := collector.New(client, collector.Options{
			OutputDir:   args[1],
			BatchSize:   cfg.Batch.Size,
			Concurrency: cfg.Concurrency,
		})
		return coll.Collect(cmd.Context(), points)
	},
}

func init() {
	rootCmd.AddCommand(metadataCmd)
}
