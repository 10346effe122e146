package main

import (
	"github.com/spf13/cobra"

	"github.com/sensingcity/greenview-cli/internal/gvi"
)

var gviCmd = &cobra.Command{
	Use:   "gvi <metadata-dir> <image-store-dir> <output-dir>",
	Short: "Compute the Green View Index per panorama",
	Long:  "Classifies vegetation pixels in every stored view and averages them into one GVI value per panorama. Batches with existing GV_ output files are skipped.",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return gvi.Aggregate(cmd.Context(), gvi.AggregateOptions{
			MetadataDir: args[0],
			ImageDir:    args[1],
			OutputDir:   args[2],
			Segment:     cfg.Segment,
		})
	},
}

func init() {
	rootCmd.AddCommand(gviCmd)
}
