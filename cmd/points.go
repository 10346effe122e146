package main

import (
	"github.com/spf13/cobra"

	"github.com/sensingcity/greenview-cli/internal/sampler"
)

var pointsCmd = &cobra.Command{
	Use:   "points <street-shapefile> <output-shapefile>",
	Short: "Create sample points along a street network",
	Long:  "Cleans a street-network line shapefile (EPSG:4326) and writes a point every N meters along the remaining streets.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sampler.CreatePoints(args[0], args[1], cfg.Sampler.MinDist)
	},
}

func init() {
	rootCmd.AddCommand(pointsCmd)
}
