package main

import (
	"github.com/spf13/cobra"

	"github.com/sensingcity/greenview-cli/internal/pipeline"
)

var runStreets string

var runCmd = &cobra.Command{
	Use:   "run <work-dir>",
	Short: "Run the full pipeline",
	Long:  "Runs point sampling (when --streets is given), metadata collection, image fetching, GVI computation, and shapefile export under one work directory. Every stage is resumable.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		p := pipeline.New(cfg, client, pipeline.Dirs{Root: args[0]})
		return p.Run(cmd.Context(), runStreets)
	},
}

func init() {
	runCmd.Flags().StringVar(&runStreets, "streets", "", "street-network line shapefile; omit to reuse an existing points.shp in the work dir")
	rootCmd.AddCommand(runCmd)
}
