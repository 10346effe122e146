package main

import (
	"github.com/spf13/cobra"

	"github.com/sensingcity/greenview-cli/internal/fetcher"
)

var imagesCmd = &cobra.Command{
	Use:   "images <metadata-dir> <image-store-dir>",
	Short: "Download directional views for collected panoramas",
	Long:  "Fetches the configured number of directional views for every green-season panorama not already in the image store.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		f := fetcher.New(client, fetcher.Options{
			MetadataDir:   args[0],
			OutputDir:     args[1],
			GreenMonths:   cfg.GreenMonths,
			ImagesPerPano: cfg.Images.PerPano,
			ImageSize:     cfg.Images.Size,
			Concurrency:   cfg.Concurrency,
		})
		return f.Fetch(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(imagesCmd)
}
