package main

import (
	"github.com/spf13/cobra"

	"github.com/sensingcity/greenview-cli/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export <greenview-dir> <output-shapefile>",
	Short: "Export GVI results as a point shapefile",
	Long:  "Deduplicates panorama records across all GVI batch files and writes one EPSG:4326 point feature per panorama. Existing output is replaced.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := export.ReadGviRecords(args[0])
		if err != nil {
			return err
		}
		return export.WriteShapefile(args[1], records)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
