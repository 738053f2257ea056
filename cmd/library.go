package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"document-qa/internal/chromemdb"
)

var (
	libraryOut string
	libraryIn  string
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Manage the cross-document library",
}

var libraryExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the library collection to a file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		lib, err := chromemdb.NewLibrary(cfg.Library)
		if err != nil {
			return err
		}
		if err := lib.Export(libraryOut); err != nil {
			return err
		}
		log.Info().Str("path", libraryOut).Int("chunks", lib.Count()).Msg("Library exported")
		return nil
	},
}

var libraryImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Replace the library collection with an exported file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		lib, err := chromemdb.NewLibrary(cfg.Library)
		if err != nil {
			return err
		}
		if err := lib.Import(libraryIn); err != nil {
			return err
		}
		log.Info().Str("path", libraryIn).Int("chunks", lib.Count()).Msg("Library imported")
		return nil
	},
}

var libraryResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove every chunk from the library",
	RunE: func(cmd *cobra.Command, _ []string) error {
		lib, err := chromemdb.NewLibrary(cfg.Library)
		if err != nil {
			return err
		}
		if err := lib.Reset(); err != nil {
			return err
		}
		fmt.Println("library cleared")
		return nil
	},
}

func init() {
	libraryExportCmd.Flags().StringVarP(&libraryOut, "out", "o", "./library.chromem", "Export file path")
	libraryImportCmd.Flags().StringVarP(&libraryIn, "in", "i", "./library.chromem", "File to import")

	libraryCmd.AddCommand(libraryExportCmd, libraryImportCmd, libraryResetCmd)
	rootCmd.AddCommand(libraryCmd)
}
