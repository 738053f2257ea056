package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"document-qa/internal/cache"
	"document-qa/internal/rag"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage cached document indices",
}

var cacheResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove every cached index from the configured store",
	Long: `Remove every cached index. With the file store this deletes the entry
files under rag.cache_dir; with the postgres store it drops and recreates the
cache tables. Documents are re-embedded the next time they are indexed.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		store, err := rag.NewCacheStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		r, ok := store.(cache.Resetter)
		if !ok {
			return fmt.Errorf("%s store cannot be reset", cfg.Store.Backend)
		}
		n, err := r.Reset(ctx)
		if err != nil {
			return err
		}
		if n < 0 {
			fmt.Println("cache cleared")
		} else {
			fmt.Printf("cache cleared, %d entries removed\n", n)
		}
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheResetCmd)
	rootCmd.AddCommand(cacheCmd)
}
