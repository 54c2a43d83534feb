package main

import (
	"bytes"
	"fmt"
	"os"

	"legalcosts-backend/config"
	"legalcosts-backend/storage"

	"github.com/spf13/cobra"
)

func newPublishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish <bundle.yaml>",
		Short: "Validate a bundle and upload it to the configured storage",
		Long: `Uploads the bundle under bundles/<module_id>.yaml. Running servers pick it
up on their next start when the key is listed in MODULE_BUNDLES.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store, err := storage.NewStorage(cmd.Context(), cfg.Storage)
			if err != nil {
				return err
			}
			return runPublish(cmd, store, args[0])
		},
	}
}

func runPublish(cmd *cobra.Command, store storage.Storage, path string) error {
	bundle, err := readBundle(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	key := storage.BundleKey(bundle.ModuleID)
	if err := store.Put(cmd.Context(), key, bytes.NewReader(data)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ published %s as %s\n", bundle.ModuleID, key)
	return nil
}
