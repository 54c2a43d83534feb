package main

import (
	"errors"
	"fmt"
	"os"

	"legalcosts-backend/models"
	"legalcosts-backend/registry"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <bundle.yaml>...",
		Short: "Check bundles for structural errors",
		Long:  `Decodes each bundle and reports every structural violation found, not just the first.`,
		Args:  cobra.MinimumNArgs(1),
		RunE:  runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	results := make([]error, len(args))

	var g errgroup.Group
	for i, path := range args {
		g.Go(func() error {
			_, err := readBundle(path)
			results[i] = err
			return nil
		})
	}
	_ = g.Wait()

	out := cmd.OutOrStdout()
	failed := 0
	for i, path := range args {
		err := results[i]
		if err == nil {
			fmt.Fprintf(out, "✓ %s\n", path)
			continue
		}
		failed++
		var structErr *models.StructureError
		if errors.As(err, &structErr) {
			fmt.Fprintf(out, "✗ %s: %d violation(s)\n", path, len(structErr.Violations))
			for _, v := range structErr.Violations {
				fmt.Fprintf(out, "    - %s\n", v)
			}
			continue
		}
		fmt.Fprintf(out, "✗ %s: %v\n", path, err)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d bundle(s) invalid", failed, len(args))
	}
	return nil
}

// readBundle decodes and validates a bundle file
func readBundle(path string) (*registry.Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	b, err := registry.DecodeBundle(f)
	if err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}
