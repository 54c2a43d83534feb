package service

import (
	"context"
	"fmt"

	"legalcosts-backend/calculator"
	"legalcosts-backend/registry"
	"legalcosts-backend/storage"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentLoads bounds parallel bundle downloads
const maxConcurrentLoads = 4

// LoadBundles fetches and decodes bundles from storage concurrently. The
// result keeps the order of keys. The first failure cancels the rest.
func LoadBundles(ctx context.Context, store storage.Storage, keys []string) ([]*registry.Bundle, error) {
	bundles := make([]*registry.Bundle, len(keys))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLoads)
	for i, key := range keys {
		g.Go(func() error {
			rc, err := store.Get(ctx, key)
			if err != nil {
				return fmt.Errorf("failed to fetch bundle %s: %w", key, err)
			}
			defer rc.Close()

			b, err := registry.DecodeBundle(rc)
			if err != nil {
				return fmt.Errorf("bundle %s: %w", key, err)
			}
			bundles[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bundles, nil
}

// RegisterBundles builds a fixed-costs module from each bundle and registers it
func RegisterBundles(reg *registry.Registry, bundles []*registry.Bundle, logger *zap.Logger) error {
	for _, b := range bundles {
		module, err := calculator.NewFixedCostsModule(b)
		if err != nil {
			return fmt.Errorf("module %s: %w", b.ModuleID, err)
		}
		if err := reg.Register(module); err != nil {
			return err
		}
		logger.Info("registered module",
			zap.String("module_id", module.ID()),
			zap.String("version", b.Version),
			zap.Int("nodes", len(b.Nodes)),
		)
	}
	return nil
}
