package main

import (
	"encoding/json"
	"fmt"
	"os"

	"legalcosts-backend/calculator"
	"legalcosts-backend/enhancement"
	"legalcosts-backend/matching"
	"legalcosts-backend/models"
	"legalcosts-backend/registry"
	"legalcosts-backend/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type evaluateOptions struct {
	bundlePath string
	factsPath  string
	threshold  float64
	enhance    bool
}

func newEvaluateCmd() *cobra.Command {
	opts := &evaluateOptions{}
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a facts file against a bundle offline",
		Long: `Registers the bundle (or the built-in module when --bundle is omitted),
matches the facts and prints the calculation as JSON. --enhance runs the
template enhancer through the validation gate.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEvaluate(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.bundlePath, "bundle", "", "bundle YAML file (default: built-in module)")
	cmd.Flags().StringVar(&opts.factsPath, "facts", "", "facts JSON file")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", matching.DefaultThreshold, "match threshold")
	cmd.Flags().BoolVar(&opts.enhance, "enhance", false, "reword the explanation through the gate")
	_ = cmd.MarkFlagRequired("facts")
	return cmd
}

func runEvaluate(cmd *cobra.Command, opts *evaluateOptions) error {
	var (
		bundle *registry.Bundle
		err    error
	)
	if opts.bundlePath != "" {
		bundle, err = readBundle(opts.bundlePath)
	} else {
		bundle, err = calculator.DefaultBundle()
	}
	if err != nil {
		return err
	}

	facts, err := readFacts(opts.factsPath)
	if err != nil {
		return err
	}

	reg := registry.NewRegistry()
	if err := service.RegisterBundles(reg, []*registry.Bundle{bundle}, zap.NewNop()); err != nil {
		return err
	}
	svc, err := service.NewCostsService(
		service.WithRegistry(reg),
		service.WithGate(enhancement.NewGate(enhancement.GateWithEnhancer(enhancement.NewTemplateEnhancer()))),
	)
	if err != nil {
		return err
	}

	threshold := opts.threshold
	result, err := svc.Evaluate(cmd.Context(), service.EvaluateRequest{
		ModuleID:  bundle.ModuleID,
		Facts:     facts,
		Threshold: &threshold,
		Enhance:   opts.enhance,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func readFacts(path string) (models.FactMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var facts models.FactMap
	if err := json.Unmarshal(data, &facts); err != nil {
		return nil, fmt.Errorf("failed to parse facts %s: %w", path, err)
	}
	return facts, nil
}
