package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"pvcapacity/adapters/csvsink"
	"pvcapacity/internal/analysis"
	"pvcapacity/internal/config"
	"pvcapacity/internal/container"
	"pvcapacity/internal/simulation"
)

func newQuantilesCmd() *cobra.Command {
	var inputs inputFlags
	var percentiles []float64
	var exportDir string
	var upload bool

	cmd := &cobra.Command{
		Use:   "quantiles [name]",
		Short: "Regenerate the site lists behind the percentile runs of an output",
		Long: `Pick the run standing for each percentile, replay its seed against the
inputs recorded in the manifest, check that the replay reproduces the stored
national capacity, and export the realized site list as CSV.

Example: pvcapacity quantiles mc_2024 --percentiles 1,50,99 --export-dir ./sitelists`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuantiles(cmd.Context(), args[0], inputs, percentiles, exportDir, upload)
		},
	}

	inputs.register(cmd)
	cmd.Flags().Float64SliceVar(&percentiles, "percentiles", nil, "Percentiles in (0, 100] (default 1,25,50,75,99)")
	cmd.Flags().StringVar(&exportDir, "export-dir", "", "Directory for the site list CSVs (default <output-dir>/<name>_sitelists)")
	cmd.Flags().BoolVar(&upload, "upload", false, "Also store the site lists in DATABASE_URL")

	return cmd
}

func runQuantiles(ctx context.Context, name string, inputs inputFlags, percentiles []float64, exportDir string, upload bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	inputs.apply(cfg)

	reader := csvsink.NewReader(cfg.Output.Dir)
	manifest, err := reader.ReadManifest(name)
	if err != nil {
		return err
	}
	samples, err := reader.ReadSamples(name)
	if err != nil {
		return err
	}
	seeds, err := analysis.QuantileSeeds(samples, orDefault(percentiles))
	if err != nil {
		return err
	}

	// the cutoff classifies the base list, so replay with the recorded one
	cfg.Simulation.DomesticCutoffMW = manifest.CutoffMW
	if err := cfg.Validate(); err != nil {
		return err
	}
	c, err := container.New(cfg)
	if err != nil {
		return err
	}
	defer c.Shutdown(context.Background())
	if upload {
		if err := c.ConnectDatabase(ctx); err != nil {
			return err
		}
	}

	in, err := c.LoadInputs()
	if err != nil {
		return err
	}
	if err := manifest.CheckInputs(in.SiteListHash, in.SpecHash); err != nil {
		return err
	}
	runner, err := c.NewRunner(in.ErrorConfig)
	if err != nil {
		return err
	}
	if got, want := joinCategories(runner), manifest.Fingerprint.StageOrder; got != want {
		return fmt.Errorf("output %s used stage order %s, runner has %s", name, want, got)
	}

	if exportDir == "" {
		exportDir = filepath.Join(cfg.Output.Dir, name+"_sitelists")
	}
	if err := os.MkdirAll(exportDir, 0o755); err != nil {
		return err
	}

	for _, q := range seeds {
		res, err := runner.Replay(ctx, in.Base, q.Sample)
		if err != nil {
			return err
		}
		label := percentileLabel(q.Percent)
		path := filepath.Join(exportDir, fmt.Sprintf("%s_%s.csv", name, label))
		if err := csvsink.WriteSiteList(path, res.SiteList); err != nil {
			return err
		}
		fmt.Printf("%s: seed %d, %.3f MW, %d sites -> %s\n", label, q.Sample.Seed, res.NationalCapacityMW, res.SiteList.Len(), path)

		if upload {
			if err := c.SampleRepo.SaveSiteList(ctx, manifest.SimulationID, label, res.SiteList.Records); err != nil {
				return err
			}
		}
	}
	return nil
}

func orDefault(p []float64) []float64 {
	if len(p) == 0 {
		return analysis.DefaultPercentiles
	}
	return p
}

// percentileLabel names a percentile for files and rows, e.g. 2.5 -> p2_5
func percentileLabel(p float64) string {
	return "p" + strings.ReplaceAll(strconv.FormatFloat(p, 'f', -1, 64), ".", "_")
}

func joinCategories(r *simulation.Runner) string {
	order := r.Order()
	parts := make([]string, len(order))
	for i, c := range order {
		parts[i] = string(c)
	}
	return strings.Join(parts, ",")
}
