package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pvcapacity/internal/analysis"
	"pvcapacity/internal/config"
)

func newSummarizeCmd() *cobra.Command {
	var outputDir string
	var percentiles []float64
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "summarize [name]",
		Short: "Summarize the national capacity distribution of an output",
		Long: `Print summary statistics of a completed output and, for each percentile,
the run whose seed regenerates it.

Example: pvcapacity summarize mc_2024 --percentiles 5,50,95`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadContainer(func(cfg *config.Config) {
				if outputDir != "" {
					cfg.Output.Dir = outputDir
				}
			})
			if err != nil {
				return err
			}
			samples, err := c.Samples.ReadSamples(args[0])
			if err != nil {
				return err
			}
			summary, err := analysis.Summarize(samples, percentiles)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			printSummary(summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Output directory (overrides OUTPUT_DIR)")
	cmd.Flags().Float64SliceVar(&percentiles, "percentiles", nil, "Percentiles in (0, 100] (default 1,25,50,75,99)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")

	return cmd
}

func printSummary(s *analysis.Summary) {
	fmt.Printf("\nNATIONAL CAPACITY (%d runs)\n", s.Runs)
	fmt.Printf("  mean    %12.3f MW\n", s.Mean)
	fmt.Printf("  std dev %12.3f MW\n", s.StdDev)
	fmt.Printf("  min     %12.3f MW\n", s.Min)
	fmt.Printf("  median  %12.3f MW\n", s.Median)
	fmt.Printf("  max     %12.3f MW\n", s.Max)
	fmt.Printf("  skew %.3f, excess kurtosis %.3f\n", s.Skewness, s.Kurtosis)
	fmt.Println("\n  percentile        MW        seed")
	for _, q := range s.Quantiles {
		fmt.Printf("  %9g %12.3f %12d\n", q.Percent, q.Sample.NationalCapacityMW, q.Sample.Seed)
	}
}
