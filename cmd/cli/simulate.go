package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pvcapacity/internal/analysis"
	"pvcapacity/internal/config"
	"pvcapacity/internal/simulation"
)

type simulateOptions struct {
	inputs    inputFlags
	runs      int
	seeds     []int64
	name      string
	batchSize int
	workers   int
	verbose   bool
	upload    bool
}

func newSimulateCmd() *cobra.Command {
	var opts simulateOptions

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the Monte Carlo simulation and write the samples",
		Long: `Run N independent realizations of the national PV fleet and write one
sample (seed, national capacity) per run to <output-dir>/<name>.csv, plus a
manifest naming the inputs. Without --seeds, unique seeds are derived from
the clock.

Example: pvcapacity simulate --runs 1000 --name mc_2024 --workers 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd.Context(), opts)
		},
	}

	opts.inputs.register(cmd)
	cmd.Flags().IntVarP(&opts.runs, "runs", "n", 100, "Number of Monte Carlo runs")
	cmd.Flags().Int64SliceVar(&opts.seeds, "seeds", nil, "Comma-separated seeds, exactly one per run")
	cmd.Flags().StringVar(&opts.name, "name", "", "Output name (default mc_<runs>_<timestamp>)")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 0, "Runs per flushed batch (overrides BATCH_SIZE)")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Parallel runs (overrides WORKERS)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log every error stage")
	cmd.Flags().BoolVar(&opts.upload, "upload", false, "Upload the output to DATABASE_URL when done")

	return cmd
}

func runSimulate(ctx context.Context, opts simulateOptions) error {
	c, err := loadContainer(func(cfg *config.Config) {
		opts.inputs.apply(cfg)
		if opts.batchSize > 0 {
			cfg.Simulation.BatchSize = opts.batchSize
		}
		if opts.workers > 0 {
			cfg.Simulation.Workers = opts.workers
		}
		if opts.verbose {
			cfg.Simulation.Verbose = true
		}
	})
	if err != nil {
		return err
	}
	defer c.Shutdown(context.Background())

	if opts.upload {
		if err := c.ConnectDatabase(ctx); err != nil {
			return err
		}
	}

	in, err := c.LoadInputs()
	if err != nil {
		return err
	}
	runner, err := c.NewRunner(in.ErrorConfig)
	if err != nil {
		return err
	}

	name := opts.name
	if name == "" {
		name = fmt.Sprintf("mc_%d_%s", opts.runs, time.Now().Format("20060102_150405"))
	}

	started := time.Now()
	driver := c.NewDriver(runner, in, simulation.DriverOptions{
		OutputName:  name,
		CodeVersion: codeVersion,
		Progress: func(done, total int) {
			fmt.Printf("\r%d/%d runs", done, total)
		},
	})

	samples, err := driver.Run(ctx, opts.runs, opts.seeds)
	fmt.Println()
	if err != nil {
		if len(samples) > 0 {
			fmt.Printf("%d completed runs were kept in %s\n", len(samples), name)
		}
		return err
	}

	summary, err := analysis.Summarize(samples, nil)
	if err != nil {
		return err
	}
	fmt.Printf("Output: %s (%d runs in %v)\n", name, len(samples), time.Since(started).Round(time.Millisecond))
	printSummary(summary)

	if opts.upload {
		m, err := c.Upload(ctx, name)
		if err != nil {
			return err
		}
		fmt.Printf("Uploaded simulation %s\n", m.SimulationID)
	}
	return nil
}
