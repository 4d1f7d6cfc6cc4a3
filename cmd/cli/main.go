package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"pvcapacity/internal/config"
	"pvcapacity/internal/container"
)

// codeVersion is recorded in every manifest; set with -ldflags "-X main.codeVersion=..."
var codeVersion = "dev"

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "pvcapacity",
		Short: "Monte Carlo estimates of national PV capacity",
		Long: `Perturbs a base PV site list with configured error distributions, many
times over, and records the national capacity of every realization.

Inputs and defaults come from the environment (or a .env file):
  SITE_LIST_FILE, ERROR_CONFIG_FILE, OUTPUT_DIR, CACHE_DIR, ROW_LIMIT,
  DOMESTIC_CUTOFF_MW, BATCH_SIZE, WORKERS, VERBOSE, DATABASE_URL, LOG_LEVEL
Flags override the environment.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newSimulateCmd(),
		newSummarizeCmd(),
		newQuantilesCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// inputFlags are the overrides shared by commands that read the inputs
type inputFlags struct {
	siteList    string
	errorConfig string
	outputDir   string
	rowLimit    int
	cutoffMW    float64
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.siteList, "site-list", "", "Site list CSV or XLSX (overrides SITE_LIST_FILE)")
	cmd.Flags().StringVar(&f.errorConfig, "error-config", "", "Error configuration JSON (overrides ERROR_CONFIG_FILE)")
	cmd.Flags().StringVar(&f.outputDir, "output-dir", "", "Output directory (overrides OUTPUT_DIR)")
	cmd.Flags().IntVar(&f.rowLimit, "row-limit", -1, "Read only the first N site list rows, 0 for all (overrides ROW_LIMIT)")
	cmd.Flags().Float64Var(&f.cutoffMW, "cutoff", 0, "Domestic/non-domestic cutoff in MW (overrides DOMESTIC_CUTOFF_MW)")
}

func (f *inputFlags) apply(cfg *config.Config) {
	if f.siteList != "" {
		cfg.Data.SiteListFile = f.siteList
	}
	if f.errorConfig != "" {
		cfg.Data.ErrorConfigFile = f.errorConfig
	}
	if f.outputDir != "" {
		cfg.Output.Dir = f.outputDir
	}
	if f.rowLimit >= 0 {
		cfg.Data.RowLimit = f.rowLimit
	}
	if f.cutoffMW > 0 {
		cfg.Simulation.DomesticCutoffMW = f.cutoffMW
	}
}

// loadContainer reads the environment, applies flag overrides and builds
// the dependency container
func loadContainer(apply func(*config.Config)) (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if apply != nil {
		apply(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return container.New(cfg)
}
