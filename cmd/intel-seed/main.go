package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ulvi123/ChanceuStore-techMVP/internal/config"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/seed"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "intel-seed",
	Short: "Load demo interaction events into the event store",
	Long: `Load demo interaction events into the event store.

Events are spread over the past week across six sections, weighted
toward midday and early evening.

Examples:
  intel-seed
  intel-seed --store flagship-paris --count 500 --seed 7`,
	SilenceUsage: true,
	RunE:         runSeed,
}

func init() {
	rootCmd.Flags().String("config", "", "config file (default $CONFIG_PATH or config/intel.yaml)")
	rootCmd.Flags().String("store", seed.DefaultStoreID, "store_id of the generated events")
	rootCmd.Flags().Int("count", 100, "number of events to generate")
	rootCmd.Flags().Int64("seed", 0, "random seed (default: current time)")
}

func runSeed(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	storeID, _ := cmd.Flags().GetString("store")
	count, _ := cmd.Flags().GetInt("count")
	seedValue, _ := cmd.Flags().GetInt64("seed")

	if count < 1 {
		return fmt.Errorf("--count must be positive")
	}
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	if configPath == "" {
		configPath = "config/intel.yaml"
	}
	if seedValue == 0 {
		seedValue = time.Now().UnixNano()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	eventStore, err := store.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening %s store: %w", cfg.Store.Driver, err)
	}
	defer eventStore.Close(context.Background())

	events := seed.NewGenerator(seedValue).Generate(storeID, count, time.Now())
	ids, err := eventStore.InsertMany(ctx, events)
	if err != nil {
		return fmt.Errorf("inserting demo events: %w", err)
	}

	log.Info().
		Str("store_id", storeID).
		Str("driver", eventStore.Driver()).
		Int("count", len(ids)).
		Int64("seed", seedValue).
		Msg("Inserted demo sessions")
	return nil
}

func main() {
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
