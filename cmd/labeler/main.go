// Command labeler builds a labeled training corpus: it generates or reads
// soil samples, labels them with the fertilizer rules and writes the result
// to CSV, XLSX or the training_samples table. With -migrate-down it only
// reverts the most recent schema migration.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/fertilizer-advisor/internal/config"
	"github.com/fertilizer-advisor/internal/corpus"
	"github.com/fertilizer-advisor/internal/database"
	"github.com/fertilizer-advisor/internal/domain"
	"github.com/fertilizer-advisor/internal/logging"
)

type options struct {
	configFile  string
	input       string
	samples     int
	seed        uint64
	workers     int
	csvPath     string
	xlsxPath    string
	postgres    bool
	migrateDown bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configFile, "config", "", "path to a config file")
	flag.StringVar(&opts.input, "input", "", "read samples from this CSV instead of generating them")
	flag.IntVar(&opts.samples, "samples", corpus.DefaultSamples, "number of samples to generate")
	flag.Uint64Var(&opts.seed, "seed", corpus.DefaultSeed, "generator seed")
	flag.IntVar(&opts.workers, "workers", 0, "labeling workers (0 uses all CPUs)")
	flag.StringVar(&opts.csvPath, "csv", "fertilizer_training_data.csv", "CSV output path, empty to skip")
	flag.StringVar(&opts.xlsxPath, "xlsx", "", "XLSX output path, empty to skip")
	flag.BoolVar(&opts.postgres, "postgres", false, "copy the corpus into the training_samples table")
	flag.BoolVar(&opts.migrateDown, "migrate-down", false, "revert the most recent database migration and exit")
	flag.Parse()

	configManager, err := config.NewManagerFromFile(opts.configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger, err := logging.New(configManager.GetConfig().Logging)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, configManager, logger); err != nil {
		logger.WithError(err).Error("Labeling failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, configManager *config.Manager, logger *logrus.Logger) error {
	if opts.migrateDown {
		cfg := configManager.GetConfig()
		return database.Rollback(ctx, configManager.GetDatabaseURL(), cfg.Database.MigrationsPath, logger)
	}

	samples, err := loadSamples(opts)
	if err != nil {
		return err
	}

	labeled, err := corpus.LabelBatch(ctx, samples, opts.workers)
	if err != nil {
		return fmt.Errorf("labeling: %w", err)
	}

	summary := corpus.Summarize(labeled)
	logger.WithFields(logrus.Fields{
		"count":        summary.Count,
		"distribution": summary.Distribution,
		"health_mean":  summary.HealthMean,
		"health_min":   summary.HealthMin,
		"health_max":   summary.HealthMax,
	}).Info("Corpus labeled")

	if opts.csvPath != "" {
		if err := writeCSV(opts.csvPath, labeled); err != nil {
			return err
		}
		logger.WithField("path", opts.csvPath).Info("CSV written")
	}

	if opts.xlsxPath != "" {
		if err := writeXLSX(opts.xlsxPath, labeled); err != nil {
			return err
		}
		logger.WithField("path", opts.xlsxPath).Info("XLSX written")
	}

	if opts.postgres {
		if err := copyToPostgres(ctx, configManager, labeled, logger); err != nil {
			return err
		}
	}

	return nil
}

func loadSamples(opts options) ([]domain.SoilSample, error) {
	if opts.input == "" {
		cfg := corpus.DefaultGeneratorConfig()
		cfg.Seed = opts.seed
		return corpus.NewGenerator(cfg).Generate(opts.samples), nil
	}

	f, err := os.Open(opts.input)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()

	return corpus.ReadSamplesCSV(f)
}

func writeCSV(path string, labeled []corpus.LabeledSample) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating CSV: %w", err)
	}
	defer f.Close()

	w := corpus.NewCSVWriter(f)
	if err := w.Write(labeled); err != nil {
		return fmt.Errorf("writing CSV: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing CSV: %w", err)
	}
	return f.Close()
}

func writeXLSX(path string, labeled []corpus.LabeledSample) error {
	w, err := corpus.NewXLSXWriter()
	if err != nil {
		return fmt.Errorf("creating workbook: %w", err)
	}
	defer w.Close()

	if err := w.Write(labeled); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return w.SaveAs(path)
}

func copyToPostgres(ctx context.Context, configManager *config.Manager, labeled []corpus.LabeledSample, logger *logrus.Logger) error {
	cfg := configManager.GetConfig()
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, configManager.GetDatabaseURL(), cfg.Database.MigrationsPath, logger); err != nil {
			return err
		}
	}

	db, err := database.NewConnection(ctx, database.ConfigFrom(cfg.Database), logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := corpus.NewPostgresSink(db.Pool, logger).Write(ctx, labeled); err != nil {
		return fmt.Errorf("copying corpus: %w", err)
	}

	stats := db.Stats()
	logger.WithFields(logrus.Fields{
		"total_conns":   stats.TotalConns(),
		"acquire_count": stats.AcquireCount(),
		"acquire_time":  stats.AcquireDuration(),
	}).Debug("Connection pool stats")
	return nil
}
