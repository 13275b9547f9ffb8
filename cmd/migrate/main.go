package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/gg-parser/internal/config"
	infraBQ "github.com/dvloznov/gg-parser/internal/infra/bigquery"
	"github.com/dvloznov/gg-parser/internal/logger"
)

// migrate prepares the BigQuery expenses table used by PERSISTENCE_BACKEND=bigquery.
func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "Optional YAML config file")
	location := flag.String("location", "US", "Location for a newly created dataset")
	flag.Parse()

	log := logger.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	target, err := bigQueryTarget(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	sink, err := infraBQ.NewSink(ctx, target.project)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer sink.Close()

	log.Info().
		Str("project", target.project).
		Str("dataset", target.dataset).
		Str("table", target.table).
		Msg("Ensuring expenses table")

	created, err := sink.EnsureTable(ctx, target.dataset, target.table, *location)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure expenses table")
	}

	if created {
		fmt.Printf("Created %s.%s.%s\n", target.project, target.dataset, target.table)
	} else {
		fmt.Println("Table already exists. Nothing to do.")
	}
}

type tableTarget struct {
	project, dataset, table string
}

func bigQueryTarget(cfg config.Config) (tableTarget, error) {
	p := cfg.Persistence
	if p.BigQueryProject == "" {
		return tableTarget{}, fmt.Errorf("BIGQUERY_PROJECT is required")
	}
	if p.BigQueryDataset == "" {
		return tableTarget{}, fmt.Errorf("BIGQUERY_DATASET is required")
	}
	return tableTarget{project: p.BigQueryProject, dataset: p.BigQueryDataset, table: p.BigQueryTable}, nil
}
