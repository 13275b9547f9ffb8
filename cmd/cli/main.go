package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dvloznov/gg-parser/internal/backend"
	"github.com/dvloznov/gg-parser/internal/config"
	"github.com/dvloznov/gg-parser/internal/domain"
	"github.com/dvloznov/gg-parser/internal/extractor"
	"github.com/dvloznov/gg-parser/internal/gcs"
	"github.com/dvloznov/gg-parser/internal/jobs"
	"github.com/dvloznov/gg-parser/internal/jobs/inmemory"
	"github.com/dvloznov/gg-parser/internal/logger"
	"github.com/dvloznov/gg-parser/internal/pipeline"
	"github.com/dvloznov/gg-parser/internal/sheets"
	"github.com/rs/zerolog"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "parse":
		runParse(log)
	case "ingest":
		runIngest(log)
	case "expenses":
		runExpenses(log)
	case "last-row":
		runLastRow(log)
	case "init-sheet":
		runInitSheet(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("GG - Gestor de Gastos CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  parse       Extract a transaction from an email body read on stdin")
	fmt.Println("  ingest      Process a JSONL batch of emails from a file or GCS")
	fmt.Println("  expenses    Print stored expenses")
	fmt.Println("  last-row    Print the first empty row of the spreadsheet")
	fmt.Println("  init-sheet  Write the header row to the spreadsheet")
	fmt.Println("  help        Show this help message")
	fmt.Println("\nConfiguration is read from the environment (SPREADSHEET_ID, SHEET_NAME, ...)")
	fmt.Println("or from the YAML file given with -config.")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func loadConfig(log zerolog.Logger, path string) config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	return cfg
}

func runParse(log zerolog.Logger) {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	fs.Parse(os.Args[2:])

	body, err := io.ReadAll(os.Stdin)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read stdin")
	}

	rec := extractor.Extract(string(body))
	if !rec.Found() {
		fmt.Println(pipeline.MessageNotFound)
		os.Exit(2)
	}

	fmt.Printf("Amount:     %s\n", rec.Amount.String())
	fmt.Printf("Instrument: %s\n", valueOrDash(string(rec.Instrument)))
	fmt.Printf("Merchant:   %s\n", valueOrDash(rec.Merchant))
	if rec.OccurredAt != nil {
		fmt.Printf("Occurred:   %s\n", rec.OccurredAt)
	} else {
		fmt.Printf("Occurred:   -\n")
	}
}

// emailLine is one line of an ingest batch.
type emailLine struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Date    string `json:"date"`
}

func runIngest(log zerolog.Logger) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	source := fs.String("source", "", "JSONL file of {subject, body, date} objects, local path or gs:// URI")
	workers := fs.Int("workers", inmemory.DefaultWorkerCount, "Number of concurrent workers")
	configPath := fs.String("config", os.Getenv("CONFIG_FILE"), "Optional YAML config file")
	timeout := fs.Duration("timeout", 10*time.Minute, "Overall timeout")
	fs.Parse(os.Args[2:])

	if *source == "" {
		log.Fatal().Msg("Error: --source is required")
	}

	cfg := loadConfig(log, *configPath)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	data, err := readSource(ctx, *source)
	if err != nil {
		log.Fatal().Err(err).Str("source", *source).Msg("Failed to read source")
	}

	emails, err := parseBatch(data)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse batch")
	}
	log.Info().Int("emails", len(emails)).Str("source", *source).Msg("Starting ingestion")

	be := backend.Open(ctx, cfg)
	defer be.Close()

	var sink pipeline.Sink
	if be.Store != nil {
		sink = be.Store
	}
	processor := pipeline.NewProcessor(extractor.New(), sink, be.Destination)

	store := inmemory.NewStore()
	queue := inmemory.NewQueue(len(emails)+1, *workers, store)

	if err := queue.Start(ctx, func(ctx context.Context, job *jobs.ProcessEmailJob) error {
		result, err := processor.Process(ctx, job.Email)
		if err != nil {
			return err
		}
		job.Result = result
		return nil
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to start workers")
	}

	name := *source
	if gcs.IsURI(name) {
		name = gcs.FilenameFromURI(name)
	}
	for i, email := range emails {
		job := &jobs.ProcessEmailJob{Source: fmt.Sprintf("%s:%d", name, i+1), Email: email}
		if err := queue.PublishProcessEmail(ctx, job); err != nil {
			log.Fatal().Err(err).Msg("Failed to enqueue email")
		}
	}

	if err := queue.Stop(ctx); err != nil {
		log.Error().Err(err).Msg("Ingestion did not finish")
	}

	all, err := store.ListJobs(ctx, jobs.JobFilter{})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list jobs")
	}

	s := summarize(all)
	fmt.Printf("Processed %d emails: %d saved, %d not saved, %d without transaction, %d failed\n",
		s.total, s.saved, s.notSaved, s.notFound, s.failed)
	for _, job := range all {
		switch {
		case job.Status == jobs.JobStatusFailed:
			fmt.Printf("  %s: error: %s\n", job.Source, job.Error)
		case job.Result != nil && job.Result.Persistence != nil && !job.Result.Persistence.Saved():
			fmt.Printf("  %s: %s\n", job.Source, job.Result.Message)
		}
	}

	if s.failed > 0 {
		os.Exit(1)
	}
}

type summary struct {
	total, saved, notSaved, notFound, failed int
}

func summarize(all []*jobs.ProcessEmailJob) summary {
	s := summary{total: len(all)}
	for _, job := range all {
		switch {
		case job.Status != jobs.JobStatusCompleted || job.Result == nil:
			s.failed++
		case job.Result.Status == pipeline.StatusError:
			s.notFound++
		case job.Result.Persistence != nil && job.Result.Persistence.Saved():
			s.saved++
		default:
			s.notSaved++
		}
	}
	return s
}

func readSource(ctx context.Context, source string) ([]byte, error) {
	if !gcs.IsURI(source) {
		return os.ReadFile(source)
	}

	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	return client.FetchFromGCS(ctx, source)
}

// parseBatch reads one JSON email per line. Blank lines are skipped.
func parseBatch(data []byte) ([]domain.RawEmail, error) {
	var emails []domain.RawEmail

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var e emailLine
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("parseBatch: line %d: %w", lineNo, err)
		}
		emails = append(emails, domain.RawEmail{Subject: e.Subject, Body: e.Body, Date: e.Date})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parseBatch: %w", err)
	}

	return emails, nil
}

func runExpenses(log zerolog.Logger) {
	fs := flag.NewFlagSet("expenses", flag.ExitOnError)
	limit := fs.Int("limit", 100, "Maximum number of rows")
	offset := fs.Int("offset", 0, "Rows to skip")
	configPath := fs.String("config", os.Getenv("CONFIG_FILE"), "Optional YAML config file")
	fs.Parse(os.Args[2:])

	cfg := loadConfig(log, *configPath)
	ctx := logger.WithContext(context.Background(), log)

	be := backend.Open(ctx, cfg)
	defer be.Close()
	if be.Store == nil {
		log.Fatal().Msg(be.Destination.MissingReason)
	}

	rows, err := be.Store.ListExpenses(ctx, be.Destination.ID, be.Destination.Tab, *limit, *offset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list expenses")
	}

	fmt.Printf("%d expenses\n", len(rows))
	for _, row := range rows {
		fmt.Println(row...)
	}
}

func requireSheets(log zerolog.Logger, be *backend.Backend) *sheets.Client {
	if be.Sheets == nil {
		if !be.Destination.Configured() {
			log.Fatal().Msg(be.Destination.MissingReason)
		}
		log.Fatal().Msg("This command needs the Google Sheets backend")
	}
	return be.Sheets
}

func runLastRow(log zerolog.Logger) {
	fs := flag.NewFlagSet("last-row", flag.ExitOnError)
	configPath := fs.String("config", os.Getenv("CONFIG_FILE"), "Optional YAML config file")
	fs.Parse(os.Args[2:])

	cfg := loadConfig(log, *configPath)
	ctx := logger.WithContext(context.Background(), log)

	be := backend.Open(ctx, cfg)
	defer be.Close()
	client := requireSheets(log, be)

	row, err := client.LastRow(ctx, be.Destination.ID, sheetName(be.Destination))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read last row")
	}
	fmt.Println(row)
}

func runInitSheet(log zerolog.Logger) {
	fs := flag.NewFlagSet("init-sheet", flag.ExitOnError)
	configPath := fs.String("config", os.Getenv("CONFIG_FILE"), "Optional YAML config file")
	fs.Parse(os.Args[2:])

	cfg := loadConfig(log, *configPath)
	ctx := logger.WithContext(context.Background(), log)

	be := backend.Open(ctx, cfg)
	defer be.Close()
	client := requireSheets(log, be)

	cells, err := client.BatchUpdate(ctx, be.Destination.ID, []sheets.Update{
		{Range: sheets.HeaderRange(be.Destination.Tab), Values: [][]interface{}{sheets.HeaderRow}},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to write header row")
	}
	fmt.Printf("Header written (%d cells updated).\n", cells)
}

func sheetName(dest pipeline.Destination) string {
	if dest.Tab == "" {
		return pipeline.DefaultSheetName
	}
	return dest.Tab
}

func valueOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
