// Package main provides the gridsync sheet order syncer.
//
// The syncer reads raw order rows exported from a connected sheet,
// validates and resolves them against the organization's catalog, detects
// duplicates, creates canonical orders, and writes per-row feedback plus a
// batch summary to stdout.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/gridsync-io/gridsync/internal/config"
	"github.com/gridsync-io/gridsync/internal/events"
	"github.com/gridsync-io/gridsync/internal/feedback"
	"github.com/gridsync-io/gridsync/internal/ingestion"
	"github.com/gridsync-io/gridsync/internal/matching"
	"github.com/gridsync-io/gridsync/internal/order"
	"github.com/gridsync-io/gridsync/internal/storage"
	"github.com/gridsync-io/gridsync/internal/validation"
)

// Version information.
const (
	version = "1.0.0-dev"
	name    = "gridsync-syncer"
)

// rowInput is the JSON wire format of one exported sheet row.
type rowInput struct {
	RowNumber    int     `json:"rowNumber"`
	OrderDate    string  `json:"orderDate"`
	CustomerName string  `json:"customerName"`
	Phone        string  `json:"phone"`
	Address      string  `json:"address"`
	City         string  `json:"city"`
	Email        string  `json:"email"`
	ProductName  string  `json:"productName"`
	ProductSKU   string  `json:"productSku"`
	Quantity     int     `json:"quantity"`
	UnitPrice    float64 `json:"unitPrice"`
	OrderID      string  `json:"orderId"`
}

// rowOutput is the JSON wire format of one processed row outcome.
type rowOutput struct {
	RowNumber   int    `json:"rowNumber"`
	Created     bool   `json:"created"`
	OrderID     string `json:"orderId,omitempty"`
	OrderNumber string `json:"orderNumber,omitempty"`
	Skipped     bool   `json:"skipped"`
	Flagged     bool   `json:"flagged"`
	Reason      string `json:"reason,omitempty"`
	Status      string `json:"status"`
	Feedback    string `json:"feedback,omitempty"`
}

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	rowsPath := flag.String("rows", "", "path to the JSON file of exported sheet rows")
	connectionID := flag.String("connection", "", "sheet connection identifier")
	forceResync := flag.Bool("force-resync", false, "reprocess rows that already carry an order link")
	matchingPath := flag.String("matching-config", matching.DefaultConfigPath, "path to the matching tuning file")
	flag.Parse()

	if *versionFlag {
		log.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.GetEnvLogLevel("LOG_LEVEL", slog.LevelInfo),
	}))

	logger.Info("Starting gridsync syncer",
		slog.String("service", name),
		slog.String("version", version),
	)

	if *rowsPath == "" || *connectionID == "" {
		logger.Error("Both -rows and -connection are required")
		flag.Usage()
		os.Exit(1)
	}

	rows, err := loadRows(*rowsPath)
	if err != nil {
		logger.Error("Failed to load rows", slog.String("error", err.Error()))
		os.Exit(1)
	}

	storageConfig := storage.LoadConfig()

	dbConn, err := storage.NewConnection(storageConfig)
	if err != nil {
		logger.Error("Failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer func() {
		_ = dbConn.Close()
	}()

	if err := storage.RunMigrations(dbConn); err != nil {
		logger.Error("Failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	store, err := storage.NewPostgresStore(dbConn, logger)
	if err != nil {
		logger.Error("Failed to create record store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Record store initialized",
		slog.String("database_url", storageConfig.MaskDatabaseURL()),
		slog.Int("database_max_open_conns", storageConfig.MaxOpenConns),
		slog.Int("database_max_idle_conns", storageConfig.MaxIdleConns),
	)

	matchingConfig := matching.LoadConfig(*matchingPath)

	resolverConfig := ingestion.DefaultResolverConfig()
	resolverConfig.AutoCreateProducts = config.GetEnvBool("SYNC_AUTO_CREATE_PRODUCTS", resolverConfig.AutoCreateProducts)

	resolver := ingestion.NewEntityResolver(store, resolverConfig, logger)
	orchestrator := validation.NewOrchestrator(validation.DefaultRules(), resolver, logger)
	detector := matching.NewDetector(store, matchingConfig, logger)
	allocator := ingestion.NewOrderNumberAllocator(store)

	var opts []ingestion.PipelineOption
	if *forceResync {
		opts = append(opts, ingestion.WithForceResync())
	}

	pipeline := ingestion.NewPipeline(store, orchestrator, resolver, detector, allocator, logger, opts...)

	batchConfig := ingestion.DefaultBatchConfig()
	batchConfig.Workers = config.GetEnvInt("SYNC_WORKERS", batchConfig.Workers)
	batchConfig.RowsPerSecond = config.GetEnvInt("SYNC_ROWS_PER_SECOND", batchConfig.RowsPerSecond)
	batchConfig.Burst = config.GetEnvInt("SYNC_BURST", batchConfig.Burst)

	processor := ingestion.NewBatchProcessor(pipeline, batchConfig, logger)

	publisher := events.NewPublisher(
		config.GetEnvStr("KAFKA_BROKERS", ""),
		config.GetEnvStr("KAFKA_OUTCOME_TOPIC", events.DefaultTopic),
		logger,
	)

	defer func() {
		_ = publisher.Close()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	org, err := store.FindOrganizationByConnection(ctx, *connectionID)
	if err != nil {
		logger.Error("Failed to resolve sheet connection",
			slog.String("connection_id", *connectionID),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	logger.Info("Processing batch",
		slog.String("connection_id", *connectionID),
		slog.String("organization", org.Name),
		slog.Int("rows", len(rows)),
		slog.Int("workers", batchConfig.Workers),
	)

	outcomes := processor.ProcessBatch(ctx, rows, *connectionID)

	for _, outcome := range outcomes {
		if err := publisher.PublishOutcome(ctx, events.NewOutcomeEvent(*connectionID, outcome)); err != nil {
			logger.Warn("Outcome event not published", slog.Int("row_number", outcome.RowNumber))
		}
	}

	if err := writeReport(os.Stdout, outcomes, org.Locale); err != nil {
		logger.Error("Failed to write report", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Sync run finished", slog.Int("rows", len(outcomes)))
}

// loadRows reads and decodes the exported sheet rows file.
func loadRows(path string) ([]order.RawOrderRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rows file: %w", err)
	}

	var inputs []rowInput

	if err := json.Unmarshal(data, &inputs); err != nil {
		return nil, fmt.Errorf("decode rows file: %w", err)
	}

	rows := make([]order.RawOrderRow, 0, len(inputs))

	for i, in := range inputs {
		rowNumber := in.RowNumber
		if rowNumber == 0 {
			rowNumber = i + 1
		}

		rows = append(rows, order.RawOrderRow{
			RowNumber:    rowNumber,
			OrderDate:    in.OrderDate,
			CustomerName: in.CustomerName,
			Phone:        in.Phone,
			Address:      in.Address,
			City:         in.City,
			Email:        in.Email,
			ProductName:  in.ProductName,
			ProductSKU:   in.ProductSKU,
			Quantity:     in.Quantity,
			UnitPrice:    in.UnitPrice,
			OrderID:      in.OrderID,
		})
	}

	return rows, nil
}

// writeReport renders the localized per-row feedback and batch summary as
// JSON on the given writer.
func writeReport(w *os.File, outcomes []ingestion.Outcome, locale string) error {
	results := make([]feedback.RowResult, 0, len(outcomes))
	rowOutputs := make([]rowOutput, 0, len(outcomes))

	for _, outcome := range outcomes {
		results = append(results, feedback.RowResult{
			RowNumber: outcome.RowNumber,
			Result:    outcome.ValidationResult,
		})

		row := feedback.FormatResult(outcome.ValidationResult, locale)

		rowOutputs = append(rowOutputs, rowOutput{
			RowNumber:   outcome.RowNumber,
			Created:     outcome.Created,
			OrderID:     outcome.OrderID,
			OrderNumber: outcome.OrderNumber,
			Skipped:     outcome.Skipped,
			Flagged:     outcome.Flagged,
			Reason:      outcome.Reason,
			Status:      string(row.Status),
			Feedback:    row.ErrorMessage,
		})
	}

	summary := feedback.CreateValidationSummary(results, locale)

	report := struct {
		Rows    []rowOutput      `json:"rows"`
		Summary feedback.Summary `json:"summary"`
	}{Rows: rowOutputs, Summary: summary}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	return encoder.Encode(report)
}
