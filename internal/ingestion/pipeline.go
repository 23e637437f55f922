package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gridsync-io/gridsync/internal/matching"
	"github.com/gridsync-io/gridsync/internal/order"
	"github.com/gridsync-io/gridsync/internal/validation"
)

type (
	// ErrorType is the closed enumeration of outcome error categories
	// reported upstream.
	ErrorType string

	// SyncError is a flat, reportable error for one row, consumed by the
	// feedback sink collaborator.
	SyncError struct {
		RowNumber    int
		ErrorType    ErrorType
		ErrorMessage string
		Field        string
		SuggestedFix string
	}

	// Outcome is the result of processing one raw row. Exactly one of
	// Created, Skipped, or a blocking error state holds; Flagged refines
	// Created for potential duplicates.
	Outcome struct {
		RowNumber        int
		Created          bool
		OrderID          string
		OrderNumber      string
		Skipped          bool
		Flagged          bool
		Reason           string
		ValidationResult validation.Result
		Error            *SyncError
	}

	// Pipeline wires validation, entity resolution, duplicate detection,
	// order number allocation and persistence into the per-row ingestion
	// flow. Collaborators are injected; the pipeline owns no storage.
	Pipeline struct {
		store        order.RecordStore
		orchestrator *validation.Orchestrator
		resolver     *EntityResolver
		detector     *matching.Detector
		allocator    *OrderNumberAllocator
		forceResync  bool
		logger       *slog.Logger
	}

	// PipelineOption configures optional pipeline behavior.
	PipelineOption func(*Pipeline)
)

// Outcome error types.
const (
	ErrorTypeValidation      ErrorType = "validation"
	ErrorTypeProductNotFound ErrorType = "product_not_found"
	ErrorTypeSystem          ErrorType = "system"
)

// WithForceResync makes the pipeline reprocess rows that already carry an
// order link instead of skipping them.
func WithForceResync() PipelineOption {
	return func(p *Pipeline) {
		p.forceResync = true
	}
}

// NewPipeline creates the ingestion pipeline from its collaborators.
func NewPipeline(
	store order.RecordStore,
	orchestrator *validation.Orchestrator,
	resolver *EntityResolver,
	detector *matching.Detector,
	allocator *OrderNumberAllocator,
	logger *slog.Logger,
	opts ...PipelineOption,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pipeline{
		store:        store,
		orchestrator: orchestrator,
		resolver:     resolver,
		detector:     detector,
		allocator:    allocator,
		logger:       logger,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Process runs one raw row through the full ingestion flow and returns its
// outcome.
//
// Every exit path returns a structured outcome: validation failures carry
// the aggregated result, store failures become system errors with the
// original message preserved verbatim, and even a panic in a collaborator
// is recovered into a system error. A row never aborts its batch.
func (p *Pipeline) Process(ctx context.Context, row order.RawOrderRow, connectionID string) (outcome Outcome) {
	outcome = Outcome{RowNumber: row.RowNumber}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Row processing panicked",
				slog.Int("row", row.RowNumber),
				slog.Any("panic", r),
			)

			outcome = p.systemError(row, fmt.Sprintf("internal error: %v", r))
		}
	}()

	// Resolve the owning organization. Failure here is a system error, not
	// a validation error: the row itself may be fine.
	org, err := p.store.FindOrganizationByConnection(ctx, connectionID)
	if err != nil {
		return p.systemError(row, fmt.Sprintf("resolve organization for connection %s: %v", connectionID, err))
	}

	// Validate all fields; product resolution happens inside and is
	// reused below.
	result, resolvedProduct := p.orchestrator.ValidateRow(ctx, org, row)
	outcome.ValidationResult = result

	if !result.IsValid() {
		outcome.Error = validationError(row, result)

		return outcome
	}

	// Resolve or create the catalog entities the order references.
	customer, err := p.resolver.EnsureCustomer(ctx, org, row)
	if err != nil {
		return p.systemErrorWithResult(row, result, fmt.Sprintf("resolve customer: %v", err))
	}

	product, err := p.resolver.EnsureProduct(ctx, org, row, resolvedProduct)
	if err != nil {
		return p.systemErrorWithResult(row, result, fmt.Sprintf("resolve product: %v", err))
	}

	defaultStore, err := p.store.FindDefaultStore(ctx, org.ID)
	if err != nil {
		return p.systemErrorWithResult(row, result, fmt.Sprintf("resolve default store: %v", err))
	}

	orderDate, ok := validation.ParseOrderDate(row.OrderDate)
	if !ok {
		// Unreachable after validation, kept as a guard for callers that
		// bypass the orchestrator.
		orderDate = time.Now().UTC()
	}

	subject := matching.Subject{
		Row:         row,
		Phone:       customer.Phone,
		ProductID:   product.ID,
		ProductName: product.Name,
		ProductSKU:  product.SKU,
		Day:         orderDate,
	}

	verdict, err := p.detector.Detect(ctx, org.ID, subject, p.forceResync)
	if err != nil {
		return p.systemErrorWithResult(row, result, fmt.Sprintf("duplicate detection: %v", err))
	}

	if verdict.Classification == matching.ClassificationSkip {
		outcome.Skipped = true
		outcome.Reason = verdict.Reason
		outcome.OrderID = verdict.MatchedOrderID

		p.logger.Info("Row skipped",
			slog.Int("row", row.RowNumber),
			slog.String("organization_id", org.ID),
			slog.String("reason", verdict.Reason),
		)

		return outcome
	}

	notes := ""
	if verdict.Classification == matching.ClassificationFlag {
		notes = flagNote(verdict)
	}

	created, err := p.allocator.AllocateAndCreate(ctx, org.ID, time.Now().UTC(), func(orderNumber string) order.NewOrder {
		return order.NewOrder{
			OrderNumber:     orderNumber,
			CustomerID:      customer.ID,
			CustomerName:    strings.TrimSpace(row.CustomerName),
			CustomerPhone:   customer.Phone,
			ProductID:       product.ID,
			ProductName:     product.Name,
			ProductSKU:      product.SKU,
			StoreID:         defaultStore.ID,
			Quantity:        row.Quantity,
			UnitPrice:       row.UnitPrice,
			Total:           row.Total(),
			Address:         strings.TrimSpace(row.Address),
			City:            strings.TrimSpace(row.City),
			OrderDate:       orderDate,
			SourceRowNumber: row.RowNumber,
			Notes:           notes,
		}
	})
	if err != nil {
		return p.systemErrorWithResult(row, result, fmt.Sprintf("persist order: %v", err))
	}

	outcome.Created = true
	outcome.OrderID = created.ID
	outcome.OrderNumber = created.OrderNumber
	outcome.Flagged = verdict.Classification == matching.ClassificationFlag
	outcome.Reason = verdict.Reason

	p.logger.Info("Order created",
		slog.Int("row", row.RowNumber),
		slog.String("organization_id", org.ID),
		slog.String("order_number", created.OrderNumber),
		slog.Bool("flagged", outcome.Flagged),
	)

	return outcome
}

// flagNote builds the reviewer-facing note appended to flagged orders.
func flagNote(verdict matching.Verdict) string {
	note := fmt.Sprintf("Potential duplicate of order %s (similarity %.2f)", verdict.MatchedOrderID, verdict.SimilarityScore)
	if len(verdict.ConflictingFields) > 0 {
		note += "; differing fields: " + strings.Join(verdict.ConflictingFields, ", ")
	}

	return note
}

// validationError projects the first blocking issue into the outcome
// error. The full issue list stays on ValidationResult.
func validationError(row order.RawOrderRow, result validation.Result) *SyncError {
	first := result.Errors[0]

	errType := ErrorTypeValidation
	if first.Code == validation.CodeProductNotFound {
		errType = ErrorTypeProductNotFound
	}

	return &SyncError{
		RowNumber:    row.RowNumber,
		ErrorType:    errType,
		ErrorMessage: first.Message,
		Field:        first.Field,
		SuggestedFix: first.SuggestedFix,
	}
}

func (p *Pipeline) systemError(row order.RawOrderRow, message string) Outcome {
	return Outcome{
		RowNumber: row.RowNumber,
		Error: &SyncError{
			RowNumber:    row.RowNumber,
			ErrorType:    ErrorTypeSystem,
			ErrorMessage: message,
		},
	}
}

func (p *Pipeline) systemErrorWithResult(row order.RawOrderRow, result validation.Result, message string) Outcome {
	outcome := p.systemError(row, message)
	outcome.ValidationResult = result

	return outcome
}
