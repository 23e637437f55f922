package matching

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gridsync-io/gridsync/internal/order"
)

type (
	// Classification is the terminal state of duplicate detection for one
	// row.
	Classification string

	// Verdict is the outcome of duplicate detection. MatchedOrderID,
	// SimilarityScore and ConflictingFields are populated only for SKIP
	// (exact hit) and FLAG classifications.
	Verdict struct {
		Classification    Classification
		MatchedOrderID    string
		SimilarityScore   float64
		ConflictingFields []string
		Reason            string
	}

	// OrderSearcher is the slice of the record store duplicate detection
	// needs. order.RecordStore satisfies it.
	OrderSearcher interface {
		FindExactDuplicate(ctx context.Context, orgID string, criteria order.DuplicateCriteria) (*order.Order, error)
		FindOrdersOnDate(ctx context.Context, orgID string, day time.Time) ([]order.Order, error)
		FindOrdersInRange(ctx context.Context, orgID string, from, to time.Time) ([]order.Order, error)
	}

	// Detector classifies rows against already-persisted orders. It holds
	// no per-row state: given a fixed store snapshot, the same subject
	// always produces the same verdict.
	Detector struct {
		searcher OrderSearcher
		cfg      Config
		logger   *slog.Logger
	}
)

// Duplicate classifications.
const (
	// ClassificationNew means no duplicate evidence: create the order.
	ClassificationNew Classification = "NEW"

	// ClassificationSkip means high-confidence duplicate: do not create.
	ClassificationSkip Classification = "DUPLICATE_SKIP"

	// ClassificationFlag means probable duplicate: create the order but
	// annotate it for human review. False negatives are cheaper than
	// silently dropping a legitimate order, so anything below the exact
	// match bar is created and flagged rather than skipped.
	ClassificationFlag Classification = "DUPLICATE_FLAG"
)

// Reasons attached to verdicts. Feedback text matches on these.
const (
	ReasonAlreadyLinked  = "already linked"
	ReasonDuplicateFound = "duplicate found"
)

// NewDetector creates a duplicate detector backed by the given searcher.
func NewDetector(searcher OrderSearcher, cfg Config, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}

	return &Detector{
		searcher: searcher,
		cfg:      cfg,
		logger:   logger,
	}
}

// Detect classifies the subject row. Search tiers, in order:
//
//  1. Row already linked to an order and forceResync is off → SKIP.
//  2. Exact match (same day, phone, product, total, address) → SKIP.
//  3. Same-day fuzzy: best weighted score above the flag threshold → FLAG.
//  4. Extended window (±DateWindowDays) fuzzy at the same threshold → FLAG.
//  5. Otherwise → NEW.
//
// A store failure in any tier aborts detection with an error; the caller
// surfaces it as a system failure for that row only.
func (d *Detector) Detect(ctx context.Context, orgID string, subject Subject, forceResync bool) (Verdict, error) {
	if subject.Row.HasOrderID() && !forceResync {
		return Verdict{
			Classification: ClassificationSkip,
			MatchedOrderID: subject.Row.OrderID,
			Reason:         ReasonAlreadyLinked,
		}, nil
	}

	exact, err := d.findExact(ctx, orgID, subject)
	if err != nil {
		return Verdict{}, err
	}

	if exact != nil {
		d.logger.Info("Exact duplicate found",
			slog.String("organization_id", orgID),
			slog.Int("row", subject.Row.RowNumber),
			slog.String("matched_order", exact.OrderNumber),
		)

		return Verdict{
			Classification:  ClassificationSkip,
			MatchedOrderID:  exact.ID,
			SimilarityScore: 1,
			Reason:          ReasonDuplicateFound,
		}, nil
	}

	day := order.Day(subject.Day)

	sameDay, err := d.searcher.FindOrdersOnDate(ctx, orgID, day)
	if err != nil {
		return Verdict{}, fmt.Errorf("same-day duplicate search: %w", err)
	}

	if verdict, found := d.bestFuzzyMatch(subject, sameDay); found {
		return verdict, nil
	}

	// Widen to the extended window, excluding the day already searched.
	window := time.Duration(d.cfg.DateWindowDays) * 24 * time.Hour

	extended, err := d.searcher.FindOrdersInRange(ctx, orgID, day.Add(-window), day.Add(window))
	if err != nil {
		return Verdict{}, fmt.Errorf("extended duplicate search: %w", err)
	}

	candidates := extended[:0:0]

	for _, candidate := range extended {
		if !order.Day(candidate.OrderDate).Equal(day) {
			candidates = append(candidates, candidate)
		}
	}

	if verdict, found := d.bestFuzzyMatch(subject, candidates); found {
		return verdict, nil
	}

	return Verdict{Classification: ClassificationNew}, nil
}

// findExact runs the tier-two exact search. ErrNotFound means no hit, not
// a failure.
func (d *Detector) findExact(ctx context.Context, orgID string, subject Subject) (*order.Order, error) {
	criteria := order.DuplicateCriteria{
		Day:           order.Day(subject.Day),
		CustomerPhone: subject.Phone,
		ProductID:     subject.ProductID,
		ProductName:   subject.ProductName,
		Total:         subject.Row.Total(),
		Address:       subject.Row.Address,
	}

	match, err := d.searcher.FindExactDuplicate(ctx, orgID, criteria)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("exact duplicate search: %w", err)
	}

	return match, nil
}

// bestFuzzyMatch scores every candidate and returns a FLAG verdict for the
// best one above the threshold. Candidate order does not matter: only the
// maximum score wins, so the verdict is deterministic for a fixed
// candidate set.
func (d *Detector) bestFuzzyMatch(subject Subject, candidates []order.Order) (Verdict, bool) {
	bestScore := 0.0

	var best *order.Order

	for i := range candidates {
		score := Score(subject, candidates[i], d.cfg.Weights)
		if score > bestScore {
			bestScore = score
			best = &candidates[i]
		}
	}

	if best == nil || bestScore <= d.cfg.FlagThreshold {
		return Verdict{}, false
	}

	d.logger.Info("Fuzzy duplicate candidate above threshold",
		slog.Int("row", subject.Row.RowNumber),
		slog.String("matched_order", best.OrderNumber),
		slog.Float64("score", bestScore),
	)

	return Verdict{
		Classification:    ClassificationFlag,
		MatchedOrderID:    best.ID,
		SimilarityScore:   bestScore,
		ConflictingFields: IdentifyConflictingFields(subject, *best, d.cfg.ConflictThreshold),
		Reason:            ReasonDuplicateFound,
	}, true
}
