// Package ingestion orchestrates the per-row order ingestion pipeline:
// validation, entity resolution, duplicate detection, order number
// allocation, and persistence.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/gridsync-io/gridsync/internal/matching"
	"github.com/gridsync-io/gridsync/internal/order"
	"github.com/gridsync-io/gridsync/internal/validation"
)

type (
	// ResolverConfig controls entity resolution behavior.
	ResolverConfig struct {
		// AutoCreateProducts creates a catalog product from the row when
		// no match is found, surfacing only a warning. When false, an
		// unresolved product blocks the row instead.
		AutoCreateProducts bool

		// SuggestionCutoff and MaxSuggestions bound the fuzzy suggestion
		// list for unresolved products.
		SuggestionCutoff float64

		// MaxCandidates bounds how many catalog products the fuzzy scan
		// loads.
		MaxCandidates int

		// MaxSuggestions bounds the returned suggestion list.
		MaxSuggestions int
	}

	// EntityResolver resolves raw row identities (product, customer)
	// against the organization's catalog, creating records when allowed.
	// It implements validation.ProductResolver.
	EntityResolver struct {
		store  order.RecordStore
		cfg    ResolverConfig
		logger *slog.Logger
	}
)

// DefaultResolverConfig returns resolution defaults aligned with the
// matching configuration.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		AutoCreateProducts: true,
		SuggestionCutoff:   matching.DefaultSuggestionCutoff,
		MaxCandidates:      matching.DefaultMaxProductCandidates,
		MaxSuggestions:     matching.DefaultMaxSuggestions,
	}
}

// NewEntityResolver creates an entity resolver over the record store.
func NewEntityResolver(store order.RecordStore, cfg ResolverConfig, logger *slog.Logger) *EntityResolver {
	if cfg.SuggestionCutoff <= 0 {
		cfg.SuggestionCutoff = matching.DefaultSuggestionCutoff
	}

	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = matching.DefaultMaxProductCandidates
	}

	if cfg.MaxSuggestions <= 0 {
		cfg.MaxSuggestions = matching.DefaultMaxSuggestions
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &EntityResolver{
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// ResolveProduct resolves the row's product within the organization.
//
// Resolution order: exact SKU match (with a name-mismatch warning when the
// sheet name diverges from the catalog name), exact case-insensitive name
// match, then a fuzzy scan over up to MaxCandidates products keeping
// matches above the suggestion cutoff. When nothing resolves, the result
// reports Found=false with ranked suggestions, and AutoCreate tells the
// caller whether the pipeline will create the product on demand.
//
// Store failures never propagate: they are logged with organization and
// product context and converted to a VALIDATION_ERROR issue, so the row's
// remaining checks still run.
func (r *EntityResolver) ResolveProduct(ctx context.Context, org *order.Organization, row order.RawOrderRow) (*order.ResolvedProduct, []validation.Issue) {
	var issues []validation.Issue

	name := strings.TrimSpace(row.ProductName)
	sku := strings.TrimSpace(row.ProductSKU)

	// Tier 1: exact SKU match.
	if sku != "" {
		product, err := r.store.FindProductBySKU(ctx, org.ID, sku)

		switch {
		case err == nil:
			if !strings.EqualFold(product.Name, name) {
				issues = append(issues, validation.Issue{
					Field:        "productName",
					Code:         validation.CodeNameMismatch,
					Message:      "product name does not match the catalog name for this SKU",
					Value:        row.ProductName,
					SuggestedFix: "catalog name is " + product.Name,
				})
			}

			return resolvedFromProduct(product), issues
		case !errors.Is(err, order.ErrNotFound):
			return nil, append(issues, r.resolutionFailure(org, row, err))
		}
	}

	// Tier 2: exact case-insensitive name match.
	product, err := r.store.FindProductByName(ctx, org.ID, name)

	switch {
	case err == nil:
		return resolvedFromProduct(product), issues
	case !errors.Is(err, order.ErrNotFound):
		return nil, append(issues, r.resolutionFailure(org, row, err))
	}

	// Tier 3: fuzzy scan across the organization's catalog.
	candidates, err := r.store.ListProducts(ctx, org.ID, r.cfg.MaxCandidates)
	if err != nil {
		return nil, append(issues, r.resolutionFailure(org, row, err))
	}

	suggestions := r.rankSuggestions(name, candidates)

	resolved := &order.ResolvedProduct{
		Found:       false,
		AutoCreate:  r.cfg.AutoCreateProducts,
		Name:        name,
		SKU:         sku,
		Suggestions: suggestions,
	}

	message := "product not found in the catalog"
	if r.cfg.AutoCreateProducts {
		message += "; it will be created automatically"
	}

	suggestedFix := ""
	if len(suggestions) > 0 {
		suggestedFix = "did you mean " + suggestions[0].Name + "?"
	}

	issues = append(issues, validation.Issue{
		Field:        "productName",
		Code:         validation.CodeProductNotFound,
		Message:      message,
		Value:        row.ProductName,
		SuggestedFix: suggestedFix,
	})

	return resolved, issues
}

// rankSuggestions scores each candidate by name similarity, keeps those
// above the cutoff, and returns the top MaxSuggestions sorted descending.
func (r *EntityResolver) rankSuggestions(name string, candidates []order.Product) []order.ProductSuggestion {
	suggestions := make([]order.ProductSuggestion, 0, len(candidates))

	for _, candidate := range candidates {
		similarity := matching.StringSimilarity(strings.ToLower(name), strings.ToLower(candidate.Name))
		if similarity > r.cfg.SuggestionCutoff {
			suggestions = append(suggestions, order.ProductSuggestion{
				ProductID:  candidate.ID,
				Name:       candidate.Name,
				SKU:        candidate.SKU,
				Similarity: similarity,
			})
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Similarity > suggestions[j].Similarity
	})

	if len(suggestions) > r.cfg.MaxSuggestions {
		suggestions = suggestions[:r.cfg.MaxSuggestions]
	}

	return suggestions
}

// EnsureProduct returns the catalog product for a resolved row, creating
// it when resolution found nothing and auto-create is on.
//
// The create path treats a uniqueness violation as "another row created it
// first" and re-fetches instead of failing: create-or-reuse must be
// idempotent under concurrent identical rows.
func (r *EntityResolver) EnsureProduct(ctx context.Context, org *order.Organization, row order.RawOrderRow, resolved *order.ResolvedProduct) (*order.Product, error) {
	if resolved != nil && resolved.Found {
		return &order.Product{
			ID:             resolved.ID,
			OrganizationID: org.ID,
			Name:           resolved.Name,
			SKU:            resolved.SKU,
			Price:          resolved.CatalogPrice,
			Currency:       resolved.Currency,
		}, nil
	}

	if !r.cfg.AutoCreateProducts {
		return nil, fmt.Errorf("%w: product %q", order.ErrNotFound, row.ProductName)
	}

	product, err := r.store.CreateProduct(ctx, org.ID, order.NewProduct{
		Name:     strings.TrimSpace(row.ProductName),
		SKU:      strings.TrimSpace(row.ProductSKU),
		Price:    row.UnitPrice,
		Currency: org.Currency,
	})
	if err == nil {
		r.logger.Info("Auto-created product",
			slog.String("organization_id", org.ID),
			slog.String("product_id", product.ID),
			slog.String("name", product.Name),
		)

		return product, nil
	}

	if !errors.Is(err, order.ErrUniqueViolation) {
		return nil, fmt.Errorf("create product: %w", err)
	}

	// Lost the create race: the product now exists, look it up again.
	if sku := strings.TrimSpace(row.ProductSKU); sku != "" {
		if product, err := r.store.FindProductBySKU(ctx, org.ID, sku); err == nil {
			return product, nil
		}
	}

	product, err = r.store.FindProductByName(ctx, org.ID, strings.TrimSpace(row.ProductName))
	if err != nil {
		return nil, fmt.Errorf("re-fetch product after unique violation: %w", err)
	}

	return product, nil
}

// EnsureCustomer finds the organization's customer by normalized phone or
// creates one from the row. Reuse is by phone only: two customers of the
// same organization never share a phone number. The same
// unique-violation-as-lookup handling applies as for products.
func (r *EntityResolver) EnsureCustomer(ctx context.Context, org *order.Organization, row order.RawOrderRow) (*order.ResolvedCustomer, error) {
	phone := validation.NormalizePhone(row.Phone)

	existing, err := r.store.FindCustomerByPhone(ctx, org.ID, phone)
	if err == nil {
		return &order.ResolvedCustomer{
			ID:        existing.ID,
			FirstName: existing.FirstName,
			LastName:  existing.LastName,
			Phone:     existing.Phone,
			Created:   false,
		}, nil
	}

	if !errors.Is(err, order.ErrNotFound) {
		return nil, fmt.Errorf("find customer: %w", err)
	}

	first, last := order.SplitName(row.CustomerName)

	created, err := r.store.CreateCustomer(ctx, org.ID, order.NewCustomer{
		FirstName: first,
		LastName:  last,
		Phone:     phone,
		Address:   strings.TrimSpace(row.Address),
		City:      strings.TrimSpace(row.City),
		Email:     strings.TrimSpace(row.Email),
	})
	if err == nil {
		r.logger.Info("Created customer",
			slog.String("organization_id", org.ID),
			slog.String("customer_id", created.ID),
		)

		return &order.ResolvedCustomer{
			ID:        created.ID,
			FirstName: created.FirstName,
			LastName:  created.LastName,
			Phone:     created.Phone,
			Created:   true,
		}, nil
	}

	if !errors.Is(err, order.ErrUniqueViolation) {
		return nil, fmt.Errorf("create customer: %w", err)
	}

	existing, err = r.store.FindCustomerByPhone(ctx, org.ID, phone)
	if err != nil {
		return nil, fmt.Errorf("re-fetch customer after unique violation: %w", err)
	}

	return &order.ResolvedCustomer{
		ID:        existing.ID,
		FirstName: existing.FirstName,
		LastName:  existing.LastName,
		Phone:     existing.Phone,
		Created:   false,
	}, nil
}

// resolutionFailure logs a store failure with enough context to diagnose
// and converts it to a VALIDATION_ERROR issue.
func (r *EntityResolver) resolutionFailure(org *order.Organization, row order.RawOrderRow, err error) validation.Issue {
	r.logger.Error("Product resolution failed",
		slog.String("organization_id", org.ID),
		slog.String("product_name", row.ProductName),
		slog.String("product_sku", row.ProductSKU),
		slog.String("error", err.Error()),
	)

	return validation.Issue{
		Field:   "productName",
		Code:    validation.CodeValidationError,
		Message: "product lookup failed; try the row again",
		Value:   row.ProductName,
	}
}

func resolvedFromProduct(p *order.Product) *order.ResolvedProduct {
	return &order.ResolvedProduct{
		Found:        true,
		ID:           p.ID,
		Name:         p.Name,
		SKU:          p.SKU,
		CatalogPrice: p.Price,
		Currency:     p.Currency,
	}
}
