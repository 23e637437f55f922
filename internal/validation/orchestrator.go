package validation

import (
	"context"
	"log/slog"
	"math"
	"strconv"

	"github.com/gridsync-io/gridsync/internal/order"
)

// Quantity bounds. A zero or negative quantity blocks the row; a very
// large one is created but flagged for review.
const (
	minQuantity        = 1
	suspiciousQuantity = 1000
)

type (
	// RuleSet configures which checks the orchestrator treats as
	// mandatory. Name, address, city and date checks always run; the rest
	// are tenant policy.
	RuleSet struct {
		RequirePhone    bool
		RequireProduct  bool
		RequirePrice    bool
		PhoneFormat     PhoneFormat
		PriceValidation bool
	}

	// ProductResolver resolves a row's product against the catalog during
	// validation. Implemented by the ingestion entity resolver; defined
	// here so validation does not depend on the resolver's package.
	//
	// Implementations must not return resolution infrastructure failures
	// as Go errors: per the error handling contract they are converted to
	// CodeValidationError issues and logged, so validation of the
	// remaining fields continues.
	ProductResolver interface {
		ResolveProduct(ctx context.Context, org *order.Organization, row order.RawOrderRow) (*order.ResolvedProduct, []Issue)
	}

	// Orchestrator runs all field validators plus resolver-backed product
	// checks over one raw row and aggregates the issues.
	Orchestrator struct {
		rules    RuleSet
		resolver ProductResolver
		logger   *slog.Logger
	}
)

// DefaultRules returns the standard rule set: phone, product and price all
// required, Moroccan phone format.
func DefaultRules() RuleSet {
	return RuleSet{
		RequirePhone:    true,
		RequireProduct:  true,
		RequirePrice:    true,
		PhoneFormat:     PhoneFormatMorocco,
		PriceValidation: true,
	}
}

// NewOrchestrator creates a row validation orchestrator. The resolver may
// be nil, in which case product checks are limited to presence and
// quantity.
func NewOrchestrator(rules RuleSet, resolver ProductResolver, logger *slog.Logger) *Orchestrator {
	if rules.PhoneFormat == "" {
		rules.PhoneFormat = PhoneFormatMorocco
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		rules:    rules,
		resolver: resolver,
		logger:   logger,
	}
}

// ValidateRow validates every field of the row and returns the aggregated
// result plus the product resolution computed along the way, so the
// pipeline does not resolve twice.
//
// Check order is fixed: presence and length of name/address/city, phone,
// product (presence, quantity, catalog resolution, price variance), price,
// date, then the optional email shape check. The row is valid iff no check
// produced an error; warnings never affect validity.
func (o *Orchestrator) ValidateRow(ctx context.Context, org *order.Organization, row order.RawOrderRow) (Result, *order.ResolvedProduct) {
	var result Result

	result.Merge(ValidateRequiredString("customerName", row.CustomerName, CustomerNameBounds))
	result.Merge(ValidateRequiredString("address", row.Address, AddressBounds))
	result.Merge(ValidateRequiredString("city", row.City, CityBounds))

	if o.rules.RequirePhone {
		result.Merge(ValidatePhone(row.Phone, o.rules.PhoneFormat))
	} else if NormalizePhone(row.Phone) != "" {
		result.Merge(ValidatePhone(row.Phone, o.rules.PhoneFormat))
	}

	resolved := o.validateProduct(ctx, org, row, &result)

	if o.rules.RequirePrice && o.rules.PriceValidation {
		currency := ""
		if org != nil {
			currency = org.Currency
		}

		result.Merge(ValidatePrice(row.UnitPrice, row.Quantity, currency))
	}

	_, dateResult := ValidateDate(row.OrderDate)
	result.Merge(dateResult)

	result.Merge(ValidateEmail(row.Email))

	return result, resolved
}

// validateProduct runs presence and quantity checks, then delegates
// catalog resolution to the resolver when one is configured.
func (o *Orchestrator) validateProduct(ctx context.Context, org *order.Organization, row order.RawOrderRow, result *Result) *order.ResolvedProduct {
	if o.rules.RequireProduct {
		nameCheck := ValidateRequiredString("productName", row.ProductName, StringBounds{Min: 2, Max: 200})

		result.Merge(nameCheck)

		if !nameCheck.IsValid() {
			return nil
		}
	} else if row.ProductName == "" {
		return nil
	}

	if row.Quantity < minQuantity {
		result.AddError(Issue{
			Field:        "quantity",
			Code:         CodeInvalidValue,
			Message:      "quantity must be at least 1",
			Value:        strconv.Itoa(row.Quantity),
			SuggestedFix: "enter a quantity of 1 or more",
		})

		return nil
	}

	if row.Quantity > suspiciousQuantity {
		result.AddWarning(Issue{
			Field:   "quantity",
			Code:    CodeSuspiciousValue,
			Message: "quantity is unusually large",
			Value:   strconv.Itoa(row.Quantity),
		})
	}

	if o.resolver == nil || org == nil {
		return nil
	}

	resolved, issues := o.resolver.ResolveProduct(ctx, org, row)

	for _, issue := range issues {
		if issue.Code == CodeProductNotFound && !o.rules.RequireProduct {
			continue
		}

		switch issue.Code {
		case CodeValidationError:
			// Resolution infrastructure failure. Row-blocking, since the
			// pipeline could not tell whether the product exists.
			result.AddError(issue)
		case CodeProductNotFound:
			if resolved != nil && !resolved.Found && !resolved.AutoCreate {
				// Auto-create disabled: missing product blocks the row.
				result.AddError(issue)
			} else {
				result.AddWarning(issue)
			}
		default:
			result.AddWarning(issue)
		}
	}

	// Price variance check against the resolved catalog price.
	if resolved != nil && resolved.Found && o.rules.PriceValidation {
		o.checkPriceVariance(row, resolved, result)
	}

	return resolved
}

// priceVarianceThreshold is the relative divergence from the catalog price
// above which a PRICE_MISMATCH warning is raised. The sheet price always
// wins; the warning exists so the owner notices stale catalog prices.
const priceVarianceThreshold = 0.20

func (o *Orchestrator) checkPriceVariance(row order.RawOrderRow, resolved *order.ResolvedProduct, result *Result) {
	if resolved.CatalogPrice <= 0 || row.UnitPrice < 0 || math.IsNaN(row.UnitPrice) {
		return
	}

	variance := math.Abs(row.UnitPrice-resolved.CatalogPrice) / resolved.CatalogPrice
	if variance > priceVarianceThreshold {
		result.AddWarning(Issue{
			Field:        "unitPrice",
			Code:         CodePriceMismatch,
			Message:      "price differs from the catalog price by more than 20%",
			Value:        formatPrice(row.UnitPrice),
			SuggestedFix: "catalog price is " + formatPrice(resolved.CatalogPrice),
		})
	}
}
