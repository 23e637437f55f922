package matching

import (
	"math"
	"strings"
	"time"

	"github.com/gridsync-io/gridsync/internal/order"
)

// Subject is the row-side input to duplicate scoring: the raw row plus the
// identities the pipeline already resolved for it. Phone must be in the
// same normalized form stored on orders.
type Subject struct {
	Row         order.RawOrderRow
	Phone       string
	ProductID   string
	ProductName string
	ProductSKU  string
	Day         time.Time
}

// priceCloseTolerance treats prices within a hundredth of a unit as equal,
// absorbing float formatting noise between sheet and store.
const priceCloseTolerance = 0.01

// Score computes the weighted cross-field similarity between a subject row
// and a stored order, in [0, 1].
//
// Sub-scores: customer name (normalized Levenshtein over the folded full
// name), phone (digit similarity, exact match dominates), product (SKU
// equality short-circuits to 1, otherwise name similarity), price
// (relative closeness of totals), address (normalized Levenshtein). Each
// sub-score is weighted per w; with valid weights the result stays in
// [0, 1].
func Score(s Subject, candidate order.Order, w Weights) float64 {
	score := w.CustomerName*nameSimilarity(s.Row.CustomerName, candidate.CustomerName) +
		w.Phone*phoneSimilarity(s.Phone, candidate.CustomerPhone) +
		w.Product*productSimilarity(s, candidate) +
		w.Price*priceSimilarity(s.Row.Total(), candidate.Total) +
		w.Address*nameSimilarity(s.Row.Address, candidate.Address)

	return math.Min(score, 1)
}

// IdentifyConflictingFields returns the names of fields that diverge
// between the subject and a matched order: fuzzy fields (customer name,
// address, product name) below the conflict threshold, and exact fields
// (phone, price) on any mismatch. Used to annotate flagged orders so a
// reviewer sees at a glance what differs.
func IdentifyConflictingFields(s Subject, candidate order.Order, conflictThreshold float64) []string {
	var conflicting []string

	if nameSimilarity(s.Row.CustomerName, candidate.CustomerName) < conflictThreshold {
		conflicting = append(conflicting, "customerName")
	}

	if phoneSimilarity(s.Phone, candidate.CustomerPhone) < 1 {
		conflicting = append(conflicting, "phone")
	}

	if productSimilarity(s, candidate) < conflictThreshold {
		conflicting = append(conflicting, "productName")
	}

	if priceSimilarity(s.Row.Total(), candidate.Total) < 1 {
		conflicting = append(conflicting, "price")
	}

	if nameSimilarity(s.Row.Address, candidate.Address) < conflictThreshold {
		conflicting = append(conflicting, "address")
	}

	return conflicting
}

// nameSimilarity folds case and whitespace before comparing, so "john DOE"
// and "John Doe" are identical.
func nameSimilarity(a, b string) float64 {
	return StringSimilarity(foldText(a), foldText(b))
}

// phoneSimilarity compares digits-only forms. Identical numbers score 1;
// otherwise the digit-string similarity still gives near matches (one
// mistyped digit) a high sub-score.
func phoneSimilarity(a, b string) float64 {
	da := digitsOnly(a)
	db := digitsOnly(b)

	if da == "" && db == "" {
		return 1
	}

	if da == db {
		return 1
	}

	return StringSimilarity(da, db)
}

// productSimilarity short-circuits to 1 on an SKU match, since SKUs are
// exact identifiers; otherwise compares product names fuzzily, and falls
// back to product ID equality when the row resolved to a catalog product.
func productSimilarity(s Subject, candidate order.Order) float64 {
	if s.ProductID != "" && s.ProductID == candidate.ProductID {
		return 1
	}

	if s.ProductSKU != "" && candidate.ProductSKU != "" &&
		strings.EqualFold(strings.TrimSpace(s.ProductSKU), strings.TrimSpace(candidate.ProductSKU)) {
		return 1
	}

	name := s.ProductName
	if name == "" {
		name = s.Row.ProductName
	}

	return nameSimilarity(name, candidate.ProductName)
}

// priceSimilarity maps relative divergence of totals into [0, 1]: equal
// totals score 1, a total twice (or half) the other scores 0.5, and the
// score floors at 0.
func priceSimilarity(a, b float64) float64 {
	if math.Abs(a-b) <= priceCloseTolerance {
		return 1
	}

	larger := math.Max(math.Abs(a), math.Abs(b))
	if larger == 0 {
		return 1
	}

	return math.Max(0, 1-math.Abs(a-b)/larger)
}

// foldText lowercases and collapses internal whitespace.
func foldText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// digitsOnly strips everything except digits.
func digitsOnly(s string) string {
	var b strings.Builder

	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	return b.String()
}
