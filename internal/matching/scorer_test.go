package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gridsync-io/gridsync/internal/order"
)

func scoringSubject() Subject {
	return Subject{
		Row: order.RawOrderRow{
			RowNumber:    2,
			CustomerName: "Fatima Zahra",
			Address:      "12 Rue Atlas, Maarif",
			ProductName:  "Argan Oil 100ml",
			Quantity:     2,
			UnitPrice:    149,
		},
		Phone:       "+212655823417",
		ProductID:   "prod-1",
		ProductName: "Argan Oil 100ml",
		ProductSKU:  "ARG-100",
		Day:         time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
	}
}

func scoringCandidate() order.Order {
	return order.Order{
		ID:            "order-1",
		OrderNumber:   "GS202601150001",
		CustomerName:  "Fatima Zahra",
		CustomerPhone: "+212655823417",
		ProductID:     "prod-1",
		ProductName:   "Argan Oil 100ml",
		ProductSKU:    "ARG-100",
		Quantity:      2,
		UnitPrice:     149,
		Total:         298,
		Address:       "12 Rue Atlas, Maarif",
		OrderDate:     time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
	}
}

func TestScoreIdenticalOrder(t *testing.T) {
	score := Score(scoringSubject(), scoringCandidate(), DefaultWeights())

	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestScoreCaseAndSpacingInsensitive(t *testing.T) {
	subject := scoringSubject()
	subject.Row.CustomerName = "  fatima   ZAHRA "
	subject.Row.Address = "12 rue atlas,  maarif"

	score := Score(subject, scoringCandidate(), DefaultWeights())

	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestScoreUnrelatedOrderIsLow(t *testing.T) {
	candidate := order.Order{
		CustomerName:  "Youssef Benali",
		CustomerPhone: "+212700112233",
		ProductID:     "prod-9",
		ProductName:   "Leather Bag",
		ProductSKU:    "BAG-01",
		Total:         900,
		Address:       "5 Avenue Hassan II, Agdal",
	}

	subject := scoringSubject()
	subject.ProductID = "" // unresolved row
	subject.ProductSKU = ""

	score := Score(subject, candidate, DefaultWeights())

	assert.Less(t, score, DefaultFlagThreshold)
}

func TestScorePhoneDominates(t *testing.T) {
	samePhone := scoringCandidate()
	samePhone.CustomerName = "Different Person"

	differentPhone := scoringCandidate()
	differentPhone.CustomerPhone = "+212700112233"

	weights := DefaultWeights()
	subject := scoringSubject()

	assert.Greater(t, Score(subject, samePhone, weights), Score(subject, differentPhone, weights))
}

func TestScoreSKUMatchOverridesNameDrift(t *testing.T) {
	candidate := scoringCandidate()
	candidate.ProductID = "prod-other"
	candidate.ProductName = "Huile d'Argan 100ml"
	candidate.ProductSKU = "arg-100" // case-insensitive SKU hit

	subject := scoringSubject()
	subject.ProductID = ""

	score := Score(subject, candidate, DefaultWeights())

	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestScoreStaysInRange(t *testing.T) {
	candidates := []order.Order{
		{},
		scoringCandidate(),
		{CustomerName: "x", CustomerPhone: "1", Total: 1e9, Address: "y"},
	}

	for i, candidate := range candidates {
		score := Score(scoringSubject(), candidate, DefaultWeights())

		assert.GreaterOrEqual(t, score, 0.0, "candidate %d", i)
		assert.LessOrEqual(t, score, 1.0, "candidate %d", i)
	}
}

func TestPriceSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, priceSimilarity(100, 100), 1e-9)
	assert.InDelta(t, 1.0, priceSimilarity(100, 100.005), 1e-9)
	assert.InDelta(t, 0.5, priceSimilarity(100, 200), 1e-9)
	assert.InDelta(t, 0.0, priceSimilarity(0, 100), 1e-9)
	assert.InDelta(t, 1.0, priceSimilarity(0, 0), 1e-9)
}

func TestIdentifyConflictingFields(t *testing.T) {
	t.Run("identical orders have no conflicts", func(t *testing.T) {
		conflicts := IdentifyConflictingFields(scoringSubject(), scoringCandidate(), DefaultConflictThreshold)

		assert.Empty(t, conflicts)
	})

	t.Run("exact fields conflict on any mismatch", func(t *testing.T) {
		candidate := scoringCandidate()
		candidate.CustomerPhone = "+212655823418" // one digit off
		candidate.Total = 300

		conflicts := IdentifyConflictingFields(scoringSubject(), candidate, DefaultConflictThreshold)

		assert.Contains(t, conflicts, "phone")
		assert.Contains(t, conflicts, "price")
		assert.NotContains(t, conflicts, "customerName")
	})

	t.Run("fuzzy fields conflict below the threshold", func(t *testing.T) {
		candidate := scoringCandidate()
		candidate.CustomerName = "Completely Other Name"
		candidate.Address = "Somewhere else entirely, Rabat"

		conflicts := IdentifyConflictingFields(scoringSubject(), candidate, DefaultConflictThreshold)

		assert.Contains(t, conflicts, "customerName")
		assert.Contains(t, conflicts, "address")
		assert.NotContains(t, conflicts, "productName")
	})
}
