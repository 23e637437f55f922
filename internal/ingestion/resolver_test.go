package ingestion

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridsync-io/gridsync/internal/order"
	"github.com/gridsync-io/gridsync/internal/storage"
	"github.com/gridsync-io/gridsync/internal/validation"
)

func setupResolver(t *testing.T) (*storage.MemoryStore, *EntityResolver, *order.Organization) {
	t.Helper()

	store := storage.NewMemoryStore()
	org := store.SeedOrganization("conn-1", "Atlas Trading", "MAD", "fr")
	resolver := NewEntityResolver(store, DefaultResolverConfig(), nil)

	return store, resolver, &org
}

func resolverRow() order.RawOrderRow {
	return order.RawOrderRow{
		RowNumber:    2,
		CustomerName: "Fatima Zahra",
		Phone:        "0655823417",
		Address:      "12 Rue Atlas, Maarif",
		City:         "Casablanca",
		ProductName:  "Argan Oil 100ml",
		ProductSKU:   "ARG-100",
		Quantity:     2,
		UnitPrice:    149,
	}
}

func TestResolveProductBySKU(t *testing.T) {
	store, resolver, org := setupResolver(t)
	ctx := context.Background()

	seeded, err := store.CreateProduct(ctx, org.ID, order.NewProduct{
		Name: "Argan Oil 100ml", SKU: "ARG-100", Price: 149, Currency: "MAD",
	})
	require.NoError(t, err)

	resolved, issues := resolver.ResolveProduct(ctx, org, resolverRow())

	require.NotNil(t, resolved)
	assert.True(t, resolved.Found)
	assert.Equal(t, seeded.ID, resolved.ID)
	assert.Empty(t, issues)
}

func TestResolveProductSKUNameMismatchWarns(t *testing.T) {
	store, resolver, org := setupResolver(t)
	ctx := context.Background()

	_, err := store.CreateProduct(ctx, org.ID, order.NewProduct{
		Name: "Huile d'Argan 100ml", SKU: "ARG-100", Price: 149, Currency: "MAD",
	})
	require.NoError(t, err)

	resolved, issues := resolver.ResolveProduct(ctx, org, resolverRow())

	require.NotNil(t, resolved)
	assert.True(t, resolved.Found)
	require.Len(t, issues, 1)
	assert.Equal(t, validation.CodeNameMismatch, issues[0].Code)
	assert.Contains(t, issues[0].SuggestedFix, "Huile d'Argan 100ml")
}

func TestResolveProductByNameWithoutSKU(t *testing.T) {
	store, resolver, org := setupResolver(t)
	ctx := context.Background()

	seeded, err := store.CreateProduct(ctx, org.ID, order.NewProduct{
		Name: "Argan Oil 100ml", SKU: "", Price: 149, Currency: "MAD",
	})
	require.NoError(t, err)

	row := resolverRow()
	row.ProductSKU = ""
	row.ProductName = "ARGAN OIL 100ML" // case must not matter

	resolved, issues := resolver.ResolveProduct(ctx, org, row)

	require.NotNil(t, resolved)
	assert.True(t, resolved.Found)
	assert.Equal(t, seeded.ID, resolved.ID)
	assert.Empty(t, issues)
}

func TestResolveProductNotFoundSuggests(t *testing.T) {
	store, resolver, org := setupResolver(t)
	ctx := context.Background()

	seeded, err := store.CreateProduct(ctx, org.ID, order.NewProduct{
		Name: "Argan Oil 100ml", SKU: "ARG-100", Price: 149, Currency: "MAD",
	})
	require.NoError(t, err)

	_, err = store.CreateProduct(ctx, org.ID, order.NewProduct{
		Name: "Leather Bag", SKU: "BAG-01", Price: 450, Currency: "MAD",
	})
	require.NoError(t, err)

	row := resolverRow()
	row.ProductSKU = ""
	row.ProductName = "Argan Oil 100 ml" // near miss

	resolved, issues := resolver.ResolveProduct(ctx, org, row)

	require.NotNil(t, resolved)
	assert.False(t, resolved.Found)
	assert.True(t, resolved.AutoCreate)
	require.NotEmpty(t, resolved.Suggestions)
	assert.Equal(t, seeded.ID, resolved.Suggestions[0].ProductID)

	require.Len(t, issues, 1)
	assert.Equal(t, validation.CodeProductNotFound, issues[0].Code)
	assert.Contains(t, issues[0].SuggestedFix, "Argan Oil 100ml")
}

func TestResolveProductSuggestionsRankedAndCapped(t *testing.T) {
	store := storage.NewMemoryStore()
	org := store.SeedOrganization("conn-1", "Atlas Trading", "MAD", "en")

	cfg := DefaultResolverConfig()
	cfg.MaxSuggestions = 2
	resolver := NewEntityResolver(store, cfg, nil)

	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := store.CreateProduct(ctx, org.ID, order.NewProduct{
			Name: fmt.Sprintf("Argan Oil %d0ml", i+1), SKU: fmt.Sprintf("ARG-%d", i),
		})
		require.NoError(t, err)
	}

	row := resolverRow()
	row.ProductSKU = ""
	row.ProductName = "Argan Oil 15ml"

	resolved, _ := resolver.ResolveProduct(ctx, &org, row)

	require.NotNil(t, resolved)
	require.Len(t, resolved.Suggestions, 2)
	assert.GreaterOrEqual(t, resolved.Suggestions[0].Similarity, resolved.Suggestions[1].Similarity)
}

func TestEnsureProductCreatesWhenMissing(t *testing.T) {
	store, resolver, org := setupResolver(t)
	ctx := context.Background()

	row := resolverRow()

	resolved, _ := resolver.ResolveProduct(ctx, org, row)
	require.False(t, resolved.Found)

	product, err := resolver.EnsureProduct(ctx, org, row, resolved)
	require.NoError(t, err)
	assert.Equal(t, "Argan Oil 100ml", product.Name)
	assert.Equal(t, "ARG-100", product.SKU)
	assert.InDelta(t, 149.0, product.Price, 1e-9)
	assert.Equal(t, "MAD", product.Currency)

	// The product is now in the catalog.
	found, err := store.FindProductBySKU(ctx, org.ID, "ARG-100")
	require.NoError(t, err)
	assert.Equal(t, product.ID, found.ID)
}

func TestEnsureProductBlockedWithoutAutoCreate(t *testing.T) {
	store := storage.NewMemoryStore()
	org := store.SeedOrganization("conn-1", "Atlas Trading", "MAD", "en")

	cfg := DefaultResolverConfig()
	cfg.AutoCreateProducts = false
	resolver := NewEntityResolver(store, cfg, nil)

	_, err := resolver.EnsureProduct(context.Background(), &org, resolverRow(), &order.ResolvedProduct{Found: false})
	assert.ErrorIs(t, err, order.ErrNotFound)
}

// racingStore fails the first create with a unique violation, as if a
// concurrent row won the race, and creates the record so the re-fetch
// finds it.
type racingStore struct {
	*storage.MemoryStore
	raced bool
}

func (s *racingStore) CreateCustomer(ctx context.Context, orgID string, nc order.NewCustomer) (*order.Customer, error) {
	if !s.raced {
		s.raced = true

		if _, err := s.MemoryStore.CreateCustomer(ctx, orgID, nc); err != nil {
			return nil, err
		}

		return nil, order.ErrUniqueViolation
	}

	return s.MemoryStore.CreateCustomer(ctx, orgID, nc)
}

func TestEnsureCustomerReusesByPhone(t *testing.T) {
	store, resolver, org := setupResolver(t)
	ctx := context.Background()

	existing, err := store.CreateCustomer(ctx, org.ID, order.NewCustomer{
		FirstName: "Fatima", LastName: "Zahra", Phone: "0655823417",
	})
	require.NoError(t, err)

	customer, err := resolver.EnsureCustomer(ctx, org, resolverRow())
	require.NoError(t, err)

	assert.Equal(t, existing.ID, customer.ID)
	assert.False(t, customer.Created)
}

func TestEnsureCustomerCreatesAndSplitsName(t *testing.T) {
	store, resolver, org := setupResolver(t)
	ctx := context.Background()

	customer, err := resolver.EnsureCustomer(ctx, org, resolverRow())
	require.NoError(t, err)

	assert.True(t, customer.Created)
	assert.Equal(t, "Fatima", customer.FirstName)
	assert.Equal(t, "Zahra", customer.LastName)
	assert.Equal(t, "0655823417", customer.Phone)

	stored, err := store.FindCustomerByPhone(ctx, org.ID, "0655823417")
	require.NoError(t, err)
	assert.Equal(t, "Casablanca", stored.City)
}

func TestEnsureCustomerNormalizesPhoneForLookup(t *testing.T) {
	_, resolver, org := setupResolver(t)
	ctx := context.Background()

	row := resolverRow()
	row.Phone = "06 55 82 34 17"

	first, err := resolver.EnsureCustomer(ctx, org, row)
	require.NoError(t, err)
	assert.True(t, first.Created)

	row.Phone = "0655823417"

	second, err := resolver.EnsureCustomer(ctx, org, row)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.ID, second.ID)
}

func TestEnsureCustomerLostRaceRefetches(t *testing.T) {
	memory := storage.NewMemoryStore()
	org := memory.SeedOrganization("conn-1", "Atlas Trading", "MAD", "en")
	store := &racingStore{MemoryStore: memory}
	resolver := NewEntityResolver(store, DefaultResolverConfig(), nil)

	customer, err := resolver.EnsureCustomer(context.Background(), &org, resolverRow())
	require.NoError(t, err)

	// The winner's record is reused, not reported as freshly created.
	assert.False(t, customer.Created)
	assert.NotEmpty(t, customer.ID)
}
