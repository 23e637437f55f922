package order

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors shared by all RecordStore implementations. The pipeline
// and resolvers branch on these with errors.Is, never on driver error codes.
var (
	// ErrNotFound is returned when a scoped lookup matches no record.
	ErrNotFound = errors.New("record not found")

	// ErrUniqueViolation is returned when a create collides with an existing
	// record on a uniqueness constraint (organization+phone for customers,
	// organization+SKU or organization+name for products). Resolvers treat
	// this as "somebody else created it first": re-fetch and reuse.
	ErrUniqueViolation = errors.New("unique constraint violation")

	// ErrStoreFailed wraps unexpected storage failures (connectivity, bad
	// SQL, serialization). These surface as system errors in row outcomes.
	ErrStoreFailed = errors.New("record store operation failed")
)

type (
	// DuplicateCriteria is the exact-match key for tier-one duplicate
	// search: same organization, same calendar day, same customer phone,
	// same product, same total, same address.
	DuplicateCriteria struct {
		Day           time.Time
		CustomerPhone string
		ProductID     string
		ProductName   string
		Total         float64
		Address       string
	}

	// NewCustomer carries the fields needed to create a customer record.
	NewCustomer struct {
		FirstName string
		LastName  string
		Phone     string
		Address   string
		City      string
		Email     string
	}

	// NewProduct carries the fields needed to create a product record.
	NewProduct struct {
		Name     string
		SKU      string
		Price    float64
		Currency string
	}

	// NewOrder carries the fields needed to create a canonical order.
	NewOrder struct {
		OrderNumber     string
		CustomerID      string
		CustomerName    string
		CustomerPhone   string
		ProductID       string
		ProductName     string
		ProductSKU      string
		StoreID         string
		Quantity        int
		UnitPrice       float64
		Total           float64
		Address         string
		City            string
		OrderDate       time.Time
		SourceRowNumber int
		Notes           string
	}

	// RecordStore is the persistence contract the ingestion core consumes.
	//
	// The domain owns this interface; concrete implementations (PostgreSQL,
	// in-memory) live in internal/storage. Every call is scoped by
	// organization ID. Implementations must enforce the uniqueness
	// constraints behind ErrUniqueViolation so that concurrent
	// create-or-reuse races resolve safely (see resolver retry-as-lookup).
	RecordStore interface {
		// FindOrganizationByConnection resolves the tenant owning a sheet
		// connection. Returns ErrNotFound for unknown connections.
		FindOrganizationByConnection(ctx context.Context, connectionID string) (*Organization, error)

		// FindCustomerByPhone looks up a customer by exact phone within the
		// organization. Returns ErrNotFound when absent.
		FindCustomerByPhone(ctx context.Context, orgID, phone string) (*Customer, error)

		// CreateCustomer creates a customer record. Returns
		// ErrUniqueViolation when the organization already has a customer
		// with that phone.
		CreateCustomer(ctx context.Context, orgID string, c NewCustomer) (*Customer, error)

		// FindProductBySKU looks up a product by exact SKU within the
		// organization. Returns ErrNotFound when absent.
		FindProductBySKU(ctx context.Context, orgID, sku string) (*Product, error)

		// FindProductByName looks up a product by exact case-insensitive
		// name within the organization. Returns ErrNotFound when absent.
		FindProductByName(ctx context.Context, orgID, name string) (*Product, error)

		// ListProducts returns up to limit products for the organization,
		// for fuzzy candidate scoring.
		ListProducts(ctx context.Context, orgID string, limit int) ([]Product, error)

		// CreateProduct creates a product record. Returns
		// ErrUniqueViolation on an SKU or name collision within the
		// organization.
		CreateProduct(ctx context.Context, orgID string, p NewProduct) (*Product, error)

		// FindDefaultStore returns the organization's default store.
		FindDefaultStore(ctx context.Context, orgID string) (*Store, error)

		// CountOrdersSince counts orders created for the organization at or
		// after the given instant. Used for order number allocation.
		CountOrdersSince(ctx context.Context, orgID string, since time.Time) (int, error)

		// FindExactDuplicate returns an order matching all criteria fields
		// on the criteria day, or ErrNotFound.
		FindExactDuplicate(ctx context.Context, orgID string, criteria DuplicateCriteria) (*Order, error)

		// FindOrdersOnDate returns all orders for the organization on the
		// given calendar day.
		FindOrdersOnDate(ctx context.Context, orgID string, day time.Time) ([]Order, error)

		// FindOrdersInRange returns all orders for the organization with an
		// order date in [from, to] inclusive, by calendar day.
		FindOrdersInRange(ctx context.Context, orgID string, from, to time.Time) ([]Order, error)

		// CreateOrder persists a canonical order and returns it.
		CreateOrder(ctx context.Context, orgID string, o NewOrder) (*Order, error)
	}
)

// Day truncates t to its calendar day in UTC. All day-scoped duplicate
// queries and order number sequences use this truncation so that a row and
// its stored candidates land in the same bucket.
func Day(t time.Time) time.Time {
	t = t.UTC()

	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
