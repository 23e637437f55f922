package storage

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gridsync-io/gridsync/internal/order"
)

// MemoryStore is an in-memory order.RecordStore for tests and local
// development. It enforces the same uniqueness constraints as the
// PostgreSQL schema so that resolver retry-as-lookup paths behave
// identically against either backend.
type MemoryStore struct {
	mu sync.RWMutex

	organizations map[string]order.Organization
	connections   map[string]string // connection id -> organization id
	stores        map[string]order.Store
	customers     map[string]order.Customer
	products      map[string]order.Product
	orders        map[string]order.Order
}

// NewMemoryStore creates an empty in-memory record store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		organizations: make(map[string]order.Organization),
		connections:   make(map[string]string),
		stores:        make(map[string]order.Store),
		customers:     make(map[string]order.Customer),
		products:      make(map[string]order.Product),
		orders:        make(map[string]order.Order),
	}
}

// SeedOrganization registers an organization with a sheet connection and a
// default store, returning the organization. Test setup helper.
func (s *MemoryStore) SeedOrganization(connectionID, name, currency, locale string) order.Organization {
	s.mu.Lock()
	defer s.mu.Unlock()

	org := order.Organization{
		ID:       uuid.NewString(),
		Name:     name,
		Currency: currency,
		Locale:   locale,
	}
	s.organizations[org.ID] = org
	s.connections[connectionID] = org.ID

	st := order.Store{
		ID:             uuid.NewString(),
		OrganizationID: org.ID,
		Name:           name + " Main",
		IsDefault:      true,
	}
	s.stores[st.ID] = st

	return org
}

func (s *MemoryStore) FindOrganizationByConnection(_ context.Context, connectionID string) (*order.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orgID, ok := s.connections[connectionID]
	if !ok {
		return nil, order.ErrNotFound
	}

	org, ok := s.organizations[orgID]
	if !ok {
		return nil, order.ErrNotFound
	}

	return &org, nil
}

func (s *MemoryStore) FindCustomerByPhone(_ context.Context, orgID, phone string) (*order.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.customers {
		if c.OrganizationID == orgID && c.Phone == phone {
			customer := c

			return &customer, nil
		}
	}

	return nil, order.ErrNotFound
}

func (s *MemoryStore) CreateCustomer(_ context.Context, orgID string, nc order.NewCustomer) (*order.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.customers {
		if existing.OrganizationID == orgID && existing.Phone == nc.Phone {
			return nil, fmt.Errorf("%w: customers_org_phone_unique", order.ErrUniqueViolation)
		}
	}

	c := order.Customer{
		ID:             uuid.NewString(),
		OrganizationID: orgID,
		FirstName:      nc.FirstName,
		LastName:       nc.LastName,
		Phone:          nc.Phone,
		Address:        nc.Address,
		City:           nc.City,
		Email:          nc.Email,
		CreatedAt:      time.Now().UTC(),
	}
	s.customers[c.ID] = c

	return &c, nil
}

func (s *MemoryStore) FindProductBySKU(_ context.Context, orgID, sku string) (*order.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sku == "" {
		return nil, order.ErrNotFound
	}

	for _, p := range s.products {
		if p.OrganizationID == orgID && p.SKU == sku {
			product := p

			return &product, nil
		}
	}

	return nil, order.ErrNotFound
}

func (s *MemoryStore) FindProductByName(_ context.Context, orgID, name string) (*order.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.products {
		if p.OrganizationID == orgID && strings.EqualFold(p.Name, name) {
			product := p

			return &product, nil
		}
	}

	return nil, order.ErrNotFound
}

func (s *MemoryStore) ListProducts(_ context.Context, orgID string, limit int) ([]order.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var products []order.Product

	for _, p := range s.products {
		if p.OrganizationID == orgID {
			products = append(products, p)
		}
	}

	sort.Slice(products, func(i, j int) bool {
		return products[i].CreatedAt.After(products[j].CreatedAt)
	})

	if limit > 0 && len(products) > limit {
		products = products[:limit]
	}

	return products, nil
}

func (s *MemoryStore) CreateProduct(_ context.Context, orgID string, np order.NewProduct) (*order.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.products {
		if existing.OrganizationID != orgID {
			continue
		}

		if np.SKU != "" && existing.SKU == np.SKU {
			return nil, fmt.Errorf("%w: products_org_sku_unique", order.ErrUniqueViolation)
		}

		if strings.EqualFold(existing.Name, np.Name) {
			return nil, fmt.Errorf("%w: products_org_name_unique", order.ErrUniqueViolation)
		}
	}

	p := order.Product{
		ID:             uuid.NewString(),
		OrganizationID: orgID,
		Name:           np.Name,
		SKU:            np.SKU,
		Price:          np.Price,
		Currency:       np.Currency,
		CreatedAt:      time.Now().UTC(),
	}
	s.products[p.ID] = p

	return &p, nil
}

func (s *MemoryStore) FindDefaultStore(_ context.Context, orgID string) (*order.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, st := range s.stores {
		if st.OrganizationID == orgID && st.IsDefault {
			store := st

			return &store, nil
		}
	}

	return nil, order.ErrNotFound
}

func (s *MemoryStore) CountOrdersSince(_ context.Context, orgID string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0

	for _, o := range s.orders {
		if o.OrganizationID == orgID && !o.CreatedAt.Before(since) {
			count++
		}
	}

	return count, nil
}

func (s *MemoryStore) FindExactDuplicate(_ context.Context, orgID string, criteria order.DuplicateCriteria) (*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := order.Day(criteria.Day)

	for _, o := range s.orders {
		if o.OrganizationID != orgID || !order.Day(o.OrderDate).Equal(day) {
			continue
		}

		if o.CustomerPhone != criteria.CustomerPhone {
			continue
		}

		if criteria.ProductID != "" {
			if o.ProductID != criteria.ProductID {
				continue
			}
		} else if !strings.EqualFold(o.ProductName, criteria.ProductName) {
			continue
		}

		if math.Abs(o.Total-criteria.Total) >= 0.01 {
			continue
		}

		if !strings.EqualFold(strings.TrimSpace(o.Address), strings.TrimSpace(criteria.Address)) {
			continue
		}

		match := o

		return &match, nil
	}

	return nil, order.ErrNotFound
}

func (s *MemoryStore) FindOrdersOnDate(_ context.Context, orgID string, day time.Time) ([]order.Order, error) {
	return s.ordersInRange(orgID, order.Day(day), order.Day(day))
}

func (s *MemoryStore) FindOrdersInRange(_ context.Context, orgID string, from, to time.Time) ([]order.Order, error) {
	return s.ordersInRange(orgID, order.Day(from), order.Day(to))
}

func (s *MemoryStore) ordersInRange(orgID string, from, to time.Time) ([]order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var orders []order.Order

	for _, o := range s.orders {
		day := order.Day(o.OrderDate)
		if o.OrganizationID == orgID && !day.Before(from) && !day.After(to) {
			orders = append(orders, o)
		}
	}

	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].OrderDate.Equal(orders[j].OrderDate) {
			return orders[i].OrderDate.Before(orders[j].OrderDate)
		}

		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})

	return orders, nil
}

func (s *MemoryStore) CreateOrder(_ context.Context, orgID string, no order.NewOrder) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.orders {
		if existing.OrganizationID == orgID && existing.OrderNumber == no.OrderNumber {
			return nil, fmt.Errorf("%w: orders_org_number_unique", order.ErrUniqueViolation)
		}
	}

	o := order.Order{
		ID:              uuid.NewString(),
		OrderNumber:     no.OrderNumber,
		OrganizationID:  orgID,
		CustomerID:      no.CustomerID,
		CustomerName:    no.CustomerName,
		CustomerPhone:   no.CustomerPhone,
		ProductID:       no.ProductID,
		ProductName:     no.ProductName,
		ProductSKU:      no.ProductSKU,
		StoreID:         no.StoreID,
		Status:          order.StatusNew,
		Quantity:        no.Quantity,
		UnitPrice:       no.UnitPrice,
		Total:           no.Total,
		Address:         no.Address,
		City:            no.City,
		OrderDate:       order.Day(no.OrderDate),
		SourceRowNumber: no.SourceRowNumber,
		Notes:           no.Notes,
		CreatedAt:       time.Now().UTC(),
	}
	s.orders[o.ID] = o

	return &o, nil
}
