package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/gridsync-io/gridsync/internal/order"
)

// PostgreSQL error codes the store translates into domain errors.
const (
	pgUniqueViolation = "23505"
	pgFKViolation     = "23503"
)

// ErrNoDatabaseConnection is returned when a store is constructed without
// a connection.
var ErrNoDatabaseConnection = errors.New("database connection is required")

// PostgresStore implements order.RecordStore on PostgreSQL.
//
// Uniqueness constraints on (organization_id, phone) for customers and
// (organization_id, sku) / (organization_id, lower(name)) for products are
// enforced by the schema; creates that collide surface
// order.ErrUniqueViolation so resolvers can retry as a lookup.
type PostgresStore struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPostgresStore creates a PostgreSQL-backed record store.
func NewPostgresStore(conn *Connection, logger *slog.Logger) (*PostgresStore, error) {
	if conn == nil {
		return nil, ErrNoDatabaseConnection
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresStore{conn: conn, logger: logger}, nil
}

// FindOrganizationByConnection resolves the tenant owning a sheet
// connection.
func (s *PostgresStore) FindOrganizationByConnection(ctx context.Context, connectionID string) (*order.Organization, error) {
	query := `
		SELECT o.id, o.name, o.currency, o.locale
		FROM organizations o
		JOIN sheet_connections c ON c.organization_id = o.id
		WHERE c.id = $1
	`

	var org order.Organization

	err := s.conn.DB.QueryRowContext(ctx, query, connectionID).
		Scan(&org.ID, &org.Name, &org.Currency, &org.Locale)
	if err != nil {
		return nil, s.wrapQueryErr("find organization", err)
	}

	return &org, nil
}

// FindCustomerByPhone looks up a customer by exact phone within the
// organization.
func (s *PostgresStore) FindCustomerByPhone(ctx context.Context, orgID, phone string) (*order.Customer, error) {
	query := `
		SELECT id, organization_id, first_name, last_name, phone, address, city, email, created_at
		FROM customers
		WHERE organization_id = $1 AND phone = $2
	`

	var c order.Customer

	err := s.conn.DB.QueryRowContext(ctx, query, orgID, phone).
		Scan(&c.ID, &c.OrganizationID, &c.FirstName, &c.LastName, &c.Phone, &c.Address, &c.City, &c.Email, &c.CreatedAt)
	if err != nil {
		return nil, s.wrapQueryErr("find customer", err)
	}

	return &c, nil
}

// CreateCustomer inserts a customer record.
func (s *PostgresStore) CreateCustomer(ctx context.Context, orgID string, nc order.NewCustomer) (*order.Customer, error) {
	query := `
		INSERT INTO customers (id, organization_id, first_name, last_name, phone, address, city, email)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	c := order.Customer{
		ID:             uuid.NewString(),
		OrganizationID: orgID,
		FirstName:      nc.FirstName,
		LastName:       nc.LastName,
		Phone:          nc.Phone,
		Address:        nc.Address,
		City:           nc.City,
		Email:          nc.Email,
	}

	err := s.conn.DB.QueryRowContext(ctx, query,
		c.ID, c.OrganizationID, c.FirstName, c.LastName, c.Phone, c.Address, c.City, c.Email,
	).Scan(&c.CreatedAt)
	if err != nil {
		return nil, s.wrapExecErr("create customer", err)
	}

	return &c, nil
}

// FindProductBySKU looks up a product by exact SKU within the
// organization.
func (s *PostgresStore) FindProductBySKU(ctx context.Context, orgID, sku string) (*order.Product, error) {
	query := `
		SELECT id, organization_id, name, sku, price, currency, created_at
		FROM products
		WHERE organization_id = $1 AND sku = $2 AND sku <> ''
	`

	return s.scanProduct(s.conn.DB.QueryRowContext(ctx, query, orgID, sku), "find product by sku")
}

// FindProductByName looks up a product by exact case-insensitive name
// within the organization.
func (s *PostgresStore) FindProductByName(ctx context.Context, orgID, name string) (*order.Product, error) {
	query := `
		SELECT id, organization_id, name, sku, price, currency, created_at
		FROM products
		WHERE organization_id = $1 AND LOWER(name) = LOWER($2)
	`

	return s.scanProduct(s.conn.DB.QueryRowContext(ctx, query, orgID, name), "find product by name")
}

// ListProducts returns up to limit products for the organization, newest
// first.
func (s *PostgresStore) ListProducts(ctx context.Context, orgID string, limit int) ([]order.Product, error) {
	query := `
		SELECT id, organization_id, name, sku, price, currency, created_at
		FROM products
		WHERE organization_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.conn.DB.QueryContext(ctx, query, orgID, limit)
	if err != nil {
		return nil, s.wrapExecErr("list products", err)
	}
	defer func() { _ = rows.Close() }()

	var products []order.Product

	for rows.Next() {
		var p order.Product

		if err := rows.Scan(&p.ID, &p.OrganizationID, &p.Name, &p.SKU, &p.Price, &p.Currency, &p.CreatedAt); err != nil {
			return nil, s.wrapExecErr("scan product", err)
		}

		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, s.wrapExecErr("list products", err)
	}

	return products, nil
}

// CreateProduct inserts a product record.
func (s *PostgresStore) CreateProduct(ctx context.Context, orgID string, np order.NewProduct) (*order.Product, error) {
	query := `
		INSERT INTO products (id, organization_id, name, sku, price, currency)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	p := order.Product{
		ID:             uuid.NewString(),
		OrganizationID: orgID,
		Name:           np.Name,
		SKU:            np.SKU,
		Price:          np.Price,
		Currency:       np.Currency,
	}

	err := s.conn.DB.QueryRowContext(ctx, query,
		p.ID, p.OrganizationID, p.Name, p.SKU, p.Price, p.Currency,
	).Scan(&p.CreatedAt)
	if err != nil {
		return nil, s.wrapExecErr("create product", err)
	}

	return &p, nil
}

// FindDefaultStore returns the organization's default store.
func (s *PostgresStore) FindDefaultStore(ctx context.Context, orgID string) (*order.Store, error) {
	query := `
		SELECT id, organization_id, name, is_default
		FROM stores
		WHERE organization_id = $1 AND is_default
	`

	var st order.Store

	err := s.conn.DB.QueryRowContext(ctx, query, orgID).
		Scan(&st.ID, &st.OrganizationID, &st.Name, &st.IsDefault)
	if err != nil {
		return nil, s.wrapQueryErr("find default store", err)
	}

	return &st, nil
}

// CountOrdersSince counts the organization's orders created at or after
// the given instant.
func (s *PostgresStore) CountOrdersSince(ctx context.Context, orgID string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM orders
		WHERE organization_id = $1 AND created_at >= $2
	`

	var count int

	if err := s.conn.DB.QueryRowContext(ctx, query, orgID, since).Scan(&count); err != nil {
		return 0, s.wrapExecErr("count orders", err)
	}

	return count, nil
}

// FindExactDuplicate returns an order matching the exact duplicate
// criteria on the criteria day, or order.ErrNotFound. Totals are compared
// with a small tolerance to absorb float formatting noise.
func (s *PostgresStore) FindExactDuplicate(ctx context.Context, orgID string, criteria order.DuplicateCriteria) (*order.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE organization_id = $1
		  AND order_date = $2
		  AND customer_phone = $3
		  AND (($4 <> '' AND product_id::text = $4) OR ($4 = '' AND LOWER(product_name) = LOWER($5)))
		  AND ABS(total - $6) < 0.01
		  AND LOWER(TRIM(address)) = LOWER(TRIM($7))
		LIMIT 1
	`

	row := s.conn.DB.QueryRowContext(ctx, query,
		orgID,
		order.Day(criteria.Day),
		criteria.CustomerPhone,
		criteria.ProductID,
		criteria.ProductName,
		criteria.Total,
		criteria.Address,
	)

	o, err := scanOrder(row)
	if err != nil {
		return nil, s.wrapQueryErr("find exact duplicate", err)
	}

	return o, nil
}

// FindOrdersOnDate returns the organization's orders on one calendar day.
func (s *PostgresStore) FindOrdersOnDate(ctx context.Context, orgID string, day time.Time) ([]order.Order, error) {
	return s.queryOrders(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE organization_id = $1 AND order_date = $2
		ORDER BY created_at
	`, orgID, order.Day(day))
}

// FindOrdersInRange returns the organization's orders with an order date
// in [from, to] inclusive.
func (s *PostgresStore) FindOrdersInRange(ctx context.Context, orgID string, from, to time.Time) ([]order.Order, error) {
	return s.queryOrders(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE organization_id = $1 AND order_date BETWEEN $2 AND $3
		ORDER BY order_date, created_at
	`, orgID, order.Day(from), order.Day(to))
}

// CreateOrder inserts a canonical order.
func (s *PostgresStore) CreateOrder(ctx context.Context, orgID string, no order.NewOrder) (*order.Order, error) {
	query := `
		INSERT INTO orders (
			id, order_number, organization_id, customer_id, customer_name, customer_phone,
			product_id, product_name, product_sku, store_id, status, quantity, unit_price,
			total, address, city, order_date, source_row_number, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING created_at
	`

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
	}

	err := s.conn.DB.QueryRowContext(ctx, query,
		o.ID, o.OrderNumber, o.OrganizationID, o.CustomerID, o.CustomerName, o.CustomerPhone,
		o.ProductID, o.ProductName, o.ProductSKU, o.StoreID, string(o.Status), o.Quantity, o.UnitPrice,
		o.Total, o.Address, o.City, o.OrderDate, o.SourceRowNumber, o.Notes,
	).Scan(&o.CreatedAt)
	if err != nil {
		return nil, s.wrapExecErr("create order", err)
	}

	return &o, nil
}

func (s *PostgresStore) scanProduct(row *sql.Row, op string) (*order.Product, error) {
	var p order.Product

	err := row.Scan(&p.ID, &p.OrganizationID, &p.Name, &p.SKU, &p.Price, &p.Currency, &p.CreatedAt)
	if err != nil {
		return nil, s.wrapQueryErr(op, err)
	}

	return &p, nil
}

// orderColumns is the shared SELECT list for order scans.
const orderColumns = `
	id, order_number, organization_id, customer_id, customer_name, customer_phone,
	product_id, product_name, product_sku, store_id, status, quantity, unit_price,
	total, address, city, order_date, source_row_number, notes, created_at
`

// rowScanner abstracts *sql.Row and *sql.Rows for the shared scan helper.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*order.Order, error) {
	var o order.Order

	var status string

	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.OrganizationID, &o.CustomerID, &o.CustomerName, &o.CustomerPhone,
		&o.ProductID, &o.ProductName, &o.ProductSKU, &o.StoreID, &status, &o.Quantity, &o.UnitPrice,
		&o.Total, &o.Address, &o.City, &o.OrderDate, &o.SourceRowNumber, &o.Notes, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.Status = order.Status(status)

	return &o, nil
}

func (s *PostgresStore) queryOrders(ctx context.Context, query string, args ...any) ([]order.Order, error) {
	rows, err := s.conn.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.wrapExecErr("query orders", err)
	}
	defer func() { _ = rows.Close() }()

	var orders []order.Order

	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, s.wrapExecErr("scan order", err)
		}

		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, s.wrapExecErr("query orders", err)
	}

	return orders, nil
}

// wrapQueryErr translates read errors: no rows becomes the domain
// not-found sentinel, anything else a store failure.
func (s *PostgresStore) wrapQueryErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return order.ErrNotFound
	}

	return s.wrapExecErr(op, err)
}

// wrapExecErr translates write errors: unique violations become the
// domain retry-as-lookup sentinel, everything else wraps ErrStoreFailed
// with the original message preserved.
func (s *PostgresStore) wrapExecErr(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", order.ErrUniqueViolation, pqErr.Constraint)
		case pgFKViolation:
			s.logger.Warn("Foreign key violation",
				slog.String("op", op),
				slog.String("constraint", pqErr.Constraint),
			)
		}
	}

	s.logger.Error("Record store operation failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)

	return fmt.Errorf("%w: %s: %w", order.ErrStoreFailed, op, err)
}
