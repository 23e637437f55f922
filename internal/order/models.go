// Package order provides the order catalog domain models and the record
// store contract used by the ingestion pipeline.
//
// Models here are pure domain types without JSON tags. Row sources and
// outcome publishers define their own wire representations and map to these
// types at the boundary.
package order

import (
	"strings"
	"time"
)

type (
	// RawOrderRow is one unprocessed row from a connected sheet.
	//
	// The row is immutable input: the pipeline never mutates it, and every
	// derived value (trimmed names, parsed dates, normalized phones) is
	// computed fresh per processing run. RowNumber is the stable position of
	// the row in the source sheet and is carried through to feedback so the
	// collaborator can write results back into the right cell.
	RawOrderRow struct {
		RowNumber    int
		OrderDate    string
		CustomerName string
		Phone        string
		Address      string
		City         string
		Email        string
		ProductName  string
		ProductSKU   string
		Quantity     int
		UnitPrice    float64
		// OrderID is non-empty when the row was already linked to a created
		// order by a previous sync run.
		OrderID string
	}

	// Organization is the tenant owning a sheet connection. Every record
	// store query is scoped by organization; cross-tenant reads are a
	// correctness bug, not a performance concern.
	Organization struct {
		ID       string
		Name     string
		Currency string
		Locale   string
	}

	// Customer is a catalog customer record.
	Customer struct {
		ID             string
		OrganizationID string
		FirstName      string
		LastName       string
		Phone          string
		Address        string
		City           string
		Email          string
		CreatedAt      time.Time
	}

	// Product is a catalog product record.
	Product struct {
		ID             string
		OrganizationID string
		Name           string
		SKU            string
		Price          float64
		Currency       string
		CreatedAt      time.Time
	}

	// Store is a fulfillment location. Each organization has a default
	// store that sheet orders are attached to.
	Store struct {
		ID             string
		OrganizationID string
		Name           string
		IsDefault      bool
	}

	// Order is a canonical order record. Customer and product identity
	// fields are denormalized onto the order so duplicate search can score
	// candidates without extra lookups.
	Order struct {
		ID              string
		OrderNumber     string
		OrganizationID  string
		CustomerID      string
		CustomerName    string
		CustomerPhone   string
		ProductID       string
		ProductName     string
		ProductSKU      string
		StoreID         string
		Status          Status
		Quantity        int
		UnitPrice       float64
		Total           float64
		Address         string
		City            string
		OrderDate       time.Time
		SourceRowNumber int
		Notes           string
		CreatedAt       time.Time
	}

	// Status is the order lifecycle status. Ingestion only ever creates
	// orders in StatusNew; downstream fulfillment owns the rest.
	Status string

	// ProductSuggestion is a fuzzy product match offered when no product
	// could be resolved exactly.
	ProductSuggestion struct {
		ProductID  string
		Name       string
		SKU        string
		Similarity float64
	}

	// ResolvedProduct is the result of product entity resolution. Found
	// reports whether an existing catalog product matched; when it is false
	// Suggestions carries up to a handful of near matches ranked by
	// similarity, and AutoCreate reports whether the resolver intends to
	// create the product on demand rather than fail the row.
	ResolvedProduct struct {
		Found        bool
		AutoCreate   bool
		ID           string
		Name         string
		SKU          string
		CatalogPrice float64
		Currency     string
		Suggestions  []ProductSuggestion
	}

	// ResolvedCustomer is the result of customer entity resolution.
	// Created reports whether a new customer record was created for the row
	// rather than an existing one reused.
	ResolvedCustomer struct {
		ID        string
		FirstName string
		LastName  string
		Phone     string
		Created   bool
	}
)

// Order lifecycle statuses. Only StatusNew is assigned by ingestion.
const (
	StatusNew       Status = "new"
	StatusConfirmed Status = "confirmed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// HasOrderID reports whether the row already carries an order link from a
// previous sync run.
func (r RawOrderRow) HasOrderID() bool {
	return strings.TrimSpace(r.OrderID) != ""
}

// Total returns the row total (unit price times quantity).
func (r RawOrderRow) Total() float64 {
	return r.UnitPrice * float64(r.Quantity)
}

// SplitName splits a raw customer name into first and last name. The first
// whitespace-separated token becomes the first name, the remainder the last
// name. A single-token name leaves the last name empty.
func SplitName(name string) (first, last string) {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "", ""
	}

	if len(fields) == 1 {
		return fields[0], ""
	}

	return fields[0], strings.Join(fields[1:], " ")
}

// FullName joins first and last name, tolerating an empty last name.
func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}
