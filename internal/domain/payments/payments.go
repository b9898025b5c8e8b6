// Package payments is the port to the payments rail.
package payments

import (
	"context"
	"strings"
)

type CustomerParams struct {
	FirstName   string
	LastName    string
	Email       string
	Type        string
	Address1    string
	City        string
	State       string
	PostalCode  string
	DateOfBirth string
	SSN         string
}

type FundingSourceParams struct {
	CustomerID     string
	ProcessorToken string
	BankName       string
}

// Rail creates customers and funding sources. Created resources are
// identified by their URL; an empty URL means the rail returned nothing.
type Rail interface {
	CreateCustomer(ctx context.Context, params CustomerParams) (string, error)
	DeactivateCustomer(ctx context.Context, customerURL string) error
	AddFundingSource(ctx context.Context, params FundingSourceParams) (string, error)
	RemoveFundingSource(ctx context.Context, fundingSourceURL string) error
}

// ExtractCustomerID returns the last path segment of a customer URL.
func ExtractCustomerID(customerURL string) string {
	trimmed := strings.TrimRight(customerURL, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}
