// Package provider defines the data-source abstraction the dashboard loads
// its observations through: a Provider turns a Request (series ids, source
// name, date range) into a raw series.Frame, and a Registry routes requests
// to providers by source name.
package provider

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/seenimoa/yieldboard/internal/series"
)

// ProviderCredential describes a credential a provider needs.
type ProviderCredential struct {
	Name        string `json:"name"`        // e.g., "api_key"
	Description string `json:"description"` // e.g., "FRED API key from fred.stlouisfed.org"
	Required    bool   `json:"required"`
	EnvVar      string `json:"env_var"` // environment variable name, e.g., "FRED_API_KEY"
}

// ProviderInfo holds metadata about a registered provider.
type ProviderInfo struct {
	Name        string               `json:"name"`        // e.g., "fred", "workbook"
	Description string               `json:"description"` // human-readable description
	Website     string               `json:"website,omitempty"`
	Credentials []ProviderCredential `json:"credentials,omitempty"`
}

// Provider is the interface every data source implements.
type Provider interface {
	// Info returns metadata about this provider.
	Info() ProviderInfo

	// Init configures the provider with credentials. Called once before the
	// provider is registered.
	Init(credentials map[string]string) error

	// Fetch returns the daily observations of req.IDs between req.Start and
	// req.End, outer-joined on date. Dates on which a series has no value
	// carry no entry for it.
	Fetch(ctx context.Context, req Request) (*series.Frame, error)

	// Ping verifies the provider's connectivity and credentials.
	Ping(ctx context.Context) error
}

// Request is one bulk fetch.
type Request struct {
	IDs    []string   // upstream series identifiers
	Source string     // provider name; empty selects the registry default
	Start  civil.Date // first date, inclusive
	End    civil.Date // last date, inclusive; zero means today
}

// Normalize fills defaults and validates the request.
func (r Request) Normalize(now time.Time) (Request, error) {
	if len(r.IDs) == 0 {
		return r, &ErrMissingParam{Param: "ids"}
	}
	if r.End == (civil.Date{}) {
		r.End = civil.DateOf(now)
	}
	if r.Start != (civil.Date{}) && r.Start.After(r.End) {
		return r, fmt.Errorf("start %s is after end %s", r.Start, r.End)
	}
	return r, nil
}

// ErrProviderNotFound is returned when a requested provider is not registered.
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return fmt.Sprintf("provider %q not found", e.Name)
}

// ErrMissingParam is returned when a required request field is missing.
type ErrMissingParam struct {
	Param string
}

func (e *ErrMissingParam) Error() string {
	return fmt.Sprintf("missing required parameter %q", e.Param)
}

// ErrInvalidCredentials is returned when provider credentials are invalid.
type ErrInvalidCredentials struct {
	Provider string
	Detail   string
}

func (e *ErrInvalidCredentials) Error() string {
	return fmt.Sprintf("invalid credentials for provider %q: %s", e.Provider, e.Detail)
}
