package provider

import (
	"context"
	"errors"
)

// ErrNoMatch reports that the source knows nothing about the domain. It is
// not a failure and is never retried.
var ErrNoMatch = errors.New("no enrichment data for domain")

// DataProvider looks up company attributes for an email domain.
type DataProvider interface {
	Fetch(ctx context.Context, domain string) (map[string]interface{}, error)
}
