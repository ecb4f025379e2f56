package collector

import "context"

// Fetcher retrieves raw simple-price payloads from a price oracle.
type Fetcher interface {
	// FetchSimplePrice returns the JSON body for the given asset ids quoted in vs.
	FetchSimplePrice(ctx context.Context, ids []string, vs string) ([]byte, error)
	Name() string
}
