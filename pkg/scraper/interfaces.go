package scraper

import (
	"context"

	"htbwriteups/pkg/fetcher"
)

// NameResolver maps a machine ID to its display name
type NameResolver interface {
	MachineName(ctx context.Context, id int) (string, bool)
}

// WriteupFetcher downloads one writeup
type WriteupFetcher interface {
	Fetch(ctx context.Context, req fetcher.Request) fetcher.Result
}
