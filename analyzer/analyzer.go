// Package analyzer defines the interface implemented by all ingestion
// workers.
package analyzer

import (
	"context"
)

// Analyzer is a worker that watches one slice of on-chain activity.
type Analyzer interface {
	// Start starts the analyzer. It runs until the context is canceled.
	Start(ctx context.Context)

	// Name returns the name of the analyzer.
	Name() string
}
