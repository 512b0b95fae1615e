// Package ingress defines the collaborator boundary between the
// pipeline and whatever produces records. The orchestrator only ever
// talks to a Source; how records are actually obtained is a concrete
// adapter's concern (see package httpsource).
package ingress

import "context"

// Source supplies records to be normalized and buffered. FetchOne
// corresponds to the single-record polling endpoint; FetchMany to a
// batch/streaming endpoint that can return several records per round
// trip.
type Source interface {
	FetchOne(ctx context.Context) (map[string]any, error)
	FetchMany(ctx context.Context, n int) ([]map[string]any, error)
}
