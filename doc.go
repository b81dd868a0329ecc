// Package backend is the ReviewInn server: a multi-tenant review platform
// where users rate entities (professionals, companies, places, products)
// against category-specific question sets, react to and comment on reviews,
// and build trust-based review circles.
//
// Layout follows the usual cmd/internal split:
//
//	cmd/server      HTTP service entrypoint
//	cmd/cli         admin CLI (migrate, seed, reconcile, sweep)
//	internal/...    everything else
package backend
