// Package selector is a client for the realty geoselector gate.
//
// A run starts with Bootstrap, which loads the landing page and captures
// the crc token and session cookies into an AuthContext. Every query then
// POSTs a form to one of three endpoints under the gate URL:
//
//	get             region, its parents, refinements and children
//	metro           metro stations of a region
//	sub-localities  sub-localities of a region
//
// Responses are JSON envelopes; only the response field is returned.
// Transport failures (connection errors, 5xx, 429) are retried according to
// the retry policy. Anything else surfaces as a typed error from pkg/errors.
//
//	client := selector.NewClient(cfg.Selector, selector.Options{Logger: log})
//	auth, err := client.Bootstrap(ctx)
//	region, err := client.FetchRegion(ctx, auth, 0)
package selector
