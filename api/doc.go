// Package api implements the HTTP boundary of the service: the POST /data-a
// and GET /data-c endpoints, a health probe, the Prometheus metrics endpoint
// and a small client for the data subcommands.
//
// The HTTP layer is deliberately thin - it validates payloads, maps results
// to status codes and delegates everything else to the pipeline. Callers only
// ever see 200, 400 (schema validation), 404 or a generic 500; no stack
// traces or internal error text cross the boundary.
package api
