// Package toolapi exposes a toolmgr.Manager over a small JSON HTTP surface:
// per-server health for liveness checks, the aggregated tool catalog, and a
// tool invocation endpoint that maps the manager's typed failures onto HTTP
// status codes. Correlation IDs arriving on X-Correlation-ID are honored,
// generated when absent, and echoed on every response.
package toolapi
