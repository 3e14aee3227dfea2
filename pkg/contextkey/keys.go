// Package contextkey defines shared context keys for request-scoped values.
package contextkey

type contextKey string

const (
	// TraceID identifies one request across log lines.
	TraceID contextKey = "trace_id"
	// TeamID is the authenticated team for the request, when present.
	TeamID contextKey = "team_id"
	// AdminEmail is the authenticated admin identity, when present.
	AdminEmail contextKey = "admin_email"
)
