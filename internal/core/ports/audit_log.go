package ports

import (
	"context"

	"github.com/rankwise/seo-crm/internal/core/domain"
)

// AuditLog persists audit events. Failures are never fatal to the caller.
type AuditLog interface {
	Record(ctx context.Context, event domain.AuditEvent) error
}
