package ports

import (
	"context"

	"sales_import/internal/models"
)

type AuditSink interface {
	Append(ctx context.Context, e models.DuplicateAuditEntry) error
}

type AuditReader interface {
	ReadAll(ctx context.Context) ([]models.DuplicateAuditEntry, error)
}
