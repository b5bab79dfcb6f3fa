package listing

import (
	"context"
	"log/slog"

	"github.com/contentforge/admin-console/internal/rbac"
	"github.com/contentforge/admin-console/internal/shared"
)

// Audit records a mutation performed by the guarded operator. Failures to
// write the trail are logged and never fail the request.
func Audit(ctx context.Context, audit *shared.AuditLogger, logger *slog.Logger, action, entity string, ids []string, err error) {
	if !audit.Enabled() {
		return
	}
	entry := shared.AuditEntry{Action: action, Entity: entity, EntityIDs: ids, Succeeded: err == nil}
	if identity := rbac.IdentityFromContext(ctx); identity != nil {
		entry.ActorID = identity.ID
		entry.ActorEmail = identity.Email
	}
	if err != nil {
		entry.Meta = map[string]any{"error": shared.UserSafeMessage(err)}
	}
	if recordErr := audit.Record(ctx, entry); recordErr != nil {
		logger.Warn("audit record", slog.String("action", action), slog.Any("error", recordErr))
	}
}
