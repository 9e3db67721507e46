package service

import (
	"context"
	"encoding/json"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/vozsegura-api/internal/models"
)

// auditTrail writes best-effort audit entries; failures are only logged.
type auditTrail struct {
	writer auditWriter
	logger *zap.Logger
}

func (a auditTrail) record(ctx context.Context, actor *models.Principal, action, resource string, resourceID int64, values interface{}) {
	if a.writer == nil {
		return
	}
	entry := &models.AuditLog{Accion: action, Recurso: resource}
	if actor != nil {
		id, role := actor.ID, actor.Role
		entry.ActorID = &id
		entry.ActorRol = &role
	}
	if resourceID > 0 {
		rid := strconv.FormatInt(resourceID, 10)
		entry.RecursoID = &rid
	}
	if values != nil {
		if raw, err := json.Marshal(values); err == nil {
			entry.Valores = raw
		}
	}
	if meta, ok := requestMetaFrom(ctx); ok {
		entry.IPAddress = meta.IP
		entry.UserAgent = meta.UserAgent
	}
	if err := a.writer.CreateAuditLog(ctx, entry); err != nil {
		a.logger.Warn("failed to record audit log", zap.String("action", action), zap.String("resource", resource), zap.Error(err))
	}
}

// RequestMeta carries client details for audit entries.
type RequestMeta struct {
	IP        string
	UserAgent string
}

type requestMetaKey struct{}

// WithRequestMeta attaches client details to ctx.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

func requestMetaFrom(ctx context.Context) (RequestMeta, bool) {
	meta, ok := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta, ok
}
