package services

import (
	"context"

	"AmberWatch/internal/models"
	"AmberWatch/pkg/middleware"
)

type AuditRepository interface {
	Record(ctx context.Context, entry *models.OperationLog) error
	ListByActor(ctx context.Context, actorID string, limit int) ([]models.OperationLog, error)
}

// AuditService 记录警方的变更操作
type AuditService struct {
	repo AuditRepository
}

func NewAuditService(repo AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

func (s *AuditService) RecordOperation(ctx context.Context, e middleware.OperationEntry) error {
	return s.repo.Record(ctx, &models.OperationLog{
		ActorID:   e.ActorID,
		Action:    e.Action,
		Target:    e.Target,
		Status:    e.Status,
		IP:        e.IP,
		UserAgent: truncate(e.UserAgent, 255),
		Browser:   truncate(e.Browser, 64),
		OS:        truncate(e.OS, 64),
		Location:  truncate(e.Location, 128),
		CreatedAt: e.At,
	})
}

// History 当前账号最近的操作
func (s *AuditService) History(ctx context.Context, actor *models.Profile, limit int) ([]models.OperationLog, error) {
	if err := requireAuthority(actor); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	logs, err := s.repo.ListByActor(ctx, actor.ID, limit)
	if err != nil {
		return nil, backend(err, "load operation history failed")
	}
	return logs, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
