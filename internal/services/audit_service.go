package services

import (
	"github.com/benwaldman33/gold-drop-production-tracker/internal/models"
	"github.com/benwaldman33/gold-drop-production-tracker/internal/repositories"
)

// --- AuditService Interface ---
type AuditService interface {
	GetRecentEvents(limit int) ([]models.AuditEvent, error)
	GetEntityHistory(entityType string, entityID int64) ([]models.AuditEvent, error)
}

type auditService struct {
	auditRepo repositories.AuditRepository
}

// NewAuditService creates a new instance of AuditService.
func NewAuditService(auditRepo repositories.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

func (s *auditService) GetRecentEvents(limit int) ([]models.AuditEvent, error) {
	return s.auditRepo.GetRecent(limit)
}

func (s *auditService) GetEntityHistory(entityType string, entityID int64) ([]models.AuditEvent, error) {
	if entityType == "" {
		return nil, validationErrorf("entity type is required")
	}
	return s.auditRepo.GetForEntity(entityType, entityID)
}
