package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/medrefer/referral-api/internal/model"
	"github.com/medrefer/referral-api/internal/repository"
)

type Service struct {
	repo repository.AuditRepository
}

func NewService(repo repository.AuditRepository) *Service {
	return &Service{repo: repo}
}

type LogOptions struct {
	Changes   interface{}
	IPAddress string
}

// Log creates an audit log entry. Audit failures are reported to the
// caller but must not abort the operation being audited.
func (s *Service) Log(ctx context.Context, actor string, hospitalID uuid.UUID, action, entityType string, entityID uuid.UUID, opts *LogOptions) error {
	var changes json.RawMessage
	var ipAddress string

	if opts != nil {
		if opts.Changes != nil {
			data, err := json.Marshal(opts.Changes)
			if err != nil {
				return err
			}
			changes = data
		}
		ipAddress = opts.IPAddress
	}

	if actor == "" {
		actor = model.UpdatedBySystem
	}

	entry := &model.AuditLog{
		ID:         uuid.New(),
		HospitalID: hospitalID,
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Changes:    changes,
		IPAddress:  ipAddress,
		CreatedAt:  time.Now(),
	}

	return s.repo.Create(ctx, entry)
}

func (s *Service) List(ctx context.Context, entityType string, entityID uuid.UUID) ([]*model.AuditLog, error) {
	return s.repo.List(ctx, entityType, entityID)
}
