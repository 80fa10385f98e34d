// Package hospital maintains the tenant directory. Lookups are cached:
// hospital records change rarely and are read on nearly every referral
// operation.
package hospital

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/medrefer/referral-api/internal/model"
	"github.com/medrefer/referral-api/internal/repository"
	"github.com/medrefer/referral-api/pkg/errors"
)

const (
	cacheTTL     = 15 * time.Minute
	cacheCleanup = time.Hour
)

type Service struct {
	repo  repository.HospitalRepository
	cache *cache.Cache
}

func NewService(repo repository.HospitalRepository) *Service {
	return &Service{
		repo:  repo,
		cache: cache.New(cacheTTL, cacheCleanup),
	}
}

func (s *Service) Create(ctx context.Context, req *model.CreateHospitalRequest) (*model.Hospital, error) {
	if req.Name == "" {
		return nil, errors.Validation("hospital name is required", nil)
	}

	subdomain := req.Subdomain
	if subdomain == "" {
		subdomain = slugify(req.Name)
	}

	existing, err := s.repo.GetBySubdomain(ctx, subdomain)
	if err != nil {
		return nil, errors.Persistence(err)
	}
	if existing != nil {
		return nil, errors.Conflict("subdomain already in use", nil)
	}

	hospital := &model.Hospital{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
		Name:       req.Name,
		Subdomain:  subdomain,
		AdminEmail: req.AdminEmail,
		Phone:      req.Phone,
		Address:    req.Address,
		IsActive:   true,
	}

	if err := s.repo.Create(ctx, hospital); err != nil {
		return nil, errors.Persistence(err)
	}
	return hospital, nil
}

// Get returns the hospital by ID. Callers receive their own copy: the
// cached record is shared across requests and must never be mutated
// through a returned pointer.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Hospital, error) {
	if cached, ok := s.cache.Get(id.String()); ok {
		return clone(cached.(*model.Hospital)), nil
	}

	hospital, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, errors.Persistence(err)
	}
	if hospital == nil {
		return nil, errors.NotFound("hospital", nil)
	}

	s.cache.Set(id.String(), clone(hospital), cache.DefaultExpiration)
	return hospital, nil
}

func (s *Service) GetBySubdomain(ctx context.Context, subdomain string) (*model.Hospital, error) {
	if cached, ok := s.cache.Get("sub:" + subdomain); ok {
		return clone(cached.(*model.Hospital)), nil
	}

	hospital, err := s.repo.GetBySubdomain(ctx, subdomain)
	if err != nil {
		return nil, errors.Persistence(err)
	}
	if hospital == nil {
		return nil, errors.NotFound("hospital", nil)
	}

	s.cache.Set("sub:"+subdomain, clone(hospital), cache.DefaultExpiration)
	return hospital, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateHospitalRequest) (*model.Hospital, error) {
	hospital, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		hospital.Name = *req.Name
	}
	if req.AdminEmail != nil {
		hospital.AdminEmail = *req.AdminEmail
	}
	if req.Phone != nil {
		hospital.Phone = *req.Phone
	}
	if req.Address != nil {
		hospital.Address = *req.Address
	}
	if req.IsActive != nil {
		hospital.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, hospital); err != nil {
		return nil, errors.Persistence(err)
	}

	s.cache.Delete(id.String())
	s.cache.Delete("sub:" + hospital.Subdomain)
	return hospital, nil
}

func (s *Service) List(ctx context.Context) ([]*model.Hospital, error) {
	hospitals, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Persistence(err)
	}
	return hospitals, nil
}

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Join(strings.Fields(slug), "-")
	var b strings.Builder
	for _, c := range slug {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' {
			b.WriteRune(c)
		}
	}
	return b.String()
}

func clone(h *model.Hospital) *model.Hospital {
	c := *h
	return &c
}
