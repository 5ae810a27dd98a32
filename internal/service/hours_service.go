package service

import (
	"context"
	"fmt"
	"time"

	"order-assistant/internal/apperr"
	"order-assistant/internal/hours"
	"order-assistant/internal/models"
	"order-assistant/internal/util"

	"go.uber.org/zap"
)

// HoursService evaluates tenant operating hours in the tenant's local time
type HoursService struct {
	settings        SettingsReader
	defaultLocation *time.Location
	now             func() time.Time
	logger          *zap.Logger
}

// NewHoursService creates a new hours service. defaultLocation is used when a
// tenant has no timezone or an unknown one.
func NewHoursService(settings SettingsReader, defaultLocation *time.Location) *HoursService {
	if defaultLocation == nil {
		defaultLocation = time.UTC
	}
	return &HoursService{
		settings:        settings,
		defaultLocation: defaultLocation,
		now:             time.Now,
		logger:          util.GetLogger(),
	}
}

// Check loads the tenant and reports whether it is open now
func (s *HoursService) Check(ctx context.Context, tenantID string) (hours.Status, error) {
	ctx, span := util.StartSpan(ctx, "HoursService.Check")
	defer span.End()

	tenant, err := s.settings.GetTenantSettings(ctx, tenantID)
	if err != nil {
		return hours.Status{}, fmt.Errorf("failed to load tenant settings: %w", err)
	}
	if tenant == nil {
		return hours.Status{}, apperr.ErrTenantNotFound
	}
	return s.StatusFor(tenant), nil
}

// StatusFor evaluates already-loaded tenant settings
func (s *HoursService) StatusFor(tenant *models.Tenant) hours.Status {
	return hours.CheckIfOpen(tenant.Hours, s.now().In(s.location(tenant)))
}

func (s *HoursService) location(tenant *models.Tenant) *time.Location {
	if tenant.Timezone == "" {
		return s.defaultLocation
	}
	loc, err := time.LoadLocation(tenant.Timezone)
	if err != nil {
		s.logger.Warn("Unknown tenant timezone, using default",
			zap.String("tenant_id", tenant.ID),
			zap.String("timezone", tenant.Timezone),
			zap.Error(err))
		return s.defaultLocation
	}
	return loc
}
