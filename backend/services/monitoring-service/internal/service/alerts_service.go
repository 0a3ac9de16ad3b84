package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"envmonitor/backend/services/monitoring-service/internal/authz"
	"envmonitor/backend/services/monitoring-service/internal/metrics"
	"envmonitor/backend/services/monitoring-service/internal/models"
	"envmonitor/backend/services/monitoring-service/internal/repository"
)

// AlertRepository defines storage contract used by the alerts service.
type AlertRepository interface {
	List(ctx context.Context, status *models.AlertStatus) ([]models.Alert, error)
	Get(ctx context.Context, id string) (*models.Alert, error)
	CountActive(ctx context.Context) (int64, error)
	Transition(ctx context.Context, id string, to models.AlertStatus, userID string, resolvedAt *time.Time) (*models.Alert, error)
}

// AlertsService exposes alert queries and the ACTIVE -> RESOLVED/DISMISSED
// transitions.
type AlertsService struct {
	repo   AlertRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewAlertsService builds AlertsService.
func NewAlertsService(repo AlertRepository, logger *zap.Logger) *AlertsService {
	return &AlertsService{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// List returns alerts newest first. An empty status lists all of them.
func (s *AlertsService) List(ctx context.Context, status string) ([]models.Alert, error) {
	if status == "" {
		return s.repo.List(ctx, nil)
	}
	st := models.AlertStatus(status)
	if !st.Valid() {
		return nil, invalid("unknown alert status %q", status)
	}
	return s.repo.List(ctx, &st)
}

// Get returns one alert.
func (s *AlertsService) Get(ctx context.Context, id string) (*models.Alert, error) {
	return s.repo.Get(ctx, id)
}

// CountActive returns the number of ACTIVE alerts.
func (s *AlertsService) CountActive(ctx context.Context) (int64, error) {
	return s.repo.CountActive(ctx)
}

// Resolve marks an ACTIVE alert RESOLVED by actor.
func (s *AlertsService) Resolve(ctx context.Context, id string, actor authz.Actor) (*models.Alert, error) {
	return s.transition(ctx, id, actor, models.AlertResolved, authz.ActionResolveAlert)
}

// Dismiss marks an ACTIVE alert DISMISSED by actor.
func (s *AlertsService) Dismiss(ctx context.Context, id string, actor authz.Actor) (*models.Alert, error) {
	return s.transition(ctx, id, actor, models.AlertDismissed, authz.ActionDismissAlert)
}

// transition applies to only ACTIVE alerts. Repeating the transition an alert
// already went through returns it unchanged; any other transition from a
// terminal state is a conflict.
func (s *AlertsService) transition(ctx context.Context, id string, actor authz.Actor, to models.AlertStatus, action authz.Action) (*models.Alert, error) {
	if err := authorize(actor, action); err != nil {
		return nil, err
	}

	var resolvedAt *time.Time
	if to == models.AlertResolved {
		now := s.now()
		resolvedAt = &now
	}

	_, err := s.repo.Transition(ctx, id, to, actor.UserID, resolvedAt)
	switch {
	case err == nil:
		metrics.AlertTransitions.WithLabelValues(string(to)).Inc()
		s.logger.Info("alert transitioned",
			zap.String("alert_id", id),
			zap.String("status", string(to)),
			zap.String("user_id", actor.UserID),
		)
		return s.repo.Get(ctx, id)
	case !errors.Is(err, repository.ErrAlertNotActive):
		return nil, err
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == to {
		return current, nil
	}
	return nil, fmt.Errorf("%w: alert %s is already %s", ErrConflict, id, current.Status)
}
