// Package notifications turns booking events into stored, per-user
// messages and serves the inbox endpoints.
package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Ansingh0305/BroCab/internal/domain"
	"github.com/Ansingh0305/BroCab/internal/notify"
	"github.com/Ansingh0305/BroCab/internal/repository"
)

type NotificationUseCase interface {
	List(ctx context.Context, userID string) ([]domain.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, id int64, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

// Deduper remembers event ids so redelivered events do not create a
// second inbox row. A nil Deduper disables the check.
type Deduper interface {
	SeenEvent(ctx context.Context, eventID string) (bool, error)
}

type NotificationService struct {
	repo  repository.NotificationRepository
	dedup Deduper
	log   *slog.Logger
}

type NotificationServiceOption func(*NotificationService)

func WithDeduper(dedup Deduper) NotificationServiceOption {
	return func(s *NotificationService) { s.dedup = dedup }
}

func NewNotificationService(repo repository.NotificationRepository, log *slog.Logger, opts ...NotificationServiceOption) *NotificationService {
	service := &NotificationService{repo: repo, log: log}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// RecordEvent renders and stores the inbox row for one event. The
// consumer delivers at least once; the dedup check keeps retries from
// duplicating rows. Unknown event types are dropped with a log line.
func (s *NotificationService) RecordEvent(ctx context.Context, event notify.Event) error {
	if s.dedup != nil && event.ID != "" {
		seen, err := s.dedup.SeenEvent(ctx, event.ID)
		if err != nil {
			s.log.Warn("event dedup check failed, storing anyway", "event_id", event.ID, "err", err)
		} else if seen {
			return nil
		}
	}

	title, message, ok := render(event)
	if !ok {
		s.log.Warn("dropping event of unknown type", "type", event.Type, "event_id", event.ID)
		return nil
	}
	n := &domain.Notification{
		UserID:  event.UserID,
		Title:   title,
		Message: message,
		Type:    string(event.Type),
		RideID:  event.RideID,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	return nil
}

func render(event notify.Event) (title, message string, ok bool) {
	trip := fmt.Sprintf("%s to %s on %s at %s", event.Origin, event.Destination, event.Date, event.Departure)
	switch event.Type {
	case notify.EventJoinRequested:
		return "New join request",
			fmt.Sprintf("A rider wants to join your ride from %s.", trip), true
	case notify.EventRequestAccepted:
		return "Request accepted",
			fmt.Sprintf("You are in! Your request for the ride from %s was accepted.", trip), true
	case notify.EventRequestRejected:
		return "Request declined",
			fmt.Sprintf("Your request for the ride from %s was declined.", trip), true
	case notify.EventRideCancelled:
		return "Ride cancelled",
			fmt.Sprintf("The ride from %s was cancelled by its leader.", trip), true
	case notify.EventParticipantRemoved:
		return "Participant left",
			fmt.Sprintf("A participant left your ride from %s. The seat is open again.", trip), true
	case notify.EventRideCompleted:
		return "Ride completed",
			fmt.Sprintf("Your ride from %s is done. Hope it went well!", trip), true
	default:
		return "", "", false
	}
}

func (s *NotificationService) List(ctx context.Context, userID string) ([]domain.Notification, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.repo.UnreadCount(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, id int64, userID string) error {
	ok, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

var _ NotificationUseCase = (*NotificationService)(nil)
