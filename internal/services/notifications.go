package services

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/onnwee/agrisync/backend/internal/cachekey"
	"github.com/onnwee/agrisync/backend/internal/domaincache"
	"github.com/onnwee/agrisync/backend/internal/models"
)

type NotificationRepository interface {
	ListForUser(ctx context.Context, userID string, f models.NotificationFilters) ([]models.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id string) (models.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int, error)
	Create(ctx context.Context, n models.Notification) (models.Notification, error)
}

type NotificationService struct {
	repo   NotificationRepository
	caches *domaincache.Caches
	group  singleflight.Group
}

func NewNotificationService(repo NotificationRepository, caches *domaincache.Caches) *NotificationService {
	return &NotificationService{repo: repo, caches: caches}
}

func (s *NotificationService) ListForUser(ctx context.Context, userID string, f models.NotificationFilters) ([]models.Notification, error) {
	c := s.caches.Notifications
	return readThrough(ctx, &s.group, "notifications.list_for_user",
		cachekey.Index(cachekey.Notifications, domaincache.IndexUser, userID, f),
		func(ctx context.Context) ([]models.Notification, bool) { return c.GetForUser(ctx, userID, f) },
		func(ctx context.Context) ([]models.Notification, error) { return s.repo.ListForUser(ctx, userID, f) },
		func(ctx context.Context, v []models.Notification) { c.SetForUser(ctx, userID, f, v) },
	)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	unread := s.caches.Notifications.Unread
	return readThrough(ctx, &s.group, "notifications.unread_count",
		cachekey.Scalar(cachekey.Notifications, "unread", userID),
		func(ctx context.Context) (int, bool) { return unread.Get(ctx, userID) },
		func(ctx context.Context) (int, error) { return s.repo.UnreadCount(ctx, userID) },
		func(ctx context.Context, v int) { unread.Set(ctx, userID, v, 0) },
	)
}

func (s *NotificationService) MarkRead(ctx context.Context, id string) (models.Notification, error) {
	n, err := s.repo.MarkRead(ctx, id)
	if err != nil {
		return models.Notification{}, err
	}
	s.caches.Notifications.InvalidateItem(ctx, id)
	s.caches.Notifications.InvalidateUser(ctx, n.UserID)
	return n, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int, error) {
	n, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.caches.Notifications.InvalidateUser(ctx, userID)
	}
	return n, nil
}

func (s *NotificationService) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	if strings.TrimSpace(n.UserID) == "" || strings.TrimSpace(n.Title) == "" {
		return models.Notification{}, fmt.Errorf("%w: user_id and title are required", ErrInvalid)
	}
	created, err := s.repo.Create(ctx, n)
	if err != nil {
		return models.Notification{}, err
	}
	s.caches.Notifications.InvalidateUser(ctx, created.UserID)
	return created, nil
}
