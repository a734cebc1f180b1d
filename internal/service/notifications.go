package service

import (
	"context"

	"internship-placement/internal/placement"
)

// Notifications returns the actor's inbox, newest first.
func (s *ApplicationService) Notifications(ctx context.Context, actor placement.Actor) ([]*placement.Notification, error) {
	return s.inbox.ListByUser(ctx, actor.ID)
}

// UnreadNotificationCount returns the actor's unread badge count.
func (s *ApplicationService) UnreadNotificationCount(ctx context.Context, actor placement.Actor) (int, error) {
	return s.inbox.UnreadCount(ctx, actor.ID)
}

// MarkNotificationRead marks one of the actor's notifications as read.
func (s *ApplicationService) MarkNotificationRead(ctx context.Context, actor placement.Actor, notificationID string) error {
	return s.inbox.MarkRead(ctx, notificationID, actor.ID)
}

// MarkAllNotificationsRead clears the actor's unread badge.
func (s *ApplicationService) MarkAllNotificationsRead(ctx context.Context, actor placement.Actor) error {
	return s.inbox.MarkAllRead(ctx, actor.ID)
}

// DeleteNotification removes one of the actor's notifications.
func (s *ApplicationService) DeleteNotification(ctx context.Context, actor placement.Actor, notificationID string) error {
	return s.inbox.Delete(ctx, notificationID, actor.ID)
}
