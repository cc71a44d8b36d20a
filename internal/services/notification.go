package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/SigNoz/ecommerce-checkout-app/internal/db"
	"github.com/SigNoz/ecommerce-checkout-app/internal/metrics"
	"github.com/SigNoz/ecommerce-checkout-app/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Notifications listed per user
const notificationListLimit = 10

// NotificationService stores personal and global notifications and
// per-user read markers for the global ones
type NotificationService struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

// NewNotificationService creates a new notification service
func NewNotificationService(db *db.DB, metrics *metrics.AppMetrics) *NotificationService {
	return &NotificationService{
		db:      db,
		metrics: metrics,
	}
}

// Notify stores a notification. A nil UserID makes it global.
func (s *NotificationService) Notify(ctx context.Context, n models.NewNotification) (int64, error) {
	if strings.TrimSpace(n.Title) == "" || strings.TrimSpace(n.Message) == "" {
		return 0, fmt.Errorf("%w: title and message are required", ErrInvalidInput)
	}
	if n.Type == "" {
		n.Type = "info"
	}
	if n.TargetRole == "" {
		n.TargetRole = models.RoleAll
	}
	global := n.UserID == nil

	start := time.Now()
	query := `
		INSERT INTO notifications (user_id, title, message, type, is_global, target_role)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, n.UserID, n.Title, n.Message, n.Type, global, n.TargetRole)
	s.metrics.RecordDBQuery(ctx, "INSERT", "notifications", query, start, err == nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get notification ID: %w", err)
	}

	s.metrics.NotificationsCreated.Add(ctx, 1, metric.WithAttributes(s.metrics.WithServiceName([]attribute.KeyValue{
		attribute.String("notification.type", n.Type),
		attribute.Bool("notification.global", global),
	})...))
	return id, nil
}

// CreateGlobal broadcasts a notification to every user with targetRole,
// or to everyone when targetRole is "all"
func (s *NotificationService) CreateGlobal(ctx context.Context, title, message, notificationType, targetRole string) (int64, error) {
	if targetRole == "" {
		targetRole = models.RoleAll
	}
	switch targetRole {
	case models.RoleAll, models.RoleUser, models.RoleAdmin:
	default:
		return 0, fmt.Errorf("%w: unknown target role %q", ErrInvalidInput, targetRole)
	}

	id, err := s.Notify(ctx, models.NewNotification{
		Title:      title,
		Message:    message,
		Type:       notificationType,
		TargetRole: targetRole,
	})
	if err != nil {
		return 0, err
	}
	log.Printf("[NOTIFICATION] Global notification %d created for role %s", id, targetRole)
	return id, nil
}

// ListForUser returns the newest notifications visible to the user: their
// personal ones and the globals addressed to everyone or to their role
func (s *NotificationService) ListForUser(ctx context.Context, userID int64, role string) ([]models.Notification, error) {
	start := time.Now()
	query := `
		SELECT n.id, n.user_id, n.title, n.message, n.type, n.is_global, n.target_role,
		       n.is_read, r.notification_id, n.created_at
		FROM notifications n
		LEFT JOIN notification_reads r ON n.id = r.notification_id AND r.user_id = ?
		WHERE (n.is_global = 1 AND (n.target_role = 'all' OR n.target_role = ?))
		   OR n.user_id = ?
		ORDER BY n.created_at DESC, n.id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, userID, role, userID, notificationListLimit)
	s.metrics.RecordDBQuery(ctx, "SELECT", "notifications", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var (
			n       models.Notification
			owner   sql.NullInt64
			isRead  bool
			readRow sql.NullInt64
		)
		if err := rows.Scan(
			&n.ID, &owner, &n.Title, &n.Message, &n.Type, &n.IsGlobal, &n.TargetRole,
			&isRead, &readRow, &n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if owner.Valid {
			n.UserID = &owner.Int64
		}
		if n.IsGlobal {
			n.Read = readRow.Valid
		} else {
			n.Read = isRead
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

type notificationRef struct {
	owner    sql.NullInt64
	isGlobal bool
}

func (s *NotificationService) lookup(ctx context.Context, notificationID int64) (*notificationRef, error) {
	start := time.Now()
	query := "SELECT user_id, is_global FROM notifications WHERE id = ?"
	var ref notificationRef
	err := s.db.QueryRowContext(ctx, query, notificationID).Scan(&ref.owner, &ref.isGlobal)
	s.metrics.RecordDBQuery(ctx, "SELECT", "notifications", query, start, err == nil || err == sql.ErrNoRows)
	if err == sql.ErrNoRows {
		return nil, ErrNotificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return &ref, nil
}

// MarkRead marks one notification as read for userID. Globals get a read
// marker for that user only; personal notifications can only be marked by
// their owner. Repeated calls are no-ops.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID, userID int64) error {
	ref, err := s.lookup(ctx, notificationID)
	if err != nil {
		return err
	}

	if ref.isGlobal {
		start := time.Now()
		query := s.db.InsertIgnore() + " INTO notification_reads (notification_id, user_id) VALUES (?, ?)"
		_, err := s.db.ExecContext(ctx, query, notificationID, userID)
		s.metrics.RecordDBQuery(ctx, "INSERT", "notification_reads", query, start, err == nil)
		if err != nil {
			return fmt.Errorf("failed to mark notification as read: %w", err)
		}
		return nil
	}

	if !ref.owner.Valid || ref.owner.Int64 != userID {
		return ErrForbidden
	}

	start := time.Now()
	query := "UPDATE notifications SET is_read = ? WHERE id = ?"
	_, err = s.db.ExecContext(ctx, query, true, notificationID)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "notifications", query, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	return nil
}

// MarkAllRead marks every personal notification of the user and every global
// visible to their role as read
func (s *NotificationService) MarkAllRead(ctx context.Context, userID int64, role string) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		start := time.Now()
		query := "UPDATE notifications SET is_read = ? WHERE user_id = ?"
		_, err := tx.ExecContext(ctx, query, true, userID)
		s.metrics.RecordDBQuery(ctx, "UPDATE", "notifications", query, start, err == nil)
		if err != nil {
			return fmt.Errorf("failed to mark notifications as read: %w", err)
		}

		start = time.Now()
		globalsQuery := s.db.InsertIgnore() + ` INTO notification_reads (notification_id, user_id)
			SELECT id, ? FROM notifications
			WHERE is_global = 1 AND (target_role = 'all' OR target_role = ?)`
		_, err = tx.ExecContext(ctx, globalsQuery, userID, role)
		s.metrics.RecordDBQuery(ctx, "INSERT", "notification_reads", globalsQuery, start, err == nil)
		if err != nil {
			return fmt.Errorf("failed to mark global notifications as read: %w", err)
		}
		return nil
	})
}

// Delete removes a notification. Owners may delete their personal
// notifications; admins may delete any.
func (s *NotificationService) Delete(ctx context.Context, notificationID, requesterID int64, requesterRole string) error {
	ref, err := s.lookup(ctx, notificationID)
	if err != nil {
		return err
	}

	isOwner := ref.owner.Valid && ref.owner.Int64 == requesterID
	if requesterRole != models.RoleAdmin && !isOwner {
		return ErrForbidden
	}

	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		start := time.Now()
		readsQuery := "DELETE FROM notification_reads WHERE notification_id = ?"
		_, err := tx.ExecContext(ctx, readsQuery, notificationID)
		s.metrics.RecordDBQuery(ctx, "DELETE", "notification_reads", readsQuery, start, err == nil)
		if err != nil {
			return fmt.Errorf("failed to delete notification reads: %w", err)
		}

		start = time.Now()
		query := "DELETE FROM notifications WHERE id = ?"
		_, err = tx.ExecContext(ctx, query, notificationID)
		s.metrics.RecordDBQuery(ctx, "DELETE", "notifications", query, start, err == nil)
		if err != nil {
			return fmt.Errorf("failed to delete notification: %w", err)
		}
		return nil
	})
}
