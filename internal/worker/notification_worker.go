package worker

// notification_worker.go
// Mails outcome notices to sellers: an applied price change, or a
// recommendation waiting for manual review.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"repricer/internal/model"
	"repricer/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Mailer is the part of infra.Mailer the worker uses.
type Mailer interface {
	Send(to, subject, body string, attachment []byte, attachmentName string) error
}

// UserFinder resolves a notice's user to an address.
type UserFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// NotificationWorker processes jobs from QueueNotifications.
type NotificationWorker struct {
	users  UserFinder
	mailer Mailer
}

func NewNotificationWorker(users UserFinder, mailer Mailer) *NotificationWorker {
	return &NotificationWorker{users: users, mailer: mailer}
}

// Process decodes a notice and mails it. Users without an e-mail address are
// skipped silently.
func (w *NotificationWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var n service.OutcomeNotice
	if err := json.Unmarshal(raw, &n); err != nil {
		return fmt.Errorf("notification_worker: invalid payload: %w", err)
	}
	if w.mailer == nil {
		return errors.New("notification_worker: no mailer configured")
	}

	user, err := w.users.FindByID(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("notification_worker: load user %s: %w", n.UserID, err)
	}
	if user.Email == nil || *user.Email == "" {
		log.Debug().Str("user_id", n.UserID.String()).Msg("notification_worker: user has no email, skipping")
		return nil
	}

	subject, body := renderNotice(n)
	if err := w.mailer.Send(*user.Email, subject, body, nil, ""); err != nil {
		return err
	}
	log.Info().Str("user_id", n.UserID.String()).Str("product_id", n.ProductID.String()).Msg("notification_worker: notice sent")
	return nil
}

func renderNotice(n service.OutcomeNotice) (subject, body string) {
	var b strings.Builder
	if n.AppliedAutomatically {
		subject = fmt.Sprintf("Price of %q adjusted to %s", n.ProductName, n.RecommendedPrice.StringFixed(2))
		fmt.Fprintf(&b, "The price of %q changed automatically from %s to %s.\n",
			n.ProductName, n.PreviousPrice.StringFixed(2), n.RecommendedPrice.StringFixed(2))
	} else {
		subject = fmt.Sprintf("Price recommendation for %q needs review", n.ProductName)
		fmt.Fprintf(&b, "We recommend changing the price of %q from %s to %s.\n",
			n.ProductName, n.PreviousPrice.StringFixed(2), n.RecommendedPrice.StringFixed(2))
	}
	fmt.Fprintf(&b, "Confidence: %.2f\nReason: %s\n", n.Confidence, n.Reason)
	return subject, b.String()
}
