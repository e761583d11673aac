package notify

import (
	"context"
	"strings"

	"claims-reconciliation-service/internal/claims"
	"claims-reconciliation-service/internal/reconciler"
	"claims-reconciliation-service/pkg/logger"
)

// Notifier composes and sends the alerts of a run
type Notifier struct {
	sender   Sender
	composer *Composer
	logger   logger.Logger
}

// NewNotifier creates a notifier delivering through sender
func NewNotifier(sender Sender, composer *Composer) *Notifier {
	return &Notifier{
		sender:   sender,
		composer: composer,
		logger:   logger.WithComponent("notify"),
	}
}

// Composer returns the composer used by the notifier
func (n *Notifier) Composer() *Composer {
	return n.composer
}

// ReconciliationAlerts composes the missing schedule, amount variance and
// date validation alerts for a run. Kinds without data are left out.
func (n *Notifier) ReconciliationAlerts(result *reconciler.Result, dateErrors []claims.DateErrorGroup) []*Message {
	var out []*Message
	if result != nil {
		if m := n.composer.MissingSchedules(result.MissingInFinanceSchedules()); m != nil {
			out = append(out, m)
		}
		if m := n.composer.AmountVariances(result.AmountMismatches); m != nil {
			out = append(out, m)
		}
	}
	if m := n.composer.DateValidationErrors(dateErrors); m != nil {
		out = append(out, m)
	}
	return out
}

// Send delivers every non-nil message. Delivery continues past a failure;
// the first error is returned with the number of messages sent.
func (n *Notifier) Send(ctx context.Context, msgs ...*Message) (int, error) {
	sent := 0
	var firstErr error
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		log := n.logger.WithFields(logger.Fields{
			"kind":       msg.Kind,
			"subject":    msg.Subject,
			"recipients": len(msg.Recipients()),
		})
		if err := n.sender.Send(ctx, msg); err != nil {
			log.WithError(err).Error("Failed to send notification")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		sent++
		log.Info("Notification sent")
	}
	return sent, firstErr
}

// LogSender writes messages to the log instead of delivering them
type LogSender struct {
	Logger logger.Logger
}

// Send logs msg at info level
func (s LogSender) Send(_ context.Context, msg *Message) error {
	log := s.Logger
	if log == nil {
		log = logger.WithComponent("notify")
	}
	log.WithFields(logger.Fields{
		"kind":    msg.Kind,
		"subject": msg.Subject,
		"to":      strings.Join(msg.To, ", "),
		"cc":      strings.Join(msg.Cc, ", "),
		"html":    msg.HTML,
	}).Info("Dry run, notification not sent")
	return nil
}
