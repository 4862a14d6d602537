// Package mailer hands notification messages to an external mail provider.
// A successful Send means the provider accepted the message; bounces and
// inbox delivery are not tracked, and nothing is retried.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ebdesignwerks/quotebackend/config"
	"github.com/ebdesignwerks/quotebackend/models"
	"go.uber.org/zap"
)

// Dispatcher sends one message per call.
type Dispatcher interface {
	Send(ctx context.Context, msg models.NotificationMessage) (models.DeliveryReceipt, error)
}

// DeliveryError is returned when the provider refuses a message. Diagnostic
// holds the provider's own explanation for operators.
type DeliveryError struct {
	Provider   string
	Recipients []string
	Diagnostic string
	Err        error
}

func (e *DeliveryError) Error() string {
	to := strings.Join(e.Recipients, ", ")
	if e.Diagnostic != "" {
		return fmt.Sprintf("%s rejected message to %s: %s", e.Provider, to, e.Diagnostic)
	}
	return fmt.Sprintf("%s rejected message to %s: %v", e.Provider, to, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

var ErrNoRecipients = errors.New("message has no recipients")

// New builds the dispatcher selected by MAIL_PROVIDER.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (Dispatcher, error) {
	switch cfg.Mail.Provider {
	case "ses":
		d, err := NewSESDispatcher(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		return d, nil
	case "log":
		return NewLogDispatcher(logger), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Mail.Provider)
	}
}

func checkMessage(provider string, msg models.NotificationMessage) error {
	if len(msg.Recipients) == 0 {
		return &DeliveryError{Provider: provider, Err: ErrNoRecipients}
	}
	for _, r := range msg.Recipients {
		if strings.TrimSpace(r) == "" {
			return &DeliveryError{Provider: provider, Recipients: msg.Recipients, Err: ErrNoRecipients}
		}
	}
	if msg.Source == "" {
		return &DeliveryError{Provider: provider, Recipients: msg.Recipients, Err: errors.New("message has no source address")}
	}
	return nil
}
