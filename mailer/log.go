package mailer

import (
	"context"
	"time"

	"github.com/ebdesignwerks/quotebackend/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const providerLog = "log"

// LogDispatcher writes messages to the log instead of sending them. Used for
// local development when no provider credentials are around.
type LogDispatcher struct {
	logger *zap.Logger
}

func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger.Named("mailer")}
}

func (d *LogDispatcher) Send(_ context.Context, msg models.NotificationMessage) (models.DeliveryReceipt, error) {
	if err := checkMessage(providerLog, msg); err != nil {
		return models.DeliveryReceipt{}, err
	}

	id := uuid.NewString()
	d.logger.Info("notification accepted",
		zap.String("message_id", id),
		zap.String("from", msg.Source),
		zap.Strings("to", msg.Recipients),
		zap.String("subject", msg.Subject),
		zap.String("text", msg.PlainTextBody),
	)

	return models.DeliveryReceipt{
		Provider:   providerLog,
		MessageID:  id,
		AcceptedAt: time.Now().UTC(),
	}, nil
}
