package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/smithy-go"
	"github.com/ebdesignwerks/quotebackend/models"
)

const providerSES = "ses"

type sesAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESDispatcher sends through Amazon SES (API v2).
type SESDispatcher struct {
	client sesAPI
	now    func() time.Time
}

func NewSESDispatcher(ctx context.Context, region string) (*SESDispatcher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("ses config: %w", err)
	}
	return &SESDispatcher{client: sesv2.NewFromConfig(cfg), now: time.Now}, nil
}

func (d *SESDispatcher) Send(ctx context.Context, msg models.NotificationMessage) (models.DeliveryReceipt, error) {
	if err := checkMessage(providerSES, msg); err != nil {
		return models.DeliveryReceipt{}, err
	}

	body := &types.Body{}
	if msg.HTMLBody != "" {
		body.Html = utf8Content(msg.HTMLBody)
	}
	if msg.PlainTextBody != "" {
		body.Text = utf8Content(msg.PlainTextBody)
	}

	out, err := d.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(msg.Source),
		Destination:      &types.Destination{ToAddresses: msg.Recipients},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: utf8Content(msg.Subject),
				Body:    body,
			},
		},
	})
	if err != nil {
		return models.DeliveryReceipt{}, &DeliveryError{
			Provider:   providerSES,
			Recipients: msg.Recipients,
			Diagnostic: diagnostic(err),
			Err:        err,
		}
	}

	return models.DeliveryReceipt{
		Provider:   providerSES,
		MessageID:  aws.ToString(out.MessageId),
		AcceptedAt: d.now().UTC(),
	}, nil
}

func utf8Content(s string) *types.Content {
	return &types.Content{Data: aws.String(s), Charset: aws.String("UTF-8")}
}

// diagnostic pulls "Code: message" out of an AWS API error.
func diagnostic(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("%s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	return err.Error()
}
