// Package services runs a quote submission from validated input to the two
// outgoing emails.
package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/ebdesignwerks/quotebackend/mailer"
	"github.com/ebdesignwerks/quotebackend/models"
	"github.com/ebdesignwerks/quotebackend/utils"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/ebdesignwerks/quotebackend/services")

// Stage is how far a submission got.
type Stage int

const (
	StageReceived Stage = iota
	StageValidated
	StageAttachmentsResolved
	StageBusinessNotified
	StageConfirmationAttempted
	StageCompleted
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageReceived:
		return "received"
	case StageValidated:
		return "validated"
	case StageAttachmentsResolved:
		return "attachments_resolved"
	case StageBusinessNotified:
		return "business_notified"
	case StageConfirmationAttempted:
		return "confirmation_attempted"
	case StageCompleted:
		return "completed"
	case StageFailed:
		return "failed"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// LinkSigner makes download links for stored attachments.
type LinkSigner interface {
	Presign(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type QuoteServiceConfig struct {
	Sender            string
	BusinessRecipient string
	BusinessName      string
	ContactEmail      string
	LinkTTL           time.Duration
}

// Submission is one incoming request. RequestID is generated when empty.
type Submission struct {
	RequestID      string
	Request        models.QuoteRequest
	AttachmentKeys []string
}

type SubmissionResult struct {
	RequestID   string
	Stage       Stage
	FailedAt    Stage
	Attachments []models.ResolvedAttachment

	BusinessReceipt     models.DeliveryReceipt
	ConfirmationReceipt *models.DeliveryReceipt
	// ConfirmationErr is set when the customer copy was refused. The
	// submission still counts as a success.
	ConfirmationErr error
}

type QuoteService struct {
	links    LinkSigner
	mail     mailer.Dispatcher
	cfg      QuoteServiceConfig
	validate *validator.Validate
	logger   *zap.Logger
}

func NewQuoteService(links LinkSigner, mail mailer.Dispatcher, cfg QuoteServiceConfig, logger *zap.Logger) *QuoteService {
	if cfg.LinkTTL <= 0 {
		cfg.LinkTTL = utils.PresignTTL
	}
	if cfg.ContactEmail == "" {
		cfg.ContactEmail = cfg.BusinessRecipient
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &QuoteService{
		links:    links,
		mail:     mail,
		cfg:      cfg,
		validate: v,
		logger:   logger.Named("quotes"),
	}
}

// Submit validates the request, resolves attachment links, notifies the
// business and then tries to send the customer a confirmation. Only the
// business email decides success.
func (s *QuoteService) Submit(ctx context.Context, sub Submission) (*SubmissionResult, error) {
	if sub.RequestID == "" {
		sub.RequestID = uuid.NewString()
	}
	res := &SubmissionResult{RequestID: sub.RequestID, Stage: StageReceived}
	log := s.logger.With(zap.String("request_id", sub.RequestID))

	ctx, span := tracer.Start(ctx, "QuoteService.Submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("quote.request_id", sub.RequestID),
		attribute.Int("quote.attachments", len(sub.AttachmentKeys)),
	)

	fail := func(err error) (*SubmissionResult, error) {
		res.FailedAt = res.Stage
		res.Stage = StageFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Warn("quote submission failed", zap.Stringer("stage", res.FailedAt), zap.Error(err))
		return res, err
	}

	req, err := s.Validate(sub)
	if err != nil {
		return fail(err)
	}
	res.Stage = StageValidated

	links, err := s.resolve(ctx, sub.AttachmentKeys)
	if err != nil {
		return fail(err)
	}
	res.Attachments = links
	res.Stage = StageAttachmentsResolved

	msg, err := s.composeBusiness(req, links)
	if err != nil {
		return fail(fmt.Errorf("compose business notification: %w", err))
	}
	receipt, err := s.send(ctx, msg)
	if err != nil {
		return fail(err)
	}
	res.BusinessReceipt = receipt
	res.Stage = StageBusinessNotified
	log.Info("business notified", zap.String("message_id", receipt.MessageID), zap.Int("attachments", len(links)))

	res.Stage = StageConfirmationAttempted
	confirmation, err := s.composeConfirmation(req)
	if err == nil {
		var r models.DeliveryReceipt
		r, err = s.send(ctx, confirmation)
		if err == nil {
			res.ConfirmationReceipt = &r
		}
	}
	if err != nil {
		res.ConfirmationErr = err
		span.AddEvent("confirmation not sent")
		log.Warn("confirmation email not sent", zap.Error(err))
	}

	res.Stage = StageCompleted
	return res, nil
}

// Validate trims the request and checks it along with the attachment keys.
func (s *QuoteService) Validate(sub Submission) (models.QuoteRequest, error) {
	req := sub.Request.Normalize()

	var fields []FieldError
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return req, err
		}
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
		}
	}

	if len(sub.AttachmentKeys) > models.MaxQuoteAttachments {
		fields = append(fields, FieldError{
			Field:   "attachmentKeys",
			Message: fmt.Sprintf("At most %d attachments are allowed", models.MaxQuoteAttachments),
		})
	}
	for _, key := range sub.AttachmentKeys {
		if !utils.IsQuoteUploadKey(key) {
			fields = append(fields, FieldError{Field: "attachmentKeys", Message: fmt.Sprintf("Invalid attachment key %q", key)})
		}
	}

	if len(fields) > 0 {
		return req, &ValidationError{Fields: fields}
	}
	return req, nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() + "." + fe.Tag() {
	case "name.required":
		return "Name is required"
	case "email.required":
		return "Email is required"
	case "email.email":
		return "Invalid email address"
	case "service.required":
		return "Please select a service"
	case "projectDescription.required":
		return "Please describe your project"
	case "projectDescription.min":
		return "Please provide more details (at least 20 characters)"
	}
	return fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
}

// resolve signs every key or none.
func (s *QuoteService) resolve(ctx context.Context, keys []string) ([]models.ResolvedAttachment, error) {
	out := make([]models.ResolvedAttachment, 0, len(keys))
	for _, key := range keys {
		url, err := s.links.Presign(ctx, key, s.cfg.LinkTTL)
		if err != nil {
			return nil, &AttachmentResolutionError{Key: key, Err: err}
		}
		ref := models.AttachmentReference{Key: key}
		out = append(out, models.ResolvedAttachment{Key: key, FileName: ref.FileName(), URL: url})
	}
	return out, nil
}

func (s *QuoteService) send(ctx context.Context, msg models.NotificationMessage) (models.DeliveryReceipt, error) {
	receipt, err := s.mail.Send(ctx, msg)
	if err == nil {
		return receipt, nil
	}
	var de *mailer.DeliveryError
	if errors.As(err, &de) {
		return receipt, err
	}
	return receipt, &mailer.DeliveryError{Provider: "unknown", Recipients: msg.Recipients, Diagnostic: err.Error(), Err: err}
}
