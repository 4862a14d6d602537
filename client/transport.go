package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/ebdesignwerks/quotebackend/config"
	"github.com/ebdesignwerks/quotebackend/dto"
	"github.com/ebdesignwerks/quotebackend/models"
	"github.com/google/uuid"
)

// GenericFailureMessage is shown when nothing more specific is known.
const GenericFailureMessage = "Failed to send quote request. Please try again or contact us directly."

const noAttachments = "No attachments"

// Submission is a snapshot of the form taken when Submit is pressed.
type Submission struct {
	Form        FormData
	Attachments []Attachment
}

type Receipt struct {
	Transport   string
	RequestID   string
	Keys        []string
	Attachments []models.AttachmentReference
}

// Transport delivers a submission. Exactly one is in use, chosen at startup.
type Transport interface {
	Send(ctx context.Context, sub Submission) (Receipt, error)
}

// SubmitError is what the form shows after a failed submission. Diagnostic
// is the raw detail for logs.
type SubmitError struct {
	Message    string
	Diagnostic string
	Err        error
}

func (e *SubmitError) Error() string { return e.Message }

func (e *SubmitError) Unwrap() error { return e.Err }

// NewTransport picks the backend transport when a quote endpoint is
// configured and the EmailJS one otherwise. uploader may be nil when an
// upload endpoint is configured.
func NewTransport(c config.Config, hc *http.Client, uploader Uploader) (Transport, error) {
	cfg := c.Client
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}

	if cfg.QuoteEndpoint != "" {
		if uploader == nil {
			if cfg.UploadEndpoint == "" {
				return nil, errors.New("CLIENT_UPLOAD_ENDPOINT is required with CLIENT_QUOTE_ENDPOINT")
			}
			uploader = HTTPUploader{Endpoint: cfg.UploadEndpoint, Client: hc}
		}
		return &HandlerTransport{Endpoint: cfg.QuoteEndpoint, Uploader: uploader, Client: hc}, nil
	}

	if cfg.EmailJSServiceID != "" && cfg.EmailJSTemplateID != "" && cfg.EmailJSPublicKey != "" {
		return &DirectTransport{
			Endpoint:   cfg.EmailJSEndpoint,
			ServiceID:  cfg.EmailJSServiceID,
			TemplateID: cfg.EmailJSTemplateID,
			PublicKey:  cfg.EmailJSPublicKey,
			ToEmail:    c.Business.Email,
			Client:     hc,
		}, nil
	}

	return nil, errors.New("no quote transport configured: set CLIENT_QUOTE_ENDPOINT or the CLIENT_EMAILJS_* settings")
}

// HandlerTransport uploads the attachments, then posts the request to the
// backend quote handler.
type HandlerTransport struct {
	Endpoint string
	Uploader Uploader
	Client   *http.Client
}

func (t *HandlerTransport) Send(ctx context.Context, sub Submission) (Receipt, error) {
	refs, err := UploadAll(ctx, t.Uploader, sub.Attachments)
	if err != nil {
		return Receipt{}, failure(err, "Failed to upload attachments. Please try again or contact us directly.")
	}

	f := sub.Form.trimmed()
	payload, err := json.Marshal(dto.CreateQuoteRequestDTO{
		Name:               f.Name,
		Email:              f.Email,
		Phone:              f.Phone,
		Company:            f.Company,
		Service:            f.Service,
		ProjectDescription: f.ProjectDescription,
		Timeline:           f.Timeline,
		Budget:             f.Budget,
		AttachmentKeys:     Keys(refs),
	})
	if err != nil {
		return Receipt{}, failure(err, GenericFailureMessage)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return Receipt{}, failure(err, GenericFailureMessage)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient(t.Client).Do(req)
	if err != nil {
		return Receipt{}, failure(err, GenericFailureMessage)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e dto.ErrorResponseDTO
		_ = json.Unmarshal(body, &e)
		msg := e.Message
		if msg == "" {
			msg = "Failed to send quote request"
		}
		return Receipt{}, &SubmitError{
			Message:    msg,
			Diagnostic: firstNonEmpty(e.Error, fmt.Sprintf("status %d", resp.StatusCode)),
		}
	}

	var ok dto.QuoteRequestResponseDTO
	if err := json.Unmarshal(body, &ok); err != nil {
		return Receipt{}, failure(fmt.Errorf("decode response: %w", err), GenericFailureMessage)
	}
	return Receipt{Transport: "handler", RequestID: ok.RequestID, Keys: Keys(refs), Attachments: refs}, nil
}

// DirectTransport sends the form through EmailJS. Files are not uploaded on
// this path; the email only lists their names and sizes.
type DirectTransport struct {
	Endpoint   string
	ServiceID  string
	TemplateID string
	PublicKey  string
	// ToEmail fills the to_email template parameter when set.
	ToEmail string
	Client  *http.Client
}

type emailJSRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	TemplateParams map[string]string `json:"template_params"`
}

// TemplateParams builds the EmailJS template variables for sub.
func (t *DirectTransport) TemplateParams(sub Submission) map[string]string {
	f := sub.Form.trimmed()
	req := models.QuoteRequest{
		Phone:    f.Phone,
		Company:  f.Company,
		Timeline: f.Timeline,
		Budget:   f.Budget,
	}

	attachments := noAttachments
	if len(sub.Attachments) > 0 {
		lines := make([]string, 0, len(sub.Attachments))
		for _, a := range sub.Attachments {
			lines = append(lines, a.Describe())
		}
		attachments = strings.Join(lines, "\n")
	}

	return map[string]string{
		"from_name":           f.Name,
		"from_email":          f.Email,
		"phone":               req.PhoneOrPlaceholder(),
		"company":             req.CompanyOrPlaceholder(),
		"service":             f.Service,
		"project_description": f.ProjectDescription,
		"timeline":            req.TimelineOrPlaceholder(),
		"budget":              req.BudgetOrPlaceholder(),
		"attachments":         attachments,
		"to_email":            t.ToEmail,
	}
}

func (t *DirectTransport) Send(ctx context.Context, sub Submission) (Receipt, error) {
	payload, err := json.Marshal(emailJSRequest{
		ServiceID:      t.ServiceID,
		TemplateID:     t.TemplateID,
		UserID:         t.PublicKey,
		TemplateParams: t.TemplateParams(sub),
	})
	if err != nil {
		return Receipt{}, failure(err, GenericFailureMessage)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return Receipt{}, failure(err, GenericFailureMessage)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient(t.Client).Do(req)
	if err != nil {
		return Receipt{}, failure(err, GenericFailureMessage)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return Receipt{}, &SubmitError{
			Message:    GenericFailureMessage,
			Diagnostic: fmt.Sprintf("emailjs status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}
	return Receipt{Transport: "direct", RequestID: uuid.NewString()}, nil
}

// failure wraps err for display. Timeouts always get the generic message.
func failure(err error, msg string) *SubmitError {
	var se *SubmitError
	if errors.As(err, &se) {
		return se
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		msg = GenericFailureMessage
	}
	return &SubmitError{Message: msg, Diagnostic: err.Error(), Err: err}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
