package models

import "strings"

const (
	// QuoteUploadPrefix is the only key prefix guests may write under.
	QuoteUploadPrefix = "quote-uploads/"

	MaxQuoteAttachments = 5

	PlaceholderNotProvided  = "Not provided"
	PlaceholderNotSpecified = "Not specified"
)

// QuoteRequest is one customer inquiry. It lives for a single submission
// and is never stored.
type QuoteRequest struct {
	Name               string `json:"name" validate:"required"`
	Email              string `json:"email" validate:"required,email"`
	Phone              string `json:"phone,omitempty"`
	Company            string `json:"company,omitempty"`
	Service            string `json:"service" validate:"required"`
	ProjectDescription string `json:"projectDescription" validate:"required,min=20"`
	Timeline           string `json:"timeline,omitempty"`
	Budget             string `json:"budget,omitempty"`
}

// Normalize trims surrounding whitespace from every text field.
func (q QuoteRequest) Normalize() QuoteRequest {
	q.Name = strings.TrimSpace(q.Name)
	q.Email = strings.TrimSpace(q.Email)
	q.Phone = strings.TrimSpace(q.Phone)
	q.Company = strings.TrimSpace(q.Company)
	q.Service = strings.TrimSpace(q.Service)
	q.ProjectDescription = strings.TrimSpace(q.ProjectDescription)
	q.Timeline = strings.TrimSpace(q.Timeline)
	q.Budget = strings.TrimSpace(q.Budget)
	return q
}

func (q QuoteRequest) PhoneOrPlaceholder() string {
	return orPlaceholder(q.Phone, PlaceholderNotProvided)
}

func (q QuoteRequest) CompanyOrPlaceholder() string {
	return orPlaceholder(q.Company, PlaceholderNotProvided)
}

func (q QuoteRequest) TimelineOrPlaceholder() string {
	return orPlaceholder(q.Timeline, PlaceholderNotSpecified)
}

func (q QuoteRequest) BudgetOrPlaceholder() string {
	return orPlaceholder(q.Budget, PlaceholderNotSpecified)
}

func orPlaceholder(v, placeholder string) string {
	if strings.TrimSpace(v) == "" {
		return placeholder
	}
	return v
}

// AttachmentReference points at an uploaded object. It only exists once the
// upload has completed; the upload endpoint returns it as its body.
type AttachmentReference struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	SizeBytes   int64  `json:"size"`
	ContentType string `json:"contentType"`
}

// FileName is the part of the key after the last "/".
func (a AttachmentReference) FileName() string {
	if i := strings.LastIndex(a.Key, "/"); i >= 0 {
		return a.Key[i+1:]
	}
	return a.Key
}

// ResolvedAttachment pairs a stored key with a time-limited download link.
type ResolvedAttachment struct {
	Key      string `json:"key"`
	FileName string `json:"fileName"`
	URL      string `json:"url"`
}
