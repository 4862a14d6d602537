package dto

import "github.com/ebdesignwerks/quotebackend/models"

type CreateQuoteRequestDTO struct {
	Name               string `json:"name"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	Company            string `json:"company"`
	Service            string `json:"service"`
	ProjectDescription string `json:"projectDescription"`
	Timeline           string `json:"timeline"`
	Budget             string `json:"budget"`

	AttachmentKeys []string `json:"attachmentKeys"`
}

func (d CreateQuoteRequestDTO) ToModel() models.QuoteRequest {
	return models.QuoteRequest{
		Name:               d.Name,
		Email:              d.Email,
		Phone:              d.Phone,
		Company:            d.Company,
		Service:            d.Service,
		ProjectDescription: d.ProjectDescription,
		Timeline:           d.Timeline,
		Budget:             d.Budget,
	}
}

type QuoteRequestResponseDTO struct {
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
}

// ErrorResponseDTO carries a message for the customer and, when there is
// one, the raw diagnostic for whoever operates the site.
type ErrorResponseDTO struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
