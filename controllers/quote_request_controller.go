package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ebdesignwerks/quotebackend/dto"
	"github.com/ebdesignwerks/quotebackend/mailer"
	"github.com/ebdesignwerks/quotebackend/middleware"
	"github.com/ebdesignwerks/quotebackend/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const quoteSentMessage = "Quote request sent successfully"

// QuoteSubmitter runs the submission pipeline.
type QuoteSubmitter interface {
	Submit(ctx context.Context, sub services.Submission) (*services.SubmissionResult, error)
}

// ====== SubmitQuoteRequest (public, no auth) ======
// POST /quote-request
// Body: CreateQuoteRequestDTO as JSON
func SubmitQuoteRequest(quotes QuoteSubmitter, timeout time.Duration, contactEmail string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.CreateQuoteRequestDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Message: "Invalid request body", Error: err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		res, err := quotes.Submit(ctx, services.Submission{
			RequestID:      middleware.GetRequestID(c),
			Request:        body.ToModel(),
			AttachmentKeys: body.AttachmentKeys,
		})
		if err != nil {
			status, resp := quoteErrorResponse(err, contactEmail)
			if status >= http.StatusInternalServerError {
				logger.Error("quote request failed", zap.String("request_id", middleware.GetRequestID(c)), zap.Error(err))
			}
			c.JSON(status, resp)
			return
		}

		c.JSON(http.StatusOK, dto.QuoteRequestResponseDTO{
			Message:   quoteSentMessage,
			RequestID: res.RequestID,
		})
	}
}

func quoteErrorResponse(err error, contactEmail string) (int, dto.ErrorResponseDTO) {
	var ve *services.ValidationError
	var are *services.AttachmentResolutionError
	var de *mailer.DeliveryError

	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, dto.ErrorResponseDTO{Message: ve.Error()}
	case errors.As(err, &are):
		return http.StatusBadGateway, dto.ErrorResponseDTO{
			Message: "One of the attached files could not be found. Please upload it again.",
			Error:   are.Error(),
		}
	case errors.As(err, &de):
		return http.StatusBadGateway, dto.ErrorResponseDTO{
			Message: fmt.Sprintf("Failed to send quote request. Please try again or contact us directly at %s", contactEmail),
			Error:   de.Error(),
		}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, dto.ErrorResponseDTO{Message: "Request timed out", Error: err.Error()}
	default:
		return http.StatusInternalServerError, dto.ErrorResponseDTO{Message: "Failed to process quote request", Error: err.Error()}
	}
}

// QuotePreflight answers OPTIONS requests that arrive without an Origin
// header; browser preflights are answered by the CORS middleware.
func QuotePreflight() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Status(http.StatusOK)
	}
}
