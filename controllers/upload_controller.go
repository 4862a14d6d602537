package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ebdesignwerks/quotebackend/dto"
	"github.com/ebdesignwerks/quotebackend/middleware"
	"github.com/ebdesignwerks/quotebackend/models"
	"github.com/ebdesignwerks/quotebackend/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// multipart framing on top of the file itself
const uploadOverhead = 1 << 20

// ====== UploadQuoteAttachment (public, no auth) ======
// POST /quote-uploads
// multipart/form-data:
//   - file: image, pdf or CAD file
func UploadQuoteAttachment(store utils.ObjectStore, v *utils.FileValidator, maxBytes int64, now func() time.Time, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+uploadOverhead)

		fh, err := c.FormFile("file")
		if err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				c.JSON(http.StatusRequestEntityTooLarge, dto.ErrorResponseDTO{Message: "file too large"})
				return
			}
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Message: "missing file", Error: err.Error()})
			return
		}

		contentType, err := v.ValidateFile(fh)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Message: err.Error()})
			return
		}

		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Message: "cannot read file", Error: err.Error()})
			return
		}
		defer f.Close()

		key, err := store.Store(c.Request.Context(), utils.QuoteUploadKey(now(), fh.Filename), f, fh.Size, contentType)
		if err != nil {
			logger.Error("attachment upload failed",
				zap.String("request_id", middleware.GetRequestID(c)),
				zap.String("filename", fh.Filename),
				zap.Error(err),
			)
			c.JSON(http.StatusBadGateway, dto.ErrorResponseDTO{Message: "Failed to upload file. Please try again.", Error: err.Error()})
			return
		}

		c.JSON(http.StatusCreated, models.AttachmentReference{
			Key:         key,
			Name:        utils.CleanFileName(fh.Filename),
			SizeBytes:   fh.Size,
			ContentType: contentType,
		})
	}
}

// ====== DeleteQuoteUpload (operator) ======
// DELETE /admin/quote-uploads/*key
func DeleteQuoteUpload(store utils.ObjectStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimPrefix(c.Param("key"), "/")
		if !utils.IsQuoteUploadKey(key) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Message: "only quote uploads can be deleted"})
			return
		}

		if err := store.Delete(c.Request.Context(), key); err != nil {
			c.JSON(http.StatusBadGateway, dto.ErrorResponseDTO{Message: "failed to delete file", Error: err.Error()})
			return
		}

		logger.Info("quote upload deleted", zap.String("key", key), zap.String("operator", c.GetString("operator")))
		c.Status(http.StatusNoContent)
	}
}
