package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/ebdesignwerks/quotebackend/dto"
	"github.com/ebdesignwerks/quotebackend/models"
	"github.com/ebdesignwerks/quotebackend/utils"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Uploader stores one attachment and returns a reference to the object.
type Uploader interface {
	Upload(ctx context.Context, a Attachment) (models.AttachmentReference, error)
}

// StoreUploader writes straight to an object store with guest credentials.
type StoreUploader struct {
	Store utils.ObjectStore
	Now   func() time.Time
}

func (u StoreUploader) Upload(ctx context.Context, a Attachment) (models.AttachmentReference, error) {
	now := time.Now
	if u.Now != nil {
		now = u.Now
	}
	key, err := u.Store.Store(ctx, utils.QuoteUploadKey(now(), a.Name), bytes.NewReader(a.Content), int64(len(a.Content)), a.ContentType)
	if err != nil {
		return models.AttachmentReference{}, err
	}
	return models.AttachmentReference{
		Key:         key,
		Name:        utils.CleanFileName(a.Name),
		SizeBytes:   int64(len(a.Content)),
		ContentType: a.ContentType,
	}, nil
}

// HTTPUploader posts each file to the backend's upload endpoint.
type HTTPUploader struct {
	Endpoint string
	Client   *http.Client
}

func (u HTTPUploader) Upload(ctx context.Context, a Attachment) (models.AttachmentReference, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(a.Name)))
	ct := a.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)

	part, err := mw.CreatePart(h)
	if err != nil {
		return models.AttachmentReference{}, &utils.StorageWriteError{Key: a.Name, Err: err}
	}
	if _, err := part.Write(a.Content); err != nil {
		return models.AttachmentReference{}, &utils.StorageWriteError{Key: a.Name, Err: err}
	}
	if err := mw.Close(); err != nil {
		return models.AttachmentReference{}, &utils.StorageWriteError{Key: a.Name, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.Endpoint, &buf)
	if err != nil {
		return models.AttachmentReference{}, &utils.StorageWriteError{Key: a.Name, Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := httpClient(u.Client).Do(req)
	if err != nil {
		return models.AttachmentReference{}, &utils.StorageWriteError{Key: a.Name, Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		var e dto.ErrorResponseDTO
		if json.Unmarshal(body, &e) == nil && e.Message != "" {
			return models.AttachmentReference{}, &utils.StorageWriteError{Key: a.Name, Err: fmt.Errorf("upload rejected (%d): %s", resp.StatusCode, e.Message)}
		}
		return models.AttachmentReference{}, &utils.StorageWriteError{Key: a.Name, Err: fmt.Errorf("upload rejected (%d)", resp.StatusCode)}
	}

	var ref models.AttachmentReference
	if err := json.Unmarshal(body, &ref); err != nil || ref.Key == "" {
		return models.AttachmentReference{}, &utils.StorageWriteError{Key: a.Name, Err: fmt.Errorf("unexpected upload response: %s", body)}
	}
	return ref, nil
}

func httpClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return http.DefaultClient
}
