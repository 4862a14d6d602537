package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ebdesignwerks/quotebackend/config"
	"github.com/ebdesignwerks/quotebackend/dto"
	"github.com/ebdesignwerks/quotebackend/mailer"
	"github.com/ebdesignwerks/quotebackend/models"
	"github.com/ebdesignwerks/quotebackend/services"
	"github.com/ebdesignwerks/quotebackend/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (m *memStore) Store(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	b, err := io.ReadAll(body)
	if err != nil {
		return "", &utils.StorageWriteError{Key: key, Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = b
	return key, nil
}

func (m *memStore) Presign(_ context.Context, key string, _ time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return "", &utils.StorageAccessError{Key: key, NotFound: true}
	}
	return "https://files.example.com/" + key + "?sig=1", nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []models.NotificationMessage
	fail error
}

func (r *recordingMailer) Send(_ context.Context, msg models.NotificationMessage) (models.DeliveryReceipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	if r.fail != nil {
		return models.DeliveryReceipt{}, r.fail
	}
	return models.DeliveryReceipt{Provider: "test", MessageID: "m"}, nil
}

func testConfig() config.Config {
	return config.Config{
		Environment:    "test",
		RequestTimeout: 30 * time.Second,
		ServiceName:    "quote-api-test",
		Business: config.Business{
			Name:  "EB Design Werks",
			Email: "ebdesignwerks@gmail.com",
		},
		Social: config.Social{Instagram: "https://instagram.com/ebdesignwerks"},
		Mail: config.Mail{
			Sender:    "ebdesignwerks@gmail.com",
			Recipient: "ebdesignwerks@gmail.com",
		},
		Uploads: config.Uploads{
			MaxSizeMB:         1,
			AllowedExtensions: []string{".png", ".pdf", ".stl"},
		},
		OperatorJWTSecret: "operator-secret",
	}
}

type harness struct {
	router *gin.Engine
	store  *memStore
	mail   *recordingMailer
}

func newHarness(t *testing.T, cfg config.Config) *harness {
	t.Helper()
	store := newMemStore()
	mail := &recordingMailer{}
	quotes := services.NewQuoteService(store, mail, services.QuoteServiceConfig{
		Sender:            cfg.Mail.Sender,
		BusinessRecipient: cfg.Mail.Recipient,
		BusinessName:      cfg.Business.Name,
		ContactEmail:      cfg.Business.Email,
	}, zap.NewNop())

	router := NewRouter(RouterDeps{
		Config: cfg,
		Logger: zap.NewNop(),
		Quotes: quotes,
		Store:  store,
		Now:    func() time.Time { return time.UnixMilli(1700000000000) },
	})
	return &harness{router: router, store: store, mail: mail}
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func quoteJSON(t *testing.T, body dto.CreateQuoteRequestDTO) *http.Request {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/quote-request", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func janeDTO() dto.CreateQuoteRequestDTO {
	return dto.CreateQuoteRequestDTO{
		Name:               "Jane",
		Email:              "jane@x.com",
		Service:            "3D Scanning",
		ProjectDescription: "Need a scan of a vintage car part for reproduction.",
	}
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/quote-uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestSubmitQuoteRequest_Success(t *testing.T) {
	h := newHarness(t, testConfig())

	w := h.do(quoteJSON(t, janeDTO()))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp dto.QuoteRequestResponseDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Quote request sent successfully", resp.Message)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, w.Header().Get("X-Request-ID"), resp.RequestID)

	require.Len(t, h.mail.sent, 2)
	assert.Equal(t, "New Quote Request from Jane - 3D Scanning", h.mail.sent[0].Subject)
	assert.Equal(t, []string{"jane@x.com"}, h.mail.sent[1].Recipients)
}

func TestSubmitQuoteRequest_ValidationError(t *testing.T) {
	h := newHarness(t, testConfig())

	body := janeDTO()
	body.ProjectDescription = strings.Repeat("a", 19)
	w := h.do(quoteJSON(t, body))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp dto.ErrorResponseDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Please provide more details (at least 20 characters)", resp.Message)
	assert.Empty(t, h.mail.sent)
}

func TestSubmitQuoteRequest_MalformedBody(t *testing.T) {
	h := newHarness(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/quote-request", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := h.do(req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, h.mail.sent)
}

func TestSubmitQuoteRequest_MissingAttachment(t *testing.T) {
	h := newHarness(t, testConfig())

	body := janeDTO()
	body.AttachmentKeys = []string{"quote-uploads/1700000000000-never-uploaded.stl"}
	w := h.do(quoteJSON(t, body))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	var resp dto.ErrorResponseDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "never-uploaded.stl")
	assert.Empty(t, h.mail.sent)
}

func TestSubmitQuoteRequest_DeliveryFailure(t *testing.T) {
	h := newHarness(t, testConfig())
	h.mail.fail = &mailer.DeliveryError{Provider: "ses", Diagnostic: "MessageRejected: Email address is not verified."}

	w := h.do(quoteJSON(t, janeDTO()))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	var resp dto.ErrorResponseDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Message, "contact us directly at ebdesignwerks@gmail.com")
	assert.Contains(t, resp.Error, "MessageRejected")
	assert.Len(t, h.mail.sent, 1)
}

func TestQuoteRequest_CORSPreflight(t *testing.T) {
	h := newHarness(t, testConfig())

	req := httptest.NewRequest(http.MethodOptions, "/quote-request", nil)
	req.Header.Set("Origin", "https://ebdesignwerks.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	w := h.do(req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Amz-Security-Token")
	assert.Empty(t, h.mail.sent)
}

func TestQuoteRequest_OptionsWithoutOrigin(t *testing.T) {
	h := newHarness(t, testConfig())

	w := h.do(httptest.NewRequest(http.MethodOptions, "/quote-request", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestQuoteRequest_CORSOnResponse(t *testing.T) {
	h := newHarness(t, testConfig())

	req := quoteJSON(t, janeDTO())
	req.Header.Set("Origin", "https://ebdesignwerks.com")
	w := h.do(req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestUploadThenSubmit(t *testing.T) {
	h := newHarness(t, testConfig())

	w := h.do(uploadRequest(t, "photo.png", append(pngHeader, make([]byte, 64)...)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var up models.AttachmentReference
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &up))
	assert.Equal(t, "quote-uploads/1700000000000-photo.png", up.Key)
	assert.Equal(t, "photo.png", up.Name)
	assert.Equal(t, "image/png", up.ContentType)
	assert.True(t, h.store.has(up.Key))

	body := janeDTO()
	body.AttachmentKeys = []string{up.Key}
	w = h.do(quoteJSON(t, body))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.NotEmpty(t, h.mail.sent)
	assert.Contains(t, h.mail.sent[0].PlainTextBody, "photo.png: https://files.example.com/quote-uploads/1700000000000-photo.png?sig=1")
}

func TestUpload_Rejections(t *testing.T) {
	h := newHarness(t, testConfig())

	t.Run("extension", func(t *testing.T) {
		w := h.do(uploadRequest(t, "setup.exe", []byte("MZ")))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("disguised image", func(t *testing.T) {
		w := h.do(uploadRequest(t, "photo.png", []byte("plain text pretending")))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing file field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/quote-uploads", strings.NewReader(""))
		w := h.do(req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("too large", func(t *testing.T) {
		w := h.do(uploadRequest(t, "part.stl", make([]byte, 3<<20)))
		assert.Contains(t, []int{http.StatusBadRequest, http.StatusRequestEntityTooLarge}, w.Code)
	})
}

func TestDeleteQuoteUpload(t *testing.T) {
	h := newHarness(t, testConfig())
	key := "quote-uploads/1700000000000-part.stl"
	_, err := h.store.Store(context.Background(), key, strings.NewReader("solid"), 5, "")
	require.NoError(t, err)

	del := func(path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodDelete, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return h.do(req)
	}

	assert.Equal(t, http.StatusUnauthorized, del("/admin/quote-uploads/"+key, "").Code)
	assert.True(t, h.store.has(key))

	token, err := utils.GenerateOperatorToken("operator-secret", "ops", time.Minute)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, del("/admin/quote-uploads/private/ledger.pdf", token).Code)
	assert.Equal(t, http.StatusNoContent, del("/admin/quote-uploads/"+key, token).Code)
	assert.False(t, h.store.has(key))
}

func TestSiteInfoAndPing(t *testing.T) {
	h := newHarness(t, testConfig())

	w := h.do(httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = h.do(httptest.NewRequest(http.MethodGet, "/site-info", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var info dto.SiteInfoDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "EB Design Werks", info.Name)
	assert.Equal(t, "https://instagram.com/ebdesignwerks", info.Social["instagram"])
	assert.NotContains(t, info.Social, "tiktok")
}

func TestSubmitQuoteRequest_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimit{RPS: 0.001, Burst: 1}
	h := newHarness(t, cfg)

	assert.Equal(t, http.StatusOK, h.do(quoteJSON(t, janeDTO())).Code)
	assert.Equal(t, http.StatusTooManyRequests, h.do(quoteJSON(t, janeDTO())).Code)
}

func TestRouter_WithoutStorageBucket(t *testing.T) {
	cfg := testConfig()
	store, err := utils.NewObjectStore(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	mail := &recordingMailer{}
	quotes := services.NewQuoteService(store, mail, services.QuoteServiceConfig{
		Sender:            cfg.Mail.Sender,
		BusinessRecipient: cfg.Mail.Recipient,
		BusinessName:      cfg.Business.Name,
		ContactEmail:      cfg.Business.Email,
	}, zap.NewNop())
	h := &harness{
		router: NewRouter(RouterDeps{Config: cfg, Logger: zap.NewNop(), Quotes: quotes, Store: store, Now: time.Now}),
		mail:   mail,
	}

	w := h.do(quoteJSON(t, janeDTO()))
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, mail.sent, 2)

	body := janeDTO()
	body.AttachmentKeys = []string{"quote-uploads/1700000000000-photo.png"}
	w = h.do(quoteJSON(t, body))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Len(t, mail.sent, 2)

	w = h.do(uploadRequest(t, "photo.png", append(pngHeader, make([]byte, 64)...)))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
