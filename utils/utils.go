package utils

import (
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/ebdesignwerks/quotebackend/config"
	"github.com/ebdesignwerks/quotebackend/models"
	"golang.org/x/text/unicode/norm"
)

// QuoteUploadKey builds quote-uploads/{epoch-millis}-{filename}. Names are
// NFC-normalized so the same file picked on macOS and Windows yields the
// same key text.
func QuoteUploadKey(now time.Time, filename string) string {
	return fmt.Sprintf("%s%d-%s", models.QuoteUploadPrefix, now.UnixMilli(), CleanFileName(filename))
}

// CleanFileName drops any directory part a browser or OS may have sent.
func CleanFileName(filename string) string {
	name := strings.ReplaceAll(filename, "\\", "/")
	name = path.Base(name)
	name = strings.TrimSpace(norm.NFC.String(name))
	if name == "" || name == "." || name == "/" || name == ".." {
		return "file"
	}
	return name
}

// IsQuoteUploadKey reports whether key names an object under the guest prefix.
func IsQuoteUploadKey(key string) bool {
	if !strings.HasPrefix(key, models.QuoteUploadPrefix) || len(key) == len(models.QuoteUploadPrefix) {
		return false
	}
	return !strings.Contains(key[len(models.QuoteUploadPrefix):], "/")
}

var sniffedFamilies = map[string]string{
	".jpg":  "image/",
	".jpeg": "image/",
	".png":  "image/",
	".gif":  "image/",
	".webp": "image/",
	".pdf":  "application/pdf",
}

type FileValidator struct {
	allowedExt map[string]bool
	maxSize    int64
}

// NewQuoteFileValidator accepts images, PDF and the CAD interchange formats
// listed in UPLOAD_ALLOWED_EXTENSIONS.
func NewQuoteFileValidator(cfg config.Uploads) *FileValidator {
	allowedExt := make(map[string]bool)
	for _, ext := range cfg.AllowedExtensions {
		ext = strings.TrimSpace(strings.ToLower(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowedExt[ext] = true
	}

	return &FileValidator{
		allowedExt: allowedExt,
		maxSize:    cfg.MaxUploadBytes(),
	}
}

// ValidateFile checks size and extension and returns the content type to
// store the file with. Images and PDFs must also sniff as what their
// extension claims; CAD formats have no reliable magic bytes and are
// accepted on extension alone.
func (v *FileValidator) ValidateFile(fileHeader *multipart.FileHeader) (string, error) {
	if fileHeader.Size > v.maxSize {
		return "", fmt.Errorf("file too large (max %d MB)", v.maxSize>>20)
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !v.allowedExt[ext] {
		return "", fmt.Errorf("file type %q not allowed", ext)
	}

	ct := fileHeader.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			ct = byExt
		}
	}
	if ct == "" {
		ct = "application/octet-stream"
	}

	family, sniff := sniffedFamilies[ext]
	if !sniff {
		return ct, nil
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil || n == 0 {
		return "", fmt.Errorf("failed to read file header")
	}

	detected := strings.ToLower(http.DetectContentType(buffer[:n]))
	if !strings.HasPrefix(detected, family) {
		return "", fmt.Errorf("file content does not match %s", ext)
	}
	return detected, nil
}
