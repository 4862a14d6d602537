package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/ebdesignwerks/quotebackend/models"
	"github.com/ebdesignwerks/quotebackend/utils"
	"golang.org/x/sync/errgroup"
)

// ErrDuplicateUploadKey means two attachments were stored under one key.
var ErrDuplicateUploadKey = errors.New("two attachments were stored under the same key")

// Attachment is a file picked in the form, held in memory until sent.
type Attachment struct {
	Name        string
	Size        int64
	ContentType string
	Content     []byte
}

// Describe renders the attachment the way the direct transport lists it,
// e.g. "[File: part.stl (12.50KB)]".
func (a Attachment) Describe() string {
	return fmt.Sprintf("[File: %s (%.2fKB)]", a.Name, float64(a.Size)/1024)
}

// appendCapped keeps the first MaxQuoteAttachments of current followed by add.
func appendCapped(current []Attachment, add ...Attachment) []Attachment {
	out := make([]Attachment, 0, models.MaxQuoteAttachments)
	out = append(out, current...)
	out = append(out, add...)
	if len(out) > models.MaxQuoteAttachments {
		out = out[:models.MaxQuoteAttachments]
	}
	return out
}

// UploadAll uploads every attachment concurrently. It returns all references
// in input order, or the first error and none. Two uploads landing on the
// same key means one overwrote the other, so that fails too.
func UploadAll(ctx context.Context, up Uploader, atts []Attachment) ([]models.AttachmentReference, error) {
	if len(atts) == 0 {
		return nil, nil
	}

	refs := make([]models.AttachmentReference, len(atts))
	g, ctx := errgroup.WithContext(ctx)
	for i, a := range atts {
		g.Go(func() error {
			ref, err := up.Upload(ctx, a)
			if err != nil {
				return err
			}
			refs[i] = ref
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		if _, dup := seen[ref.Key]; dup {
			return nil, &utils.StorageWriteError{Key: ref.Key, Err: ErrDuplicateUploadKey}
		}
		seen[ref.Key] = struct{}{}
	}
	return refs, nil
}

// Keys lists the object keys of refs in order.
func Keys(refs []models.AttachmentReference) []string {
	if len(refs) == 0 {
		return nil
	}
	keys := make([]string, len(refs))
	for i, ref := range refs {
		keys[i] = ref.Key
	}
	return keys
}
