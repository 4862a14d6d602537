package client

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

type Status int

const (
	StatusIdle Status = iota
	StatusSubmitting
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusSubmitting:
		return "submitting"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

const SuccessMessage = "Thank you! Your quote request has been sent successfully. We'll respond within 24 hours."

var (
	ErrSubmissionInFlight = errors.New("a submission is already in progress")
	ErrAttachmentIndex    = errors.New("attachment index out of range")
)

// State is a copy of the flow's current state.
type State struct {
	Status      Status
	Form        FormData
	Attachments []Attachment
	// Message is the success text or the error shown to the customer.
	Message string
	Receipt *Receipt
}

// Flow is one quote form. Submissions never share state with each other.
type Flow struct {
	transport Transport
	timeout   time.Duration

	mu          sync.Mutex
	status      Status
	form        FormData
	attachments []Attachment
	message     string
	receipt     *Receipt
}

func NewFlow(t Transport, timeout time.Duration) *Flow {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Flow{transport: t, timeout: timeout}
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return State{
		Status:      f.status,
		Form:        f.form,
		Attachments: slices.Clone(f.attachments),
		Message:     f.message,
		Receipt:     f.receipt,
	}
}

// SetForm replaces the form fields. The form is locked while a submission
// is in flight.
func (f *Flow) SetForm(data FormData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status == StatusSubmitting {
		return ErrSubmissionInFlight
	}
	f.form = data
	return nil
}

// AddAttachments appends files, keeping only the first five overall.
func (f *Flow) AddAttachments(files ...Attachment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status == StatusSubmitting {
		return ErrSubmissionInFlight
	}
	f.attachments = appendCapped(f.attachments, files...)
	return nil
}

func (f *Flow) RemoveAttachment(i int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status == StatusSubmitting {
		return ErrSubmissionInFlight
	}
	if i < 0 || i >= len(f.attachments) {
		return ErrAttachmentIndex
	}
	f.attachments = slices.Delete(f.attachments, i, i+1)
	return nil
}

// Submit validates the form and sends it through the transport. On success
// the form and attachments are cleared; on failure they are kept so the
// customer can retry.
func (f *Flow) Submit(ctx context.Context) (Receipt, error) {
	f.mu.Lock()
	if f.status == StatusSubmitting {
		f.mu.Unlock()
		return Receipt{}, ErrSubmissionInFlight
	}
	if err := f.form.Validate(); err != nil {
		f.mu.Unlock()
		return Receipt{}, err
	}
	sub := Submission{Form: f.form, Attachments: slices.Clone(f.attachments)}
	f.status = StatusSubmitting
	f.message = ""
	f.receipt = nil
	f.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	receipt, err := f.transport.Send(ctx, sub)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.status = StatusError
		f.message = displayMessage(err)
		return Receipt{}, err
	}
	f.status = StatusSuccess
	f.message = SuccessMessage
	f.receipt = &receipt
	f.form = FormData{}
	f.attachments = nil
	return receipt, nil
}

// Reset returns to Idle so the form can be used again.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status == StatusSubmitting {
		return
	}
	f.status = StatusIdle
	f.message = ""
	f.receipt = nil
}

func displayMessage(err error) string {
	var se *SubmitError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return failure(err, GenericFailureMessage).Message
}
