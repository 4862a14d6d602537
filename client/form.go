// Package client drives a quote submission from the customer's side: form
// state, attachment selection, uploads and the call that sends the request.
package client

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var emailPattern = regexp.MustCompile(`(?i)^[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}$`)

// FormData is what the customer typed. Only Name, Email, Service and
// ProjectDescription are required.
type FormData struct {
	Name               string `validate:"required"`
	Email              string `validate:"required,quote_email"`
	Phone              string
	Company            string
	Service            string `validate:"required"`
	ProjectDescription string `validate:"required,min=20"`
	Timeline           string
	Budget             string
}

var formMessages = map[string]string{
	"Name.required":               "Name is required",
	"Email.required":              "Email is required",
	"Email.quote_email":           "Invalid email address",
	"Service.required":            "Please select a service",
	"ProjectDescription.required": "Please describe your project",
	"ProjectDescription.min":      "Please provide more details (at least 20 characters)",
}

var formValidator = newFormValidator()

func newFormValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("quote_email", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

func (f FormData) trimmed() FormData {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Company = strings.TrimSpace(f.Company)
	f.Service = strings.TrimSpace(f.Service)
	f.ProjectDescription = strings.TrimSpace(f.ProjectDescription)
	f.Timeline = strings.TrimSpace(f.Timeline)
	f.Budget = strings.TrimSpace(f.Budget)
	return f
}

// FieldErrors maps a form field to the message shown next to it.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e[k])
	}
	return strings.Join(msgs, "; ")
}

// Validate runs the same checks the form shows inline. The server checks
// again, so this is advisory.
func (f FormData) Validate() error {
	err := formValidator.Struct(f.trimmed())
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	out := FieldErrors{}
	for _, fe := range verrs {
		msg, ok := formMessages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = fmt.Sprintf("%s is invalid", fe.Field())
		}
		if _, seen := out[fe.Field()]; !seen {
			out[fe.Field()] = msg
		}
	}
	return out
}
