package task

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// MaxAttachmentBytes caps an uploaded attachment. It matches the profile
// picture limit.
const MaxAttachmentBytes = 300 * 1024

// AttachmentField is the request field that carries an uploaded file. Every
// attachment violation is reported under this key.
const AttachmentField = "attachment"

// TaskInput is the user-editable part of a task.
type TaskInput struct {
	Title       string `json:"title" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
	AssigneeID  string `json:"assigneeId" validate:"max=64"`
	Important   bool   `json:"important"`
}

// AttachmentInput describes an uploaded file before it is stored.
type AttachmentInput struct {
	Filename    string `json:"filename" validate:"required,max=255"`
	ContentType string `json:"contentType" validate:"required,startswith=image/"`
	Size        int64  `json:"size" validate:"gt=0,max=307200"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// ValidateTask trims in and checks it. It returns the normalized input and a
// *ValidationError keyed by request field name, or nil.
func ValidateTask(in TaskInput) (TaskInput, *ValidationError) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.AssigneeID = strings.TrimSpace(in.AssigneeID)
	return in, collect(getValidator().Struct(in), "")
}

// ValidateAttachment checks an upload. All messages land under
// AttachmentField so the caller can highlight the upload control.
func ValidateAttachment(in AttachmentInput) *ValidationError {
	in.ContentType = strings.ToLower(strings.TrimSpace(in.ContentType))
	return collect(getValidator().Struct(in), AttachmentField)
}

// collect turns validator output into a ValidationError. When key is set
// every message is filed under it instead of the field name.
func collect(err error, key string) *ValidationError {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return NewValidationError("_", err.Error())
	}
	ve := &ValidationError{}
	for _, fe := range fieldErrs {
		field := fe.Field()
		if key != "" {
			field = key
		}
		ve.Add(field, message(fe))
	}
	return ve
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		if fe.Field() == "size" {
			return fmt.Sprintf("file must not be larger than %d KB", MaxAttachmentBytes/1024)
		}
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "gt":
		return "file must not be empty"
	case "startswith":
		return "file must be an image"
	}
	return fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
}
