// Package form decodes and validates the blog's HTML forms.
//
// Each form is a struct whose `form` tag names the input field, whose `mod`
// tag holds go-playground/mold modifiers and whose `validate` tag holds
// go-playground/validator rules. Parse decodes url.Values with
// go-playground/form, trims every field tagged `mod:"trim"` (all but
// passwords), validates, and returns an Errors map keyed by input name so
// templates can show the message under the right field while keeping the
// submitted values.
package form

import (
	"context"
	"errors"
	"net/url"
	"reflect"
	"strings"
	"sync"

	playform "github.com/go-playground/form/v4"
	"github.com/go-playground/mold/v4"
	"github.com/go-playground/mold/v4/modifiers"
	"github.com/go-playground/validator/v10"

	"github.com/sakif/blog/internal/model"
)

// Post is used for both creating and editing a blog post.
type Post struct {
	Title    string `form:"title" mod:"trim" validate:"required"`
	Subtitle string `form:"subtitle" mod:"trim" validate:"required"`
	ImgURL   string `form:"img_url" mod:"trim" validate:"required,url"`
	Body     string `form:"body" mod:"trim" validate:"required"`
}

// PostFrom pre-populates the edit form from an existing post.
func PostFrom(p model.BlogPost) Post {
	return Post{Title: p.Title, Subtitle: p.Subtitle, ImgURL: p.ImgURL, Body: p.Body}
}

type Register struct {
	Email    string `form:"email" mod:"trim" validate:"required,email"`
	Password string `form:"password" validate:"required"`
	Name     string `form:"name" mod:"trim" validate:"required"`
}

type Login struct {
	Email    string `form:"email" mod:"trim" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

type Comment struct {
	Text string `form:"text" mod:"trim" validate:"required"`
}

type Contact struct {
	Name    string `form:"name" mod:"trim" validate:"required"`
	Email   string `form:"email" mod:"trim" validate:"required,email"`
	Phone   string `form:"phone" mod:"trim"`
	Message string `form:"message" mod:"trim" validate:"required"`
}

// Errors maps an input name to the message shown next to it.
type Errors map[string]string

// Add records msg for field, keeping the first message if one exists.
func (e Errors) Add(field, msg string) {
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
}

// Get returns the message for field, or "".
func (e Errors) Get(field string) string {
	return e[field]
}

// Valid reports whether no errors were recorded.
func (e Errors) Valid() bool {
	return len(e) == 0
}

var (
	setupOnce sync.Once
	decoder   *playform.Decoder
	conform   *mold.Transformer
	validate  *validator.Validate
)

func setup() {
	setupOnce.Do(func() {
		decoder = playform.NewDecoder()
		conform = modifiers.New()

		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report errors under the input name instead of the Go field name.
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// Parse decodes values into a T, applies its modifiers and validates it. The
// returned Errors is never nil; check it with Valid.
func Parse[T any](values url.Values) (T, Errors) {
	setup()

	var dst T
	errs := Errors{}
	if err := decoder.Decode(&dst, values); err != nil {
		errs.Add("", err.Error())
		return dst, errs
	}
	if err := conform.Struct(context.Background(), &dst); err != nil {
		errs.Add("", err.Error())
		return dst, errs
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			errs.Add("", err.Error())
			return dst, errs
		}
		for _, fe := range verrs {
			errs.Add(fe.Field(), message(fe))
		}
	}
	return dst, errs
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Invalid email address."
	case "url":
		return "Invalid URL."
	default:
		return "Invalid value."
	}
}
