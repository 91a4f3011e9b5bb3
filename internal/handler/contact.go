package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/form"
	"github.com/sakif/blog/internal/mail"
	"github.com/sakif/blog/internal/metrics"
	"github.com/sakif/blog/internal/service"
)

// ContactHandler serves the contact page and forwards submissions by mail.
type ContactHandler struct {
	contact *service.ContactService
	render  *Renderer
	flash   *Flasher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewContactHandler(
	contact *service.ContactService,
	render *Renderer,
	flash *Flasher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *ContactHandler {
	return &ContactHandler{
		contact: contact,
		render:  render,
		flash:   flash,
		metrics: m,
		logger:  logger,
	}
}

func (h *ContactHandler) ContactPage(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, http.StatusOK, pageContact, View{Title: "Contact", Form: form.Contact{}})
}

// Send validates the form, hands it to the mailer and redirects back to the
// contact page with a success or failure flash.
func (h *ContactHandler) Send(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render.Error(w, r, http.StatusBadRequest, "Could not read the form.")
		return
	}
	f, errs := form.Parse[form.Contact](r.PostForm)
	if !errs.Valid() {
		h.render.Render(w, r, http.StatusUnprocessableEntity, pageContact, View{Title: "Contact", Form: f, Errors: errs})
		return
	}

	err := h.contact.Send(r.Context(), mail.ContactMessage{
		Name:    f.Name,
		Email:   f.Email,
		Phone:   f.Phone,
		Message: f.Message,
	})
	switch {
	case err == nil:
		h.metrics.ContactSent(true)
		h.flash.Add(w, r, "Your message has been sent, thank you!")
	case errors.Is(err, apperror.ErrMailTransport):
		h.metrics.ContactSent(false)
		h.flash.Add(w, r, "Sorry, your message could not be sent. Please try again later.")
	default:
		h.render.HandleError(w, r, err)
		return
	}

	http.Redirect(w, r, "/contact", http.StatusSeeOther)
}
