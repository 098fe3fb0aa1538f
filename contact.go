package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/smtp"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/Zachkp/resume-terminal/internal/apperr"
	"github.com/Zachkp/resume-terminal/internal/metrics"
)

const defaultInquiryType = "Hiring"

var inquiryTypes = []string{"Hiring", "Collaboration", "Other"}

type contactForm struct {
	Name        string `form:"name" validate:"required,max=100"`
	Email       string `form:"email" validate:"required,email,max=255"`
	Subject     string `form:"subject" validate:"required,max=200"`
	InquiryType string `form:"inquiryType" validate:"oneof=Hiring Collaboration Other"`
	Message     string `form:"message" validate:"required,max=2000"`
}

func (f *contactForm) normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Subject = strings.TrimSpace(f.Subject)
	f.InquiryType = strings.TrimSpace(f.InquiryType)
	f.Message = strings.TrimSpace(f.Message)
	if f.InquiryType == "" {
		f.InquiryType = defaultInquiryType
	}
}

type fieldError struct {
	Field   string
	Message string
}

var contactMessages = map[string]fieldError{
	"Name":        {"name", "Name is required (max 100 characters)"},
	"Email":       {"email", "Valid email is required (max 255 characters)"},
	"Subject":     {"subject", "Subject is required (max 200 characters)"},
	"InquiryType": {"inquiryType", "Choose an inquiry type from the list"},
	"Message":     {"message", "Message is required (max 2000 characters)"},
}

// validateContact returns one message per invalid field, in form order.
func (s *server) validateContact(f contactForm) ([]fieldError, error) {
	err := s.validate.Struct(f)
	if err == nil {
		return nil, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, err
	}
	out := make([]fieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, contactMessages[fe.StructField()])
	}
	return out, nil
}

func (s *server) handleContact(c *gin.Context) {
	var f contactForm
	if err := c.ShouldBind(&f); err != nil {
		s.fail(c, apperr.BadRequest("Could not read the contact form"))
		return
	}
	f.normalize()

	problems, err := s.validateContact(f)
	if err != nil {
		s.fail(c, apperr.Internal(err))
		return
	}
	if len(problems) > 0 {
		metrics.ContactTotal.WithLabelValues("invalid").Inc()
		ae := apperr.Unprocessable(ContactInvalid)
		c.HTML(ae.Code, "contact-error.html", gin.H{
			"error":  ae.Message,
			"fields": problems,
		})
		return
	}

	link := mailtoLink(s.doc.Personal.Email, f)
	if s.cfg.SMTP.Enabled() {
		s.background("send contact email", func(context.Context) error {
			return s.sendContactEmail(f)
		})
	}
	metrics.ContactTotal.WithLabelValues("accepted").Inc()

	c.Header("HX-Redirect", link)
	c.HTML(http.StatusOK, "contact-success.html", gin.H{
		"success": ContactSuccess,
		"mailto":  link,
	})
}

// mailtoLink composes a mailto: URL that opens the visitor's mail client
// with the message filled in.
func mailtoLink(to string, f contactForm) string {
	subject := fmt.Sprintf("[%s] %s", f.InquiryType, f.Subject)
	body := fmt.Sprintf("Name: %s\nEmail: %s\n\n%s", f.Name, f.Email, f.Message)
	return "mailto:" + to + "?subject=" + encodeURIComponent(subject) + "&body=" + encodeURIComponent(body)
}

func encodeURIComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// headerSafe strips line breaks so form input cannot add mail headers.
func headerSafe(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

func (s *server) sendContactEmail(f contactForm) error {
	cfg := s.cfg.SMTP
	to := cfg.To
	if to == "" {
		to = s.doc.Personal.Email
	}

	subject := fmt.Sprintf("Portfolio Contact: [%s] %s", f.InquiryType, headerSafe(f.Subject))
	body := fmt.Sprintf(`
New contact form submission from your portfolio:

Name: %s
Email: %s
Inquiry: %s
Message:
%s

---
Sent from your portfolio contact form
`, f.Name, f.Email, f.InquiryType, f.Message)

	msg := []byte("To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"From: " + cfg.User + "\r\n" +
		"Reply-To: " + headerSafe(f.Email) + "\r\n" +
		"\r\n" +
		body + "\r\n")

	auth := smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host)
	if err := s.sendMail(cfg.Host+":"+cfg.Port, auth, cfg.User, []string{to}, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	s.log.Info("contact email sent", "name", f.Name, "inquiry", f.InquiryType)
	return nil
}
