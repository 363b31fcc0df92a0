// Package notify e-mails complaint authors about changes they need to act on.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/civicpulse/complaints-api/databases"
	"github.com/civicpulse/complaints-api/lifecycle"
	"github.com/civicpulse/complaints-api/models"
	templates "github.com/civicpulse/complaints-api/templates/html"
)

// Mailer asks the author of a complaint to verify it once an authority marks it solved
type Mailer struct {
	Users   databases.UserDatabase
	From    string
	BaseURL string
	send    func(msg *mail.SGMailV3) error
}

// NewMailer returns a Mailer sending through SendGrid with apiKey
func NewMailer(users databases.UserDatabase, apiKey, from, baseURL string) *Mailer {
	client := sendgrid.NewSendClient(apiKey)
	return &Mailer{
		Users:   users,
		From:    from,
		BaseURL: baseURL,
		send: func(msg *mail.SGMailV3) error {
			response, err := client.Send(msg)
			if err != nil {
				return err
			}
			if response.StatusCode >= 400 {
				return fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body)
			}
			return nil
		},
	}
}

// HandleEvent sends the verification mail for complaints that just became solved
func (m *Mailer) HandleEvent(ctx context.Context, event models.ComplaintEvent) {
	if event.Type != models.EventComplaintUpdated || event.Action != lifecycle.ActionUpdateStatus || event.Status != models.StatusSolved {
		return
	}

	author, err := m.Users.FindByID(ctx, event.Complaint.AuthorID)
	if err != nil || author.Email == "" {
		zap.S().Warnw("no e-mail for complaint author",
			"complaintId", event.ComplaintID,
			"userId", event.Complaint.AuthorID,
			"error", err)
		return
	}

	link := strings.TrimRight(m.BaseURL, "/") + "/complaints/" + event.ComplaintID
	subject, plain, html := templates.RenderResolutionEmail(author.Name, event.Complaint.Title, link)
	msg := mail.NewSingleEmail(
		mail.NewEmail("Civic Complaints", m.From),
		subject,
		mail.NewEmail(author.Name, author.Email),
		plain,
		html,
	)
	if err := m.send(msg); err != nil {
		zap.S().Errorw("failed to send resolution e-mail", "complaintId", event.ComplaintID, "error", err)
		return
	}
	zap.S().Infow("sent resolution e-mail", "complaintId", event.ComplaintID, "userId", author.ID.Hex())
}
