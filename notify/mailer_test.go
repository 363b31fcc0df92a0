package notify

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/civicpulse/complaints-api/databases"
	"github.com/civicpulse/complaints-api/databases/mocks"
	"github.com/civicpulse/complaints-api/models"
)

func solvedEvent(authorID string) models.ComplaintEvent {
	return models.ComplaintEvent{
		Type:        models.EventComplaintUpdated,
		ComplaintID: "c1",
		Action:      "updateStatus",
		Status:      models.StatusSolved,
		Complaint:   models.Complaint{Title: "Broken streetlight", AuthorID: authorID},
	}
}

func newTestMailer(users databases.UserDatabase) (*Mailer, *[]*mail.SGMailV3) {
	var sent []*mail.SGMailV3
	m := &Mailer{
		Users:   users,
		From:    "no-reply@civic.example",
		BaseURL: "https://civic.example/",
		send: func(msg *mail.SGMailV3) error {
			sent = append(sent, msg)
			return nil
		},
	}
	return m, &sent
}

func TestMailerSendsOnSolved(t *testing.T) {
	authorID := primitive.NewObjectID()
	users := &mocks.UserDatabase{}
	users.On("FindByID", mock.Anything, authorID.Hex()).Return(&models.User{
		ID: authorID, Name: "Asha", Email: "asha@example.com",
	}, nil)
	m, sent := newTestMailer(users)

	m.HandleEvent(context.Background(), solvedEvent(authorID.Hex()))

	require.Len(t, *sent, 1)
	msg := (*sent)[0]
	assert.Equal(t, "Your complaint has been marked solved", msg.Subject)
	assert.Equal(t, "no-reply@civic.example", msg.From.Address)
	require.Len(t, msg.Personalizations, 1)
	assert.Equal(t, "asha@example.com", msg.Personalizations[0].To[0].Address)
	assert.Contains(t, msg.Content[0].Value, "https://civic.example/complaints/c1")
	users.AssertExpectations(t)
}

func TestMailerIgnoresOtherEvents(t *testing.T) {
	users := &mocks.UserDatabase{}
	m, sent := newTestMailer(users)

	like := solvedEvent("u1")
	like.Action = "like"
	verified := solvedEvent("u1")
	verified.Action = "verifyComplaint"
	verified.Status = models.StatusVerified
	inProgress := solvedEvent("u1")
	inProgress.Status = models.StatusInProgress

	for _, e := range []models.ComplaintEvent{like, verified, inProgress} {
		m.HandleEvent(context.Background(), e)
	}

	assert.Empty(t, *sent)
	users.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestMailerSkipsUnknownAuthor(t *testing.T) {
	users := &mocks.UserDatabase{}
	users.On("FindByID", mock.Anything, "u404").Return(nil, databases.ErrNotFound)
	m, sent := newTestMailer(users)

	m.HandleEvent(context.Background(), solvedEvent("u404"))

	assert.Empty(t, *sent)
}

func TestMailerLogsSendFailure(t *testing.T) {
	authorID := primitive.NewObjectID()
	users := &mocks.UserDatabase{}
	users.On("FindByID", mock.Anything, authorID.Hex()).Return(&models.User{ID: authorID, Email: "a@example.com"}, nil)
	m, _ := newTestMailer(users)
	m.send = func(*mail.SGMailV3) error { return errors.New("sendgrid down") }

	assert.NotPanics(t, func() { m.HandleEvent(context.Background(), solvedEvent(authorID.Hex())) })
}
