package mailer

import (
	"context"
	"fmt"
	"html"
	"log"
	"time"

	"eventhub/model"

	"github.com/mailersend/mailersend-go"
)

const sendTimeout = 5 * time.Second

var subjects = map[string]string{
	model.NotificationBooking:      "Your booking is confirmed",
	model.NotificationCancellation: "Your booking was cancelled",
	model.NotificationReminder:     "Your event is tomorrow",
}

type sender interface {
	Send(ctx context.Context, message *mailersend.Message) (*mailersend.Response, error)
}

// Mailer emails notifications to their recipients through MailerSend.
type Mailer struct {
	sender sender
	from   mailersend.From
}

func NewMailer(apiKey, fromName, fromEmail string) *Mailer {
	return &Mailer{
		sender: mailersend.NewMailersend(apiKey).Email,
		from:   mailersend.From{Name: fromName, Email: fromEmail},
	}
}

func (m *Mailer) Announce(ctx context.Context, n model.Notification, recipient model.UserData) error {
	if recipient.Email == "" {
		return fmt.Errorf("user %v has no email address", recipient.Id.Hex())
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	res, err := m.sender.Send(ctx, m.buildMessage(n, recipient))
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	if res != nil && res.Response != nil {
		log.Println("Email sent. Message ID:", res.Header.Get("X-Message-Id"))
	}
	return nil
}

func (m *Mailer) buildMessage(n model.Notification, recipient model.UserData) *mailersend.Message {
	subject, ok := subjects[n.Type]
	if !ok {
		subject = "EventHub notification"
	}

	greeting := "Hello,"
	if recipient.Name != "" {
		greeting = fmt.Sprintf("Hello %s,", recipient.Name)
	}

	message := &mailersend.Message{}
	message.SetFrom(m.from)
	message.SetRecipients([]mailersend.Recipient{{Name: recipient.Name, Email: recipient.Email}})
	message.SetSubject(subject)
	message.SetText(greeting + "\n\n" + n.Message + "\n")
	message.SetHTML("<p>" + html.EscapeString(greeting) + "</p><p>" + html.EscapeString(n.Message) + "</p>")
	return message
}
