// Package notify delivers outbound notifications.
package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	// DefaultSendgridHost is the public SendGrid API.
	DefaultSendgridHost = "https://api.sendgrid.com"
	sendgridEndpoint    = "/v3/mail/send"
)

// Message is a single plain email.
type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// Mailer sends email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SendgridMailer sends through the SendGrid v3 API.
type SendgridMailer struct {
	key        string
	host       string
	from       *sgmail.Email
	subjPrefix string
}

// NewSendgridMailer builds a mailer. An empty host targets DefaultSendgridHost.
func NewSendgridMailer(key, host, appName, fromName, fromEmail string) *SendgridMailer {
	if host == "" {
		host = DefaultSendgridHost
	}
	return &SendgridMailer{
		key:        key,
		host:       host,
		from:       sgmail.NewEmail(fromName, fromEmail),
		subjPrefix: "[" + appName + "] ",
	}
}

func (m *SendgridMailer) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = m.subjPrefix + msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.To))

	mail := sgmail.NewV3Mail()
	mail.SetFrom(m.from)
	mail.AddPersonalizations(p)
	mail.AddContent(sgmail.NewContent("text/plain", msg.Text))
	if msg.HTML != "" {
		mail.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}
	return mail
}

// Send implements Mailer. Statuses >= 400 are errors; 5xx ones are marked
// retryable.
func (m *SendgridMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	req := sendgrid.GetRequest(m.key, sendgridEndpoint, m.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m.prepare(msg))

	res, err := sendgrid.API(req)
	if err != nil {
		return &SendError{Retryable: true, Err: fmt.Errorf("sending email: %w", err)}
	}
	if res.StatusCode >= http.StatusBadRequest {
		return &SendError{
			Retryable: res.StatusCode >= http.StatusInternalServerError || res.StatusCode == http.StatusTooManyRequests,
			Err:       fmt.Errorf("sending email - status: %d - body: %s", res.StatusCode, res.Body),
		}
	}
	return nil
}

// SendError carries whether a failed send is worth retrying.
type SendError struct {
	Retryable bool
	Err       error
}

func (e *SendError) Error() string { return e.Err.Error() }

func (e *SendError) Unwrap() error { return e.Err }
