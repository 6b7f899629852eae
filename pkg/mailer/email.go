package mailer

import (
	"io"

	"gopkg.in/gomail.v2"
)

// Attachment is a file attached to an Email.
type Attachment struct {
	Filename    string `json:"filename"`
	Content     []byte `json:"content"`
	ContentType string `json:"content_type"`
}

// Email is a fully composed message. It is JSON and gob encodable so job
// runners can carry it.
type Email struct {
	ID          string       `json:"id"`
	From        string       `json:"from"`
	To          []string     `json:"to"`
	Subject     string       `json:"subject"`
	Text        string       `json:"text"`
	HTML        string       `json:"html"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Message builds the MIME message: the text body, the HTML alternative
// (always present, possibly empty) and the attachments in order.
func (e *Email) Message() *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", e.From)
	msg.SetHeader("To", e.To...)
	msg.SetHeader("Subject", e.Subject)

	if e.ID != "" {
		msg.SetHeader("X-Mail-ID", e.ID)
	}

	msg.SetBody("text/plain", e.Text)
	msg.AddAlternative("text/html", e.HTML)

	for _, attachment := range e.Attachments {
		content := attachment.Content
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(content)
				return err
			}),
		}

		if attachment.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{
				"Content-Type": {attachment.ContentType},
			}))
		}

		msg.Attach(attachment.Filename, settings...)
	}

	return msg
}
