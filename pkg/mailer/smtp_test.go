package mailer

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type fakeDialer struct {
	messages []*gomail.Message
	err      error
}

func (f *fakeDialer) DialAndSend(messages ...*gomail.Message) error {
	f.messages = append(f.messages, messages...)
	return f.err
}

func TestSMTPSender_Send(t *testing.T) {
	d := &fakeDialer{}
	sender := &SMTPSender{dialer: d, host: "smtp.example.com"}

	email := &Email{ID: "id-1", From: "noreply@example.com", To: []string{"a@example.com"}, Subject: "Hi", Text: "hello"}
	require.NoError(t, sender.Send(context.Background(), email))
	require.Len(t, d.messages, 1)

	assert.Equal(t, []string{"a@example.com"}, d.messages[0].GetHeader("To"))
	assert.Equal(t, []string{"id-1"}, d.messages[0].GetHeader("X-Mail-ID"))

	var buf bytes.Buffer
	_, err := d.messages[0].WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "hello")
}

func TestSMTPSender_SendError(t *testing.T) {
	dialErr := errors.New("dial tcp: connection refused")
	d := &fakeDialer{err: dialErr}
	sender := &SMTPSender{dialer: d, host: "smtp.example.com"}

	err := sender.Send(context.Background(), &Email{ID: "id-2"})
	require.ErrorIs(t, err, dialErr)
	assert.Contains(t, err.Error(), "smtp.example.com")
	assert.Len(t, d.messages, 1)
}

func TestSMTPSender_CanceledContext(t *testing.T) {
	d := &fakeDialer{}
	sender := &SMTPSender{dialer: d}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, sender.Send(ctx, &Email{}), context.Canceled)
	assert.Empty(t, d.messages)
}

func TestNewSMTPSender(t *testing.T) {
	sender := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Port: 2525, InsecureSkipVerify: true})

	d, ok := sender.dialer.(*gomail.Dialer)
	require.True(t, ok)
	assert.Equal(t, 2525, d.Port)
	require.NotNil(t, d.TLSConfig)
	assert.True(t, d.TLSConfig.InsecureSkipVerify)
}
