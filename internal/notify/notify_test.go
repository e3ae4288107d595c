package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPicksImplementation(t *testing.T) {
	assert.IsType(t, NopMailer{}, New(Config{}))
	assert.IsType(t, &SMTPMailer{}, New(Config{Sender: "a@example.com", Receiver: "b@example.com"}))
}

func TestNopMailerReportsNotConfigured(t *testing.T) {
	err := NopMailer{}.Send(context.Background(), "UrbanBot Report", "body")
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

func TestSMTPMailerWithoutConfig(t *testing.T) {
	err := NewSMTPMailer(Config{Sender: "a@example.com"}).Send(context.Background(), "s", "b")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSMTPMailerRejectsBadAddress(t *testing.T) {
	err := NewSMTPMailer(Config{Sender: "not an address", Receiver: "b@example.com", Host: "localhost", Port: 465}).
		Send(context.Background(), "s", "b")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid sender")
}
