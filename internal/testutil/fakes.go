package testutil

import (
	"context"
	"sync"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// FakeChatModel replies with fixed text and records every prompt it sees.
type FakeChatModel struct {
	mu      sync.Mutex
	Reply   string
	Err     error
	Usage   *schema.TokenUsage
	Prompts [][]*schema.Message
}

func (f *FakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	f.mu.Lock()
	f.Prompts = append(f.Prompts, input)
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	msg := schema.AssistantMessage(f.Reply, nil)
	if f.Usage != nil {
		msg.ResponseMeta = &schema.ResponseMeta{Usage: f.Usage}
	}
	return msg, nil
}

func (f *FakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// Calls returns how many times the model was invoked.
func (f *FakeChatModel) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Prompts)
}

// LastPrompt returns the content of the last message of the last call.
func (f *FakeChatModel) LastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Prompts) == 0 {
		return ""
	}
	msgs := f.Prompts[len(f.Prompts)-1]
	if len(msgs) == 0 || msgs[len(msgs)-1] == nil {
		return ""
	}
	return msgs[len(msgs)-1].Content
}

// SentMail is one message handed to FakeMailer.
type SentMail struct {
	Subject string
	Body    string
}

// FakeMailer records messages instead of sending them.
type FakeMailer struct {
	mu   sync.Mutex
	Err  error
	Sent []SentMail
}

func (m *FakeMailer) Send(_ context.Context, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, SentMail{Subject: subject, Body: body})
	return nil
}

func (m *FakeMailer) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

var _ einomodel.BaseChatModel = (*FakeChatModel)(nil)
