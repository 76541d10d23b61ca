package mailer

import (
	"errors"
	"sync"
)

// RecordingMailer is a test double that captures sent messages instead of
// delivering them.
type RecordingMailer struct {
	mu       sync.Mutex
	Fail     bool
	Messages []Message
}

func NewRecordingMailer() *RecordingMailer {
	return &RecordingMailer{}
}

func (m *RecordingMailer) Send(msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Fail {
		return errors.New("send failed")
	}

	m.Messages = append(m.Messages, msg)
	return nil
}

func (m *RecordingMailer) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Messages)
}

func (m *RecordingMailer) LastMessage() *Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.Messages) == 0 {
		return nil
	}

	msg := m.Messages[len(m.Messages)-1]
	return &msg
}

func (m *RecordingMailer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = nil
}
