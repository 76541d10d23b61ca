package mailer

// Message is one outbound email.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Mailer delivers messages. Delivery is synchronous and best-effort;
// callers log failures and move on.
type Mailer interface {
	Send(msg Message) error
}
