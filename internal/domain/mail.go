package domain

import "time"

type MailID string

// MailJob is a queued notification email. Jobs are created by the HTTP
// layer (meeting invites) and drained by the mailer; they transition
// Sent false → true exactly once and are never deleted.
type MailJob struct {
	ID        MailID     `json:"id"`
	From      string     `json:"from"`
	To        string     `json:"to"`
	Subject   string     `json:"subject"`
	HTML      string     `json:"html"`
	Sent      bool       `json:"sent"`
	DateSent  *time.Time `json:"dateSent,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}
