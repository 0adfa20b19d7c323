// Package notify fans a newly created emergency out to its recipients.
//
// Pipeline: validate capabilities → resolve recipients → dispatch every
// eligible (recipient, channel) pair concurrently → aggregate a report.
// Only the first two stages can fail the request. Everything after them is
// recorded in the Report as data.
package notify

import (
	"context"
	"fmt"
)

// --------------------------------------------------------------------------
// Channels
// --------------------------------------------------------------------------

// Channel is an independent delivery mechanism.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// AllChannels lists channels in dispatch order.
var AllChannels = []Channel{ChannelEmail, ChannelSMS}

// Label is the human-readable name used in failure labels.
func (c Channel) Label() string {
	switch c {
	case ChannelEmail:
		return "Email"
	case ChannelSMS:
		return "SMS"
	default:
		return string(c)
	}
}

// Strategy selects the recipient resolver. It is supplied by the caller,
// never inferred.
type Strategy string

const (
	StrategyContacts   Strategy = "contacts"   // reporter's personal contact list
	StrategyResponders Strategy = "responders" // every responder/admin account
)

// Roles that receive system-wide alerts.
var ResponderRoles = []string{"responder", "admin"}

// --------------------------------------------------------------------------
// Request / recipients
// --------------------------------------------------------------------------

// Request identifies exactly one emergency event. Resubmitting the same
// request causes a new delivery wave.
type Request struct {
	EmergencyID   string  `json:"emergency_id" validate:"required"`
	EmergencyType string  `json:"emergency_type" validate:"required"`
	Latitude      float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude     float64 `json:"longitude" validate:"gte=-180,lte=180"`
	Description   string  `json:"description,omitempty"`
	UserID        string  `json:"user_id,omitempty"`
	ReporterName  string  `json:"reporter_name,omitempty"`
}

// Recipient is someone who may be alerted. A recipient is eligible for a
// channel only when the channel's contact field is non-empty.
type Recipient struct {
	ID    string
	Name  string
	Email string
	Phone string
}

// Address returns the contact field the channel needs, or "".
func (r Recipient) Address(c Channel) string {
	switch c {
	case ChannelEmail:
		return r.Email
	case ChannelSMS:
		return r.Phone
	default:
		return ""
	}
}

// Reachable reports whether the recipient has any contact field at all.
func (r Recipient) Reachable() bool {
	return r.Email != "" || r.Phone != ""
}

// DisplayName falls back to the ID when no name is known.
func (r Recipient) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	if r.Email != "" {
		return r.Email
	}
	return r.ID
}

// --------------------------------------------------------------------------
// Attempts
// --------------------------------------------------------------------------

// Outcome is the state of a single delivery attempt.
type Outcome int

const (
	Pending Outcome = iota
	Sent
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Sent:
		return "sent"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Attempt is one (recipient, channel) delivery. It moves from Pending to
// Sent or Failed exactly once and is never retried.
type Attempt struct {
	RecipientID   string
	RecipientName string
	Channel       Channel
	Address       string
	Outcome       Outcome
	Error         string
}

// Label is the failure label reported for this attempt, e.g. "SMS to Ann".
func (a Attempt) Label() string {
	return fmt.Sprintf("%s to %s", a.Channel.Label(), a.RecipientName)
}

// Message is the rendered alert. Email uses Subject and HTML (with Text as
// the plain alternative); SMS uses Text.
type Message struct {
	Subject string
	HTML    string
	Text    string
}

// --------------------------------------------------------------------------
// Collaborators
// --------------------------------------------------------------------------

// Sender is a channel client.
type Sender interface {
	Channel() Channel
	Send(ctx context.Context, to string, msg Message) error
}

// ContactStore reads a user's saved emergency contacts.
type ContactStore interface {
	ContactsForUser(ctx context.Context, userID string) ([]Recipient, error)
}

// RoleStore reads which accounts hold any of the given roles.
type RoleStore interface {
	UserIDsWithRoles(ctx context.Context, roles []string) ([]string, error)
}

// Store is the relational backing store.
type Store interface {
	ContactStore
	RoleStore
}

// DirectoryUser is an account as reported by the identity provider.
type DirectoryUser struct {
	ID    string
	Email string
	Name  string
}

// Directory is the identity-provider admin API.
type Directory interface {
	ListUsers(ctx context.Context) ([]DirectoryUser, error)
}
