package notify

// ChannelCount tallies terminal attempts for one channel.
type ChannelCount struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Eligible is the number of attempts made on the channel.
func (c ChannelCount) Eligible() int { return c.Sent + c.Failed }

// Report is the only observable artifact of a dispatch. It is never
// persisted.
type Report struct {
	DispatchID      string                   `json:"dispatch_id"`
	Strategy        Strategy                 `json:"strategy"`
	EmergencyID     string                   `json:"emergency_id"`
	Candidates      int                      `json:"candidates"`
	TotalRecipients int                      `json:"total_recipients"`
	Unreachable     int                      `json:"unreachable"`
	Channels        []Channel                `json:"channels"`
	Counts          map[Channel]ChannelCount `json:"counts"`
	Failures        []string                 `json:"failures,omitempty"`
	Attempts        []Attempt                `json:"-"`
}

// Aggregate reduces terminal attempts into a Report. It does no I/O and
// keeps failure labels in dispatch order. Pending attempts are ignored;
// the dispatcher never hands any over.
func Aggregate(attempts []Attempt) Report {
	rep := Report{
		Counts:   make(map[Channel]ChannelCount),
		Attempts: attempts,
	}
	for _, a := range attempts {
		c := rep.Counts[a.Channel]
		switch a.Outcome {
		case Sent:
			c.Sent++
		case Failed:
			c.Failed++
			rep.Failures = append(rep.Failures, a.Label())
		default:
			continue
		}
		rep.Counts[a.Channel] = c
	}
	return rep
}

// Sent returns the sent count for a channel.
func (r Report) Sent(ch Channel) int { return r.Counts[ch].Sent }

// Failed returns the failed count for a channel.
func (r Report) Failed(ch Channel) int { return r.Counts[ch].Failed }

// TotalSent sums sent attempts over all channels.
func (r Report) TotalSent() int {
	n := 0
	for _, c := range r.Counts {
		n += c.Sent
	}
	return n
}

// TotalFailed sums failed attempts over all channels.
func (r Report) TotalFailed() int {
	n := 0
	for _, c := range r.Counts {
		n += c.Failed
	}
	return n
}

// NoChannel reports whether there were recipients but nothing to send with.
func (r Report) NoChannel() bool {
	return r.TotalRecipients > 0 && len(r.Channels) == 0
}

// --------------------------------------------------------------------------
// Response shapes
// --------------------------------------------------------------------------

const (
	msgNoContacts   = "No contacts to notify"
	msgNoResponders = "No responders to notify"
	msgNoEmails     = "No responder emails found"
	msgNoChannel    = "No notification channel available"
	msgSent         = "Notifications sent"
)

// ContactsResponse is the personal-contacts endpoint body.
type ContactsResponse struct {
	Success       bool     `json:"success"`
	Message       string   `json:"message,omitempty"`
	EmailsSent    int      `json:"emailsSent"`
	SMSSent       int      `json:"smsSent"`
	TotalContacts int      `json:"totalContacts"`
	Failures      []string `json:"failures,omitempty"`
}

// RespondersResponse is the role-based endpoint body.
type RespondersResponse struct {
	Message    string `json:"message"`
	Successful int    `json:"successful"`
	Failed     int    `json:"failed"`
	Total      int    `json:"total"`
}

// ContactsResponse shapes the report for the personal-contacts endpoint.
func (r Report) ContactsResponse() ContactsResponse {
	resp := ContactsResponse{
		Success:       true,
		EmailsSent:    r.Sent(ChannelEmail),
		SMSSent:       r.Sent(ChannelSMS),
		TotalContacts: r.TotalRecipients,
	}
	if len(r.Failures) > 0 {
		resp.Failures = r.Failures
	}
	switch {
	case r.TotalRecipients == 0:
		resp.Message = msgNoContacts
	case r.NoChannel():
		resp.Message = msgNoChannel
	}
	return resp
}

// RespondersResponse shapes the report for the role-based endpoint.
func (r Report) RespondersResponse() RespondersResponse {
	resp := RespondersResponse{
		Message:    msgSent,
		Successful: r.TotalSent(),
		Failed:     r.TotalFailed(),
		Total:      r.TotalRecipients,
	}
	switch {
	case r.TotalRecipients == 0 && r.Candidates > 0:
		resp.Message = msgNoEmails
	case r.TotalRecipients == 0:
		resp.Message = msgNoResponders
	case r.NoChannel():
		resp.Message = msgNoChannel
	}
	return resp
}
