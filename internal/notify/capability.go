package notify

// Capabilities is computed once per request and never mutated afterwards.
type Capabilities struct {
	Strategy  Strategy `json:"strategy"`
	Store     bool     `json:"store"`
	Directory bool     `json:"directory"`
	Email     bool     `json:"email"`
	SMS       bool     `json:"sms"`
}

// Available reports whether a channel may be used.
func (c Capabilities) Available(ch Channel) bool {
	switch ch {
	case ChannelEmail:
		return c.Email
	case ChannelSMS:
		return c.SMS
	default:
		return false
	}
}

// Channels returns the available channels in dispatch order.
func (c Capabilities) Channels() []Channel {
	var out []Channel
	for _, ch := range AllChannels {
		if c.Available(ch) {
			out = append(out, ch)
		}
	}
	return out
}

// Deps are the process-scoped collaborators of a Service. A nil field means
// the corresponding credentials were absent at start-up.
type Deps struct {
	Store     Store
	Directory Directory
	Senders   []Sender
}

// Validate inspects deps before any lookup happens. A missing store, or a
// missing directory for the responder strategy, is a Configuration error.
// A missing channel only marks that channel Unavailable, for both
// strategies; zero available channels is still not fatal.
func Validate(deps Deps, strategy Strategy) (Capabilities, error) {
	caps := Capabilities{
		Strategy:  strategy,
		Store:     deps.Store != nil,
		Directory: deps.Directory != nil,
	}
	for _, s := range deps.Senders {
		if s == nil {
			continue
		}
		switch s.Channel() {
		case ChannelEmail:
			caps.Email = true
		case ChannelSMS:
			caps.SMS = true
		}
	}

	if !caps.Store {
		return caps, &ConfigError{Component: "backing store", Missing: []string{"DATABASE_URL"}}
	}
	if strategy == StrategyResponders && !caps.Directory {
		return caps, &ConfigError{
			Component: "identity provider",
			Missing:   []string{"SUPABASE_URL", "SUPABASE_SERVICE_ROLE_KEY"},
		}
	}
	return caps, nil
}
