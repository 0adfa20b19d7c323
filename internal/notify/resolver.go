package notify

import (
	"context"
	"errors"
	"strings"
)

// Resolution is a resolver's answer. Candidates counts the accounts the
// lookup matched before any were left out for lacking an address.
type Resolution struct {
	Recipients []Recipient
	Candidates int
}

// Resolver turns a request into a recipient set. Finding nobody returns an
// empty Resolution and a nil error.
type Resolver interface {
	Resolve(ctx context.Context, req Request) (Resolution, error)
}

// ContactsResolver reads the reporter's saved contacts.
type ContactsResolver struct {
	Store ContactStore
}

func (r ContactsResolver) Resolve(ctx context.Context, req Request) (Resolution, error) {
	if req.UserID == "" {
		return Resolution{}, errors.New("user_id is required")
	}
	contacts, err := r.Store.ContactsForUser(ctx, req.UserID)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Recipients: contacts, Candidates: len(contacts)}, nil
}

// RolesResolver reads every responder/admin account, then looks up their
// email addresses through the identity provider. Accounts without an email
// are left out; they were never eligible.
type RolesResolver struct {
	Store     RoleStore
	Directory Directory
	Roles     []string
}

func (r RolesResolver) Resolve(ctx context.Context, _ Request) (Resolution, error) {
	roles := r.Roles
	if len(roles) == 0 {
		roles = ResponderRoles
	}

	ids, err := r.Store.UserIDsWithRoles(ctx, roles)
	if err != nil {
		return Resolution{}, err
	}
	if len(ids) == 0 {
		return Resolution{}, nil
	}

	users, err := r.Directory.ListUsers(ctx)
	if err != nil {
		return Resolution{}, err
	}
	byID := make(map[string]DirectoryUser, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	// Keep role-table order, one entry per account even when it holds both
	// roles.
	seen := make(map[string]bool, len(ids))
	out := make([]Recipient, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		u, ok := byID[id]
		email := strings.TrimSpace(u.Email)
		if !ok || email == "" {
			continue
		}
		out = append(out, Recipient{ID: id, Name: u.Name, Email: email})
	}
	return Resolution{Recipients: out, Candidates: len(seen)}, nil
}

// reachable drops recipients that have neither email nor phone. They are
// not counted as failures.
func reachable(recipients []Recipient) []Recipient {
	out := make([]Recipient, 0, len(recipients))
	for _, r := range recipients {
		r.Email = strings.TrimSpace(r.Email)
		r.Phone = strings.TrimSpace(r.Phone)
		if r.Reachable() {
			out = append(out, r)
		}
	}
	return out
}
