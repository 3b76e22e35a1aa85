// Package directory wraps an identity provider with the group membership
// operations the reconciler needs, adding timeouts and retries.
package directory

import (
	"context"
)

// User is a directory account.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Active   bool   `json:"active"`
}

// Group is a provider group. ID is the provider's handle for it.
type Group struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Provider is a single identity provider transport.
// Implementations do not retry; Client does.
type Provider interface {
	// Users lists all accounts.
	Users(ctx context.Context) ([]User, error)
	// GroupByName returns ErrGroupNotFound when no group has exactly that name.
	GroupByName(ctx context.Context, name string) (Group, error)
	CreateGroup(ctx context.Context, name string) (Group, error)
	// GroupMembers returns the student ids of all members.
	GroupMembers(ctx context.Context, g Group) ([]string, error)
	AddUser(ctx context.Context, g Group, studentID string) error
	RemoveUser(ctx context.Context, g Group, studentID string) error
}
