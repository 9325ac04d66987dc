package domain

import "time"

// UserClient records that a principal holds an identity under a client.
// The (UserID, ClientID) pair is unique; deleting either side removes the
// link and, through it, any token it owns.
type UserClient struct {
	ID       string
	UserID   string
	ClientID string

	CreatedAt time.Time
}
