// Package queue defines message payloads exchanged over the message broker.
package queue

// UserRegisteredEvent is published after a successful registration.  It
// carries enough information for downstream consumers (welcome mail,
// analytics) to act without querying the primary database.  Secret
// fields are never included.
type UserRegisteredEvent struct {
    UserID       uint64 `json:"user_id"`
    Email        string `json:"email"`
    FullName     string `json:"full_name"`
    RegisteredAt string `json:"registered_at"`
}
