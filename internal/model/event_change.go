package model

import "time"

// ChangeAction names what happened to an event.
type ChangeAction string

const (
    ChangeRegistered ChangeAction = "registered"
    ChangeCancelled  ChangeAction = "cancelled"
    ChangeReconciled ChangeAction = "reconciled"
    ChangeUpdated    ChangeAction = "updated"
    ChangeDeleted    ChangeAction = "deleted"
)

// EventChange is emitted after a committed write that alters what the
// public read views show for an event.  It is delivered best effort and
// carries enough data for consumers to act without querying MySQL.
type EventChange struct {
    ID         string       `json:"id"`
    EventID    uint64       `json:"event_id"`
    Slug       string       `json:"slug"`
    UserID     uint64       `json:"user_id,omitempty"`
    Action     ChangeAction `json:"action"`
    SeatsTaken uint32       `json:"seats_taken"`
    Capacity   *uint32      `json:"capacity"`
    OccurredAt time.Time    `json:"occurred_at"`
}
