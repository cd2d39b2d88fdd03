package model

import "time"

// Registration records that a user holds one seat for an event.  A user
// may hold at most one registration per event; the (event_id, user_id)
// pair is unique in the `event_registrations` table.
//
// Fields:
//  ID        – primary key identifier.
//  EventID   – event the seat belongs to.
//  UserID    – registrant.
//  CreatedAt – when the seat was taken.
type Registration struct {
    ID        uint64    `json:"id"`         // event_registrations.id
    EventID   uint64    `json:"event_id"`   // event_registrations.event_id
    UserID    uint64    `json:"user_id"`    // event_registrations.user_id
    CreatedAt time.Time `json:"created_at"` // event_registrations.created_at
}

// UserRegistration pairs a registration with the event summary shown to
// the registrant in their own listing.
type UserRegistration struct {
    RegistrationID uint64      `json:"registration_id"`
    RegisteredAt   time.Time   `json:"registered_at"`
    EventID        uint64      `json:"event_id"`
    Slug           string      `json:"slug"`
    Title          string      `json:"title"`
    StartAt        time.Time   `json:"start_at"`
    Status         EventStatus `json:"status"`
}
