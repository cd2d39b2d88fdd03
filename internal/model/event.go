package model

import "time"

// EventType classifies the format of a community event.
type EventType string

const (
    EventTypeKata   EventType = "kata"
    EventTypeTaller EventType = "taller"
    EventTypeMeetup EventType = "meetup"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
    switch t {
    case EventTypeKata, EventTypeTaller, EventTypeMeetup:
        return true
    }
    return false
}

// EventStatus is the publication state of an event.  Only published events
// accept registrations.
type EventStatus string

const (
    EventStatusDraft     EventStatus = "draft"
    EventStatusPublished EventStatus = "published"
    EventStatusCancelled EventStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s EventStatus) Valid() bool {
    switch s {
    case EventStatusDraft, EventStatusPublished, EventStatusCancelled:
        return true
    }
    return false
}

// Event represents a scheduled community event (kata, taller or meetup).
// Capacity is nil for events without a seat limit.  SeatsTaken is a
// denormalized count of registrations and is only written by the
// reservation service while it holds the event row lock.
//
// Fields:
//  ID          – primary key identifier.
//  Slug        – unique URL identifier derived from the title.
//  Title       – display title.
//  Summary     – short description for listings.
//  Description – full description.
//  Type        – kata, taller or meetup.
//  StartAt     – when the event begins.
//  EndAt       – when the event ends (must be after StartAt).
//  Capacity    – maximum registrations (nil means unlimited).
//  SeatsTaken  – current number of registrations.
//  Status      – draft, published or cancelled.
//  CreatedBy   – user ID of the creator.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Event struct {
    ID          uint64      `json:"id"`           // events.id
    Slug        string      `json:"slug"`         // events.slug
    Title       string      `json:"title"`        // events.title
    Summary     string      `json:"summary"`      // events.summary
    Description string      `json:"description"`  // events.description
    Type        EventType   `json:"type"`         // events.type
    StartAt     time.Time   `json:"start_at"`     // events.start_at
    EndAt       time.Time   `json:"end_at"`       // events.end_at
    Capacity    *uint32     `json:"capacity"`     // events.capacity (nullable)
    SeatsTaken  uint32      `json:"seats_taken"`  // events.seats_taken
    Status      EventStatus `json:"status"`       // events.status
    CreatedBy   uint64      `json:"-"`            // events.created_by
    CreatedAt   time.Time   `json:"created_at"`   // events.created_at
    UpdatedAt   time.Time   `json:"updated_at"`   // events.updated_at
}

// SeatsRemaining returns how many seats are still free, floored at zero.
// It returns nil when the event has no capacity limit.
func (e Event) SeatsRemaining() *uint32 {
    if e.Capacity == nil {
        return nil
    }
    var left uint32
    if *e.Capacity > e.SeatsTaken {
        left = *e.Capacity - e.SeatsTaken
    }
    return &left
}

// IsFull reports whether a limited event has no seats left.
func (e Event) IsFull() bool {
    return e.Capacity != nil && e.SeatsTaken >= *e.Capacity
}

// AcceptsRegistrations reports whether the status gate is open.  It only
// reads Status; transitions belong to the admin workflow.
func (e Event) AcceptsRegistrations() bool {
    return e.Status == EventStatusPublished
}
