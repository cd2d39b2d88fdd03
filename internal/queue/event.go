// Package queue publishes and consumes event change messages over
// RabbitMQ.  Messages let every replica invalidate cached views even when
// the direct post-commit invalidation failed.
package queue

import (
    "encoding/json"
    "errors"
    "fmt"

    "github.com/iliyamo/community-events/internal/model"
)

// DefaultQueue is the durable queue carrying event changes.
const DefaultQueue = "event.seats.changed"

// messageVersion is bumped when the payload changes incompatibly.
const messageVersion = 1

// EventChangedMessage is the JSON body of a queue message.  It carries
// the change fields at the top level next to a format version.
type EventChangedMessage struct {
    Version int `json:"v"`
    model.EventChange
}

func encodeMessage(change model.EventChange) ([]byte, error) {
    return json.Marshal(EventChangedMessage{Version: messageVersion, EventChange: change})
}

func decodeMessage(body []byte) (EventChangedMessage, error) {
    var msg EventChangedMessage
    if err := json.Unmarshal(body, &msg); err != nil {
        return msg, fmt.Errorf("unmarshal: %w", err)
    }
    if msg.Version != messageVersion {
        return msg, fmt.Errorf("unsupported message version %d", msg.Version)
    }
    if msg.EventID == 0 {
        return msg, errors.New("message without event_id")
    }
    return msg, nil
}
