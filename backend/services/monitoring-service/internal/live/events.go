package live

import (
	"encoding/json"
	"strings"
)

// Topic is a named channel viewers subscribe to.
type Topic string

const (
	TopicReadings Topic = "readings"
	TopicAlerts   Topic = "alerts"
	// topicAll addresses every connection regardless of subscriptions.
	topicAll Topic = ""
)

// Server to client event names.
const (
	EventNewReading    = "new-reading"
	EventNewAlert      = "new-alert"
	EventStationUpdate = "station-update"
)

const (
	subscribePrefix   = "subscribe:"
	unsubscribePrefix = "unsubscribe:"
)

// Message is the frame written to viewers.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Envelope is a message addressed to a topic. It is also the payload relayed
// between instances.
type Envelope struct {
	Topic Topic           `json:"topic,omitempty"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func newEnvelope(topic Topic, event string, v interface{}) (Envelope, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Topic: topic, Event: event, Data: data}, nil
}

func (e Envelope) frame() ([]byte, error) {
	return json.Marshal(Message{Event: e.Event, Data: e.Data})
}

// command is a parsed client request.
type command struct {
	subscribe bool
	topic     Topic
}

// parseCommand accepts {"event":"subscribe:readings"} as well as the bare
// text "subscribe:readings".
func parseCommand(raw []byte) (command, bool) {
	text := strings.TrimSpace(string(raw))
	if strings.HasPrefix(text, "{") {
		var msg Message
		if err := json.Unmarshal([]byte(text), &msg); err != nil {
			return command{}, false
		}
		text = strings.TrimSpace(msg.Event)
	}

	var cmd command
	switch {
	case strings.HasPrefix(text, subscribePrefix):
		cmd.subscribe = true
		cmd.topic = Topic(strings.TrimPrefix(text, subscribePrefix))
	case strings.HasPrefix(text, unsubscribePrefix):
		cmd.topic = Topic(strings.TrimPrefix(text, unsubscribePrefix))
	default:
		return command{}, false
	}

	switch cmd.topic {
	case TopicReadings, TopicAlerts:
		return cmd, true
	}
	return command{}, false
}
