package mqtt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultTopicPrefix is the first topic level stations publish under.
const DefaultTopicPrefix = "stations"

var (
	ErrBadTopic   = errors.New("unexpected topic")
	ErrBadPayload = errors.New("unexpected payload")
)

// Reading is one measurement published by a station.
type Reading struct {
	StationID string     `json:"stationId"`
	SensorID  string     `json:"sensorId"`
	Value     float64    `json:"value"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// SubscriptionTopic returns the wildcard filter for prefix.
func SubscriptionTopic(prefix string) string {
	return normalizePrefix(prefix) + "/+/sensors/+/readings"
}

// ParseTopic extracts station and sensor ids from
// <prefix>/<stationId>/sensors/<sensorId>/readings.
func ParseTopic(prefix, topic string) (stationID, sensorID string, err error) {
	prefix = normalizePrefix(prefix)
	rest, ok := strings.CutPrefix(topic, prefix+"/")
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrBadTopic, topic)
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 4 || parts[1] != "sensors" || parts[3] != "readings" || parts[0] == "" || parts[2] == "" {
		return "", "", fmt.Errorf("%w: %s", ErrBadTopic, topic)
	}
	return parts[0], parts[2], nil
}

type payload struct {
	Value     *float64   `json:"value"`
	Timestamp *time.Time `json:"timestamp"`
}

// DecodePayload accepts {"value": n, "timestamp": "<RFC3339>"} or a bare
// number.
func DecodePayload(raw []byte) (float64, *time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, nil, fmt.Errorf("%w: empty", ErrBadPayload)
	}

	if raw[0] == '{' {
		var p payload
		if err := json.Unmarshal(raw, &p); err != nil {
			return 0, nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		if p.Value == nil {
			return 0, nil, fmt.Errorf("%w: value is required", ErrBadPayload)
		}
		return *p.Value, p.Timestamp, nil
	}

	v, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, nil, fmt.Errorf("%w: not a number", ErrBadPayload)
	}
	return v, nil, nil
}

// Decode builds a Reading from one MQTT message.
func Decode(prefix, topic string, raw []byte) (Reading, error) {
	stationID, sensorID, err := ParseTopic(prefix, topic)
	if err != nil {
		return Reading{}, err
	}
	value, ts, err := DecodePayload(raw)
	if err != nil {
		return Reading{}, err
	}
	return Reading{StationID: stationID, SensorID: sensorID, Value: value, Timestamp: ts}, nil
}

// normalizePrefix drops surrounding slashes so the filter we subscribe with
// and the topics we parse agree on one form.
func normalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return DefaultTopicPrefix
	}
	return prefix
}
