package alerting

import (
	"fmt"
	"strconv"

	"envmonitor/backend/services/monitoring-service/internal/models"
)

// BreachKind identifies which bound a reading crossed.
type BreachKind string

const (
	BreachMax       BreachKind = "max"
	BreachMin       BreachKind = "min"
	BreachThreshold BreachKind = "threshold"
)

// Breach describes a reading that crossed one of the sensor bounds.
type Breach struct {
	Kind      BreachKind
	Value     float64
	Threshold float64
	Message   string
}

// Check applies the breach rules in precedence order: maxValue, then
// minValue, then alertThreshold. Sensors without an alert threshold are
// never evaluated.
func Check(value float64, sensor *models.Sensor) (Breach, bool) {
	if sensor == nil || sensor.AlertThreshold == nil {
		return Breach{}, false
	}

	var message string
	var kind BreachKind
	switch {
	case sensor.MaxValue != nil && value > *sensor.MaxValue:
		kind = BreachMax
		message = fmt.Sprintf("%s exceeded maximum allowed value: %s %s (max: %s %s)",
			sensor.Name, formatValue(value), sensor.Unit, formatValue(*sensor.MaxValue), sensor.Unit)
	case sensor.MinValue != nil && value < *sensor.MinValue:
		kind = BreachMin
		message = fmt.Sprintf("%s is below minimum allowed value: %s %s (min: %s %s)",
			sensor.Name, formatValue(value), sensor.Unit, formatValue(*sensor.MinValue), sensor.Unit)
	case value > *sensor.AlertThreshold:
		kind = BreachThreshold
		message = fmt.Sprintf("%s exceeded alert threshold: %s %s (threshold: %s %s)",
			sensor.Name, formatValue(value), sensor.Unit, formatValue(*sensor.AlertThreshold), sensor.Unit)
	default:
		return Breach{}, false
	}

	return Breach{
		Kind:      kind,
		Value:     value,
		Threshold: ResolveThreshold(sensor),
		Message:   message,
	}, true
}

// ResolveThreshold returns the first configured of alertThreshold, maxValue
// and minValue, or 0 when none is set. The stored alert threshold always
// comes from here, whichever rule fired.
func ResolveThreshold(sensor *models.Sensor) float64 {
	switch {
	case sensor.AlertThreshold != nil:
		return *sensor.AlertThreshold
	case sensor.MaxValue != nil:
		return *sensor.MaxValue
	case sensor.MinValue != nil:
		return *sensor.MinValue
	}
	return 0
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
