package alerting

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"envmonitor/backend/services/monitoring-service/internal/models"
)

func f(v float64) *float64 { return &v }

func phSensor() *models.Sensor {
	return &models.Sensor{
		ID:             "sensor-ph",
		Name:           "pH Sensor",
		Type:           models.SensorPH,
		Unit:           "pH",
		MinValue:       f(6.5),
		MaxValue:       f(8.5),
		AlertThreshold: f(7.0),
	}
}

func TestCheckWithoutThresholdNeverBreaches(t *testing.T) {
	sensor := &models.Sensor{Name: "Temp", Unit: "°C", MinValue: f(0), MaxValue: f(28)}
	for _, v := range []float64{-1000, 0, 27, 28, 30, 1e9} {
		_, ok := Check(v, sensor)
		assert.False(t, ok, "value %v", v)
	}
	_, ok := Check(1, nil)
	assert.False(t, ok)
}

func TestCheckPrecedence(t *testing.T) {
	tests := []struct {
		name      string
		value     float64
		kind      BreachKind
		message   string
		threshold float64
	}{
		{
			name:      "threshold rule",
			value:     7.2,
			kind:      BreachThreshold,
			message:   "pH Sensor exceeded alert threshold: 7.2 pH (threshold: 7 pH)",
			threshold: 7.0,
		},
		{
			name:      "max wins over threshold",
			value:     9.0,
			kind:      BreachMax,
			message:   "pH Sensor exceeded maximum allowed value: 9 pH (max: 8.5 pH)",
			threshold: 7.0,
		},
		{
			name:      "below min",
			value:     6.1,
			kind:      BreachMin,
			message:   "pH Sensor is below minimum allowed value: 6.1 pH (min: 6.5 pH)",
			threshold: 7.0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			breach, ok := Check(tc.value, phSensor())
			assert.True(t, ok)
			assert.Equal(t, tc.kind, breach.Kind)
			assert.Equal(t, tc.message, breach.Message)
			assert.Equal(t, tc.threshold, breach.Threshold)
			assert.Equal(t, tc.value, breach.Value)
		})
	}

	_, ok := Check(6.9, phSensor())
	assert.False(t, ok, "within bounds and under threshold")
	_, ok = Check(7.0, phSensor())
	assert.False(t, ok, "threshold itself is not a breach")
}

func TestCheckZeroBoundsArePresent(t *testing.T) {
	sensor := &models.Sensor{Name: "Ice", Unit: "°C", MinValue: f(0), AlertThreshold: f(10)}
	breach, ok := Check(-0.5, sensor)
	assert.True(t, ok)
	assert.Equal(t, BreachMin, breach.Kind)

	sensor = &models.Sensor{Name: "Dry", Unit: "%", MaxValue: f(0), AlertThreshold: f(0)}
	breach, ok = Check(0.1, sensor)
	assert.True(t, ok)
	assert.Equal(t, BreachMax, breach.Kind)
	assert.Equal(t, 0.0, breach.Threshold)
}

func TestResolveThresholdOrder(t *testing.T) {
	assert.Equal(t, 7.0, ResolveThreshold(&models.Sensor{AlertThreshold: f(7), MaxValue: f(28), MinValue: f(1)}))
	assert.Equal(t, 28.0, ResolveThreshold(&models.Sensor{MaxValue: f(28), MinValue: f(1)}))
	assert.Equal(t, 1.0, ResolveThreshold(&models.Sensor{MinValue: f(1)}))
	assert.Equal(t, 0.0, ResolveThreshold(&models.Sensor{}))
}

func TestMaxBreachUsesConfiguredThreshold(t *testing.T) {
	sensor := &models.Sensor{Name: "Temp", Unit: "°C", MaxValue: f(28), AlertThreshold: f(25)}
	breach, ok := Check(30, sensor)
	assert.True(t, ok)
	assert.Equal(t, BreachMax, breach.Kind)
	assert.Equal(t, 25.0, breach.Threshold)
}
