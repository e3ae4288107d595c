package incident

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCongestionBoundaries(t *testing.T) {
	assert.Equal(t, LevelLow, Congestion(0))
	assert.Equal(t, LevelLow, Congestion(9))
	assert.Equal(t, LevelMedium, Congestion(10))
	assert.Equal(t, LevelMedium, Congestion(24))
	assert.Equal(t, LevelHigh, Congestion(25))
}

func TestIsPeakHour(t *testing.T) {
	at := func(h int) time.Time { return time.Date(2025, 1, 1, h, 30, 0, 0, time.UTC) }
	for _, h := range []int{8, 11, 17, 20} {
		assert.True(t, IsPeakHour(at(h)), h)
	}
	for _, h := range []int{7, 12, 16, 21, 0} {
		assert.False(t, IsPeakHour(at(h)), h)
	}
}

func TestDensityAndSeverity(t *testing.T) {
	cases := []struct {
		count    float64
		density  string
		severity string
	}{
		{49.9, DensityLow, LevelLow},
		{50, DensityMedium, LevelLow},
		{149, DensityMedium, LevelLow},
		{150, DensityHigh, LevelMedium},
		{299, DensityHigh, LevelMedium},
		{300, DensityExtreme, LevelHigh},
	}
	for _, c := range cases {
		d := Density(c.count)
		assert.Equal(t, c.density, d, c.count)
		assert.Equal(t, c.severity, CrowdSeverity(d), c.count)
	}
}

func TestAccidentSeverity(t *testing.T) {
	assert.Equal(t, LevelHigh, AccidentSeverity(0.80))
	assert.Equal(t, LevelMedium, AccidentSeverity(0.79))
	assert.Equal(t, LevelMedium, AccidentSeverity(0.50))
	assert.Equal(t, LevelLow, AccidentSeverity(0.49))
}

func TestAQICategory(t *testing.T) {
	assert.Equal(t, AQIGood, AQICategory(50))
	assert.Equal(t, AQIModerate, AQICategory(50.1))
	assert.Equal(t, AQIModerate, AQICategory(200))
	assert.Equal(t, AQIPoor, AQICategory(400))
	assert.Equal(t, AQISevere, AQICategory(401))
	assert.Equal(t, "Health alert, stay indoors", HealthMessage(AQISevere))
}

func TestPriorityAndDepartment(t *testing.T) {
	assert.Equal(t, LevelHigh, Priority(-0.5))
	assert.Equal(t, LevelMedium, Priority(-0.49))
	assert.Equal(t, LevelMedium, Priority(0.049))
	assert.Equal(t, LevelLow, Priority(0.05))

	d, ok := Department(" Water ")
	assert.True(t, ok)
	assert.Equal(t, "Water Board", d)
	_, ok = Department("noise")
	assert.False(t, ok)
}

func TestDamageFound(t *testing.T) {
	assert.Equal(t, []string{"crack", "pothole"}, DamageFound([]string{"car", "pothole", "Crack", "pothole"}))
	assert.Empty(t, DamageFound([]string{"car", "person"}))
}
