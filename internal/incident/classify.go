package incident

import (
	"sort"
	"strings"
	"time"
)

const (
	LevelLow    = "low"
	LevelMedium = "medium"
	LevelHigh   = "high"
)

// Congestion grades a vehicle count.
func Congestion(vehicles int) string {
	switch {
	case vehicles < 10:
		return LevelLow
	case vehicles < 25:
		return LevelMedium
	default:
		return LevelHigh
	}
}

// IsPeakHour covers the morning (8–11) and evening (17–20) rush, inclusive.
func IsPeakHour(t time.Time) bool {
	h := t.Hour()
	return (h >= 8 && h <= 11) || (h >= 17 && h <= 20)
}

const (
	DensityLow     = "Low"
	DensityMedium  = "Medium"
	DensityHigh    = "High"
	DensityExtreme = "Extreme"
)

// Density grades a predicted crowd count.
func Density(count float64) string {
	switch {
	case count < 50:
		return DensityLow
	case count < 150:
		return DensityMedium
	case count < 300:
		return DensityHigh
	default:
		return DensityExtreme
	}
}

// CrowdSeverity maps a density level to an alert severity.
func CrowdSeverity(density string) string {
	switch density {
	case DensityLow, DensityMedium:
		return LevelLow
	case DensityHigh:
		return LevelMedium
	default:
		return LevelHigh
	}
}

// AccidentSeverity grades the detector's highest box confidence.
func AccidentSeverity(confidence float64) string {
	switch {
	case confidence >= 0.80:
		return LevelHigh
	case confidence >= 0.50:
		return LevelMedium
	default:
		return LevelLow
	}
}

const (
	AQIGood     = "Good"
	AQIModerate = "Moderate"
	AQIPoor     = "Poor"
	AQISevere   = "Severe"
)

var healthMessages = map[string]string{
	AQIGood:     "Air quality is good",
	AQIModerate: "Sensitive people should reduce outdoor activity",
	AQIPoor:     "Breathing discomfort likely, limit exposure",
	AQISevere:   "Health alert, stay indoors",
}

// AQICategory grades an AQI value.
func AQICategory(aqi float64) string {
	switch {
	case aqi <= 50:
		return AQIGood
	case aqi <= 200:
		return AQIModerate
	case aqi <= 400:
		return AQIPoor
	default:
		return AQISevere
	}
}

func HealthMessage(category string) string {
	return healthMessages[category]
}

// Departments routes complaint categories.
var Departments = map[string]string{
	"road":      "Roads Department",
	"water":     "Water Board",
	"lighting":  "Electricity Board",
	"pollution": "Pollution Control Board",
	"traffic":   "Traffic Police",
}

// Department returns the owner of a complaint category.
func Department(category string) (string, bool) {
	d, ok := Departments[strings.ToLower(strings.TrimSpace(category))]
	return d, ok
}

// Priority grades a complaint by its sentiment polarity in [-1, 1].
func Priority(polarity float64) string {
	switch {
	case polarity <= -0.5:
		return LevelHigh
	case polarity < 0.05:
		return LevelMedium
	default:
		return LevelLow
	}
}

var damageClasses = map[string]bool{"pothole": true, "manhole": true, "crack": true}

// DamageFound keeps the road-damage classes among detections, deduplicated
// and sorted.
func DamageFound(detected []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range detected {
		c = strings.ToLower(strings.TrimSpace(c))
		if damageClasses[c] && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}
