// Package incident turns detection-model outputs into event-log rows and
// raises alerts for high-severity events.
package incident

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	errx "github.com/urbanbot/server/internal/core/error"
	"github.com/urbanbot/server/internal/notify"
	"github.com/urbanbot/server/internal/store"
	logx "github.com/urbanbot/server/pkg/logger"
)

// EventStore is the write side of the event log.
type EventStore interface {
	InsertTraffic(ctx context.Context, r store.TrafficLog) error
	InsertCrowd(ctx context.Context, r store.CrowdLog) error
	InsertAccident(ctx context.Context, r store.AccidentLog) error
	InsertAQI(ctx context.Context, r store.AQILog) error
	InsertComplaint(ctx context.Context, c store.Complaint) error
	InsertRoadDamage(ctx context.Context, r store.RoadDamageLog) error
	InsertAlert(ctx context.Context, a store.SystemAlert) error
	RecentComplaints(ctx context.Context, limit int) ([]store.Complaint, error)
}

type TrafficObservation struct {
	Location     store.Location `json:"location"`
	VehicleCount int            `json:"vehicle_count"`
	ImageURL     string         `json:"image_url"`
}

type CrowdObservation struct {
	Location       store.Location `json:"location"`
	PredictedCount float64        `json:"predicted_count"`
	ImageURL       string         `json:"image_url"`
}

type AccidentObservation struct {
	Location   store.Location `json:"location"`
	Confidence float64        `json:"confidence"`
	ImageURL   string         `json:"image_url"`
}

type AQIObservation struct {
	City              string           `json:"city"`
	MonitoringStation string           `json:"monitoring_station"`
	Latitude          float64          `json:"latitude"`
	Longitude         float64          `json:"longitude"`
	Pollutants        store.Pollutants `json:"pollutants"`
	AQI               float64          `json:"aqi"`
}

type ComplaintSubmission struct {
	Location store.Location `json:"location"`
	Category string         `json:"category"`
	Text     string         `json:"complaint_text"`
	// Polarity is the compound sentiment score in [-1, 1].
	Polarity float64 `json:"polarity"`
}

type RoadDamageObservation struct {
	Location     store.Location `json:"location"`
	Detections   []string       `json:"detections"`
	CameraSource string         `json:"camera_source"`
	Weather      string         `json:"weather"`
	RoadType     string         `json:"road_type"`
	Resolution   string         `json:"resolution"`
	ImageURL     string         `json:"image_url"`
}

// Outcome describes what the recorder stored and whether an alert went out.
type Outcome struct {
	Kind        string    `json:"kind"`
	ID          string    `json:"id,omitempty"`
	Level       string    `json:"level"`
	Severity    string    `json:"severity,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	PeakHour    bool      `json:"peak_hour,omitempty"`
	Stored      bool      `json:"stored"`
	AlertRaised bool      `json:"alert_raised"`
	EmailSent   bool      `json:"email_sent"`
	Warning     string    `json:"warning,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type Recorder struct {
	store  EventStore
	mailer notify.Mailer
	now    func() time.Time
	newID  func() string
}

type Option func(*Recorder)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

func NewRecorder(s EventStore, mailer notify.Mailer, opts ...Option) *Recorder {
	r := &Recorder{
		store:  s,
		mailer: mailer,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Recorder) RecordTraffic(ctx context.Context, in TrafficObservation) (Outcome, error) {
	if err := validateLocation(in.Location); err != nil {
		return Outcome{}, err
	}
	if in.VehicleCount < 0 {
		return Outcome{}, errx.Invalid("vehicle_count must not be negative")
	}
	now := r.now()
	out := Outcome{
		Kind:      "traffic",
		Level:     Congestion(in.VehicleCount),
		PeakHour:  IsPeakHour(now),
		Timestamp: now.UTC(),
	}

	if err := r.store.InsertTraffic(ctx, store.TrafficLog{
		Timestamp:       now,
		Location:        in.Location,
		VehicleCount:    in.VehicleCount,
		CongestionLevel: out.Level,
		IsPeakHour:      out.PeakHour,
		ImageURL:        in.ImageURL,
	}); err != nil {
		return Outcome{}, err
	}
	out.Stored = true

	if out.Level == LevelHigh {
		subject := "🚨 UrbanBot Traffic Congestion Alert"
		body := fmt.Sprintf(`Heavy traffic detected!

Time: %s
City: %s
Area: %s
Coordinates: %v, %v

Vehicle Count: %d
Congestion Level: %s

Traffic intervention recommended.`,
			now.Format(time.DateTime), in.Location.City, in.Location.Area,
			in.Location.Latitude, in.Location.Longitude, in.VehicleCount, out.Level)
		if err := r.alert(ctx, &out, "traffic", joinLocation(in.Location), LevelHigh, subject, body); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (r *Recorder) RecordCrowd(ctx context.Context, in CrowdObservation) (Outcome, error) {
	if err := validateLocation(in.Location); err != nil {
		return Outcome{}, err
	}
	if in.PredictedCount < 0 {
		return Outcome{}, errx.Invalid("predicted_count must not be negative")
	}
	now := r.now()
	density := Density(in.PredictedCount)
	out := Outcome{
		Kind:      "crowd",
		Level:     density,
		Severity:  CrowdSeverity(density),
		Timestamp: now.UTC(),
	}

	if err := r.store.InsertCrowd(ctx, store.CrowdLog{
		Timestamp:      now,
		Location:       in.Location,
		PredictedCount: int(in.PredictedCount),
		DensityLevel:   density,
		ImageURL:       in.ImageURL,
	}); err != nil {
		return Outcome{}, err
	}
	out.Stored = true

	if density == DensityExtreme {
		subject := "🚨 UrbanBot Crowd Density Alert"
		body := fmt.Sprintf(`Severe crowd density detected!

Time: %s
City: %s
Coordinates: %v, %v

Predicted Crowd Count: %d
Density Level: %s

Immediate monitoring recommended.`,
			now.Format(time.DateTime), in.Location.City,
			in.Location.Latitude, in.Location.Longitude, int(in.PredictedCount), density)
		if err := r.alert(ctx, &out, "crowd", joinLocation(in.Location), out.Severity, subject, body); err != nil {
			return out, err
		}
	}
	return out, nil
}

// RecordAccident always alerts. The email is sent first so the accident row
// can carry whether it went out.
func (r *Recorder) RecordAccident(ctx context.Context, in AccidentObservation) (Outcome, error) {
	if err := validateLocation(in.Location); err != nil {
		return Outcome{}, err
	}
	if in.Confidence < 0 || in.Confidence > 1 {
		return Outcome{}, errx.Invalid("confidence must be within [0, 1]")
	}
	now := r.now()
	severity := AccidentSeverity(in.Confidence)
	out := Outcome{
		Kind:      "accident",
		ID:        r.newID(),
		Level:     severity,
		Severity:  severity,
		Timestamp: now.UTC(),
	}

	subject := "🚨 UrbanBot Accident Alert"
	body := fmt.Sprintf(`Accident detected!
Time: %s
City: %s
Coordinates: %v, %v
Severity: %s
Confidence: %.3f

Please take immediate action.`,
		now.Format(time.DateTime), in.Location.City,
		in.Location.Latitude, in.Location.Longitude, severity, in.Confidence)
	r.send(ctx, &out, subject, body)

	if err := r.store.InsertAccident(ctx, store.AccidentLog{
		AccidentID:         out.ID,
		Timestamp:          now,
		ImageURL:           in.ImageURL,
		Location:           in.Location,
		Severity:           severity,
		EmergencyAlertSent: out.EmailSent,
	}); err != nil {
		return Outcome{}, err
	}
	out.Stored = true

	if err := r.insertAlert(ctx, &out, "accident", in.Location.City, severity, subject, now); err != nil {
		return out, err
	}
	return out, nil
}

func (r *Recorder) RecordAQI(ctx context.Context, in AQIObservation) (Outcome, error) {
	if strings.TrimSpace(in.City) == "" {
		return Outcome{}, errx.Invalid("city is required")
	}
	if in.AQI < 0 {
		return Outcome{}, errx.Invalid("aqi must not be negative")
	}
	now := r.now()
	cat := AQICategory(in.AQI)
	out := Outcome{
		Kind:      "aqi",
		Level:     cat,
		Detail:    HealthMessage(cat),
		Timestamp: now.UTC(),
	}
	if err := r.store.InsertAQI(ctx, store.AQILog{
		Timestamp:         now,
		City:              in.City,
		MonitoringStation: in.MonitoringStation,
		Latitude:          in.Latitude,
		Longitude:         in.Longitude,
		Pollutants:        in.Pollutants,
		AQI:               in.AQI,
		Category:          cat,
	}); err != nil {
		return Outcome{}, err
	}
	out.Stored = true
	return out, nil
}

func (r *Recorder) SubmitComplaint(ctx context.Context, in ComplaintSubmission) (Outcome, error) {
	if err := validateLocation(in.Location); err != nil {
		return Outcome{}, err
	}
	if strings.TrimSpace(in.Text) == "" {
		return Outcome{}, errx.Invalid("complaint_text is required")
	}
	dept, ok := Department(in.Category)
	if !ok {
		return Outcome{}, errx.Invalid("unknown complaint category %q", in.Category)
	}
	now := r.now()
	priority := Priority(in.Polarity)
	out := Outcome{
		Kind:      "complaint",
		Level:     priority,
		Detail:    dept,
		Timestamp: now.UTC(),
	}
	if err := r.store.InsertComplaint(ctx, store.Complaint{
		Timestamp:  now,
		Location:   in.Location,
		Category:   strings.ToLower(strings.TrimSpace(in.Category)),
		Text:       strings.TrimSpace(in.Text),
		Department: dept,
		Priority:   priority,
	}); err != nil {
		return Outcome{}, err
	}
	out.Stored = true
	return out, nil
}

// RecordRoadDamage stores the frame only when it shows a pothole, manhole
// or crack.
func (r *Recorder) RecordRoadDamage(ctx context.Context, in RoadDamageObservation) (Outcome, error) {
	if err := validateLocation(in.Location); err != nil {
		return Outcome{}, err
	}
	now := r.now()
	found := DamageFound(in.Detections)
	out := Outcome{Kind: "road_damage", Level: "none", Timestamp: now.UTC()}
	if len(found) == 0 {
		return out, nil
	}

	out.ID = r.newID()
	out.Level = "damage"
	out.Detail = strings.Join(found, ", ")
	if err := r.store.InsertRoadDamage(ctx, store.RoadDamageLog{
		ImageID:      out.ID,
		ImageURL:     in.ImageURL,
		Timestamp:    now,
		Location:     in.Location,
		CameraSource: in.CameraSource,
		Weather:      in.Weather,
		RoadType:     in.RoadType,
		Resolution:   in.Resolution,
		DamageTypes:  out.Detail,
	}); err != nil {
		return Outcome{}, err
	}
	out.Stored = true
	return out, nil
}

func (r *Recorder) RecentComplaints(ctx context.Context, limit int) ([]store.Complaint, error) {
	return r.store.RecentComplaints(ctx, limit)
}

// alert emails and then records a system alert. A mail failure only sets
// Warning on the outcome.
func (r *Recorder) alert(ctx context.Context, out *Outcome, alertType, location, severity, subject, body string) error {
	r.send(ctx, out, subject, body)
	return r.insertAlert(ctx, out, alertType, location, severity, subject, r.now())
}

func (r *Recorder) send(ctx context.Context, out *Outcome, subject, body string) {
	if err := r.mailer.Send(ctx, subject, body); err != nil {
		logx.Warn().Err(err).Str("kind", out.Kind).Msg("alert email failed")
		out.Warning = fmt.Sprintf("Email failed: %v", err)
		return
	}
	out.EmailSent = true
}

func (r *Recorder) insertAlert(ctx context.Context, out *Outcome, alertType, location, severity, message string, at time.Time) error {
	if err := r.store.InsertAlert(ctx, store.SystemAlert{
		AlertID:   r.newID(),
		AlertType: alertType,
		Timestamp: at,
		Location:  location,
		Severity:  severity,
		Message:   message,
		EmailSent: out.EmailSent,
	}); err != nil {
		return err
	}
	out.AlertRaised = true
	logx.Info().
		Str("type", alertType).
		Str("location", location).
		Str("severity", severity).
		Bool("email_sent", out.EmailSent).
		Msg("system alert raised")
	return nil
}

func validateLocation(l store.Location) error {
	if strings.TrimSpace(l.City) == "" || strings.TrimSpace(l.Area) == "" {
		return errx.Invalid("location city and area are required")
	}
	return nil
}

func joinLocation(l store.Location) string {
	return l.City + "-" + l.Area
}
