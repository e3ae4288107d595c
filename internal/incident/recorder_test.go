package incident

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/urbanbot/server/internal/core/error"
	"github.com/urbanbot/server/internal/sqlguard"
	"github.com/urbanbot/server/internal/store"
	"github.com/urbanbot/server/internal/testutil"
)

var chennai = store.Location{City: "Chennai", Area: "T Nagar", Latitude: 13.04, Longitude: 80.23}

func newRecorder(t *testing.T, hour int) (*Recorder, *store.Store, *testutil.FakeMailer) {
	t.Helper()
	s := testutil.NewStore(t)
	m := &testutil.FakeMailer{}
	clock := func() time.Time { return time.Date(2025, 6, 2, hour, 15, 0, 0, time.UTC) }
	return NewRecorder(s, m, WithClock(clock)), s, m
}

func count(t *testing.T, s *store.Store, query string) int64 {
	t.Helper()
	n, err := s.QueryScalar(context.Background(), sqlguard.MustFilter(query))
	require.NoError(t, err)
	return n
}

func TestRecordTrafficBelowThresholdDoesNotAlert(t *testing.T) {
	r, s, m := newRecorder(t, 9)

	out, err := r.RecordTraffic(context.Background(), TrafficObservation{Location: chennai, VehicleCount: 24})
	require.NoError(t, err)
	assert.Equal(t, LevelMedium, out.Level)
	assert.True(t, out.PeakHour)
	assert.True(t, out.Stored)
	assert.False(t, out.AlertRaised)
	assert.Zero(t, m.Count())
	assert.EqualValues(t, 1, count(t, s, "SELECT COUNT(*) FROM traffic_logs"))
	assert.EqualValues(t, 0, count(t, s, "SELECT COUNT(*) FROM system_alerts"))
}

func TestRecordTrafficHighAlerts(t *testing.T) {
	r, s, m := newRecorder(t, 14)

	out, err := r.RecordTraffic(context.Background(), TrafficObservation{Location: chennai, VehicleCount: 25})
	require.NoError(t, err)
	assert.Equal(t, LevelHigh, out.Level)
	assert.False(t, out.PeakHour)
	assert.True(t, out.AlertRaised)
	assert.True(t, out.EmailSent)
	require.Equal(t, 1, m.Count())
	assert.Equal(t, "🚨 UrbanBot Traffic Congestion Alert", m.Sent[0].Subject)
	assert.Contains(t, m.Sent[0].Body, "Vehicle Count: 25")

	res, err := s.Query(context.Background(), sqlguard.MustFilter(
		"SELECT alert_type, location, severity, email_sent FROM system_alerts"))
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "traffic", res.Rows[0][0])
	assert.Equal(t, "Chennai-T Nagar", res.Rows[0][1])
	assert.Equal(t, "high", res.Rows[0][2])
	assert.EqualValues(t, 1, res.Rows[0][3])
}

func TestEmailFailureIsAWarning(t *testing.T) {
	r, s, m := newRecorder(t, 14)
	m.Err = errors.New("smtp down")

	out, err := r.RecordTraffic(context.Background(), TrafficObservation{Location: chennai, VehicleCount: 40})
	require.NoError(t, err)
	assert.True(t, out.AlertRaised)
	assert.False(t, out.EmailSent)
	assert.Equal(t, "Email failed: smtp down", out.Warning)
	assert.EqualValues(t, 0, count(t, s, "SELECT COUNT(*) FROM system_alerts WHERE email_sent = 1"))
}

func TestRecordCrowd(t *testing.T) {
	r, s, m := newRecorder(t, 10)
	ctx := context.Background()

	out, err := r.RecordCrowd(ctx, CrowdObservation{Location: chennai, PredictedCount: 299.7})
	require.NoError(t, err)
	assert.Equal(t, DensityHigh, out.Level)
	assert.Equal(t, LevelMedium, out.Severity)
	assert.False(t, out.AlertRaised)

	out, err = r.RecordCrowd(ctx, CrowdObservation{Location: chennai, PredictedCount: 512})
	require.NoError(t, err)
	assert.Equal(t, DensityExtreme, out.Level)
	assert.True(t, out.AlertRaised)
	assert.Equal(t, 1, m.Count())
	assert.EqualValues(t, 2, count(t, s, "SELECT COUNT(*) FROM crowd_density_logs"))
	assert.EqualValues(t, 1, count(t, s, "SELECT COUNT(*) FROM system_alerts WHERE alert_type = 'crowd' AND severity = 'high'"))
}

func TestRecordAccidentAlwaysAlerts(t *testing.T) {
	r, s, m := newRecorder(t, 3)

	out, err := r.RecordAccident(context.Background(), AccidentObservation{Location: chennai, Confidence: 0.42})
	require.NoError(t, err)
	assert.Equal(t, LevelLow, out.Severity)
	assert.NotEmpty(t, out.ID)
	assert.True(t, out.EmailSent)
	assert.True(t, out.AlertRaised)
	assert.Equal(t, 1, m.Count())
	assert.Contains(t, m.Sent[0].Body, "Confidence: 0.420")
	assert.EqualValues(t, 1, count(t, s, "SELECT COUNT(*) FROM accident_logs WHERE emergency_alert_sent = 1"))
	assert.EqualValues(t, 1, count(t, s, "SELECT COUNT(*) FROM system_alerts WHERE location = 'Chennai'"))
}

func TestRecordAccidentRejectsBadConfidence(t *testing.T) {
	r, _, _ := newRecorder(t, 3)
	_, err := r.RecordAccident(context.Background(), AccidentObservation{Location: chennai, Confidence: 1.5})
	assert.True(t, errors.Is(err, errx.ErrInvalidInput))
}

func TestRecordAQI(t *testing.T) {
	r, s, m := newRecorder(t, 12)
	out, err := r.RecordAQI(context.Background(), AQIObservation{City: "Delhi", MonitoringStation: "ITO", AQI: 312.4})
	require.NoError(t, err)
	assert.Equal(t, AQIPoor, out.Level)
	assert.Equal(t, HealthMessage(AQIPoor), out.Detail)
	assert.Zero(t, m.Count())
	assert.EqualValues(t, 1, count(t, s, "SELECT COUNT(*) FROM aqi_logs WHERE aqi_category = 'Poor'"))
}

func TestSubmitComplaint(t *testing.T) {
	r, _, _ := newRecorder(t, 12)
	ctx := context.Background()

	out, err := r.SubmitComplaint(ctx, ComplaintSubmission{
		Location: chennai, Category: "Lighting", Text: "Street lights are broken for weeks", Polarity: -0.7,
	})
	require.NoError(t, err)
	assert.Equal(t, LevelHigh, out.Level)
	assert.Equal(t, "Electricity Board", out.Detail)

	_, err = r.SubmitComplaint(ctx, ComplaintSubmission{Location: chennai, Category: "noise", Text: "loud"})
	assert.True(t, errors.Is(err, errx.ErrInvalidInput))

	got, err := r.RecentComplaints(ctx, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "lighting", got[0].Category)
	assert.Equal(t, "high", got[0].Priority)
}

func TestRecordRoadDamage(t *testing.T) {
	r, s, _ := newRecorder(t, 12)
	ctx := context.Background()

	out, err := r.RecordRoadDamage(ctx, RoadDamageObservation{Location: chennai, Detections: []string{"car"}})
	require.NoError(t, err)
	assert.False(t, out.Stored)

	out, err = r.RecordRoadDamage(ctx, RoadDamageObservation{
		Location: chennai, Detections: []string{"manhole", "pothole", "pothole"}, Resolution: "640x480",
	})
	require.NoError(t, err)
	assert.True(t, out.Stored)
	assert.Equal(t, "manhole, pothole", out.Detail)
	assert.EqualValues(t, 1, count(t, s, "SELECT COUNT(*) FROM road_damage_logs"))
}

func TestValidationRequiresLocation(t *testing.T) {
	r, _, _ := newRecorder(t, 12)
	_, err := r.RecordTraffic(context.Background(), TrafficObservation{VehicleCount: 3})
	require.Error(t, err)
	assert.Equal(t, 400, errx.StatusOf(err))
}
