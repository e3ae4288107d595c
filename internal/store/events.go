package store

import (
	"context"
	"time"

	errx "github.com/urbanbot/server/internal/core/error"
	logx "github.com/urbanbot/server/pkg/logger"
)

// Location is shared by every event row.
type Location struct {
	City      string  `json:"city"`
	Area      string  `json:"area"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type TrafficLog struct {
	Timestamp       time.Time
	Location        Location
	VehicleCount    int
	CongestionLevel string
	IsPeakHour      bool
	ImageURL        string
}

type CrowdLog struct {
	Timestamp      time.Time
	Location       Location
	PredictedCount int
	DensityLevel   string
	ImageURL       string
}

type AccidentLog struct {
	AccidentID         string
	Timestamp          time.Time
	ImageURL           string
	Location           Location
	Severity           string
	EmergencyAlertSent bool
}

// Pollutants are the AQI model inputs, in µg/m³ (CO in mg/m³).
type Pollutants struct {
	PM25 float64 `json:"pm25"`
	PM10 float64 `json:"pm10"`
	CO   float64 `json:"co"`
	NO2  float64 `json:"no2"`
	SO2  float64 `json:"so2"`
	O3   float64 `json:"o3"`
}

type AQILog struct {
	Timestamp         time.Time
	City              string
	MonitoringStation string
	Latitude          float64
	Longitude         float64
	Pollutants        Pollutants
	AQI               float64
	Category          string
}

type Complaint struct {
	ID         int64     `json:"complaint_id"`
	Timestamp  time.Time `json:"timestamp"`
	Location   Location  `json:"location"`
	Category   string    `json:"category"`
	Text       string    `json:"complaint_text"`
	Department string    `json:"department"`
	Priority   string    `json:"priority"`
}

type RoadDamageLog struct {
	ImageID      string
	ImageURL     string
	Timestamp    time.Time
	Location     Location
	CameraSource string
	Weather      string
	RoadType     string
	Resolution   string
	DamageTypes  string
}

type SystemAlert struct {
	AlertID   string
	AlertType string
	Timestamp time.Time
	Location  string
	Severity  string
	Message   string
	EmailSent bool
}

// timeLayout is understood by both MySQL DATETIME and SQLite date functions.
const timeLayout = "2006-01-02 15:04:05"

func ts(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func (s *Store) exec(ctx context.Context, table, q string, args ...any) error {
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		logx.Error().Err(err).Str("table", table).Msg("insert failed")
		return errx.WrapStore(err)
	}
	return nil
}

func (s *Store) InsertTraffic(ctx context.Context, r TrafficLog) error {
	return s.exec(ctx, "traffic_logs", `INSERT INTO traffic_logs
		(timestamp, city, area, latitude, longitude, vehicle_count, congestion_level, is_peak_hour, image_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ts(r.Timestamp), r.Location.City, r.Location.Area, r.Location.Latitude, r.Location.Longitude,
		r.VehicleCount, r.CongestionLevel, r.IsPeakHour, r.ImageURL)
}

func (s *Store) InsertCrowd(ctx context.Context, r CrowdLog) error {
	return s.exec(ctx, "crowd_density_logs", `INSERT INTO crowd_density_logs
		(timestamp, city, area, latitude, longitude, predicted_count, density_level, image_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ts(r.Timestamp), r.Location.City, r.Location.Area, r.Location.Latitude, r.Location.Longitude,
		r.PredictedCount, r.DensityLevel, r.ImageURL)
}

func (s *Store) InsertAccident(ctx context.Context, r AccidentLog) error {
	return s.exec(ctx, "accident_logs", `INSERT INTO accident_logs
		(accident_id, timestamp, image_url, city, area, latitude, longitude, severity, emergency_alert_sent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.AccidentID, ts(r.Timestamp), r.ImageURL, r.Location.City, r.Location.Area,
		r.Location.Latitude, r.Location.Longitude, r.Severity, r.EmergencyAlertSent)
}

func (s *Store) InsertAQI(ctx context.Context, r AQILog) error {
	p := r.Pollutants
	return s.exec(ctx, "aqi_logs", `INSERT INTO aqi_logs
		(timestamp, city, monitoring_station, latitude, longitude, pm25, pm10, co, no2, so2, o3, aqi, aqi_category)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ts(r.Timestamp), r.City, r.MonitoringStation, r.Latitude, r.Longitude,
		p.PM25, p.PM10, p.CO, p.NO2, p.SO2, p.O3, r.AQI, r.Category)
}

func (s *Store) InsertComplaint(ctx context.Context, c Complaint) error {
	return s.exec(ctx, "citizen_complaints", `INSERT INTO citizen_complaints
		(timestamp, city, area, category, complaint_text, latitude, longitude, department, priority)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ts(c.Timestamp), c.Location.City, c.Location.Area, c.Category, c.Text,
		c.Location.Latitude, c.Location.Longitude, c.Department, c.Priority)
}

func (s *Store) InsertRoadDamage(ctx context.Context, r RoadDamageLog) error {
	return s.exec(ctx, "road_damage_logs", `INSERT INTO road_damage_logs
		(image_id, image_url, timestamp, city, area, latitude, longitude,
		 camera_source, weather, road_type, resolution, damage_types, annotated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ImageID, r.ImageURL, ts(r.Timestamp), r.Location.City, r.Location.Area,
		r.Location.Latitude, r.Location.Longitude, r.CameraSource, r.Weather, r.RoadType,
		r.Resolution, r.DamageTypes, true)
}

func (s *Store) InsertAlert(ctx context.Context, a SystemAlert) error {
	return s.exec(ctx, "system_alerts", `INSERT INTO system_alerts
		(alert_id, alert_type, timestamp, location, severity, message, email_sent, resolved)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.AlertID, a.AlertType, ts(a.Timestamp), a.Location, a.Severity, a.Message, a.EmailSent, false)
}

// RecentComplaints returns the latest complaints, newest first.
func (s *Store) RecentComplaints(ctx context.Context, limit int) ([]Complaint, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `SELECT complaint_id, city, area, category, priority, complaint_text,
		department, timestamp FROM citizen_complaints ORDER BY timestamp DESC, complaint_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errx.WrapStore(err)
	}
	defer func() { _ = rows.Close() }()

	var out []Complaint
	for rows.Next() {
		var (
			c  Complaint
			at any
		)
		if err := rows.Scan(&c.ID, &c.Location.City, &c.Location.Area, &c.Category, &c.Priority,
			&c.Text, &c.Department, &at); err != nil {
			return nil, errx.WrapStore(err)
		}
		c.Timestamp = parseTime(at)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errx.WrapStore(err)
	}
	return out, nil
}

// CountRows is used by health checks and tests.
func (s *Store) CountRows(ctx context.Context, table string) (int64, error) {
	desc, err := s.Introspect(ctx)
	if err != nil {
		return 0, err
	}
	if _, ok := desc.Columns(table); !ok {
		return 0, errx.ErrNotFound
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, errx.WrapStore(err)
	}
	return n, nil
}

func parseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if p, err := time.Parse(timeLayout, t); err == nil {
			return p
		}
	case []byte:
		if p, err := time.Parse(timeLayout, string(t)); err == nil {
			return p
		}
	}
	return time.Time{}
}
