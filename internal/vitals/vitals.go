// Package vitals holds the rules for daily vital-sign readings: input ranges,
// the derived blood-status string, fallback values, history windows and the
// demo data generator.
package vitals

import (
	"fmt"
	"math"
	"strings"
	"time"

	"homecare-dashboard/internal/model"
)

// Accepted input ranges, inclusive.
const (
	MinHeartRate, MaxHeartRate     = 40, 200
	MinSystolic, MaxSystolic       = 80, 200
	MinDiastolic, MaxDiastolic     = 40, 120
	MinGlucose, MaxGlucose         = 50, 300
	MinTemperature, MaxTemperature = 30.0, 45.0
	MinWater, MaxWater             = 1, 50
)

// Reading is a submitted set of measurements before it is tied to a user/day.
type Reading struct {
	Systolic     int
	Diastolic    int
	HeartRate    int
	Temperature  float64
	Glucose      int
	WaterBalance int
}

// ValidationError lists every field that failed, keyed by form field name.
type ValidationError map[string]string

func (e ValidationError) Error() string {
	parts := make([]string, 0, len(e))
	for _, f := range []string{"systolic", "diastolic", "heart_rate", "temperature", "glucose", "water_balance"} {
		if msg, ok := e[f]; ok {
			parts = append(parts, msg)
		}
	}
	return strings.Join(parts, "; ")
}

func (r Reading) Validate() error {
	errs := ValidationError{}
	if r.Systolic < MinSystolic || r.Systolic > MaxSystolic {
		errs["systolic"] = fmt.Sprintf("systolic must be between %d and %d", MinSystolic, MaxSystolic)
	}
	if r.Diastolic < MinDiastolic || r.Diastolic > MaxDiastolic {
		errs["diastolic"] = fmt.Sprintf("diastolic must be between %d and %d", MinDiastolic, MaxDiastolic)
	} else if _, bad := errs["systolic"]; !bad && r.Diastolic >= r.Systolic {
		errs["diastolic"] = "diastolic must be lower than systolic"
	}
	if r.HeartRate < MinHeartRate || r.HeartRate > MaxHeartRate {
		errs["heart_rate"] = fmt.Sprintf("heart rate must be between %d and %d", MinHeartRate, MaxHeartRate)
	}
	if math.IsNaN(r.Temperature) || r.Temperature < MinTemperature || r.Temperature > MaxTemperature {
		errs["temperature"] = fmt.Sprintf("temperature must be between %.1f and %.1f", MinTemperature, MaxTemperature)
	}
	if r.Glucose < MinGlucose || r.Glucose > MaxGlucose {
		errs["glucose"] = fmt.Sprintf("glucose must be between %d and %d", MinGlucose, MaxGlucose)
	}
	if r.WaterBalance < MinWater || r.WaterBalance > MaxWater {
		errs["water_balance"] = fmt.Sprintf("water balance must be between %d and %d glasses", MinWater, MaxWater)
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Result builds the stored row for userID on day. Temperature is kept to one
// decimal and the blood status is always derived from the pressures.
func (r Reading) Result(userID string, day time.Time) model.VitalResult {
	return model.VitalResult{
		UserID:       userID,
		Day:          Day(day),
		Systolic:     r.Systolic,
		Diastolic:    r.Diastolic,
		HeartRate:    r.HeartRate,
		Temperature:  RoundTemp(r.Temperature),
		Glucose:      r.Glucose,
		BloodStatus:  BloodStatus(r.Systolic, r.Diastolic),
		WaterBalance: r.WaterBalance,
	}
}

func ReadingOf(v model.VitalResult) Reading {
	return Reading{
		Systolic:     v.Systolic,
		Diastolic:    v.Diastolic,
		HeartRate:    v.HeartRate,
		Temperature:  v.Temperature,
		Glucose:      v.Glucose,
		WaterBalance: v.WaterBalance,
	}
}

func BloodStatus(systolic, diastolic int) string {
	return fmt.Sprintf("%d/%d", systolic, diastolic)
}

func RoundTemp(t float64) float64 {
	return math.Round(t*10) / 10
}

// Category is a blood-pressure band for display next to the reading.
type Category string

const (
	Normal   Category = "Normal"
	Elevated Category = "Elevated"
	Stage1   Category = "Hypertension stage 1"
	Stage2   Category = "Hypertension stage 2"
	Crisis   Category = "Hypertensive crisis"
)

// Classify applies the ACC/AHA bands; the higher of the two readings wins.
func Classify(systolic, diastolic int) Category {
	switch {
	case systolic > 180 || diastolic > 120:
		return Crisis
	case systolic >= 140 || diastolic >= 90:
		return Stage2
	case systolic >= 130 || diastolic >= 80:
		return Stage1
	case systolic >= 120:
		return Elevated
	default:
		return Normal
	}
}

// DefaultSummary is shown on the dashboard when a user has no readings.
var DefaultSummary = model.VitalResult{
	Systolic:     120,
	Diastolic:    80,
	HeartRate:    75,
	Temperature:  36.8,
	Glucose:      95,
	BloodStatus:  "120/80",
	WaterBalance: 3,
}

// DefaultHeart is shown on the heart results tab when a user has no readings.
var DefaultHeart = model.VitalResult{
	Systolic:     120,
	Diastolic:    80,
	HeartRate:    120,
	Temperature:  36.8,
	Glucose:      162,
	BloodStatus:  "120/80",
	WaterBalance: 3,
}

// Day truncates t to its calendar date in t's location, returned at UTC
// midnight so it compares equal to DATE columns read back from postgres.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Window returns the inclusive day range [today-days, today].
func Window(now time.Time, days int) (from, to time.Time) {
	to = Day(now)
	return to.AddDate(0, 0, -days), to
}

const DateLayout = "2006-01-02"

func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

// Stat is min/avg/max over a series.
type Stat struct {
	Min, Max float64
	Avg      float64
	N        int
}

func (s *Stat) add(v float64) {
	if s.N == 0 || v < s.Min {
		s.Min = v
	}
	if s.N == 0 || v > s.Max {
		s.Max = v
	}
	s.Avg += (v - s.Avg) / float64(s.N+1)
	s.N++
}

type Trend struct {
	HeartRate   Stat
	Systolic    Stat
	Diastolic   Stat
	Glucose     Stat
	Temperature Stat
	Water       Stat
}

func Summarize(rows []model.VitalResult) Trend {
	var t Trend
	for _, r := range rows {
		t.HeartRate.add(float64(r.HeartRate))
		t.Systolic.add(float64(r.Systolic))
		t.Diastolic.add(float64(r.Diastolic))
		t.Glucose.add(float64(r.Glucose))
		t.Temperature.add(r.Temperature)
		t.Water.add(float64(r.WaterBalance))
	}
	return t
}
