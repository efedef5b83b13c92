package vitals

import (
	"math/rand"
	"time"

	"homecare-dashboard/internal/model"
)

type span struct{ Lo, Hi int }

func (s span) pick(rng *rand.Rand) int {
	return s.Lo + rng.Intn(s.Hi-s.Lo+1)
}

// Profile describes the placeholder data inserted for a user with no history.
type Profile struct {
	Name      string
	Days      int
	Systolic  span
	Diastolic span
	HeartRate span
	Glucose   span
	Water     span
	TempLo    float64
	TempHi    float64
}

// DashboardProfile fills the last week with resting-range readings.
var DashboardProfile = Profile{
	Name:      "dashboard",
	Days:      7,
	Systolic:  span{110, 140},
	Diastolic: span{70, 90},
	HeartRate: span{60, 100},
	Glucose:   span{80, 120},
	Water:     span{1, 10},
	TempLo:    36.0,
	TempHi:    37.5,
}

// HeartProfile fills four days with the elevated readings the heart monitor
// demo is built around.
var HeartProfile = Profile{
	Name:      "heart",
	Days:      4,
	Systolic:  span{110, 130},
	Diastolic: span{70, 85},
	HeartRate: span{110, 130},
	Glucose:   span{155, 170},
	Water:     span{3, 8},
	TempLo:    36.0,
	TempHi:    37.5,
}

// Generate returns p.Days readings, oldest first, the last one dated today.
func Generate(p Profile, userID string, now time.Time, rng *rand.Rand) []model.VitalResult {
	today := Day(now)
	out := make([]model.VitalResult, 0, p.Days)
	for i := 0; i < p.Days; i++ {
		r := Reading{
			Systolic:     p.Systolic.pick(rng),
			Diastolic:    p.Diastolic.pick(rng),
			HeartRate:    p.HeartRate.pick(rng),
			Glucose:      p.Glucose.pick(rng),
			WaterBalance: p.Water.pick(rng),
			Temperature:  p.TempLo + rng.Float64()*(p.TempHi-p.TempLo),
		}
		out = append(out, r.Result(userID, today.AddDate(0, 0, i-(p.Days-1))))
	}
	return out
}
