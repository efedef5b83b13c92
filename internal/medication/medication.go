package medication

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"homecare-dashboard/internal/model"
)

const (
	MinDose     = 0.1
	MaxDose     = 1000.0
	MaxComments = 200
)

// Input is the add-medication form after parsing.
type Input struct {
	Name     string
	Hour     int
	Dose     float64
	Type     string
	StartDay *time.Time
	EndDay   *time.Time
	Duration string
	Comments string
}

func (in Input) Validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return errors.New("please enter a medication name")
	case strings.TrimSpace(in.Type) == "":
		return errors.New("please enter the medication type")
	case in.Hour < 0 || in.Hour > 23:
		return errors.New("time must be an hour between 0 and 23")
	case !(in.Dose >= MinDose && in.Dose <= MaxDose): // false for NaN too
		return fmt.Errorf("dose must be between %.1f and %.0f", MinDose, MaxDose)
	case in.StartDay != nil && in.EndDay != nil && in.EndDay.Before(*in.StartDay):
		return errors.New("end day must not be before start day")
	case len(in.Comments) > MaxComments:
		return fmt.Errorf("comments are limited to %d characters", MaxComments)
	}
	return nil
}

func (in Input) Medication(userID string) model.Medication {
	return model.Medication{
		UserID:   userID,
		Name:     strings.TrimSpace(in.Name),
		Hour:     in.Hour,
		Dose:     in.Dose,
		Type:     strings.TrimSpace(in.Type),
		StartDay: in.StartDay,
		EndDay:   in.EndDay,
		Duration: strings.TrimSpace(in.Duration),
		Comments: strings.TrimSpace(in.Comments),
	}
}

// Icon picks the card glyph for a medication type.
func Icon(typ string) string {
	t := strings.ToLower(typ)
	switch {
	case strings.Contains(t, "liquid"), strings.Contains(t, "syrup"):
		return "🧪"
	case strings.Contains(t, "injection"):
		return "💉"
	case strings.Contains(t, "inhaler"):
		return "🌬️"
	default:
		return "💊"
	}
}

// Active reports whether day falls inside m's optional date range.
func Active(m model.Medication, day time.Time) bool {
	if m.StartDay != nil && day.Before(*m.StartDay) {
		return false
	}
	if m.EndDay != nil && day.After(*m.EndDay) {
		return false
	}
	return true
}

func FormatHour(h int) string {
	return fmt.Sprintf("%02d:00", h)
}

// NextDue returns when m is next due at or after now, or false if its range
// has ended.
func NextDue(m model.Medication, now time.Time) (time.Time, bool) {
	due := time.Date(now.Year(), now.Month(), now.Day(), m.Hour, 0, 0, 0, now.Location())
	if due.Before(now.Truncate(time.Hour)) {
		due = due.AddDate(0, 0, 1)
	}
	if m.StartDay != nil {
		s := *m.StartDay
		if start := time.Date(s.Year(), s.Month(), s.Day(), m.Hour, 0, 0, 0, now.Location()); due.Before(start) {
			due = start
		}
	}
	if m.EndDay != nil {
		e := *m.EndDay
		if due.After(time.Date(e.Year(), e.Month(), e.Day(), 23, 59, 59, 0, now.Location())) {
			return time.Time{}, false
		}
	}
	return due, true
}
