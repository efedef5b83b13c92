package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"homecare-dashboard/internal/auth"
	"homecare-dashboard/internal/medication"
	"homecare-dashboard/internal/model"
	"homecare-dashboard/internal/vitals"
)

var BloodTypes = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

// profileForm backs both signup and profile edit.
type profileForm struct {
	Name      string
	Email     string
	Password  string
	Confirm   string
	Age       int
	Weight    float64
	Height    float64
	BloodType string
	Allergies string
	Diseases  string
}

func intField(c *gin.Context, key string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(c.PostForm(key)))
	return n, err == nil
}

func floatField(c *gin.Context, key string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(c.PostForm(key)), 64)
	return f, err == nil
}

func parseProfile(c *gin.Context) (profileForm, error) {
	f := profileForm{
		Name:      strings.TrimSpace(c.PostForm("name")),
		Email:     strings.ToLower(strings.TrimSpace(c.PostForm("email"))),
		Password:  c.PostForm("password"),
		Confirm:   c.PostForm("confirm_password"),
		BloodType: c.PostForm("blood_type"),
		Allergies: strings.TrimSpace(c.PostForm("allergies")),
		Diseases:  strings.TrimSpace(c.PostForm("diseases")),
	}
	var ok1, ok2, ok3 bool
	f.Age, ok1 = intField(c, "age")
	f.Weight, ok2 = floatField(c, "weight")
	f.Height, ok3 = floatField(c, "height")
	if !ok1 || !ok2 || !ok3 {
		return f, errors.New("Please fill in all required fields!")
	}
	return f, nil
}

// validate checks the form. The password is only required when
// requirePassword is set; on profile edit an empty password keeps the old one.
func (f profileForm) validate(requirePassword bool) error {
	switch {
	case f.Name == "" || f.Email == "" || (requirePassword && f.Password == ""):
		return errors.New("Please fill in all required fields!")
	case !strings.Contains(f.Email, "@"):
		return errors.New("Please enter a valid email address")
	case f.Password != f.Confirm:
		return errors.New("Passwords don't match!")
	case f.Password != "" && len(f.Password) < auth.MinPasswordLen:
		return fmt.Errorf("Password must be at least %d characters long!", auth.MinPasswordLen)
	case len(f.Password) > 72:
		return errors.New("Password is too long!")
	case f.Age < 1 || f.Age > 120:
		return errors.New("Age must be between 1 and 120")
	case !(f.Weight >= 20 && f.Weight <= 300):
		return errors.New("Weight must be between 20 and 300 kg")
	case !(f.Height >= 50 && f.Height <= 250):
		return errors.New("Height must be between 50 and 250 cm")
	case !validBloodType(f.BloodType):
		return errors.New("Please choose a blood type")
	}
	return nil
}

func validBloodType(s string) bool {
	for _, b := range BloodTypes {
		if b == s {
			return true
		}
	}
	return false
}

func (f profileForm) apply(u *model.User) {
	u.Name = f.Name
	u.Email = f.Email
	u.Age = f.Age
	u.Weight = f.Weight
	u.Height = f.Height
	u.BloodType = f.BloodType
	u.Allergies = f.Allergies
	u.Diseases = f.Diseases
}

func profileOf(u *model.User) profileForm {
	return profileForm{
		Name: u.Name, Email: u.Email, Age: u.Age, Weight: u.Weight, Height: u.Height,
		BloodType: u.BloodType, Allergies: u.Allergies, Diseases: u.Diseases,
	}
}

// readingForm keeps the raw inputs so a rejected form re-renders as typed.
type readingForm struct {
	Systolic, Diastolic, HeartRate, Temperature, Glucose, Water string
	Date                                                       string
}

func readingFormOf(v *model.VitalResult) readingForm {
	return readingForm{
		Systolic:    strconv.Itoa(v.Systolic),
		Diastolic:   strconv.Itoa(v.Diastolic),
		HeartRate:   strconv.Itoa(v.HeartRate),
		Temperature: strconv.FormatFloat(v.Temperature, 'f', 1, 64),
		Glucose:     strconv.Itoa(v.Glucose),
		Water:       strconv.Itoa(v.WaterBalance),
		Date:        v.Day.Format(vitals.DateLayout),
	}
}

func parseReading(c *gin.Context) (readingForm, vitals.Reading, vitals.ValidationError) {
	f := readingForm{
		Systolic:    strings.TrimSpace(c.PostForm("systolic")),
		Diastolic:   strings.TrimSpace(c.PostForm("diastolic")),
		HeartRate:   strings.TrimSpace(c.PostForm("heart_rate")),
		Temperature: strings.TrimSpace(c.PostForm("temperature")),
		Glucose:     strings.TrimSpace(c.PostForm("glucose")),
		Water:       strings.TrimSpace(c.PostForm("water_balance")),
		Date:        strings.TrimSpace(c.PostForm("date")),
	}
	errs := vitals.ValidationError{}
	num := func(field, raw string) int {
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs[field] = "please enter a whole number"
		}
		return n
	}
	r := vitals.Reading{
		Systolic:     num("systolic", f.Systolic),
		Diastolic:    num("diastolic", f.Diastolic),
		HeartRate:    num("heart_rate", f.HeartRate),
		Glucose:      num("glucose", f.Glucose),
		WaterBalance: num("water_balance", f.Water),
	}
	t, err := strconv.ParseFloat(f.Temperature, 64)
	if err != nil {
		errs["temperature"] = "please enter a number"
	}
	r.Temperature = t

	if len(errs) > 0 {
		return f, r, errs
	}
	if err := r.Validate(); err != nil {
		var ve vitals.ValidationError
		if errors.As(err, &ve) {
			return f, r, ve
		}
	}
	return f, r, nil
}

// medicationForm mirrors the add-medication inputs.
type medicationForm struct {
	Name, Hour, Dose, Type, Start, End, Duration, Comments string
}

func parseMedication(c *gin.Context) (medicationForm, medication.Input, error) {
	f := medicationForm{
		Name:     strings.TrimSpace(c.PostForm("name")),
		Hour:     strings.TrimSpace(c.PostForm("hour")),
		Dose:     strings.TrimSpace(c.PostForm("dose")),
		Type:     strings.TrimSpace(c.PostForm("type")),
		Start:    strings.TrimSpace(c.PostForm("start_day")),
		End:      strings.TrimSpace(c.PostForm("end_day")),
		Duration: strings.TrimSpace(c.PostForm("duration")),
		Comments: strings.TrimSpace(c.PostForm("comments")),
	}
	in := medication.Input{Name: f.Name, Type: f.Type, Duration: f.Duration, Comments: f.Comments}

	hour, err := strconv.Atoi(f.Hour)
	if err != nil {
		return f, in, errors.New("time must be an hour between 0 and 23")
	}
	in.Hour = hour
	dose, err := strconv.ParseFloat(f.Dose, 64)
	if err != nil {
		return f, in, errors.New("please enter a numeric dose")
	}
	in.Dose = dose
	if in.StartDay, err = optionalDay(f.Start); err != nil {
		return f, in, err
	}
	if in.EndDay, err = optionalDay(f.End); err != nil {
		return f, in, err
	}
	return f, in, in.Validate()
}

func optionalDay(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := vitals.ParseDay(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
