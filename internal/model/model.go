package model

import "time"

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Age          int
	Weight       float64
	Height       float64
	BloodType    string
	Allergies    string
	Diseases     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// VitalResult is one day of measurements. Day is a civil date at UTC midnight.
type VitalResult struct {
	ID           string
	UserID       string
	Day          time.Time
	Systolic     int
	Diastolic    int
	HeartRate    int
	Temperature  float64
	Glucose      int
	BloodStatus  string
	WaterBalance int
	CreatedAt    time.Time
}

type Medication struct {
	ID        string
	UserID    string
	Name      string
	Hour      int
	Dose      float64
	Type      string
	StartDay  *time.Time
	EndDay    *time.Time
	Duration  string
	Comments  string
	CreatedAt time.Time
}

const (
	ReportPending    = "pending"
	ReportProcessing = "processing"
	ReportCompleted  = "completed"
	ReportFailed     = "failed"
)

type Report struct {
	ID          string
	UserID      string
	Kind        string
	RangeDays   int
	Status      string
	ObjectKey   string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

type DeviceToken struct {
	Token     string
	UserID    string
	Platform  string
	CreatedAt time.Time
}
