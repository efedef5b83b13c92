// Package report builds downloadable xlsx health reports from a user's
// vitals and medications and keeps them in blob storage.
package report

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"homecare-dashboard/internal/medication"
	"homecare-dashboard/internal/model"
	"homecare-dashboard/internal/storage"
	"homecare-dashboard/internal/vitals"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Kind struct {
	ID    string
	Title string
}

var Kinds = []Kind{
	{"blood_analysis", "Blood analysis"},
	{"cardiovascular", "Cardiovascular report"},
	{"medication_review", "Medication review"},
	{"health_summary", "Health summary"},
	{"diagnostic", "Diagnostic report"},
}

var Ranges = []int{7, 30, 90}

var (
	ErrInvalid  = errors.New("unknown report kind or range")
	ErrNotReady = errors.New("report is not ready")
)

func KindTitle(id string) (string, bool) {
	for _, k := range Kinds {
		if k.ID == id {
			return k.Title, true
		}
	}
	return "", false
}

func validRange(days int) bool {
	for _, r := range Ranges {
		if r == days {
			return true
		}
	}
	return false
}

// Store is the slice of the database the generator needs.
type Store interface {
	UserByID(ctx context.Context, id string) (*model.User, error)
	ListVitals(ctx context.Context, userID string, from, to time.Time, ascending bool) ([]model.VitalResult, error)
	ListMedications(ctx context.Context, userID string) ([]model.Medication, error)
	CreateReport(ctx context.Context, r *model.Report) error
	SetReportStatus(ctx context.Context, id, status, objectKey string) error
	GetReport(ctx context.Context, userID, id string) (*model.Report, error)
	ReportKeys(ctx context.Context, userID string) ([]string, error)
}

type Generator struct {
	store Store
	blobs storage.Blobs
	log   *logrus.Logger
	now   func() time.Time
}

func NewGenerator(st Store, blobs storage.Blobs, log *logrus.Logger) *Generator {
	return &Generator{store: st, blobs: blobs, log: log, now: time.Now}
}

// Generate records a pending report row, moves it to processing, renders
// the workbook and uploads it. A render or upload failure leaves the row
// marked failed and is returned.
func (g *Generator) Generate(ctx context.Context, userID, kind string, days int) (*model.Report, error) {
	if _, ok := KindTitle(kind); !ok || !validRange(days) {
		return nil, ErrInvalid
	}

	r := &model.Report{
		ID:        uuid.New().String(),
		UserID:    userID,
		Kind:      kind,
		RangeDays: days,
		Status:    model.ReportPending,
	}
	if err := g.store.CreateReport(ctx, r); err != nil {
		return nil, err
	}
	logger := g.log.WithFields(logrus.Fields{"report_id": r.ID, "user_id": userID, "kind": kind})
	if err := g.store.SetReportStatus(ctx, r.ID, model.ReportProcessing, ""); err != nil {
		return nil, err
	}
	r.Status = model.ReportProcessing

	key, err := g.render(ctx, r)
	if err != nil {
		logger.WithError(err).Error("report generation failed")
		if serr := g.store.SetReportStatus(ctx, r.ID, model.ReportFailed, ""); serr != nil {
			logger.WithError(serr).Error("mark report failed")
		}
		r.Status = model.ReportFailed
		return r, err
	}
	if err := g.store.SetReportStatus(ctx, r.ID, model.ReportCompleted, key); err != nil {
		return nil, err
	}
	r.Status, r.ObjectKey = model.ReportCompleted, key
	logger.WithField("key", key).Info("report generated")
	return r, nil
}

func (g *Generator) render(ctx context.Context, r *model.Report) (string, error) {
	u, err := g.store.UserByID(ctx, r.UserID)
	if err != nil {
		return "", fmt.Errorf("load user: %w", err)
	}
	now := g.now()
	from, to := vitals.Window(now, r.RangeDays)
	rows, err := g.store.ListVitals(ctx, r.UserID, from, to, true)
	if err != nil {
		return "", fmt.Errorf("load vitals: %w", err)
	}
	meds, err := g.store.ListMedications(ctx, r.UserID)
	if err != nil {
		return "", fmt.Errorf("load medications: %w", err)
	}

	f := Workbook(r, u, rows, meds, now)
	buf, err := f.WriteToBuffer()
	if err != nil {
		return "", err
	}
	key := storage.Key("reports", r.UserID, r.Kind+"-"+r.ID+".xlsx")
	if err := g.blobs.Put(ctx, key, buf.Bytes(), ContentType); err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	return key, nil
}

// Open returns a completed report's file name and contents. Reports owned
// by someone else are reported as not found.
func (g *Generator) Open(ctx context.Context, userID, id string) (string, []byte, error) {
	r, err := g.store.GetReport(ctx, userID, id)
	if err != nil {
		return "", nil, err
	}
	if r.Status != model.ReportCompleted || r.ObjectKey == "" {
		return "", nil, ErrNotReady
	}
	body, err := g.blobs.Get(ctx, r.ObjectKey)
	if err != nil {
		return "", nil, err
	}
	return FileName(r), body, nil
}

// Purge deletes every stored workbook of userID. It runs before the account
// is removed; the rows themselves go with the user.
func (g *Generator) Purge(ctx context.Context, userID string) error {
	keys, err := g.store.ReportKeys(ctx, userID)
	if err != nil {
		return err
	}
	var errs []error
	for _, key := range keys {
		if err := g.blobs.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}
	if len(keys) > 0 {
		g.log.WithFields(logrus.Fields{"user_id": userID, "objects": len(keys)}).Info("report files purged")
	}
	return errors.Join(errs...)
}

func FileName(r *model.Report) string {
	return fmt.Sprintf("%s-%s.xlsx", r.Kind, r.CreatedAt.Format("20060102"))
}

const (
	sheetSummary     = "Summary"
	sheetVitals      = "Vitals"
	sheetMedications = "Medications"
)

func setRow(f *excelize.File, sheet string, row int, values ...interface{}) {
	for i, v := range values {
		f.SetCellValue(sheet, fmt.Sprintf("%c%d", 'A'+i, row), v)
	}
}

// Workbook lays out the three report sheets.
func Workbook(r *model.Report, u *model.User, rows []model.VitalResult, meds []model.Medication, now time.Time) *excelize.File {
	f := excelize.NewFile()
	f.NewSheet(sheetSummary)
	f.NewSheet(sheetVitals)
	f.NewSheet(sheetMedications)
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(f.GetSheetIndex(sheetSummary))

	title, _ := KindTitle(r.Kind)
	setRow(f, sheetSummary, 1, title)
	setRow(f, sheetSummary, 2, "Patient", u.Name)
	setRow(f, sheetSummary, 3, "Blood type", u.BloodType)
	setRow(f, sheetSummary, 4, "Period", fmt.Sprintf("last %d days", r.RangeDays))
	setRow(f, sheetSummary, 5, "Generated", now.Format("2006-01-02 15:04"))
	setRow(f, sheetSummary, 6, "Readings", len(rows))

	setRow(f, sheetSummary, 8, "Metric", "Min", "Avg", "Max")
	t := vitals.Summarize(rows)
	for i, m := range []struct {
		name string
		s    vitals.Stat
	}{
		{"Heart rate (bpm)", t.HeartRate},
		{"Systolic (mmHg)", t.Systolic},
		{"Diastolic (mmHg)", t.Diastolic},
		{"Glucose (mg/dl)", t.Glucose},
		{"Temperature (C)", t.Temperature},
		{"Water (glasses)", t.Water},
	} {
		if m.s.N == 0 {
			setRow(f, sheetSummary, 9+i, m.name, "-", "-", "-")
			continue
		}
		setRow(f, sheetSummary, 9+i, m.name, m.s.Min, round1(m.s.Avg), m.s.Max)
	}
	if len(rows) > 0 {
		last := rows[len(rows)-1]
		setRow(f, sheetSummary, 16, "Latest blood pressure", last.BloodStatus,
			string(vitals.Classify(last.Systolic, last.Diastolic)))
	}

	setRow(f, sheetVitals, 1, "Date", "Blood pressure", "Category", "Heart rate", "Temperature", "Glucose", "Water")
	for i, v := range rows {
		setRow(f, sheetVitals, i+2, v.Day.Format(vitals.DateLayout), v.BloodStatus,
			string(vitals.Classify(v.Systolic, v.Diastolic)), v.HeartRate, v.Temperature, v.Glucose, v.WaterBalance)
	}

	setRow(f, sheetMedications, 1, "Medication", "Type", "Time", "Dose", "Start", "End", "Duration", "Active", "Comments")
	today := vitals.Day(now)
	for i, m := range meds {
		active := "no"
		if medication.Active(m, today) {
			active = "yes"
		}
		setRow(f, sheetMedications, i+2, m.Name, m.Type, medication.FormatHour(m.Hour), m.Dose,
			dayOrBlank(m.StartDay), dayOrBlank(m.EndDay), m.Duration, active, m.Comments)
	}
	return f
}

func dayOrBlank(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(vitals.DateLayout)
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
