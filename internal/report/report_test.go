package report_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homecare-dashboard/internal/model"
	"homecare-dashboard/internal/report"
	"homecare-dashboard/internal/storage"
	"homecare-dashboard/internal/vitals"
)

type fakeStore struct {
	user    *model.User
	vitals  []model.VitalResult
	meds    []model.Medication
	reports map[string]*model.Report
	history []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		user:    &model.User{ID: "u1", Name: "Ana", BloodType: "A+"},
		reports: map[string]*model.Report{},
	}
}

func (f *fakeStore) UserByID(_ context.Context, id string) (*model.User, error) {
	if id != f.user.ID {
		return nil, errors.New("not found")
	}
	return f.user, nil
}

func (f *fakeStore) ListVitals(_ context.Context, _ string, from, to time.Time, _ bool) ([]model.VitalResult, error) {
	var out []model.VitalResult
	for _, v := range f.vitals {
		if !v.Day.Before(from) && !v.Day.After(to) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeStore) ListMedications(context.Context, string) ([]model.Medication, error) {
	return f.meds, nil
}

func (f *fakeStore) CreateReport(_ context.Context, r *model.Report) error {
	r.CreatedAt = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	cp := *r
	f.reports[r.ID] = &cp
	f.history = append(f.history, r.Status)
	return nil
}

func (f *fakeStore) SetReportStatus(_ context.Context, id, status, key string) error {
	r, ok := f.reports[id]
	if !ok {
		return errors.New("not found")
	}
	r.Status = status
	if key != "" {
		r.ObjectKey = key
	}
	f.history = append(f.history, status)
	return nil
}

func (f *fakeStore) GetReport(_ context.Context, userID, id string) (*model.Report, error) {
	r, ok := f.reports[id]
	if !ok || r.UserID != userID {
		return nil, errors.New("not found")
	}
	cp := *r
	return &cp, nil
}

func (f *fakeStore) ReportKeys(_ context.Context, userID string) ([]string, error) {
	var out []string
	for _, r := range f.reports {
		if r.UserID == userID && r.ObjectKey != "" {
			out = append(out, r.ObjectKey)
		}
	}
	return out, nil
}

type failingBlobs struct{ storage.Blobs }

func (failingBlobs) Put(context.Context, string, []byte, string) error {
	return errors.New("bucket unavailable")
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func seeded(now time.Time) *fakeStore {
	st := newFakeStore()
	today := vitals.Day(now)
	for i, sys := range []int{118, 126, 142} {
		r := vitals.Reading{Systolic: sys, Diastolic: 80, HeartRate: 70 + i, Temperature: 36.6, Glucose: 100, WaterBalance: 4}
		st.vitals = append(st.vitals, r.Result("u1", today.AddDate(0, 0, i-2)))
	}
	// outside a 7-day window
	old := vitals.Reading{Systolic: 190, Diastolic: 100, HeartRate: 90, Temperature: 37, Glucose: 200, WaterBalance: 2}
	st.vitals = append([]model.VitalResult{old.Result("u1", today.AddDate(0, 0, -20))}, st.vitals...)
	st.meds = []model.Medication{{ID: "m1", UserID: "u1", Name: "Aspirin", Hour: 8, Dose: 1, Type: "Tablet"}}
	return st
}

func TestGenerateAndOpen(t *testing.T) {
	st := seeded(time.Now())
	blobs := storage.NewMemory()
	g := report.NewGenerator(st, blobs, quietLogger())
	ctx := context.Background()

	r, err := g.Generate(ctx, "u1", "health_summary", 7)
	require.NoError(t, err)
	assert.Equal(t, model.ReportCompleted, r.Status)
	assert.Equal(t, model.ReportCompleted, st.reports[r.ID].Status)
	assert.NotEmpty(t, st.reports[r.ID].ObjectKey)
	assert.Equal(t, []string{model.ReportPending, model.ReportProcessing, model.ReportCompleted}, st.history)

	name, body, err := g.Open(ctx, "u1", r.ID)
	require.NoError(t, err)
	assert.Equal(t, "health_summary-20240601.xlsx", name)

	f, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, "Health summary", f.GetCellValue("Summary", "A1"))
	assert.Equal(t, "Ana", f.GetCellValue("Summary", "B2"))
	assert.Equal(t, "3", f.GetCellValue("Summary", "B6"))
	assert.Equal(t, "Date", f.GetCellValue("Vitals", "A1"))
	assert.Equal(t, "142/80", f.GetCellValue("Vitals", "B4"))
	assert.Equal(t, "", f.GetCellValue("Vitals", "B5"), "reading older than the range is excluded")
	assert.Equal(t, "Aspirin", f.GetCellValue("Medications", "A2"))
	assert.Equal(t, "08:00", f.GetCellValue("Medications", "C2"))
}

func TestGenerateRejectsUnknown(t *testing.T) {
	g := report.NewGenerator(newFakeStore(), storage.NewMemory(), quietLogger())
	for _, tc := range []struct {
		kind string
		days int
	}{
		{"x-ray", 7},
		{"health_summary", 14},
		{"", 30},
	} {
		_, err := g.Generate(context.Background(), "u1", tc.kind, tc.days)
		assert.ErrorIs(t, err, report.ErrInvalid, "%s/%d", tc.kind, tc.days)
	}
}

func TestGenerateUploadFailure(t *testing.T) {
	st := seeded(time.Now())
	g := report.NewGenerator(st, failingBlobs{}, quietLogger())

	r, err := g.Generate(context.Background(), "u1", "cardiovascular", 30)
	require.Error(t, err)
	require.NotNil(t, r)
	assert.Equal(t, model.ReportFailed, st.reports[r.ID].Status)

	_, _, err = g.Open(context.Background(), "u1", r.ID)
	assert.ErrorIs(t, err, report.ErrNotReady)
}

func TestOpenOtherUser(t *testing.T) {
	st := seeded(time.Now())
	g := report.NewGenerator(st, storage.NewMemory(), quietLogger())
	r, err := g.Generate(context.Background(), "u1", "diagnostic", 90)
	require.NoError(t, err)

	_, _, err = g.Open(context.Background(), "someone-else", r.ID)
	assert.Error(t, err)
}

func TestWorkbookWithoutReadings(t *testing.T) {
	r := &model.Report{Kind: "blood_analysis", RangeDays: 30}
	f := report.Workbook(r, &model.User{Name: "Bo"}, nil, nil, time.Now())
	assert.Equal(t, "-", f.GetCellValue("Summary", "B9"))
	assert.Equal(t, "0", f.GetCellValue("Summary", "B6"))
	assert.Equal(t, "", f.GetCellValue("Summary", "A16"))
}

func TestPurgeRemovesStoredWorkbooks(t *testing.T) {
	st := seeded(time.Now())
	blobs := storage.NewMemory()
	g := report.NewGenerator(st, blobs, quietLogger())
	ctx := context.Background()

	first, err := g.Generate(ctx, "u1", "health_summary", 7)
	require.NoError(t, err)
	second, err := g.Generate(ctx, "u1", "diagnostic", 30)
	require.NoError(t, err)
	// already gone from the bucket
	require.NoError(t, blobs.Delete(ctx, st.reports[second.ID].ObjectKey))

	require.NoError(t, g.Purge(ctx, "u1"))
	_, err = blobs.Get(ctx, st.reports[first.ID].ObjectKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NoError(t, g.Purge(ctx, "nobody"))
}
