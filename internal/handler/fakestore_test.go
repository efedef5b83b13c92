package handler_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"homecare-dashboard/internal/model"
	"homecare-dashboard/internal/store"
)

// memStore is an in-process stand-in for *store.Store with the same
// not-found, duplicate and ownership behaviour.
type memStore struct {
	mu      sync.Mutex
	pingErr error
	users   map[string]*model.User
	vitals  map[string]*model.VitalResult
	meds    map[string]*model.Medication
	reports map[string]*model.Report
	devices map[string]*model.DeviceToken
}

func newMemStore() *memStore {
	return &memStore{
		users:   map[string]*model.User{},
		vitals:  map[string]*model.VitalResult{},
		meds:    map[string]*model.Medication{},
		reports: map[string]*model.Report{},
		devices: map[string]*model.DeviceToken{},
	}
}

func (m *memStore) Ping(context.Context) error { return m.pingErr }

func (m *memStore) CreateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.users {
		if strings.EqualFold(o.Email, u.Email) {
			return store.ErrDuplicate
		}
	}
	u.CreatedAt, u.UpdatedAt = time.Now(), time.Now()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) UserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) UserByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) UpdateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.users[u.ID]
	if !ok {
		return store.ErrNotFound
	}
	for id, o := range m.users {
		if id != u.ID && strings.EqualFold(o.Email, u.Email) {
			return store.ErrDuplicate
		}
	}
	cp := *u
	if cp.PasswordHash == "" {
		cp.PasswordHash = old.PasswordHash
	}
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.users, id)
	for k, v := range m.vitals {
		if v.UserID == id {
			delete(m.vitals, k)
		}
	}
	for k, v := range m.meds {
		if v.UserID == id {
			delete(m.meds, k)
		}
	}
	for k, v := range m.reports {
		if v.UserID == id {
			delete(m.reports, k)
		}
	}
	return nil
}

func (m *memStore) userVitals(userID string) []model.VitalResult {
	var out []model.VitalResult
	for _, v := range m.vitals {
		if v.UserID == userID {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out
}

func (m *memStore) upsert(v *model.VitalResult) *model.VitalResult {
	for _, o := range m.vitals {
		if o.UserID == v.UserID && o.Day.Equal(v.Day) {
			id, created := o.ID, o.CreatedAt
			*o = *v
			o.ID, o.CreatedAt = id, created
			cp := *o
			return &cp
		}
	}
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	cp := *v
	cp.CreatedAt = time.Now()
	m.vitals[cp.ID] = &cp
	out := cp
	return &out
}

func (m *memStore) SeedVitals(_ context.Context, userID string, rows []model.VitalResult) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.userVitals(userID)) > 0 {
		return 0, nil
	}
	for i := range rows {
		rows[i].UserID = userID
		m.upsert(&rows[i])
	}
	return len(rows), nil
}

func (m *memStore) LatestVital(_ context.Context, userID string) (*model.VitalResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.userVitals(userID)
	if len(all) == 0 {
		return nil, store.ErrNotFound
	}
	return &all[len(all)-1], nil
}

func (m *memStore) SaveVital(_ context.Context, v *model.VitalResult) (*model.VitalResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsert(v), nil
}

func (m *memStore) VitalByDate(_ context.Context, userID string, day time.Time) (*model.VitalResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.userVitals(userID) {
		if v.Day.Equal(day) {
			return &v, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) VitalByID(_ context.Context, userID, id string) (*model.VitalResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vitals[id]
	if !ok || v.UserID != userID {
		return nil, store.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *memStore) UpdateVital(_ context.Context, v *model.VitalResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.vitals[v.ID]
	if !ok || o.UserID != v.UserID {
		return store.ErrNotFound
	}
	created := o.CreatedAt
	*o = *v
	o.CreatedAt = created
	return nil
}

func (m *memStore) DeleteVital(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vitals[id]
	if !ok || v.UserID != userID {
		return store.ErrNotFound
	}
	delete(m.vitals, id)
	return nil
}

func (m *memStore) ListVitals(_ context.Context, userID string, from, to time.Time, ascending bool) ([]model.VitalResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.VitalResult
	for _, v := range m.userVitals(userID) {
		if !v.Day.Before(from) && !v.Day.After(to) {
			out = append(out, v)
		}
	}
	if !ascending {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

func (m *memStore) ImportVitals(_ context.Context, userID string, rows []model.VitalResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range rows {
		rows[i].ID, rows[i].UserID = "", userID
		m.upsert(&rows[i])
	}
	return nil
}

func (m *memStore) CreateMedication(_ context.Context, med *model.Medication) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	med.CreatedAt = time.Now()
	cp := *med
	m.meds[med.ID] = &cp
	return nil
}

func (m *memStore) ListMedications(_ context.Context, userID string) ([]model.Medication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Medication
	for _, med := range m.meds {
		if med.UserID == userID {
			out = append(out, *med)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) DeleteMedication(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	med, ok := m.meds[id]
	if !ok || med.UserID != userID {
		return store.ErrNotFound
	}
	delete(m.meds, id)
	return nil
}

func (m *memStore) CreateReport(_ context.Context, r *model.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.CreatedAt = time.Now()
	cp := *r
	m.reports[r.ID] = &cp
	return nil
}

func (m *memStore) SetReportStatus(_ context.Context, id, status, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return store.ErrNotFound
	}
	r.Status = status
	if key != "" {
		r.ObjectKey = key
	}
	if status == model.ReportCompleted || status == model.ReportFailed {
		now := time.Now()
		r.CompletedAt = &now
	}
	return nil
}

func (m *memStore) GetReport(_ context.Context, userID, id string) (*model.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok || r.UserID != userID {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) ReportKeys(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, r := range m.reports {
		if r.UserID == userID && r.ObjectKey != "" {
			out = append(out, r.ObjectKey)
		}
	}
	return out, nil
}

func (m *memStore) ListReports(_ context.Context, userID string, limit int) ([]model.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Report
	for _, r := range m.reports {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ReportCounts(_ context.Context, userID string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int{}
	for _, r := range m.reports {
		if r.UserID == userID {
			out[r.Status]++
		}
	}
	return out, nil
}

func (m *memStore) SaveDeviceToken(_ context.Context, d *model.DeviceToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	m.devices[d.Token] = &cp
	return nil
}

func (m *memStore) DeleteDeviceToken(_ context.Context, userID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[token]
	if !ok || (userID != "" && d.UserID != userID) {
		return store.ErrNotFound
	}
	delete(m.devices, token)
	return nil
}

func (m *memStore) vitalCount(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.userVitals(userID))
}
