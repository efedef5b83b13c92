// Package reminder sends medication reminders at the top of every hour.
package reminder

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"

	"homecare-dashboard/internal/model"
	"homecare-dashboard/internal/vitals"
)

type Store interface {
	MedicationsDueAt(ctx context.Context, hour int, day time.Time) ([]model.Medication, error)
}

// Notifier delivers one reminder covering every medication a user is due
// to take in the current hour.
type Notifier interface {
	Notify(ctx context.Context, userID string, meds []model.Medication) error
}

type Reminder struct {
	store  Store
	notify Notifier
	log    *logrus.Entry
	sched  *gocron.Scheduler
}

func New(st Store, n Notifier, log *logrus.Logger) *Reminder {
	return &Reminder{store: st, notify: n, log: log.WithField("job", "medication_reminder")}
}

// Start schedules RunOnce at minute 0 of every hour in local time.
func (r *Reminder) Start() error {
	s := gocron.NewScheduler(time.Local)
	_, err := s.Cron("0 * * * *").Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := r.RunOnce(ctx, time.Now()); err != nil {
			r.log.WithError(err).Error("reminder run failed")
		}
	})
	if err != nil {
		return err
	}
	s.StartAsync()
	r.sched = s
	r.log.Info("reminder scheduler started")
	return nil
}

func (r *Reminder) Stop() {
	if r.sched != nil {
		r.sched.Stop()
		r.sched = nil
	}
}

// RunOnce notifies every user with a medication due at now's hour. A failed
// delivery is logged and does not stop the others. It returns the number of
// users notified.
func (r *Reminder) RunOnce(ctx context.Context, now time.Time) (int, error) {
	meds, err := r.store.MedicationsDueAt(ctx, now.Hour(), vitals.Day(now))
	if err != nil {
		return 0, err
	}

	var order []string
	byUser := map[string][]model.Medication{}
	for _, m := range meds {
		if _, ok := byUser[m.UserID]; !ok {
			order = append(order, m.UserID)
		}
		byUser[m.UserID] = append(byUser[m.UserID], m)
	}

	sent := 0
	for _, uid := range order {
		if err := r.notify.Notify(ctx, uid, byUser[uid]); err != nil {
			r.log.WithError(err).WithField("user_id", uid).Warn("reminder not delivered")
			continue
		}
		sent++
	}
	r.log.WithFields(logrus.Fields{"hour": now.Hour(), "due": len(meds), "users": sent}).Info("reminders sent")
	return sent, nil
}
