package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"homecare-dashboard/internal/model"
)

const medicationCols = `id, user_id, medication_name, time_hour, dose, medication_type,
	start_day, end_day, duration, comments, created_at`

func collectMedications(rows pgx.Rows) ([]model.Medication, error) {
	defer rows.Close()
	var out []model.Medication
	for rows.Next() {
		var m model.Medication
		if err := rows.Scan(&m.ID, &m.UserID, &m.Name, &m.Hour, &m.Dose, &m.Type,
			&m.StartDay, &m.EndDay, &m.Duration, &m.Comments, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) CreateMedication(ctx context.Context, m *model.Medication) error {
	return s.pool.QueryRow(ctx,
		`INSERT INTO medications (id, user_id, medication_name, time_hour, dose, medication_type,
		 start_day, end_day, duration, comments)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 RETURNING created_at`,
		m.ID, m.UserID, m.Name, m.Hour, m.Dose, m.Type, m.StartDay, m.EndDay, m.Duration, m.Comments,
	).Scan(&m.CreatedAt)
}

// ListMedications returns the user's medications, newest first.
func (s *Store) ListMedications(ctx context.Context, userID string) ([]model.Medication, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+medicationCols+` FROM medications
		 WHERE user_id=$1 ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, err
	}
	return collectMedications(rows)
}

func (s *Store) DeleteMedication(ctx context.Context, userID, id string) error {
	return affected(s.pool.Exec(ctx,
		`DELETE FROM medications WHERE id=$1 AND user_id=$2`, id, userID))
}

// MedicationsDueAt lists every user's medications scheduled for hour whose
// optional date range covers day.
func (s *Store) MedicationsDueAt(ctx context.Context, hour int, day time.Time) ([]model.Medication, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+medicationCols+` FROM medications
		 WHERE time_hour=$1
		   AND (start_day IS NULL OR start_day <= $2)
		   AND (end_day IS NULL OR end_day >= $2)
		 ORDER BY user_id, medication_name`, hour, day)
	if err != nil {
		return nil, err
	}
	return collectMedications(rows)
}
