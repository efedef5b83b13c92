package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"homecare-dashboard/internal/model"
)

const vitalCols = `id, user_id, date_recorded, systolic_bp, diastolic_bp, heart_rate,
	temperature, glucose_level, blood_status, water_balance, created_at`

func scanVital(row interface{ Scan(...any) error }) (*model.VitalResult, error) {
	v := &model.VitalResult{}
	err := row.Scan(&v.ID, &v.UserID, &v.Day, &v.Systolic, &v.Diastolic, &v.HeartRate,
		&v.Temperature, &v.Glucose, &v.BloodStatus, &v.WaterBalance, &v.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return v, nil
}

func collectVitals(rows pgx.Rows) ([]model.VitalResult, error) {
	defer rows.Close()
	var out []model.VitalResult
	for rows.Next() {
		v, err := scanVital(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

const upsertVital = `INSERT INTO vital_results (id, user_id, date_recorded, systolic_bp, diastolic_bp,
	heart_rate, temperature, glucose_level, blood_status, water_balance)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	ON CONFLICT (user_id, date_recorded) DO UPDATE
	SET systolic_bp=EXCLUDED.systolic_bp, diastolic_bp=EXCLUDED.diastolic_bp,
	    heart_rate=EXCLUDED.heart_rate, temperature=EXCLUDED.temperature,
	    glucose_level=EXCLUDED.glucose_level, blood_status=EXCLUDED.blood_status,
	    water_balance=EXCLUDED.water_balance
	RETURNING ` + vitalCols

func upsertArgs(v *model.VitalResult) []any {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	return []any{v.ID, v.UserID, v.Day, v.Systolic, v.Diastolic,
		v.HeartRate, v.Temperature, v.Glucose, v.BloodStatus, v.WaterBalance}
}

// SaveVital records v for its day, replacing that day's earlier reading.
func (s *Store) SaveVital(ctx context.Context, v *model.VitalResult) (*model.VitalResult, error) {
	return scanVital(s.pool.QueryRow(ctx, upsertVital, upsertArgs(v)...))
}

func (s *Store) LatestVital(ctx context.Context, userID string) (*model.VitalResult, error) {
	return scanVital(s.pool.QueryRow(ctx,
		`SELECT `+vitalCols+` FROM vital_results
		 WHERE user_id=$1 ORDER BY date_recorded DESC LIMIT 1`, userID))
}

func (s *Store) VitalByDate(ctx context.Context, userID string, day time.Time) (*model.VitalResult, error) {
	return scanVital(s.pool.QueryRow(ctx,
		`SELECT `+vitalCols+` FROM vital_results
		 WHERE user_id=$1 AND date_recorded=$2`, userID, day))
}

// VitalByID only returns rows owned by userID.
func (s *Store) VitalByID(ctx context.Context, userID, id string) (*model.VitalResult, error) {
	return scanVital(s.pool.QueryRow(ctx,
		`SELECT `+vitalCols+` FROM vital_results WHERE id=$1 AND user_id=$2`, id, userID))
}

func (s *Store) UpdateVital(ctx context.Context, v *model.VitalResult) error {
	return affected(s.pool.Exec(ctx,
		`UPDATE vital_results
		 SET systolic_bp=$1, diastolic_bp=$2, heart_rate=$3, temperature=$4,
		     glucose_level=$5, blood_status=$6, water_balance=$7
		 WHERE id=$8 AND user_id=$9`,
		v.Systolic, v.Diastolic, v.HeartRate, v.Temperature, v.Glucose, v.BloodStatus, v.WaterBalance,
		v.ID, v.UserID,
	))
}

func (s *Store) DeleteVital(ctx context.Context, userID, id string) error {
	return affected(s.pool.Exec(ctx,
		`DELETE FROM vital_results WHERE id=$1 AND user_id=$2`, id, userID))
}

// ListVitals returns readings with from <= day <= to.
func (s *Store) ListVitals(ctx context.Context, userID string, from, to time.Time, ascending bool) ([]model.VitalResult, error) {
	order := "DESC"
	if ascending {
		order = "ASC"
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+vitalCols+` FROM vital_results
		 WHERE user_id=$1 AND date_recorded >= $2 AND date_recorded <= $3
		 ORDER BY date_recorded `+order, userID, from, to)
	if err != nil {
		return nil, err
	}
	return collectVitals(rows)
}

func (s *Store) CountVitals(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM vital_results WHERE user_id=$1`, userID).Scan(&n)
	return n, err
}

// SeedVitals inserts rows only if the user has no readings at all. It
// reports how many rows were written.
func (s *Store) SeedVitals(ctx context.Context, userID string, rows []model.VitalResult) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	// serialize concurrent seeders for the same user
	if _, err := tx.Exec(ctx, `SELECT 1 FROM users WHERE id=$1 FOR UPDATE`, userID); err != nil {
		return 0, err
	}
	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM vital_results WHERE user_id=$1)`, userID,
	).Scan(&exists); err != nil {
		return 0, err
	}
	if exists {
		return 0, nil
	}

	for i := range rows {
		rows[i].UserID = userID
		if _, err := tx.Exec(ctx,
			`INSERT INTO vital_results (id, user_id, date_recorded, systolic_bp, diastolic_bp,
			 heart_rate, temperature, glucose_level, blood_status, water_balance)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			 ON CONFLICT (user_id, date_recorded) DO NOTHING`,
			upsertArgs(&rows[i])...,
		); err != nil {
			return 0, translate(err)
		}
	}
	return len(rows), tx.Commit(ctx)
}

// ImportVitals upserts every row for userID in one transaction.
func (s *Store) ImportVitals(ctx context.Context, userID string, rows []model.VitalResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := range rows {
		rows[i].ID = ""
		rows[i].UserID = userID
		if _, err := tx.Exec(ctx, upsertVital, upsertArgs(&rows[i])...); err != nil {
			return translate(err)
		}
	}
	return tx.Commit(ctx)
}
