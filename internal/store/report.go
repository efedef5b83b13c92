package store

import (
	"context"

	"homecare-dashboard/internal/model"
)

const reportCols = `id, user_id, kind, range_days, status, object_key, created_at, completed_at`

func scanReport(row interface{ Scan(...any) error }) (*model.Report, error) {
	r := &model.Report{}
	if err := row.Scan(&r.ID, &r.UserID, &r.Kind, &r.RangeDays, &r.Status,
		&r.ObjectKey, &r.CreatedAt, &r.CompletedAt); err != nil {
		return nil, translate(err)
	}
	return r, nil
}

func (s *Store) CreateReport(ctx context.Context, r *model.Report) error {
	return s.pool.QueryRow(ctx,
		`INSERT INTO reports (id, user_id, kind, range_days, status)
		 VALUES ($1,$2,$3,$4,$5) RETURNING created_at`,
		r.ID, r.UserID, r.Kind, r.RangeDays, r.Status,
	).Scan(&r.CreatedAt)
}

// SetReportStatus moves a report along; completed and failed stamp
// completed_at.
func (s *Store) SetReportStatus(ctx context.Context, id, status, objectKey string) error {
	return affected(s.pool.Exec(ctx,
		`UPDATE reports
		 SET status=$1,
		     object_key=CASE WHEN $2::text <> '' THEN $2::text ELSE object_key END,
		     completed_at=CASE WHEN $1 IN ('completed','failed') THEN NOW() ELSE completed_at END
		 WHERE id=$3`, status, objectKey, id))
}

func (s *Store) GetReport(ctx context.Context, userID, id string) (*model.Report, error) {
	return scanReport(s.pool.QueryRow(ctx,
		`SELECT `+reportCols+` FROM reports WHERE id=$1 AND user_id=$2`, id, userID))
}

func (s *Store) ListReports(ctx context.Context, userID string, limit int) ([]model.Report, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+reportCols+` FROM reports WHERE user_id=$1
		 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// ReportCounts returns the number of reports per status.
func (s *Store) ReportCounts(ctx context.Context, userID string) (map[string]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM reports WHERE user_id=$1 GROUP BY status`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

// ReportKeys lists the object keys of the user's stored workbooks.
func (s *Store) ReportKeys(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT object_key FROM reports WHERE user_id=$1 AND object_key <> ''`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		out = append(out, key)
	}
	return out, rows.Err()
}
