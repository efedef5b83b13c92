package store

import (
	"context"

	"homecare-dashboard/internal/model"
)

const userCols = `id, name, email, password_hash, age, weight, height,
	blood_type, allergies, diseases, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Age, &u.Weight, &u.Height,
		&u.BloodType, &u.Allergies, &u.Diseases, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, age, weight, height, blood_type, allergies, diseases)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Age, u.Weight, u.Height, u.BloodType, u.Allergies, u.Diseases,
	)
	return translate(err)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE lower(email) = lower($1)`, email))
}

func (s *Store) UserByID(ctx context.Context, id string) (*model.User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

// UpdateUser saves the profile fields. An empty PasswordHash keeps the
// current password.
func (s *Store) UpdateUser(ctx context.Context, u *model.User) error {
	return affected(s.pool.Exec(ctx,
		`UPDATE users
		 SET name=$1, email=$2, age=$3, weight=$4, height=$5, blood_type=$6,
		     allergies=$7, diseases=$8,
		     password_hash = COALESCE(NULLIF($9::text, ''), password_hash),
		     updated_at=NOW()
		 WHERE id=$10`,
		u.Name, u.Email, u.Age, u.Weight, u.Height, u.BloodType, u.Allergies, u.Diseases, u.PasswordHash, u.ID,
	))
}

// DeleteUser removes the account; vitals, medications, reports and device
// tokens go with it through ON DELETE CASCADE.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return affected(s.pool.Exec(ctx, `DELETE FROM users WHERE id=$1`, id))
}
