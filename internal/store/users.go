package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `id, name, email, password_hash, roles, created_at, updated_at`

func scanUser(row interface{ Scan(dest ...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Roles, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// CreateUserParams carries a new account.
type CreateUserParams struct {
	Name         string
	Email        string
	PasswordHash string
	Roles        []string
}

// CreateUser inserts an account row.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash, roles) VALUES ($1, $2, $3, $4) RETURNING `+userColumns,
		arg.Name, arg.Email, arg.PasswordHash, arg.Roles)
	u, err := scanUser(row)
	if err != nil {
		if IsUniqueViolation(err) {
			return User{}, ErrConflict
		}
		return User{}, err
	}
	return u, nil
}

// GetUserByEmail returns an account by email.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	u, err := scanUser(row)
	if err != nil {
		return User{}, mapRowErr(err)
	}
	return u, nil
}

// GetUserByID returns an account by id.
func (q *Queries) GetUserByID(ctx context.Context, id pgtype.UUID) (User, error) {
	row := q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		return User{}, mapRowErr(err)
	}
	return u, nil
}
