package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhub/api/internal/domain/user"
	"github.com/taskhub/api/internal/observability"
)

const userColumns = `id, email, password_hash, first_name, last_name, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom == nil {
		return fn()
	}
	return r.prom.ObserveDB(op, fn)
}

func (r *UsersRepo) Create(ctx context.Context, email, passwordHash, firstName, lastName string) (user.User, error) {
	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := r.observe("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, email, password_hash, first_name, last_name, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool

	err := r.observe("users.email_exists", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`,
			email,
		).Scan(&exists)
	})

	if err != nil {
		return false, err
	}

	return exists, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User
	found := true

	err := r.observe("users.get_by_email", func() error {
		err := r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1`,
			email,
		).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.CreatedAt, &u.UpdatedAt)

		if errors.Is(err, pgx.ErrNoRows) {
			found = false
			return nil
		}
		return err
	})

	if err != nil {
		return user.User{}, err
	}

	if !found {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User
	found := true

	err := r.observe("users.get_by_id", func() error {
		err := r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`,
			id,
		).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.CreatedAt, &u.UpdatedAt)

		if errors.Is(err, pgx.ErrNoRows) {
			found = false
			return nil
		}
		return err
	})

	if err != nil {
		return user.User{}, err
	}

	if !found {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

// UpdateProfile applies only the supplied fields. The IS DISTINCT FROM guard
// means updated_at advances only when a value actually changes; a no-op
// update returns the current row untouched.
func (r *UsersRepo) UpdateProfile(ctx context.Context, id string, req user.UpdateProfileRequest) (user.User, error) {
	var sets []string
	var changed []string
	var args []interface{}

	pos := 1

	if req.FirstName != nil {
		sets = append(sets, fmt.Sprintf("first_name = $%d", pos))
		changed = append(changed, fmt.Sprintf("first_name IS DISTINCT FROM $%d", pos))
		args = append(args, *req.FirstName)
		pos++
	}

	if req.LastName != nil {
		sets = append(sets, fmt.Sprintf("last_name = $%d", pos))
		changed = append(changed, fmt.Sprintf("last_name IS DISTINCT FROM $%d", pos))
		args = append(args, *req.LastName)
		pos++
	}

	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(
		`UPDATE users SET %s WHERE id = $%d AND (%s) RETURNING %s`,
		strings.Join(sets, ", "), pos, strings.Join(changed, " OR "), userColumns,
	)

	var u user.User
	applied := true

	err := r.observe("users.update_profile", func() error {
		err := r.pool.QueryRow(ctx, query, args...).Scan(
			&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.CreatedAt, &u.UpdatedAt,
		)

		if errors.Is(err, pgx.ErrNoRows) {
			applied = false
			return nil
		}
		return err
	})

	if err != nil {
		return user.User{}, err
	}

	if !applied {
		// either the row is gone or every supplied value already matched
		return r.GetByID(ctx, id)
	}

	return u, nil
}
