package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/model"
)

// CreateUser inserts a new user and fills in user.ID.
//
// The email check and the INSERT share one transaction. The UNIQUE constraint
// on users.email is still the final word: if a concurrent registration wins the
// race, the constraint violation is translated to the same DuplicateUser error.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			db.rebind(`SELECT COUNT(*) FROM users WHERE email = ?`), user.Email,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("sqlstore: checking email %s: %w", user.Email, err)
		}
		if exists > 0 {
			return apperror.DuplicateUser(user.Email)
		}

		err = tx.QueryRowContext(ctx,
			db.rebind(`INSERT INTO users (email, password, name) VALUES (?, ?, ?) RETURNING id`),
			user.Email, user.PasswordHash, user.Name,
		).Scan(&user.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.DuplicateUser(user.Email)
			}
			return fmt.Errorf("sqlstore: inserting user %s: %w", user.Email, err)
		}
		return nil
	})
}

// GetUserByID retrieves a user by identifier.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	err := db.conn.QueryRowContext(ctx,
		db.rebind(`SELECT id, email, password, name FROM users WHERE id = ?`), id,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlstore: getting user %d: %w", id, err)
	}
	return &u, nil
}

// GetUserByEmail retrieves a user by email.
// Returns apperror.ErrUnknownUser if nobody registered with that email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := db.conn.QueryRowContext(ctx,
		db.rebind(`SELECT id, email, password, name FROM users WHERE email = ?`), email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.UnknownUser(email)
		}
		return nil, fmt.Errorf("sqlstore: getting user by email %s: %w", email, err)
	}
	return &u, nil
}
