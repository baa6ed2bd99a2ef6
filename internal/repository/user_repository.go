package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/user-account-service/internal/model"
	"github.com/iliyamo/user-account-service/internal/utils"
)

// UserRepo owns all persistence for the 'users' table, including the
// single-slot refresh token column.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,full_name,email,phone,password_hash,role,refresh_token_hash,created_at,updated_at"

// Create validates, hashes and inserts a new user, returning its ID.
// The pipeline is explicit: trim/normalize -> reject blanks -> bcrypt
// hash -> INSERT. The plaintext password never reaches the database.
func (r *UserRepo) Create(ctx context.Context, fullName, email, phone, password string, cost int) (uint64, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.ToLower(strings.TrimSpace(email))
	phone = strings.TrimSpace(phone)
	if fullName == "" || email == "" || phone == "" || password == "" {
		return 0, ErrBlankField
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (full_name, email, phone, password_hash, role) VALUES (?,?,?,?,?)",
		fullName, email, phone, hash, model.RoleUser)
	if err != nil {
		if dup := classifyDuplicate(err); dup != nil {
			return 0, dup
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// GetAll returns every user row ordered by id.
func (r *UserRepo) GetAll(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.FullName, &u.Email, &u.Phone, &u.PasswordHash,
			&u.Role, &u.RefreshTokenHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Update replaces the mutable profile fields (full name, email, phone)
// of a user. Role and password are not updatable through this path.
// Returns sql.ErrNoRows when the user does not exist and a duplicate
// sentinel when the new email or phone collides with another row.
func (r *UserRepo) Update(ctx context.Context, id uint64, fullName, email, phone string) (model.User, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.ToLower(strings.TrimSpace(email))
	phone = strings.TrimSpace(phone)
	if fullName == "" || email == "" || phone == "" {
		return model.User{}, ErrBlankField
	}
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET full_name=?, email=?, phone=? WHERE id=?",
		fullName, email, phone, id)
	if err != nil {
		if dup := classifyDuplicate(err); dup != nil {
			return model.User{}, dup
		}
		return model.User{}, err
	}
	// MySQL reports 0 affected rows both for a missing id and for a
	// no-op update; the re-fetch settles it either way, returning
	// sql.ErrNoRows when the user does not exist.
	return r.GetByID(ctx, id)
}

// Delete removes a user row. Returns sql.ErrNoRows when nothing matched.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetRefreshToken stores the hash of a freshly issued refresh token in
// the user's session slot, overwriting any prior value. Returns
// sql.ErrNoRows when the user row vanished mid-flight.
func (r *UserRepo) SetRefreshToken(ctx context.Context, id uint64, tokenHash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_token_hash=? WHERE id=?", tokenHash, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish "row gone" from "same hash written twice".
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// SwapRefreshToken atomically replaces the stored refresh token hash,
// but only when the currently stored value equals oldHash. This is the
// compare-and-swap that makes rotation safe against concurrent refresh
// requests: the loser observes zero affected rows and gets
// sql.ErrNoRows instead of silently double-rotating.
func (r *UserRepo) SwapRefreshToken(ctx context.Context, id uint64, oldHash, newHash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_token_hash=? WHERE id=? AND refresh_token_hash=?",
		newHash, id, oldHash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ClearRefreshToken empties the session slot on logout. Clearing an
// already empty slot is not an error.
func (r *UserRepo) ClearRefreshToken(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_token_hash=NULL WHERE id=?", id)
	return err
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.Phone, &u.PasswordHash,
		&u.Role, &u.RefreshTokenHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// classifyDuplicate maps a MySQL duplicate-key error (1062) onto the
// sentinel for the violated unique column, or nil when err is not a
// duplicate-key failure. The error text names the violated key, e.g.
// "Duplicate entry 'a@x.com' for key 'users.uq_users_email'".
func classifyDuplicate(err error) error {
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "1062") && !strings.Contains(msg, "duplicate entry") {
		return nil
	}
	if strings.Contains(msg, "phone") {
		return ErrPhoneExists
	}
	return ErrEmailExists
}
