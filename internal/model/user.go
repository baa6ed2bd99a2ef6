package model

import (
    "database/sql"
    "time"
)

// Role values stored in users.role.  The service only distinguishes
// regular users from administrators; new accounts default to RoleUser.
const (
    RoleUser  = "user"
    RoleAdmin = "admin"
)

// User represents an application user record as stored in the `users`
// table.  Each field corresponds to a column.  The struct carries the
// secret columns (password hash and refresh token hash) and therefore
// must never be serialized directly; handlers return PublicUser
// projections instead.
//
// Fields:
//  ID               – primary key identifier of the user.
//  FullName         – display name, trimmed.
//  Email            – unique email address, lowercased and trimmed.
//  Phone            – unique phone number, trimmed.
//  PasswordHash     – bcrypt hashed password.
//  Role             – "user" or "admin".
//  RefreshTokenHash – SHA‑256 hex digest of the currently active refresh
//                     token, or NULL when the user has no session.  At
//                     most one value is active per user; login and
//                     refresh overwrite it, logout clears it.
//  CreatedAt        – timestamp of creation.
//  UpdatedAt        – timestamp of last update.
type User struct {
    ID               uint64         // users.id
    FullName         string         // users.full_name
    Email            string         // users.email
    Phone            string         // users.phone
    PasswordHash     string         // users.password_hash
    Role             string         // users.role
    RefreshTokenHash sql.NullString // users.refresh_token_hash (nullable)
    CreatedAt        time.Time      // users.created_at
    UpdatedAt        time.Time      // users.updated_at
}

// PublicUser is the externally visible projection of a User.  Secret
// columns are omitted so the struct can be embedded in API responses
// without any risk of leaking credentials.
type PublicUser struct {
    ID        uint64    `json:"id"`
    FullName  string    `json:"fullName"`
    Email     string    `json:"email"`
    Phone     string    `json:"phone"`
    Role      string    `json:"role"`
    CreatedAt time.Time `json:"createdAt"`
    UpdatedAt time.Time `json:"updatedAt"`
}

// Public returns the projection of u with secret fields stripped.
func (u User) Public() PublicUser {
    return PublicUser{
        ID:        u.ID,
        FullName:  u.FullName,
        Email:     u.Email,
        Phone:     u.Phone,
        Role:      u.Role,
        CreatedAt: u.CreatedAt,
        UpdatedAt: u.UpdatedAt,
    }
}
