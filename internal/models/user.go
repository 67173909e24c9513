package models

import "time"

// DefaultAvatar is assigned to accounts registered without an avatar.
const DefaultAvatar = "default_avatar.png"

// User is the persisted identity record.
type User struct {
	ID           string     `db:"id" json:"_id"`
	Username     string     `db:"username" json:"username"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Avatar       string     `db:"avatar" json:"avatar"`
	Online       bool       `db:"online_status" json:"onlineStatus"`
	LastSeen     *time.Time `db:"last_seen" json:"lastSeen,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

// PublicUser is the password-free projection handed out after authentication.
type PublicUser struct {
	ID       string `db:"id" json:"_id"`
	Username string `db:"username" json:"username"`
	Email    string `db:"email" json:"email"`
	Avatar   string `db:"avatar" json:"avatar"`
}

// Sender is the redacted identity broadcast alongside messages.
type Sender struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// Public strips the credential hash and presence fields.
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, Email: u.Email, Avatar: u.Avatar}
}

// Sender returns the broadcast-safe projection.
func (u PublicUser) Sender() Sender {
	return Sender{ID: u.ID, Username: u.Username, Avatar: u.Avatar}
}

// Participant is a room member as listed to clients.
type Participant struct {
	ID       string `db:"id" json:"_id"`
	Username string `db:"username" json:"username"`
	Avatar   string `db:"avatar" json:"avatar"`
	Online   bool   `db:"online_status" json:"onlineStatus"`
}
