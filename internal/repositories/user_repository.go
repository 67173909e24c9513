package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"roomchat/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// UserRepository abstracts identity persistence.
type UserRepository interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetPublicUser(ctx context.Context, userID string) (models.PublicUser, error)
	FindByLogin(ctx context.Context, emailOrUsername string) (models.User, error)
	SearchUsers(ctx context.Context, keyword string, excludeID string) ([]models.PublicUser, error)
	ListParticipants(ctx context.Context, userIDs []string) ([]models.Participant, error)
	SetPresence(ctx context.Context, userID string, online bool, at time.Time) error
	UpdateAvatar(ctx context.Context, userID string, avatar string) (models.PublicUser, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, username, email, password_hash, avatar, online_status, last_seen, created_at, updated_at`

// CreateUser inserts a new identity. Username and email collisions yield ErrUserExists.
func (r *UserRepo) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	err := r.db.QueryRowxContext(ctx, `INSERT INTO users (id, username, email, password_hash, avatar)
        VALUES ($1, $2, $3, $4, $5) RETURNING `+userColumns,
		user.ID, user.Username, user.Email, user.PasswordHash, user.Avatar).StructScan(&user)
	if isUniqueViolation(err) {
		return models.User{}, ErrUserExists
	}
	return user, err
}

// GetPublicUser fetches the password-free projection.
func (r *UserRepo) GetPublicUser(ctx context.Context, userID string) (models.PublicUser, error) {
	var user models.PublicUser
	err := r.db.GetContext(ctx, &user, `SELECT id, username, email, avatar FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PublicUser{}, ErrUserNotFound
	}
	return user, err
}

// FindByLogin looks an identity up by email or username.
func (r *UserRepo) FindByLogin(ctx context.Context, emailOrUsername string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE email=LOWER($1) OR username=$1 LIMIT 1`, emailOrUsername)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchUsers matches username or email case-insensitively, excluding the caller.
func (r *UserRepo) SearchUsers(ctx context.Context, keyword string, excludeID string) ([]models.PublicUser, error) {
	pattern := "%" + likeEscaper.Replace(strings.TrimSpace(keyword)) + "%"
	users := []models.PublicUser{}
	err := r.db.SelectContext(ctx, &users, `SELECT id, username, email, avatar FROM users
        WHERE id <> $1 AND (username ILIKE $2 OR email ILIKE $2)
        ORDER BY username ASC LIMIT 50`, excludeID, pattern)
	return users, err
}

// ListParticipants resolves ids to participant views, preserving the order of userIDs.
func (r *UserRepo) ListParticipants(ctx context.Context, userIDs []string) ([]models.Participant, error) {
	if len(userIDs) == 0 {
		return []models.Participant{}, nil
	}
	var rows []models.Participant
	if err := r.db.SelectContext(ctx, &rows, `SELECT id, username, avatar, online_status FROM users WHERE id = ANY($1)`, pq.Array(userIDs)); err != nil {
		return nil, err
	}
	byID := make(map[string]models.Participant, len(rows))
	for _, p := range rows {
		byID[p.ID] = p
	}
	result := make([]models.Participant, 0, len(rows))
	for _, id := range userIDs {
		if p, ok := byID[id]; ok {
			result = append(result, p)
		}
	}
	return result, nil
}

// SetPresence records the online flag and last-seen timestamp.
func (r *UserRepo) SetPresence(ctx context.Context, userID string, online bool, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET online_status=$2, last_seen=$3, updated_at=NOW() WHERE id=$1`, userID, online, at)
	if err != nil {
		return err
	}
	return expectOneRow(res, ErrUserNotFound)
}

// UpdateAvatar changes the display avatar and returns the new projection.
func (r *UserRepo) UpdateAvatar(ctx context.Context, userID string, avatar string) (models.PublicUser, error) {
	var user models.PublicUser
	err := r.db.QueryRowxContext(ctx, `UPDATE users SET avatar=$2, updated_at=NOW() WHERE id=$1 RETURNING id, username, email, avatar`, userID, avatar).StructScan(&user)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PublicUser{}, ErrUserNotFound
	}
	return user, err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func expectOneRow(res sql.Result, notFound error) error {
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return notFound
	}
	return nil
}
