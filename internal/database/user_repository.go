package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/strenly/coachpulse/internal/crypto"
	"github.com/strenly/coachpulse/internal/domain"
)

// userColumns must match the Scan order in scanUser. Always selected with
// the u alias so queries can join freely.
const userColumns = `u.id, u.provider_subject, u.email, u.display_name, u.role, u.checkin_target, u.timezone, u.active, u.access_token, u.refresh_token, u.token_expiry, u.created_at, u.updated_at`

// UserRepo implements domain.UserRepository backed by PostgreSQL. Provider
// tokens are encrypted before they hit the users table and decrypted on read.
type UserRepo struct {
	pool   *pgxpool.Pool
	crypto crypto.Service
}

func NewUserRepo(pool *pgxpool.Pool, cryptoService crypto.Service) *UserRepo {
	return &UserRepo{pool: pool, crypto: cryptoService}
}

func (r *UserRepo) decryptTokens(user *domain.User) error {
	var err error
	user.AccessToken, err = r.crypto.Decrypt(user.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to decrypt access token: %w", err)
	}
	user.RefreshToken, err = r.crypto.Decrypt(user.RefreshToken)
	if err != nil {
		return fmt.Errorf("failed to decrypt refresh token: %w", err)
	}
	return nil
}

func (r *UserRepo) scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID, &user.ProviderSubject, &user.Email, &user.DisplayName,
		&user.Role, &user.CheckinTarget, &user.Timezone, &user.Active,
		&user.AccessToken, &user.RefreshToken, &user.TokenExpiry,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.decryptTokens(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepo) GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return r.scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users u WHERE u.id = $1`, userID))
}

func (r *UserRepo) GetByProviderSubject(ctx context.Context, subject string) (*domain.User, error) {
	return r.scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users u WHERE u.provider_subject = $1`, subject))
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users u WHERE lower(u.email) = lower($1)`, email))
}

func (r *UserRepo) UpsertFromLogin(ctx context.Context, login domain.ProviderLogin) (*domain.User, bool, error) {
	encAccessToken, err := r.crypto.Encrypt(login.AccessToken)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encrypt access token: %w", err)
	}
	encRefreshToken, err := r.crypto.Encrypt(login.RefreshToken)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	// xmax = 0 only holds for freshly inserted rows, which tells first
	// logins apart from returning ones.
	var user domain.User
	var created bool
	err = r.pool.QueryRow(ctx, `
		INSERT INTO users AS u (provider_subject, email, display_name, role, checkin_target, access_token, refresh_token, token_expiry, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (provider_subject) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expiry = EXCLUDED.token_expiry,
			updated_at = NOW()
		RETURNING `+userColumns+`, (xmax = 0)
	`, login.Subject, login.Email, login.DisplayName, domain.RoleClient, domain.DefaultCheckinTarget,
		encAccessToken, encRefreshToken, login.TokenExpiry).Scan(
		&user.ID, &user.ProviderSubject, &user.Email, &user.DisplayName,
		&user.Role, &user.CheckinTarget, &user.Timezone, &user.Active,
		&user.AccessToken, &user.RefreshToken, &user.TokenExpiry,
		&user.CreatedAt, &user.UpdatedAt, &created,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert user: %w", err)
	}

	if err := r.decryptTokens(&user); err != nil {
		return nil, false, err
	}

	return &user, created, nil
}

func (r *UserRepo) List(ctx context.Context, filter domain.UserListFilter) ([]domain.User, error) {
	query := `SELECT DISTINCT ` + userColumns + ` FROM users u`
	var conds []string
	var args []any

	if filter.CoachID != uuid.Nil {
		query += ` JOIN cohort_members cm ON cm.user_id = u.id JOIN cohorts c ON c.id = cm.cohort_id`
		args = append(args, filter.CoachID)
		conds = append(conds, fmt.Sprintf("c.coach_id = $%d", len(args)))
	}
	if filter.Role != "" {
		args = append(args, filter.Role)
		conds = append(conds, fmt.Sprintf("u.role = $%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		conds = append(conds, fmt.Sprintf("u.active = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conds = append(conds, fmt.Sprintf("(u.display_name ILIKE $%d OR u.email ILIKE $%d)", len(args), len(args)))
	}

	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY u.display_name, u.id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var user domain.User
		err := rows.Scan(
			&user.ID, &user.ProviderSubject, &user.Email, &user.DisplayName,
			&user.Role, &user.CheckinTarget, &user.Timezone, &user.Active,
			&user.AccessToken, &user.RefreshToken, &user.TokenExpiry,
			&user.CreatedAt, &user.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		if err := r.decryptTokens(&user); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *UserRepo) UpdateProfile(ctx context.Context, userID uuid.UUID, update domain.ProfileUpdate) (*domain.User, error) {
	return r.scanUser(r.pool.QueryRow(ctx, `
		UPDATE users u SET
			display_name = COALESCE($2, display_name),
			timezone = COALESCE($3, timezone),
			checkin_target = COALESCE($4, checkin_target),
			updated_at = NOW()
		WHERE u.id = $1
		RETURNING `+userColumns,
		userID, update.DisplayName, update.Timezone, update.CheckinTarget))
}

func (r *UserRepo) SetRole(ctx context.Context, userID uuid.UUID, role domain.Role) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`, userID, role)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepo) SetActive(ctx context.Context, userID uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET active = $2, updated_at = NOW() WHERE id = $1`, userID, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
