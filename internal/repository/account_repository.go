package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/user-service/internal/domain"
)

// ErrDuplicateEmail signals a registration against an already-used email.
// The unique index includes soft-deleted rows, so a deleted account's
// email still blocks re-registration (matches upstream behavior).
var ErrDuplicateEmail = errors.New("email already registered")

// ListFilter narrows and pages the admin roster listing.
type ListFilter struct {
	Search   string
	Page     int
	PageSize int
}

// AccountRepository defines persistence access for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	Update(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	List(ctx context.Context, filter ListFilter) ([]*domain.Account, int, error)
	SetBlocked(ctx context.Context, id string, blocked bool) error
	SoftDelete(ctx context.Context, id string) error
	CountActive(ctx context.Context) (int, error)
}

type accountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository returns a Postgres-backed implementation.
func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

const accountColumns = `id, name, email, password_hash, role, is_blocked, is_deleted, profile_image, bio, created_at, updated_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	if err := row.Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.PasswordHash,
		&account.Role,
		&account.IsBlocked,
		&account.IsDeleted,
		&account.ProfileImage,
		&account.Bio,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO accounts (name, email, password_hash, role, profile_image, bio)
        VALUES ($1, lower($2), $3, $4, $5, $6)
        RETURNING id, email, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		account.Name,
		account.Email,
		account.PasswordHash,
		account.Role,
		account.ProfileImage,
		account.Bio,
	).Scan(&account.ID, &account.Email, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *accountRepository) Update(ctx context.Context, account *domain.Account) error {
	const query = `
        UPDATE accounts
        SET name=$1, email=lower($2), password_hash=$3, role=$4,
            is_blocked=$5, is_deleted=$6, profile_image=$7, bio=$8, updated_at=NOW()
        WHERE id=$9`

	cmd, err := r.pool.Exec(ctx, query,
		account.Name,
		account.Email,
		account.PasswordHash,
		account.Role,
		account.IsBlocked,
		account.IsDeleted,
		account.ProfileImage,
		account.Bio,
		account.ID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE id=$1`
	return scanAccount(r.pool.QueryRow(ctx, query, id))
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE email=lower($1)`
	return scanAccount(r.pool.QueryRow(ctx, query, strings.TrimSpace(email)))
}

// List returns a page of the roster: admins and soft-deleted accounts
// are excluded, newest first. Search matches name or email.
func (r *accountRepository) List(ctx context.Context, filter ListFilter) ([]*domain.Account, int, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 5
	}

	where := `role <> 'admin' AND is_deleted = FALSE`
	args := []any{}
	if filter.Search != "" {
		where += ` AND (name ILIKE $1 OR email ILIKE $1)`
		args = append(args, "%"+filter.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + where +
		` ORDER BY created_at DESC` +
		` LIMIT ` + placeholder(len(args)+1) + ` OFFSET ` + placeholder(len(args)+2)
	args = append(args, pageSize, pageSize*(page-1))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	accounts := make([]*domain.Account, 0, pageSize)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, 0, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return accounts, total, nil
}

func (r *accountRepository) SetBlocked(ctx context.Context, id string, blocked bool) error {
	const query = `UPDATE accounts SET is_blocked=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, blocked, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *accountRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE accounts SET is_deleted=TRUE, updated_at=NOW() WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *accountRepository) CountActive(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM accounts WHERE is_deleted = FALSE`
	var count int
	if err := r.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}
