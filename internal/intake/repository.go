package intake

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUserExists signals a save attempt for an email that is already
// registered. The transaction is fully rolled back when this is returned.
var ErrUserExists = errors.New("user with this email already exists")

// Repository persists applicants with their loans and documents.
type Repository interface {
	Save(ctx context.Context, user *User) (int64, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed applicant repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Save inserts the user and all associated loan and document rows in a single
// transaction. The uniqueness check and the inserts are atomic: a concurrent
// save for the same email observes either the fully committed user or nothing.
func (r *PostgresRepository) Save(ctx context.Context, user *User) (int64, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var existing int64
	err = tx.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, user.Email).Scan(&existing)
	if err == nil {
		return 0, ErrUserExists
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	err = tx.QueryRow(ctx, `INSERT INTO users (full_name, email, phone_number)
        VALUES ($1, $2, $3) RETURNING id`,
		user.FullName, user.Email, user.PhoneNumber).Scan(&user.ID)
	if err != nil {
		// The unique index backs the check above against concurrent inserts.
		if isUniqueViolation(err) {
			return 0, ErrUserExists
		}
		return 0, err
	}

	for i := range user.Loans {
		err = tx.QueryRow(ctx, `INSERT INTO loans (user_id, amount)
            VALUES ($1, $2) RETURNING id`,
			user.ID, user.Loans[i].Amount).Scan(&user.Loans[i].ID)
		if err != nil {
			return 0, err
		}
	}

	for i := range user.Documents {
		err = tx.QueryRow(ctx, `INSERT INTO documents (user_id, name)
            VALUES ($1, $2) RETURNING id`,
			user.ID, user.Documents[i].Name).Scan(&user.Documents[i].ID)
		if err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return user.ID, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
