package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/AnshRaj112/todo-backend/internal/models"
	"github.com/AnshRaj112/todo-backend/pkg/utils"
)

const pgUniqueViolation = "23505"

// PostgresAccountStore stores accounts in the accounts table.
type PostgresAccountStore struct {
	db *sql.DB
}

func NewPostgresAccountStore(db *sql.DB) *PostgresAccountStore {
	return &PostgresAccountStore{db: db}
}

func (s *PostgresAccountStore) Create(ctx context.Context, username, email, passwordHash string) (*models.Account, error) {
	a := models.Account{
		Username: username,
		Email:    utils.NormalizeEmail(email),
		Password: passwordHash,
	}

	// The UNIQUE(email) constraint makes the check and the insert one atomic step.
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO accounts (username, email, password_hash, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at
	`, a.Username, a.Email, a.Password).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return nil, fmt.Errorf("account %q: %w", a.Email, utils.ErrConflict)
		}
		return nil, err
	}
	return &a, nil
}

func (s *PostgresAccountStore) findOne(ctx context.Context, where string, arg interface{}) (*models.Account, error) {
	var a models.Account
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, created_at
		FROM accounts WHERE `+where, arg).Scan(&a.ID, &a.Username, &a.Email, &a.Password, &a.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (s *PostgresAccountStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.findOne(ctx, "email = $1", utils.NormalizeEmail(email))
}

func (s *PostgresAccountStore) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	return s.findOne(ctx, "id = $1", id)
}

func (s *PostgresAccountStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n)
	return n, err
}

// PostgresTaskStore stores tasks in the todos table.
type PostgresTaskStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresTaskStore(db *sql.DB) *PostgresTaskStore {
	return &PostgresTaskStore{db: db, now: time.Now}
}

const todoColumns = `id, user_id, title, description, completed, attachment_url, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Completed, &t.AttachmentURL, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// scanOwned maps "no row" to ErrNotFound for statements scoped by id and owner.
func scanOwned(row rowScanner, id int64) (*models.Task, error) {
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task %d: %w", id, utils.ErrNotFound)
	}
	return t, err
}

// timestamp truncates to the microsecond precision Postgres keeps.
func (s *PostgresTaskStore) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *PostgresTaskStore) Create(ctx context.Context, ownerID int64, title, description string) (*models.Task, error) {
	title, err := utils.ValidateTitle(title)
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	return scanTask(s.db.QueryRowContext(ctx, `
		INSERT INTO todos (user_id, title, description, completed, created_at, updated_at)
		VALUES ($1, $2, $3, FALSE, $4, $4)
		RETURNING `+todoColumns, ownerID, title, description, now))
}

func (s *PostgresTaskStore) ListByOwner(ctx context.Context, ownerID int64, filter models.TaskFilter) ([]models.Task, error) {
	filter = filter.Normalize()

	where := []string{"user_id = $1"}
	args := []interface{}{ownerID}
	if filter.Completed != nil {
		args = append(args, *filter.Completed)
		where = append(where, fmt.Sprintf("completed = $%d", len(args)))
	}
	args = append(args, filter.Limit, filter.Skip)

	query := fmt.Sprintf(`SELECT %s FROM todos WHERE %s ORDER BY id ASC LIMIT $%d OFFSET $%d`,
		todoColumns, strings.Join(where, " AND "), len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]models.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *PostgresTaskStore) FindByIDAndOwner(ctx context.Context, id, ownerID int64) (*models.Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx,
		`SELECT `+todoColumns+` FROM todos WHERE id = $1 AND user_id = $2`, id, ownerID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

func (s *PostgresTaskStore) Update(ctx context.Context, id, ownerID int64, patch models.TaskPatch) (*models.Task, error) {
	if patch.Title != nil {
		title, err := utils.ValidateTitle(*patch.Title)
		if err != nil {
			return nil, err
		}
		patch.Title = &title
	}

	// NULL parameters leave the column untouched.
	return scanOwned(s.db.QueryRowContext(ctx, `
		UPDATE todos SET
			title = COALESCE($3, title),
			description = COALESCE($4, description),
			completed = COALESCE($5, completed),
			updated_at = $6
		WHERE id = $1 AND user_id = $2
		RETURNING `+todoColumns,
		id, ownerID, nullString(patch.Title), nullString(patch.Description), nullBool(patch.Completed), s.timestamp()), id)
}

func (s *PostgresTaskStore) Toggle(ctx context.Context, id, ownerID int64) (*models.Task, error) {
	return scanOwned(s.db.QueryRowContext(ctx, `
		UPDATE todos SET completed = NOT completed, updated_at = $3
		WHERE id = $1 AND user_id = $2
		RETURNING `+todoColumns, id, ownerID, s.timestamp()), id)
}

func (s *PostgresTaskStore) SetAttachment(ctx context.Context, id, ownerID int64, url string) (*models.Task, error) {
	return scanOwned(s.db.QueryRowContext(ctx, `
		UPDATE todos SET attachment_url = $3, updated_at = $4
		WHERE id = $1 AND user_id = $2
		RETURNING `+todoColumns, id, ownerID, url, s.timestamp()), id)
}

func (s *PostgresTaskStore) Delete(ctx context.Context, id, ownerID int64) (*models.Task, error) {
	return scanOwned(s.db.QueryRowContext(ctx, `
		DELETE FROM todos WHERE id = $1 AND user_id = $2
		RETURNING `+todoColumns, id, ownerID), id)
}

func (s *PostgresTaskStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM todos`).Scan(&n)
	return n, err
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullBool(p *bool) sql.NullBool {
	if p == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *p, Valid: true}
}

// NewPostgresStores wraps an open connection. Close closes the pool.
func NewPostgresStores(db *sql.DB) *Stores {
	return &Stores{
		Accounts: NewPostgresAccountStore(db),
		Tasks:    NewPostgresTaskStore(db),
		Close:    func(context.Context) error { return db.Close() },
	}
}
