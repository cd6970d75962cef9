package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Dan9191/recipe-service/internal/models"
	"github.com/lib/pq"
)

const userColumns = `id, name, email, password_hash, role, status, bio, profile_photo, mobile_number,
	is_premium, password_changed_at, followers, following, followers_count, following_count,
	created_at, updated_at`

// set/counter column pairs touched by the graph primitives
const (
	followersSet = "followers"
	followingSet = "following"
)

// PostgresRepository stores users in PostgreSQL
type PostgresRepository struct {
	db   DBTX
	conn *sql.DB // nil inside a transaction
}

// NewPostgresRepository initializes a new repository
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db, conn: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner, extra ...any) (*models.User, error) {
	user := &models.User{}
	var changedAt sql.NullTime
	dest := []any{
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role, &user.Status,
		&user.Bio, &user.ProfilePhoto, &user.MobileNumber, &user.IsPremium, &changedAt,
		pq.Array(&user.Followers), pq.Array(&user.Following),
		&user.FollowersCount, &user.FollowingCount, &user.CreatedAt, &user.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if changedAt.Valid {
		t := changedAt.Time
		user.PasswordChangedAt = &t
	}
	if user.Followers == nil {
		user.Followers = []string{}
	}
	if user.Following == nil {
		user.Following = []string{}
	}
	return user, nil
}

func (r *PostgresRepository) queryUser(ctx context.Context, op, query string, args ...any) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return user, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// CreateUser creates a new user in the database
func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, role, status, bio, profile_photo,
			mobile_number, is_premium, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role, user.Status, user.Bio,
		user.ProfilePhoto, user.MobileNumber, user.IsPremium,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.Followers = []string{}
	user.Following = []string{}
	return nil
}

// FindUserByEmail retrieves a user by email, ignoring case
func (r *PostgresRepository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.queryUser(ctx, "find user", `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

// FindUserByID retrieves a user by id
func (r *PostgresRepository) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.queryUser(ctx, "find user", `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// likeEscaper makes a search term match literally inside an ILIKE pattern
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListUsers returns one page of users plus the total number of matches
func (r *PostgresRepository) ListUsers(ctx context.Context, q models.UserQuery) ([]*models.User, int, error) {
	q = q.Normalize()

	var where []string
	var args []any
	if q.SearchTerm != "" {
		args = append(args, "%"+likeEscaper.Replace(q.SearchTerm)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			`(name ILIKE $%d ESCAPE '\' OR email ILIKE $%d ESCAPE '\' OR bio ILIKE $%d ESCAPE '\')`, n, n, n))
	}
	if q.Role != "" {
		args = append(args, q.Role)
		where = append(where, fmt.Sprintf("role = $%d", len(args)))
	}
	if q.Status != "" {
		args = append(args, q.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	field, desc := q.SortField()
	order := "ASC"
	if desc {
		order = "DESC"
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + userColumns + `, COUNT(*) OVER() FROM users`)
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	args = append(args, q.Limit, q.Offset())
	fmt.Fprintf(&sb, " ORDER BY %s %s, id ASC LIMIT $%d OFFSET $%d",
		models.UserSortFields[field], order, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*models.User{}
	total := 0
	for rows.Next() {
		user, err := scanUser(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// UpdateUser applies a partial update and returns the updated user
func (r *PostgresRepository) UpdateUser(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	if upd.Empty() {
		return r.FindUserByID(ctx, id)
	}

	var sets []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Email != nil {
		add("email", *upd.Email)
	}
	if upd.PasswordHash != nil {
		add("password_hash", *upd.PasswordHash)
	}
	if upd.PasswordChangedAt != nil {
		add("password_changed_at", *upd.PasswordChangedAt)
	}
	if upd.Role != nil {
		add("role", *upd.Role)
	}
	if upd.Status != nil {
		add("status", *upd.Status)
	}
	if upd.Bio != nil {
		add("bio", *upd.Bio)
	}
	if upd.ProfilePhoto != nil {
		add("profile_photo", *upd.ProfilePhoto)
	}
	if upd.MobileNumber != nil {
		add("mobile_number", *upd.MobileNumber)
	}
	if upd.IsPremium != nil {
		add("is_premium", *upd.IsPremium)
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE users SET %s, updated_at = CURRENT_TIMESTAMP WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), userColumns)
	user, err := r.queryUser(ctx, "update user", query, args...)
	if isUniqueViolation(err) {
		return nil, ErrDuplicateEmail
	}
	return user, err
}

// DeleteUser removes a user and returns the deleted record
func (r *PostgresRepository) DeleteUser(ctx context.Context, id string) (*models.User, error) {
	return r.queryUser(ctx, "delete user", `DELETE FROM users WHERE id = $1 RETURNING `+userColumns, id)
}

// LockUsers locks rows in id order so concurrent callers cannot deadlock
func (r *PostgresRepository) LockUsers(ctx context.Context, ids ...string) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM users WHERE id = ANY($1) ORDER BY id FOR UPDATE`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to lock users: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
	}
	return rows.Err()
}

// IsFollowing reports whether followerID has followingID in its following set
func (r *PostgresRepository) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1 AND $2 = ANY(following))`,
		followerID, followingID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check relationship: %w", err)
	}
	return exists, nil
}

// addToSet appends member to the set column and bumps its counter only when
// the member was absent
func (r *PostgresRepository) addToSet(ctx context.Context, set, userID, member string) (*models.User, error) {
	query := fmt.Sprintf(`
		UPDATE users SET
			%[1]s_count = %[1]s_count + CASE WHEN $2 = ANY(%[1]s) THEN 0 ELSE 1 END,
			%[1]s = CASE WHEN $2 = ANY(%[1]s) THEN %[1]s ELSE array_append(%[1]s, $2) END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING %[2]s`, set, userColumns)
	return r.queryUser(ctx, "update "+set, query, userID, member)
}

// removeFromSet drops member from the set column and lowers its counter only
// when the member was present
func (r *PostgresRepository) removeFromSet(ctx context.Context, set, userID, member string) (*models.User, error) {
	query := fmt.Sprintf(`
		UPDATE users SET
			%[1]s_count = GREATEST(%[1]s_count - CASE WHEN $2 = ANY(%[1]s) THEN 1 ELSE 0 END, 0),
			%[1]s = array_remove(%[1]s, $2),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING %[2]s`, set, userColumns)
	return r.queryUser(ctx, "update "+set, query, userID, member)
}

// AddFollower increments followersCount and adds followerID to followers
func (r *PostgresRepository) AddFollower(ctx context.Context, userID, followerID string) (*models.User, error) {
	return r.addToSet(ctx, followersSet, userID, followerID)
}

// AddFollowing increments followingCount and adds followingID to following
func (r *PostgresRepository) AddFollowing(ctx context.Context, userID, followingID string) (*models.User, error) {
	return r.addToSet(ctx, followingSet, userID, followingID)
}

// RemoveFollower decrements followersCount and removes followerID from followers
func (r *PostgresRepository) RemoveFollower(ctx context.Context, userID, followerID string) (*models.User, error) {
	return r.removeFromSet(ctx, followersSet, userID, followerID)
}

// RemoveFollowing decrements followingCount and removes followingID from following
func (r *PostgresRepository) RemoveFollowing(ctx context.Context, userID, followingID string) (*models.User, error) {
	return r.removeFromSet(ctx, followingSet, userID, followingID)
}

// PurgeReferences removes id from all relationship sets
func (r *PostgresRepository) PurgeReferences(ctx context.Context, id string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET
			followers_count = GREATEST(followers_count - CASE WHEN $1 = ANY(followers) THEN 1 ELSE 0 END, 0),
			following_count = GREATEST(following_count - CASE WHEN $1 = ANY(following) THEN 1 ELSE 0 END, 0),
			followers = array_remove(followers, $1),
			following = array_remove(following, $1),
			updated_at = CURRENT_TIMESTAMP
		WHERE $1 = ANY(followers) OR $1 = ANY(following)`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to purge references: %w", err)
	}
	return res.RowsAffected()
}

// ReconcileCounters resets counters to the cardinality of their sets
func (r *PostgresRepository) ReconcileCounters(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET
			followers_count = cardinality(followers),
			following_count = cardinality(following),
			updated_at = CURRENT_TIMESTAMP
		WHERE followers_count <> cardinality(followers) OR following_count <> cardinality(following)`)
	if err != nil {
		return 0, fmt.Errorf("failed to reconcile counters: %w", err)
	}
	return res.RowsAffected()
}

// WithinTx runs fn inside a database transaction
func (r *PostgresRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	if r.conn == nil {
		return fn(ctx, r)
	}
	return withTx(ctx, r.conn, func(ctx context.Context, tx DBTX) error {
		return fn(ctx, &PostgresRepository{db: tx})
	})
}
