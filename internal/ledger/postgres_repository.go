package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a Repository backed by the given connection pool.
func NewPostgresRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

// txColumns is the ordered list of columns scanned from points_transactions.
const txColumns = `id, member_id, kind, amount, source_ref, actor_id, note, expires_at, created_at`

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var t Transaction
	err := row.Scan(
		&t.ID, &t.MemberID, &t.Kind, &t.Amount,
		&t.SourceRef, &t.ActorID, &t.Note,
		&t.ExpiresAt, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("scanning transaction row: %w", err)
	}
	return &t, nil
}

// Append inserts the ledger entry and applies its amount to the balance row
// in a single database transaction. The balance row is taken FOR UPDATE so a
// competing writer blocks until commit or rollback.
func (r *PostgresRepository) Append(ctx context.Context, entry *Transaction, expectedVersion int64) (*Balance, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning ledger transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	bal, err := lockBalance(ctx, tx, entry.MemberID)
	if err != nil {
		return nil, err
	}

	if bal.Version != expectedVersion {
		return nil, ErrStaleVersion
	}
	if bal.CurrentBalance+entry.Amount < 0 {
		return nil, ErrInsufficientBalance
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO points_transactions (id, member_id, kind, amount, source_ref, actor_id, note, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.MemberID, entry.Kind, entry.Amount,
		entry.SourceRef, entry.ActorID, entry.Note, entry.ExpiresAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateTransaction
		}
		return nil, fmt.Errorf("inserting ledger entry: %w", err)
	}

	err = tx.QueryRow(ctx, `
		UPDATE balances
		SET current_balance = current_balance + $2, version = version + 1, updated_at = NOW()
		WHERE member_id = $1
		RETURNING current_balance, version, updated_at`,
		entry.MemberID, entry.Amount,
	).Scan(&bal.CurrentBalance, &bal.Version, &bal.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("updating balance: %w", err)
	}

	err = tx.QueryRow(ctx,
		`SELECT created_at FROM points_transactions WHERE id = $1`, entry.ID,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("reading entry timestamp: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing ledger transaction: %w", err)
	}

	return bal, nil
}

// lockBalance selects the member's balance row FOR UPDATE, creating it first
// if this is the member's first transaction. The insert uses ON CONFLICT DO
// NOTHING so two first-writers race safely.
func lockBalance(ctx context.Context, tx pgx.Tx, memberID uuid.UUID) (*Balance, error) {
	bal := &Balance{MemberID: memberID}
	err := tx.QueryRow(ctx,
		`SELECT current_balance, version, updated_at FROM balances WHERE member_id = $1 FOR UPDATE`,
		memberID,
	).Scan(&bal.CurrentBalance, &bal.Version, &bal.UpdatedAt)
	if err == nil {
		return bal, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("locking balance row: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO balances (member_id, current_balance, version) VALUES ($1, 0, 0)
		 ON CONFLICT (member_id) DO NOTHING`,
		memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("initializing balance row: %w", err)
	}

	err = tx.QueryRow(ctx,
		`SELECT current_balance, version, updated_at FROM balances WHERE member_id = $1 FOR UPDATE`,
		memberID,
	).Scan(&bal.CurrentBalance, &bal.Version, &bal.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("locking initialized balance row: %w", err)
	}
	return bal, nil
}

// FindTransaction retrieves a single ledger entry by id.
func (r *PostgresRepository) FindTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM points_transactions WHERE id = $1`, txColumns)
	return scanTransaction(r.pool.QueryRow(ctx, query, id))
}

// ListByMember retrieves the member's entries newest-first with a total count.
func (r *PostgresRepository) ListByMember(ctx context.Context, memberID uuid.UUID, page Page) ([]Transaction, int, error) {
	page = page.Normalize()

	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM points_transactions WHERE member_id = $1`, memberID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting ledger entries: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM points_transactions
		WHERE member_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, txColumns)

	rows, err := r.pool.Query(ctx, query, memberID, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("listing ledger entries: %w", err)
	}
	defer rows.Close()

	entries, err := collectTransactions(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// ReplayByMember retrieves every entry for the member oldest-first.
func (r *PostgresRepository) ReplayByMember(ctx context.Context, memberID uuid.UUID) ([]Transaction, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM points_transactions
		WHERE member_id = $1
		ORDER BY created_at ASC, id ASC`, txColumns)

	rows, err := r.pool.Query(ctx, query, memberID)
	if err != nil {
		return nil, fmt.Errorf("replaying ledger entries: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func collectTransactions(rows pgx.Rows) ([]Transaction, error) {
	var entries []Transaction
	for rows.Next() {
		var t Transaction
		err := rows.Scan(
			&t.ID, &t.MemberID, &t.Kind, &t.Amount,
			&t.SourceRef, &t.ActorID, &t.Note,
			&t.ExpiresAt, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction row: %w", err)
		}
		entries = append(entries, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transaction rows: %w", err)
	}

	if entries == nil {
		entries = []Transaction{}
	}
	return entries, nil
}

// GetBalance retrieves the member's cached balance without locking it.
func (r *PostgresRepository) GetBalance(ctx context.Context, memberID uuid.UUID) (*Balance, error) {
	bal := &Balance{MemberID: memberID}
	err := r.pool.QueryRow(ctx,
		`SELECT current_balance, version, updated_at FROM balances WHERE member_id = $1`,
		memberID,
	).Scan(&bal.CurrentBalance, &bal.Version, &bal.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("reading balance: %w", err)
	}
	return bal, nil
}

// MembersWithExpirable finds members holding earn entries past expiry that no
// expire entry references yet.
func (r *PostgresRepository) MembersWithExpirable(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT e.member_id
		FROM points_transactions e
		WHERE e.kind = 'earn'
		  AND e.expires_at IS NOT NULL
		  AND e.expires_at <= $1
		  AND NOT EXISTS (
			SELECT 1 FROM points_transactions x
			WHERE x.kind = 'expire' AND x.source_ref = e.id::text
		  )`, now)
	if err != nil {
		return nil, fmt.Errorf("finding members with expirable entries: %w", err)
	}
	defer rows.Close()

	var members []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning member id: %w", err)
		}
		members = append(members, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating member ids: %w", err)
	}
	return members, nil
}
