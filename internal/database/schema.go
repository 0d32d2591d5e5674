package database

// schema is the ledger DDL, applied in order at startup. The transaction
// table is append-only: no statement here or elsewhere updates or deletes
// committed entries.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS points_transactions (
		id         UUID PRIMARY KEY,
		member_id  UUID NOT NULL,
		kind       TEXT NOT NULL CHECK (kind IN ('earn', 'redeem', 'expire', 'admin_award', 'admin_deduct')),
		amount     BIGINT NOT NULL CHECK (amount <> 0),
		source_ref TEXT NOT NULL DEFAULT '',
		actor_id   TEXT NOT NULL DEFAULT '',
		note       TEXT NOT NULL DEFAULT '',
		expires_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_points_transactions_member_created
		ON points_transactions (member_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_points_transactions_expirable
		ON points_transactions (expires_at)
		WHERE kind = 'earn' AND expires_at IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_points_transactions_source_ref
		ON points_transactions (source_ref)
		WHERE kind = 'expire'`,
	`CREATE TABLE IF NOT EXISTS balances (
		member_id       UUID PRIMARY KEY,
		current_balance BIGINT NOT NULL DEFAULT 0 CHECK (current_balance >= 0),
		version         BIGINT NOT NULL DEFAULT 0,
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}
