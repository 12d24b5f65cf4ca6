package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kirillkom/code-context-engine/internal/core/domain"
)

const schemaLockID int64 = 2026101601

type PacketRepository struct {
	db *sql.DB
}

func NewPacketRepository(db *sql.DB) *PacketRepository {
	return &PacketRepository{db: db}
}

func (r *PacketRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS context_packets (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	query TEXT NOT NULL,
	chunks_used INTEGER NOT NULL DEFAULT 0,
	tokens_context INTEGER NOT NULL DEFAULT 0,
	scoring_degraded BOOLEAN NOT NULL DEFAULT FALSE,
	packet JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_context_packets_created_at ON context_packets(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_context_packets_status ON context_packets(status);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Save is idempotent on packet id so redelivered events do not fail.
func (r *PacketRepository) Save(ctx context.Context, packet *domain.ContextPacket) error {
	raw, err := json.Marshal(packet)
	if err != nil {
		return fmt.Errorf("marshal packet: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO context_packets (
	id, status, query, chunks_used, tokens_context, scoring_degraded, packet, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO NOTHING
`,
		packet.ID, string(packet.Status), packet.Query, packet.ChunksUsed, packet.TokensContext,
		packet.Diagnostics.ScoringDegraded, raw, packet.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert context packet: %w", err)
	}
	return nil
}

func (r *PacketRepository) GetByID(ctx context.Context, id string) (*domain.ContextPacket, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT packet
FROM context_packets
WHERE id = $1
`, id)
	return scanPacket(row, id)
}

func (r *PacketRepository) Last(ctx context.Context) (*domain.ContextPacket, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT packet
FROM context_packets
ORDER BY created_at DESC
LIMIT 1
`)
	return scanPacket(row, "last")
}

func scanPacket(row *sql.Row, ref string) (*domain.ContextPacket, error) {
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrPacketNotFound, "get context packet", fmt.Errorf("packet %s", ref))
		}
		return nil, fmt.Errorf("scan context packet: %w", err)
	}

	var packet domain.ContextPacket
	if err := json.Unmarshal(raw, &packet); err != nil {
		return nil, fmt.Errorf("unmarshal context packet: %w", err)
	}
	return &packet, nil
}
