package ports

import (
	"context"

	"github.com/kirillkom/code-context-engine/internal/core/domain"
)

// ContextBuilder is the inbound contract for query -> context packet orchestration.
type ContextBuilder interface {
	BuildContext(ctx context.Context, query string, opts domain.QueryOptions) (*domain.ContextPacket, error)
}

// PacketReader is the inbound read model for archived context packets.
type PacketReader interface {
	GetByID(ctx context.Context, id string) (*domain.ContextPacket, error)
	Last(ctx context.Context) (*domain.ContextPacket, error)
}

// PacketArchiver is the inbound contract for asynchronous packet archiving.
type PacketArchiver interface {
	ArchivePacket(ctx context.Context, packet *domain.ContextPacket) error
}
