package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/code-context-engine/internal/core/domain"
	"github.com/kirillkom/code-context-engine/internal/core/ports"
)

// PacketArchiveUseCase stores assembled packets and serves them back.
type PacketArchiveUseCase struct {
	archive ports.PacketArchive
}

func NewPacketArchiveUseCase(archive ports.PacketArchive) *PacketArchiveUseCase {
	return &PacketArchiveUseCase{archive: archive}
}

func (uc *PacketArchiveUseCase) ArchivePacket(ctx context.Context, packet *domain.ContextPacket) error {
	if packet == nil || packet.ID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "archive packet", fmt.Errorf("packet id is required"))
	}
	if err := uc.archive.Save(ctx, packet); err != nil {
		return fmt.Errorf("archive packet %s: %w", packet.ID, err)
	}
	return nil
}

// PublishPacketAssembled archives synchronously when no message queue is configured.
func (uc *PacketArchiveUseCase) PublishPacketAssembled(ctx context.Context, packet *domain.ContextPacket) error {
	return uc.ArchivePacket(ctx, packet)
}

func (uc *PacketArchiveUseCase) GetByID(ctx context.Context, id string) (*domain.ContextPacket, error) {
	if id == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get packet", fmt.Errorf("packet id is required"))
	}
	return uc.archive.GetByID(ctx, id)
}

func (uc *PacketArchiveUseCase) Last(ctx context.Context) (*domain.ContextPacket, error) {
	return uc.archive.Last(ctx)
}
