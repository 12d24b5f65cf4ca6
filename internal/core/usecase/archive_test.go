package usecase

import (
	"context"
	"testing"

	"github.com/kirillkom/code-context-engine/internal/core/domain"
)

type fakePacketArchive struct {
	packets map[string]*domain.ContextPacket
	last    *domain.ContextPacket
}

func (f *fakePacketArchive) Save(_ context.Context, packet *domain.ContextPacket) error {
	if f.packets == nil {
		f.packets = map[string]*domain.ContextPacket{}
	}
	f.packets[packet.ID] = packet
	f.last = packet
	return nil
}

func (f *fakePacketArchive) GetByID(_ context.Context, id string) (*domain.ContextPacket, error) {
	packet, ok := f.packets[id]
	if !ok {
		return nil, domain.ErrPacketNotFound
	}
	return packet, nil
}

func (f *fakePacketArchive) Last(context.Context) (*domain.ContextPacket, error) {
	if f.last == nil {
		return nil, domain.ErrPacketNotFound
	}
	return f.last, nil
}

func TestPacketArchiveUseCase(t *testing.T) {
	archive := &fakePacketArchive{}
	uc := NewPacketArchiveUseCase(archive)

	if err := uc.ArchivePacket(context.Background(), &domain.ContextPacket{}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for packet without id, got %v", err)
	}
	if err := uc.PublishPacketAssembled(context.Background(), &domain.ContextPacket{ID: "p1", Status: domain.PacketStatusSuccess}); err != nil {
		t.Fatalf("PublishPacketAssembled() error = %v", err)
	}

	got, err := uc.GetByID(context.Background(), "p1")
	if err != nil || got.ID != "p1" {
		t.Fatalf("GetByID() = %v, %v", got, err)
	}
	last, err := uc.Last(context.Background())
	if err != nil || last.ID != "p1" {
		t.Fatalf("Last() = %v, %v", last, err)
	}
	if _, err := uc.GetByID(context.Background(), ""); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty id, got %v", err)
	}
}
