package memory

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kirillkom/code-context-engine/internal/core/domain"
)

const defaultCapacity = 256

// PacketStore keeps the most recent packets in process memory. It backs the
// archive when no database is configured.
type PacketStore struct {
	cache *lru.Cache[string, *domain.ContextPacket]

	mu     sync.RWMutex
	lastID string
}

func NewPacketStore(capacity int) *PacketStore {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	cache, err := lru.New[string, *domain.ContextPacket](capacity)
	if err != nil {
		cache, _ = lru.New[string, *domain.ContextPacket](defaultCapacity)
	}
	return &PacketStore{cache: cache}
}

func (s *PacketStore) Save(_ context.Context, packet *domain.ContextPacket) error {
	stored := *packet
	s.cache.Add(packet.ID, &stored)
	s.mu.Lock()
	s.lastID = packet.ID
	s.mu.Unlock()
	return nil
}

func (s *PacketStore) GetByID(_ context.Context, id string) (*domain.ContextPacket, error) {
	packet, ok := s.cache.Get(id)
	if !ok {
		return nil, domain.WrapError(domain.ErrPacketNotFound, "get context packet", fmt.Errorf("packet %s", id))
	}
	out := *packet
	return &out, nil
}

func (s *PacketStore) Last(ctx context.Context) (*domain.ContextPacket, error) {
	s.mu.RLock()
	id := s.lastID
	s.mu.RUnlock()
	if id == "" {
		return nil, domain.WrapError(domain.ErrPacketNotFound, "get last context packet", fmt.Errorf("archive is empty"))
	}
	return s.GetByID(ctx, id)
}

func (s *PacketStore) Len() int {
	return s.cache.Len()
}
