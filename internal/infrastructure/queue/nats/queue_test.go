package nats

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/code-context-engine/internal/core/domain"
)

func TestPacketCodecRoundTripKeepsDiagnostics(t *testing.T) {
	packet := &domain.ContextPacket{
		ID:          "pkt-9",
		Status:      domain.PacketStatusSuccess,
		Query:       "q",
		Diagnostics: domain.PacketDiagnostics{FinalK: 5, ScoringDegraded: true},
		CreatedAt:   time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC),
	}
	data, err := encodePacket(packet)
	if err != nil {
		t.Fatalf("encodePacket() error = %v", err)
	}
	got, err := decodePacket(data)
	if err != nil {
		t.Fatalf("decodePacket() error = %v", err)
	}
	if got.ID != packet.ID || got.Diagnostics != packet.Diagnostics || !got.CreatedAt.Equal(packet.CreatedAt) {
		t.Fatalf("unexpected decoded packet %+v", got)
	}
}

func TestPacketCodecRejectsMissingID(t *testing.T) {
	if _, err := encodePacket(&domain.ContextPacket{}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := decodePacket([]byte(`{"status":"success"}`)); err == nil {
		t.Fatalf("expected error for packet without id")
	}
	if _, err := decodePacket([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for invalid json")
	}
}

func TestClassifyNATSError(t *testing.T) {
	if c := classifyNATSError(fmt.Errorf("publish: %w", nats.ErrConnectionClosed)); !c.Retryable {
		t.Fatalf("expected closed connection to be retryable")
	}
	if c := classifyNATSError(context.Canceled); c.Retryable || c.RecordFailure {
		t.Fatalf("expected cancellation to be ignored, got %+v", c)
	}
	if c := classifyNATSError(errors.New("bad subject")); c.Retryable || !c.RecordFailure {
		t.Fatalf("unexpected classification %+v", c)
	}
}
