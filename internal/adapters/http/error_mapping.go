package httpadapter

import (
	"net/http"

	"github.com/kirillkom/code-context-engine/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrPacketNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary), domain.IsKind(err, domain.ErrRetrievalFailed):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrDimensionMismatch), domain.IsKind(err, domain.ErrCandidateContract):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func statusForPacket(packet *domain.ContextPacket) int {
	if packet != nil && packet.Status == domain.PacketStatusError {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}
