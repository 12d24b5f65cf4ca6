package qdrant

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kirillkom/code-context-engine/internal/core/domain"
)

func candidateFromPayload(id string, payload map[string]any, vector []float32) domain.Candidate {
	if payloadID := firstString(payload, "chunk_id", "id"); payloadID != "" {
		id = payloadID
	}
	start, end := lineRange(payload)
	return domain.Candidate{
		ID:   id,
		Text: firstString(payload, "text", "chunk_text", "content"),
		Location: domain.SourceLocation{
			File:      firstString(payload, "file_path", "file", "path", "filename"),
			StartLine: start,
			EndLine:   end,
		},
		Language: firstString(payload, "language", "lang"),
		Vector:   vector,
	}
}

// lineRange accepts line_start/line_end numbers or a "12-48" lines string.
// Anything unparsable is the unknown range 0-0.
func lineRange(payload map[string]any) (int, int) {
	start, okStart := intPayload(payload, "line_start", "start_line")
	end, okEnd := intPayload(payload, "line_end", "end_line")
	if okStart && okEnd && start > 0 && end >= start {
		return start, end
	}

	raw := firstString(payload, "lines", "line_range")
	a, b, found := strings.Cut(raw, "-")
	if !found {
		return 0, 0
	}
	start, errA := strconv.Atoi(strings.TrimSpace(a))
	end, errB := strconv.Atoi(strings.TrimSpace(b))
	if errA != nil || errB != nil || start <= 0 || end < start {
		return 0, 0
	}
	return start, end
}

func decodeVector(raw json.RawMessage, name string) ([]float32, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var plain []float32
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain, nil
	}
	var named map[string][]float32
	if err := json.Unmarshal(raw, &named); err != nil {
		return nil, fmt.Errorf("decode vector: %w", err)
	}
	if name != "" {
		return named[name], nil
	}
	if len(named) == 1 {
		for _, v := range named {
			return v, nil
		}
	}
	return nil, fmt.Errorf("decode vector: %d named vectors and no vector name configured", len(named))
}

func pointID(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func firstString(payload map[string]any, keys ...string) string {
	for _, key := range keys {
		v, ok := payload[key]
		if !ok || v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			s = fmt.Sprintf("%v", v)
		}
		if s != "" {
			return s
		}
	}
	return ""
}

func intPayload(payload map[string]any, keys ...string) (int, bool) {
	for _, key := range keys {
		switch v := payload[key].(type) {
		case float64:
			return int(v), true
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err == nil {
				return n, true
			}
		}
	}
	return 0, false
}
