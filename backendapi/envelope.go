package backendapi

import (
	"encoding/json"
	"errors"
)

// The backend wraps payloads inconsistently: sometimes {data:...}, sometimes
// {data:{data:...}}, sometimes the bare payload. Nobody documented which is
// canonical, so every decoder probes the known shapes in a fixed order and
// fails loudly when none of them fits, instead of ||-chaining fields and
// silently masking contract drift.

var errEnvelope = errors.New("resposta do backend em formato inesperado")

// envelopeCandidates returns the payload at each known nesting depth,
// innermost first (data.data, data, bare). At most two data levels have ever
// been observed.
func envelopeCandidates(raw []byte) []json.RawMessage {
	levels := []json.RawMessage{json.RawMessage(raw)}
	cur := json.RawMessage(raw)
	for i := 0; i < 2; i++ {
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(cur, &env); err != nil || len(env.Data) == 0 {
			break
		}
		levels = append(levels, env.Data)
		cur = env.Data
	}
	// invert: deepest candidate is probed first
	out := make([]json.RawMessage, 0, len(levels))
	for i := len(levels) - 1; i >= 0; i-- {
		out = append(out, levels[i])
	}
	return out
}

// decodeEnvelope feeds each candidate to try until one is accepted. try must
// decode into fresh values on every call so a rejected probe leaves nothing
// behind.
func decodeEnvelope(raw []byte, try func(cand json.RawMessage) bool) error {
	for _, cand := range envelopeCandidates(raw) {
		if try(cand) {
			return nil
		}
	}
	return errEnvelope
}
