package backendapi

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Plan é o plano de assinatura exibido no passo 1 do checkout. Imutável
// depois de buscado para uma sessão.
type Plan struct {
	ID          string           `json:"id"`
	Name        string           `json:"nome"`
	Price       decimal.Decimal  `json:"preco"`
	OldPrice    *decimal.Decimal `json:"preco_antigo,omitempty"`
	Features    []string         `json:"recursos,omitempty"`
	Description string           `json:"descricao,omitempty"`
}

// ListPlans fetches GET /planos. The list comes back bare or under data.
func (c *Client) ListPlans(ctx context.Context) ([]Plan, error) {
	raw, status, err := c.get(ctx, "/planos")
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, &APIError{HTTPStatus: status, Message: errorMessage(raw)}
	}
	var plans []Plan
	err = decodeEnvelope(raw, func(cand json.RawMessage) bool {
		var got []Plan
		if json.Unmarshal(cand, &got) != nil || got == nil {
			return false
		}
		plans = got
		return true
	})
	if err != nil {
		return nil, err
	}
	return plans, nil
}
