package backendapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
)

// Coupon é um desconto percentual nomeado. Só cupons com ativo=true valem.
type Coupon struct {
	Name          string          `json:"nome"`
	DiscountValue decimal.Decimal `json:"valor_desconto"`
	Active        bool            `json:"ativo"`
}

var ErrCouponNotFound = errors.New("cupom não encontrado")

// GetCouponByName fetches GET /cupons/name/{code}. A 404 maps to
// ErrCouponNotFound; the caller decides what an inactive coupon means.
func (c *Client) GetCouponByName(ctx context.Context, code string) (*Coupon, error) {
	raw, status, err := c.get(ctx, "/cupons/name/"+url.PathEscape(code))
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, ErrCouponNotFound
	}
	if status >= 400 {
		return nil, &APIError{HTTPStatus: status, Message: errorMessage(raw)}
	}
	var coupon Coupon
	err = decodeEnvelope(raw, func(cand json.RawMessage) bool {
		var got Coupon
		if json.Unmarshal(cand, &got) != nil || got.Name == "" {
			return false
		}
		coupon = got
		return true
	})
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}
