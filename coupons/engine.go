package coupons

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"odonto-backend/backendapi"

	"github.com/shopspring/decimal"
)

// Lookup é implementado por backendapi.Client.
type Lookup interface {
	GetCouponByName(ctx context.Context, code string) (*backendapi.Coupon, error)
}

var (
	ErrNotFound = errors.New("cupom não encontrado")
	ErrInactive = errors.New("cupom inativo")
	ErrEmpty    = errors.New("informe o código do cupom")
)

var hundred = decimal.NewFromInt(100)

// Engine mantém o preço da sessão de checkout: plano selecionado, cupom
// aplicado e percentual de desconto. Uma instância por sessão; a
// sincronização fica por conta do dono da sessão.
//
// Invariantes: 0 <= percentual <= 100; desconto = preco * percentual / 100
// sem arredondamento; total = max(0, preco - desconto).
type Engine struct {
	lookup  Lookup
	plan    *backendapi.Plan
	coupon  *backendapi.Coupon
	percent decimal.Decimal
}

func NewEngine(lookup Lookup) *Engine {
	return &Engine{lookup: lookup, percent: decimal.Zero}
}

// SetPlan troca o plano selecionado. O percentual de um cupom já aplicado é
// mantido e o desconto monetário passa a ser calculado sobre o novo preço.
func (e *Engine) SetPlan(p *backendapi.Plan) {
	e.plan = p
}

// Apply resolves a coupon code to a percentage discount. The code is trimmed
// and upper-cased before the backend lookup. Only active coupons apply; an
// inactive or unknown code leaves the current pricing untouched.
func (e *Engine) Apply(ctx context.Context, code string) (*backendapi.Coupon, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrEmpty
	}
	coupon, err := e.lookup.GetCouponByName(ctx, code)
	if err != nil {
		if errors.Is(err, backendapi.ErrCouponNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !coupon.Active {
		return nil, ErrInactive
	}
	if coupon.DiscountValue.IsNegative() || coupon.DiscountValue.GreaterThan(hundred) {
		return nil, fmt.Errorf("cupom %s com desconto fora de faixa: %s", coupon.Name, coupon.DiscountValue)
	}
	e.coupon = coupon
	e.percent = coupon.DiscountValue
	log.Printf("[CUPOM][apply] nome=%s percentual=%s", coupon.Name, e.percent)
	return coupon, nil
}

// Remove clears the coupon and resets the discount to zero, restoring the
// undiscounted total exactly.
func (e *Engine) Remove() {
	if e.coupon != nil {
		log.Printf("[CUPOM][remove] nome=%s", e.coupon.Name)
	}
	e.coupon = nil
	e.percent = decimal.Zero
}

func (e *Engine) Coupon() *backendapi.Coupon { return e.coupon }

func (e *Engine) Percent() decimal.Decimal { return e.percent }

func (e *Engine) Price() decimal.Decimal {
	if e.plan == nil {
		return decimal.Zero
	}
	return e.plan.Price
}

// Discount é o valor monetário do desconto sobre o plano atual. Sem plano
// selecionado o percentual fica retido e o valor é zero.
func (e *Engine) Discount() decimal.Decimal {
	if e.plan == nil {
		return decimal.Zero
	}
	// Shift(-2) divide por 100 sem arredondar.
	return e.plan.Price.Mul(e.percent).Shift(-2)
}

// Total nunca fica negativo, mesmo com desconto de 100%.
func (e *Engine) Total() decimal.Decimal {
	total := e.Price().Sub(e.Discount())
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}
