package backendapi

import (
	"context"
	"encoding/json"
	"fmt"
)

// Payment statuses the backend reports. Nothing else has ever been observed.
const (
	PaymentPending   = "PENDING"
	PaymentConfirmed = "CONFIRMED"
)

// SubmitRequest é o corpo do POST /assinaturas/checkout: plano + token de
// cartão + cupom opcional, em nome do usuário provisionado.
type SubmitRequest struct {
	UserID     int64  `json:"userId"`
	PlanID     string `json:"planoId"`
	CardToken  string `json:"creditCardToken"`
	CouponName string `json:"cupom,omitempty"`
}

// PaymentInfo identifica a cobrança criada pelo checkout.
type PaymentInfo struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// SubmitResult is the decoded checkout response: the backend's innermost
// internal status code plus the payment record. Classification into
// confirmed/pending happens upstream, in the checkout package.
type SubmitResult struct {
	InternalStatus int
	Payment        PaymentInfo
}

// submitEnvelope is one level of the (up to two deep) checkout response:
// {statusCode, data:{statusCode, data:{pagamento:{...}, assinatura:{...}}}}.
type submitEnvelope struct {
	StatusCode *int            `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Pagamento  *PaymentInfo    `json:"pagamento"`
	Message    string          `json:"message"`
	Error      string          `json:"error"`
}

// SubmitSubscription posts the checkout. An internal status >= 400 is always
// a failure, whatever the transport status said.
func (c *Client) SubmitSubscription(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	raw, httpStatus, err := c.postJSON(ctx, "/assinaturas/checkout", req)
	if err != nil {
		return nil, err
	}

	res, msg, perr := parseSubmitResponse(raw)
	if perr != nil {
		if httpStatus >= 400 {
			return nil, &APIError{HTTPStatus: httpStatus, Message: errorMessage(raw)}
		}
		return nil, perr
	}
	if res.InternalStatus >= 400 {
		if msg == "" {
			msg = "assinatura recusada pelo servidor"
		}
		return nil, &APIError{HTTPStatus: httpStatus, InternalStatus: res.InternalStatus, Message: msg}
	}
	if httpStatus >= 400 {
		return nil, &APIError{HTTPStatus: httpStatus, InternalStatus: res.InternalStatus, Message: errorMessage(raw)}
	}
	return res, nil
}

// parseSubmitResponse walks every nesting level, keeping the innermost
// statusCode and payment record found.
func parseSubmitResponse(raw []byte) (*SubmitResult, string, error) {
	res := &SubmitResult{}
	var msg string
	found := false
	cur := json.RawMessage(raw)
	for depth := 0; depth < 3; depth++ {
		var env submitEnvelope
		if err := json.Unmarshal(cur, &env); err != nil {
			break
		}
		if env.StatusCode != nil {
			res.InternalStatus = *env.StatusCode
			found = true
		}
		if env.Pagamento != nil {
			res.Payment = *env.Pagamento
		}
		if env.Error != "" {
			msg = env.Error
		} else if env.Message != "" {
			msg = env.Message
		}
		if len(env.Data) == 0 {
			break
		}
		cur = env.Data
	}
	if !found {
		return nil, "", fmt.Errorf("checkout: %w", errEnvelope)
	}
	if res.InternalStatus < 400 && res.Payment.ID == "" {
		return nil, "", fmt.Errorf("checkout sem pagamento na resposta: %w", errEnvelope)
	}
	return res, msg, nil
}

// CheckPaymentStatus fetches GET /assinaturas/check-payment-status/{id}.
// Response is either {data:{pagamento:{status}}} (any depth) or {status}.
func (c *Client) CheckPaymentStatus(ctx context.Context, paymentID string) (string, error) {
	raw, httpStatus, err := c.get(ctx, "/assinaturas/check-payment-status/"+paymentID)
	if err != nil {
		return "", err
	}
	if httpStatus >= 400 {
		return "", &APIError{HTTPStatus: httpStatus, Message: errorMessage(raw)}
	}
	var status string
	err = decodeEnvelope(raw, func(cand json.RawMessage) bool {
		var got struct {
			Pagamento *PaymentInfo `json:"pagamento"`
			Status    string       `json:"status"`
		}
		if json.Unmarshal(cand, &got) != nil {
			return false
		}
		if got.Pagamento != nil && got.Pagamento.Status != "" {
			status = got.Pagamento.Status
			return true
		}
		if got.Status != "" {
			status = got.Status
			return true
		}
		return false
	})
	if err != nil {
		return "", fmt.Errorf("status do pagamento: %w", err)
	}
	return status, nil
}
