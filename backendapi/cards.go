package backendapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// CardFields são os dados crus do cartão. Nunca ficam na sessão: viram um
// token de uso único no gateway e são descartados.
type CardFields struct {
	HolderName  string `json:"holderName"`
	Number      string `json:"number"`
	ExpiryMonth string `json:"expiryMonth"`
	ExpiryYear  string `json:"expiryYear"` // 2 dígitos
	CVV         string `json:"ccv"`
}

// HolderInfo é o titular/cobrança exigido pelo gateway junto do cartão.
type HolderInfo struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	CPF           string `json:"cpfCnpj"`
	PostalCode    string `json:"postalCode"`
	AddressNumber string `json:"addressNumber"`
	Phone         string `json:"phone"`
}

type tokenizeRequest struct {
	Customer   string     `json:"customer"`
	CreditCard CardFields `json:"creditCard"`
	Holder     HolderInfo `json:"creditCardHolderInfo"`
}

// TokenizeCard exchanges raw card fields for a single-use gateway token via
// the Asaas proxy. Requires a provisioned gateway customer id.
func (c *Client) TokenizeCard(ctx context.Context, gatewayCustomerID string, card CardFields, holder HolderInfo) (string, error) {
	raw, status, err := c.postJSON(ctx, "/asaas-proxy/creditCard/tokenizeCreditCard", tokenizeRequest{
		Customer:   gatewayCustomerID,
		CreditCard: card,
		Holder:     holder,
	})
	if err != nil {
		return "", err
	}
	if status >= 400 {
		return "", &APIError{HTTPStatus: status, Message: SanitizeGatewayMessage(errorMessage(raw))}
	}
	var token string
	err = decodeEnvelope(raw, func(cand json.RawMessage) bool {
		var got struct {
			CreditCardToken string `json:"creditCardToken"`
		}
		if json.Unmarshal(cand, &got) != nil || got.CreditCardToken == "" {
			return false
		}
		token = got.CreditCardToken
		return true
	})
	if err != nil {
		return "", fmt.Errorf("tokenização: %w", err)
	}
	return token, nil
}

// Internal tokenization-layer phrasing that must not reach the user. Checked
// case-insensitively against the start of the gateway message.
var gatewayNoise = []string{
	"tokenization failed:",
	"tokenizecreditcard:",
	"erro ao tokenizar cartão:",
	"falha na tokenização:",
	"asaas-proxy:",
}

// SanitizeGatewayMessage strips gateway-internal prefixes before a message is
// shown to the buyer. Applied repeatedly, since the proxy sometimes stacks
// two layers of phrasing.
func SanitizeGatewayMessage(msg string) string {
	out := strings.TrimSpace(msg)
	for again := true; again; {
		again = false
		lower := strings.ToLower(out)
		for _, p := range gatewayNoise {
			if strings.HasPrefix(lower, p) {
				out = strings.TrimSpace(out[len(p):])
				again = true
				break
			}
		}
	}
	if out == "" {
		return "não foi possível processar o cartão"
	}
	return out
}
