package backendapi

import (
	"context"
	"encoding/json"
)

// CustomerRequest são os dados pessoais/endereço enviados para provisionar o
// cliente no gateway. O telefone já chega normalizado (só dígitos, DDI 55).
type CustomerRequest struct {
	Name          string `json:"nome"`
	Email         string `json:"email"`
	CPF           string `json:"cpf"`
	Phone         string `json:"telefone"`
	Password      string `json:"senha"`
	PostalCode    string `json:"cep"`
	Street        string `json:"endereco"`
	AddressNumber string `json:"numero"`
	Neighborhood  string `json:"bairro"`
	City          string `json:"cidade"`
	State         string `json:"estado"`
}

// CustomerIDs is what the backend returns after creating the gateway-side
// customer. Both identifiers are cached for the rest of the session.
type CustomerIDs struct {
	GatewayCustomerID string `json:"asaasCustomerId"`
	UserID            int64  `json:"userId"`
}

// CreateCustomer posts /assinaturas/customer. The payload has been seen bare,
// under data and under data.data.
func (c *Client) CreateCustomer(ctx context.Context, req CustomerRequest) (*CustomerIDs, error) {
	raw, status, err := c.postJSON(ctx, "/assinaturas/customer", req)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, &APIError{HTTPStatus: status, Message: errorMessage(raw)}
	}
	var ids CustomerIDs
	err = decodeEnvelope(raw, func(cand json.RawMessage) bool {
		var got CustomerIDs
		if json.Unmarshal(cand, &got) != nil {
			return false
		}
		if got.GatewayCustomerID == "" || got.UserID == 0 {
			return false
		}
		ids = got
		return true
	})
	if err != nil {
		return nil, err
	}
	return &ids, nil
}
