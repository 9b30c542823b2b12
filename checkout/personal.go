package checkout

import (
	"strings"

	"odonto-backend/backendapi"
)

// PersonalData são os campos do passo 2. Tudo obrigatório; o telefone é
// normalizado antes da validação.
type PersonalData struct {
	Name            string `json:"nome"`
	Email           string `json:"email"`
	CPF             string `json:"cpf"`
	Phone           string `json:"telefone"`
	Password        string `json:"senha"`
	PasswordConfirm string `json:"confirmacao_senha"`
	PostalCode      string `json:"cep"`
	Street          string `json:"endereco"`
	AddressNumber   string `json:"numero"`
	Neighborhood    string `json:"bairro"`
	City            string `json:"cidade"`
	State           string `json:"estado"`
}

// NormalizePhone keeps digits only and prefixes the country code 55 when
// absent. A valid result has 12 or 13 digits (55 + DDD + 8/9 digit number).
func NormalizePhone(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return "", false
	}
	if !strings.HasPrefix(digits, "55") || len(digits) < 12 {
		digits = "55" + digits
	}
	if len(digits) < 12 || len(digits) > 13 {
		return "", false
	}
	return digits, true
}

// validate checks every field, normalizes the phone in place and returns the
// first problem found. Never touches the network.
func (p *PersonalData) validate() error {
	required := []struct{ value, label string }{
		{p.Name, "nome"},
		{p.Email, "email"},
		{p.CPF, "cpf"},
		{p.Phone, "telefone"},
		{p.Password, "senha"},
		{p.PostalCode, "cep"},
		{p.Street, "endereço"},
		{p.AddressNumber, "número"},
		{p.Neighborhood, "bairro"},
		{p.City, "cidade"},
		{p.State, "estado"},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return ValidationError("preencha o campo " + f.label)
		}
	}
	if !strings.Contains(p.Email, "@") {
		return ValidationError("email inválido")
	}
	phone, ok := NormalizePhone(p.Phone)
	if !ok {
		return ValidationError("telefone inválido")
	}
	p.Phone = phone
	if len(p.Password) < 6 {
		return ValidationError("a senha precisa de pelo menos 6 caracteres")
	}
	if p.Password != p.PasswordConfirm {
		return ValidationError("a confirmação de senha não confere")
	}
	return nil
}

func (p *PersonalData) customerRequest() backendapi.CustomerRequest {
	return backendapi.CustomerRequest{
		Name:          p.Name,
		Email:         p.Email,
		CPF:           p.CPF,
		Phone:         p.Phone,
		Password:      p.Password,
		PostalCode:    p.PostalCode,
		Street:        p.Street,
		AddressNumber: p.AddressNumber,
		Neighborhood:  p.Neighborhood,
		City:          p.City,
		State:         p.State,
	}
}

func (p *PersonalData) holderInfo() backendapi.HolderInfo {
	return backendapi.HolderInfo{
		Name:          p.Name,
		Email:         p.Email,
		CPF:           p.CPF,
		PostalCode:    p.PostalCode,
		AddressNumber: p.AddressNumber,
		Phone:         p.Phone,
	}
}
