package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrWrongStep      = errors.New("etapa inválida para esta operação")
	ErrInFlight       = errors.New("operação já em andamento, aguarde")
	ErrNotProvisioned = errors.New("cliente do gateway não provisionado")
	ErrSessionGone    = errors.New("sessão de checkout não encontrada")
	ErrPlanUnknown    = errors.New("plano não encontrado")
)

// ValidationError blocks a step advance before any network call happens.
type ValidationError string

func (v ValidationError) Error() string { return string(v) }

// UnexpectedStateError é a combinação de status que não está no conjunto
// conhecido (200/CONFIRMED, 202/PENDING). Carrega os dois códigos para
// diagnóstico.
type UnexpectedStateError struct {
	InternalStatus int
	PaymentStatus  string
}

func (e *UnexpectedStateError) Error() string {
	return fmt.Sprintf("estado inesperado do checkout (interno=%d, pagamento=%q)", e.InternalStatus, e.PaymentStatus)
}
