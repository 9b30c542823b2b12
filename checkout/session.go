package checkout

import (
	"sync"
	"time"

	"odonto-backend/backendapi"
	"odonto-backend/coupons"

	"github.com/google/uuid"
)

// Step é o passo atual do wizard. Só avança pelos portões do Controller;
// voltar é sempre permitido e não apaga nada já provisionado.
type Step int

const (
	StepPlan     Step = 1 // seleção de plano
	StepPersonal Step = 2 // dados pessoais/endereço
	StepPayment  Step = 3 // pagamento
	StepSuccess  Step = 4 // terminal
)

func (s Step) String() string {
	switch s {
	case StepPlan:
		return "plano"
	case StepPersonal:
		return "dados"
	case StepPayment:
		return "pagamento"
	case StepSuccess:
		return "sucesso"
	}
	return "desconhecido"
}

// Phase do acompanhamento de pagamento.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhasePolling   Phase = "polling"
	PhaseConfirmed Phase = "confirmed"
	PhaseTimedOut  Phase = "timed_out"
	PhaseFailed    Phase = "failed"
)

// PaymentState é o que o front renderiza enquanto um pagamento pendente se
// resolve. A fase só anda para frente: polling -> confirmed | timed_out | failed.
type PaymentState struct {
	Phase     Phase  `json:"fase"`
	PaymentID string `json:"pagamento_id,omitempty"`
	Attempt   int    `json:"tentativa,omitempty"`
	Message   string `json:"mensagem,omitempty"`
}

// Session é o estado em memória de uma instância do wizard. Criada quando o
// front monta o checkout, descartada no teardown ou por inatividade. Nada
// dela é persistido.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time

	mu       sync.Mutex
	lastSeen time.Time

	Step     Step
	Catalog  []backendapi.Plan // buscado uma vez na criação, imutável
	Plan     *backendapi.Plan
	Pricing  *coupons.Engine
	Personal *PersonalData
	Customer *backendapi.CustomerIDs // setado no máximo uma vez

	// guardas de operação única (uma por efeito colateral)
	provisioning bool
	submitting   bool

	payment PaymentState
	poller  *Poller
}

func newSession(catalog []backendapi.Plan, pricing *coupons.Engine) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.New(),
		CreatedAt: now,
		lastSeen:  now,
		Step:      StepPlan,
		Catalog:   catalog,
		Pricing:   pricing,
		payment:   PaymentState{Phase: PhaseIdle},
	}
}

func (s *Session) touch() {
	s.lastSeen = time.Now()
}

// Summary é a visão da sessão devolvida ao front a cada chamada.
type Summary struct {
	SessionID string            `json:"session_id"`
	Step      int               `json:"etapa"`
	StepName  string            `json:"etapa_nome"`
	Plan      *backendapi.Plan  `json:"plano,omitempty"`
	Coupon    string            `json:"cupom,omitempty"`
	Percent   string            `json:"desconto_percentual"`
	Discount  string            `json:"desconto"`
	Total     string            `json:"total"`
	Payment   PaymentState      `json:"pagamento"`
	Catalog   []backendapi.Plan `json:"planos,omitempty"`
}

// snapshot monta o Summary sob o lock da sessão.
func (s *Session) snapshot(withCatalog bool) Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := Summary{
		SessionID: s.ID.String(),
		Step:      int(s.Step),
		StepName:  s.Step.String(),
		Plan:      s.Plan,
		Percent:   s.Pricing.Percent().String(),
		Discount:  s.Pricing.Discount().String(),
		Total:     s.Pricing.Total().String(),
		Payment:   s.payment,
	}
	if c := s.Pricing.Coupon(); c != nil {
		out.Coupon = c.Name
	}
	if withCatalog {
		out.Catalog = s.Catalog
	}
	return out
}
