package checkout

import (
	"context"
	"log"
	"time"

	"odonto-backend/notify"
)

// Controller sequencia o wizard de 3 passos: plano → dados pessoais →
// pagamento. Toda transição para frente passa por validação; voltar é
// sempre permitido e nunca limpa identificadores já provisionados.
type Controller struct {
	api      BackendAPI
	notifier notify.Notifier

	// ajustáveis em teste; produção usa os defaults do poller
	PollInterval time.Duration
	PollAttempts int
}

func NewController(api BackendAPI, notifier notify.Notifier) *Controller {
	if notifier == nil {
		notifier = notify.Log{}
	}
	return &Controller{
		api:          api,
		notifier:     notifier,
		PollInterval: DefaultPollInterval,
		PollAttempts: DefaultPollAttempts,
	}
}

// SelectPlan escolhe um plano do catálogo da sessão e avança para o passo 2.
// Pode ser chamado de novo depois de um "voltar": o desconto percentual de um
// cupom já aplicado é recalculado sobre o novo preço.
func (ct *Controller) SelectPlan(s *Session, planID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if s.Step != StepPlan {
		return ErrWrongStep
	}
	for i := range s.Catalog {
		if s.Catalog[i].ID == planID {
			s.Plan = &s.Catalog[i]
			s.Pricing.SetPlan(s.Plan)
			s.Step = StepPersonal
			log.Printf("[CHECKOUT][plano] sessao=%s plano=%s", s.ID, planID)
			return nil
		}
	}
	return ErrPlanUnknown
}

// ApplyCoupon pode rodar em qualquer passo antes do sucesso.
func (ct *Controller) ApplyCoupon(ctx context.Context, s *Session, code string) error {
	// o lock da sessão segura o lookup inteiro: dois cliques em "aplicar"
	// viram duas chamadas em série, nunca uma corrida no Engine
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Step == StepSuccess {
		return ErrWrongStep
	}
	s.touch()
	_, err := s.Pricing.Apply(ctx, code)
	return err
}

func (ct *Controller) RemoveCoupon(s *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.Pricing.Remove()
}

// Back recua um passo (3→2, 2→1). Identificadores de cliente e o cupom
// aplicado ficam intactos; reentrar no passo 2 não reprovisiona.
func (ct *Controller) Back(s *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	switch s.Step {
	case StepPersonal:
		s.Step = StepPlan
	case StepPayment:
		s.Step = StepPersonal
	default:
		return ErrWrongStep
	}
	return nil
}

// State devolve o estado de pagamento corrente.
func (ct *Controller) State(s *Session) PaymentState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payment
}

// Teardown cancela qualquer polling agendado e solta o poller. Chamado no
// DELETE da sessão e no GC por inatividade.
func (ct *Controller) Teardown(s *Session) {
	s.mu.Lock()
	p := s.poller
	s.poller = nil
	s.mu.Unlock()
	if p != nil {
		p.Cancel()
	}
}
