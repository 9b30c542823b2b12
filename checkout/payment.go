package checkout

import (
	"context"
	"log"
	"strconv"
	"strings"

	"odonto-backend/backendapi"
	"odonto-backend/notify"
)

// CardInput são os campos do passo 3. Viram um token de uso único e nunca
// ficam na sessão.
type CardInput struct {
	HolderName  string `json:"titular"`
	Number      string `json:"numero"`
	ExpiryMonth string `json:"mes"`
	ExpiryYear  string `json:"ano"` // 2 dígitos
	CVV         string `json:"cvv"`
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (c *CardInput) validate() error {
	if strings.TrimSpace(c.HolderName) == "" {
		return ValidationError("informe o nome impresso no cartão")
	}
	c.Number = onlyDigits(c.Number)
	if len(c.Number) < 13 || len(c.Number) > 19 {
		return ValidationError("número de cartão inválido")
	}
	month, err := strconv.Atoi(c.ExpiryMonth)
	if err != nil || month < 1 || month > 12 {
		return ValidationError("mês de validade inválido")
	}
	if len(onlyDigits(c.ExpiryYear)) != 2 {
		return ValidationError("ano de validade deve ter 2 dígitos")
	}
	cvv := onlyDigits(c.CVV)
	if len(cvv) < 3 || len(cvv) > 4 {
		return ValidationError("cvv inválido")
	}
	return nil
}

func (c *CardInput) fields() backendapi.CardFields {
	return backendapi.CardFields{
		HolderName:  c.HolderName,
		Number:      c.Number,
		ExpiryMonth: c.ExpiryMonth,
		ExpiryYear:  c.ExpiryYear,
		CVV:         c.CVV,
	}
}

// Outcome do submit, como visto pelo front.
const (
	OutcomeConfirmed = "confirmed"
	OutcomePending   = "pending"
)

// classifySubmit aplica a regra de classificação da resposta do checkout:
// 200+CONFIRMED confirma na hora, 202+PENDING vai para polling, qualquer
// outra combinação é estado inesperado.
func classifySubmit(res *backendapi.SubmitResult) (string, error) {
	switch {
	case res.InternalStatus == 200 && res.Payment.Status == backendapi.PaymentConfirmed:
		return OutcomeConfirmed, nil
	case res.InternalStatus == 202 && res.Payment.Status == backendapi.PaymentPending:
		return OutcomePending, nil
	default:
		return "", &UnexpectedStateError{
			InternalStatus: res.InternalStatus,
			PaymentStatus:  res.Payment.Status,
		}
	}
}

// SubmitPayment roda tokenização → submissão em sequência. Cada tentativa
// tokeniza de novo: o token é artefato de uso único do gateway e uma
// submissão falha o descarta de propósito, nunca o reaproveita.
func (ct *Controller) SubmitPayment(ctx context.Context, s *Session, card CardInput) (string, error) {
	s.mu.Lock()
	s.touch()
	if s.Step != StepPayment {
		s.mu.Unlock()
		return "", ErrWrongStep
	}
	if s.Customer == nil {
		// violação de contrato de programação: o passo 2 tem que ter rodado
		s.mu.Unlock()
		return "", ErrNotProvisioned
	}
	if s.payment.Phase == PhasePolling {
		s.mu.Unlock()
		return "", ErrInFlight
	}
	if err := card.validate(); err != nil {
		s.mu.Unlock()
		return "", err
	}
	if s.submitting {
		s.mu.Unlock()
		return "", ErrInFlight
	}
	s.submitting = true
	customer := *s.Customer
	holder := s.Personal.holderInfo()
	planID := s.Plan.ID
	couponName := ""
	if c := s.Pricing.Coupon(); c != nil {
		couponName = c.Name
	}
	s.mu.Unlock()

	release := func() {
		s.mu.Lock()
		s.submitting = false
		s.mu.Unlock()
	}

	token, err := ct.api.TokenizeCard(ctx, customer.GatewayCustomerID, card.fields(), holder)
	if err != nil {
		release()
		return "", err
	}

	res, err := ct.api.SubmitSubscription(ctx, backendapi.SubmitRequest{
		UserID:     customer.UserID,
		PlanID:     planID,
		CardToken:  token,
		CouponName: couponName,
	})
	if err != nil {
		release()
		return "", err
	}

	outcome, err := classifySubmit(res)
	if err != nil {
		release()
		return "", err
	}

	s.mu.Lock()
	s.submitting = false
	switch outcome {
	case OutcomeConfirmed:
		s.Step = StepSuccess
		s.payment = PaymentState{
			Phase:     PhaseConfirmed,
			PaymentID: res.Payment.ID,
			Message:   "pagamento confirmado",
		}
		s.mu.Unlock()
		log.Printf("[CHECKOUT][confirmado] sessao=%s pagamento=%s", s.ID, res.Payment.ID)
		ct.notifier.Notify("pagamento confirmado, assinatura ativa", notify.KindSuccess)
	case OutcomePending:
		poller := ct.newSessionPoller(s, res.Payment.ID)
		s.poller = poller
		s.mu.Unlock()
		log.Printf("[CHECKOUT][pendente] sessao=%s pagamento=%s", s.ID, res.Payment.ID)
		poller.Start()
	}
	return outcome, nil
}

// newSessionPoller liga um Poller ao estado da sessão: cada atualização entra
// sob o lock e o terminal vira notificação para o usuário.
func (ct *Controller) newSessionPoller(s *Session, paymentID string) *Poller {
	return newPoller(paymentID, ct.PollInterval, ct.PollAttempts, ct.api.CheckPaymentStatus, func(st PaymentState) {
		s.mu.Lock()
		s.payment = st
		if st.Phase == PhaseConfirmed {
			s.Step = StepSuccess
		}
		s.mu.Unlock()

		switch st.Phase {
		case PhaseConfirmed:
			ct.notifier.Notify("pagamento confirmado, assinatura ativa", notify.KindSuccess)
		case PhaseTimedOut:
			ct.notifier.Notify(st.Message, notify.KindWarning)
		case PhaseFailed:
			ct.notifier.Notify(st.Message, notify.KindError)
		}
	})
}
