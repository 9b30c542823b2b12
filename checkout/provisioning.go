package checkout

import (
	"context"
	"log"
)

// SubmitPersonal valida o passo 2 e provisiona o cliente no gateway no
// máximo uma vez por sessão. Reentrar no passo com o cliente já provisionado
// pula a rede por completo; falha não cacheia nada, então repetir é seguro.
func (ct *Controller) SubmitPersonal(ctx context.Context, s *Session, data PersonalData) error {
	s.mu.Lock()
	s.touch()
	if s.Step != StepPersonal {
		s.mu.Unlock()
		return ErrWrongStep
	}
	if err := data.validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.Personal = &data
	if s.Customer != nil {
		// idempotente: userId já setado, nada de rede
		s.Step = StepPayment
		s.mu.Unlock()
		return nil
	}
	if s.provisioning {
		s.mu.Unlock()
		return ErrInFlight
	}
	s.provisioning = true
	req := data.customerRequest()
	s.mu.Unlock()

	ids, err := ct.api.CreateCustomer(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.provisioning = false
	if err != nil {
		// não avança e não cacheia; o usuário tenta de novo
		log.Printf("[CHECKOUT][provisionamento][erro] sessao=%s err=%v", s.ID, err)
		return err
	}
	s.Customer = ids
	s.Step = StepPayment
	log.Printf("[CHECKOUT][provisionamento] sessao=%s customer=%s userId=%d", s.ID, ids.GatewayCustomerID, ids.UserID)
	return nil
}
