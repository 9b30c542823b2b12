package checkout

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"odonto-backend/backendapi"
)

// Valores de produção do poller: 3 tentativas em intervalo fixo de 8s, a
// primeira 8s depois de entrar em polling. Sem backoff, sem jitter.
const (
	DefaultPollInterval = 8 * time.Second
	DefaultPollAttempts = 3
)

// Poller resolve um pagamento PENDING consultando o backend um número
// limitado de vezes. Estados terminais: confirmed, timed_out, failed.
// Erros de rede contam como "ainda não confirmado" até a última tentativa.
//
// O timer nunca sobrevive à sessão: Cancel é chamado no teardown e no GC do
// store, e é idempotente.
type Poller struct {
	paymentID   string
	interval    time.Duration
	maxAttempts int
	check       func(ctx context.Context, paymentID string) (string, error)
	onState     func(PaymentState)

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func newPoller(paymentID string, interval time.Duration, maxAttempts int,
	check func(ctx context.Context, paymentID string) (string, error),
	onState func(PaymentState)) *Poller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		paymentID:   paymentID,
		interval:    interval,
		maxAttempts: maxAttempts,
		check:       check,
		onState:     onState,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start agenda a primeira checagem para daqui a um intervalo.
func (p *Poller) Start() {
	p.onState(PaymentState{
		Phase:     PhasePolling,
		PaymentID: p.paymentID,
		Attempt:   1,
		Message:   fmt.Sprintf("verificando pagamento (tentativa 1 de %d)", p.maxAttempts),
	})
	go p.run()
}

// Cancel para o poller sem emitir estado nenhum. Seguro chamar mais de uma
// vez e de qualquer goroutine.
func (p *Poller) Cancel() {
	p.once.Do(p.cancel)
}

func (p *Poller) run() {
	timer := time.NewTimer(p.interval)
	defer timer.Stop()
	for attempt := 1; ; attempt++ {
		select {
		case <-p.ctx.Done():
			return
		case <-timer.C:
		}

		status, err := p.check(p.ctx, p.paymentID)
		if p.ctx.Err() != nil {
			return
		}
		if err == nil && status == backendapi.PaymentConfirmed {
			log.Printf("[POLLER][confirmado] pagamento=%s tentativa=%d", p.paymentID, attempt)
			p.onState(PaymentState{
				Phase:     PhaseConfirmed,
				PaymentID: p.paymentID,
				Attempt:   attempt,
				Message:   "pagamento confirmado",
			})
			return
		}
		if err != nil {
			log.Printf("[POLLER][erro] pagamento=%s tentativa=%d err=%v", p.paymentID, attempt, err)
		}

		if attempt >= p.maxAttempts {
			if err != nil {
				p.onState(PaymentState{
					Phase:     PhaseFailed,
					PaymentID: p.paymentID,
					Attempt:   attempt,
					Message:   "não foi possível verificar o pagamento: " + err.Error(),
				})
				return
			}
			// Não é falha dura: o pagamento ainda pode liquidar depois.
			p.onState(PaymentState{
				Phase:     PhaseTimedOut,
				PaymentID: p.paymentID,
				Attempt:   attempt,
				Message:   "pagamento ainda não confirmado; verifique mais tarde na sua conta",
			})
			return
		}

		p.onState(PaymentState{
			Phase:     PhasePolling,
			PaymentID: p.paymentID,
			Attempt:   attempt + 1,
			Message:   fmt.Sprintf("verificando pagamento (tentativa %d de %d)", attempt+1, p.maxAttempts),
		})
		timer.Reset(p.interval)
	}
}
