package checkout

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"odonto-backend/backendapi"

	"github.com/shopspring/decimal"
)

// mockAPI implementa BackendAPI para os testes, no estilo dos mocks de
// handler do restante do projeto: filas de respostas + contadores.
type mockAPI struct {
	mu sync.Mutex

	plans   []backendapi.Plan
	coupons map[string]*backendapi.Coupon

	customerCalls int
	customerErr   error
	customerBlock chan struct{} // se não-nil, CreateCustomer espera aqui

	tokenCount  int
	tokenizeErr error

	submitted []backendapi.SubmitRequest
	submits   []submitReply

	checks   int
	statuses []statusReply
}

type submitReply struct {
	res *backendapi.SubmitResult
	err error
}

type statusReply struct {
	status string
	err    error
}

func newMockAPI() *mockAPI {
	return &mockAPI{
		plans: []backendapi.Plan{
			{ID: "p1", Name: "Essencial", Price: decimal.RequireFromString("179.00")},
			{ID: "p2", Name: "Premium", Price: decimal.RequireFromString("299.00")},
		},
		coupons: map[string]*backendapi.Coupon{},
	}
}

func (m *mockAPI) ListPlans(ctx context.Context) ([]backendapi.Plan, error) {
	return m.plans, nil
}

func (m *mockAPI) GetCouponByName(ctx context.Context, code string) (*backendapi.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.coupons[code]; ok {
		return c, nil
	}
	return nil, backendapi.ErrCouponNotFound
}

func (m *mockAPI) CreateCustomer(ctx context.Context, req backendapi.CustomerRequest) (*backendapi.CustomerIDs, error) {
	m.mu.Lock()
	block := m.customerBlock
	m.mu.Unlock()
	if block != nil {
		<-block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customerCalls++
	if m.customerErr != nil {
		return nil, m.customerErr
	}
	return &backendapi.CustomerIDs{GatewayCustomerID: "cus_1", UserID: 42}, nil
}

func (m *mockAPI) TokenizeCard(ctx context.Context, customerID string, card backendapi.CardFields, holder backendapi.HolderInfo) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokenizeErr != nil {
		return "", m.tokenizeErr
	}
	m.tokenCount++
	return fmt.Sprintf("tok_%d", m.tokenCount), nil
}

func (m *mockAPI) SubmitSubscription(ctx context.Context, req backendapi.SubmitRequest) (*backendapi.SubmitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitted = append(m.submitted, req)
	if len(m.submits) == 0 {
		return &backendapi.SubmitResult{
			InternalStatus: 200,
			Payment:        backendapi.PaymentInfo{ID: "pay_1", Status: backendapi.PaymentConfirmed},
		}, nil
	}
	reply := m.submits[0]
	m.submits = m.submits[1:]
	return reply.res, reply.err
}

func (m *mockAPI) CheckPaymentStatus(ctx context.Context, paymentID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks++
	if len(m.statuses) == 0 {
		return backendapi.PaymentPending, nil
	}
	reply := m.statuses[0]
	m.statuses = m.statuses[1:]
	return reply.status, reply.err
}

func (m *mockAPI) checkCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checks
}

func (m *mockAPI) customerCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.customerCalls
}

func dec(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func pendingResult(id string) *backendapi.SubmitResult {
	return &backendapi.SubmitResult{
		InternalStatus: 202,
		Payment:        backendapi.PaymentInfo{ID: id, Status: backendapi.PaymentPending},
	}
}

func validPersonal() PersonalData {
	return PersonalData{
		Name:            "Ana Souza",
		Email:           "ana@example.com",
		CPF:             "39053344705",
		Phone:           "(11) 98765-4321",
		Password:        "segredo1",
		PasswordConfirm: "segredo1",
		PostalCode:      "01310-100",
		Street:          "Av. Paulista",
		AddressNumber:   "1000",
		Neighborhood:    "Bela Vista",
		City:            "São Paulo",
		State:           "SP",
	}
}

func validCard() CardInput {
	return CardInput{
		HolderName:  "ANA SOUZA",
		Number:      "5162306219378829",
		ExpiryMonth: "05",
		ExpiryYear:  "28",
		CVV:         "318",
	}
}

// waitFor espera a condição virar verdadeira dentro do prazo.
func waitFor(t *testing.T, d time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("tempo esgotado esperando: %s", what)
}
