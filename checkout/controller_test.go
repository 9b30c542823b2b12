package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"odonto-backend/backendapi"
	"odonto-backend/coupons"
	"odonto-backend/notify"
)

func newTestWizard(api *mockAPI) (*Controller, *Session, *notify.Recorder) {
	rec := &notify.Recorder{}
	ctrl := NewController(api, rec)
	ctrl.PollInterval = 5 * time.Millisecond
	plans, _ := api.ListPlans(context.Background())
	s := newSession(plans, coupons.NewEngine(api))
	return ctrl, s, rec
}

// sessão pronta para o passo 3
func paymentReady(t *testing.T, ctrl *Controller, s *Session) {
	t.Helper()
	if err := ctrl.SelectPlan(s, "p1"); err != nil {
		t.Fatalf("SelectPlan: %v", err)
	}
	if err := ctrl.SubmitPersonal(context.Background(), s, validPersonal()); err != nil {
		t.Fatalf("SubmitPersonal: %v", err)
	}
}

func TestSelectPlan_unknownPlan(t *testing.T) {
	ctrl, s, _ := newTestWizard(newMockAPI())
	if err := ctrl.SelectPlan(s, "p99"); !errors.Is(err, ErrPlanUnknown) {
		t.Fatalf("esperava ErrPlanUnknown, veio %v", err)
	}
	if s.Step != StepPlan {
		t.Fatalf("etapa não deveria avançar, está em %v", s.Step)
	}
}

func TestSelectPlan_advancesAndPrices(t *testing.T) {
	ctrl, s, _ := newTestWizard(newMockAPI())
	if err := ctrl.SelectPlan(s, "p1"); err != nil {
		t.Fatalf("SelectPlan: %v", err)
	}
	if s.Step != StepPersonal {
		t.Fatalf("etapa = %v; esperava dados pessoais", s.Step)
	}
	if s.Pricing.Total().String() != "179" {
		t.Fatalf("total = %s", s.Pricing.Total())
	}
}

func TestSubmitPersonal_validation(t *testing.T) {
	cases := map[string]func(*PersonalData){
		"sem nome":         func(p *PersonalData) { p.Name = "" },
		"sem cidade":       func(p *PersonalData) { p.City = "" },
		"senha curta":      func(p *PersonalData) { p.Password = "abc"; p.PasswordConfirm = "abc" },
		"senhas diferem":   func(p *PersonalData) { p.PasswordConfirm = "outra123" },
		"telefone curto":   func(p *PersonalData) { p.Phone = "9876" },
		"email sem arroba": func(p *PersonalData) { p.Email = "ana.example.com" },
	}
	for name, mutate := range cases {
		api := newMockAPI()
		ctrl, s, _ := newTestWizard(api)
		if err := ctrl.SelectPlan(s, "p1"); err != nil {
			t.Fatalf("%s: SelectPlan: %v", name, err)
		}
		data := validPersonal()
		mutate(&data)
		err := ctrl.SubmitPersonal(context.Background(), s, data)
		var vErr ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("%s: esperava ValidationError, veio %v", name, err)
		}
		if api.customerCallCount() != 0 {
			t.Errorf("%s: validação não pode chegar na rede", name)
		}
		if s.Step != StepPersonal {
			t.Errorf("%s: etapa não deveria avançar", name)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"(11) 98765-4321", "5511987654321", true},
		{"11 8765-4321", "551187654321", true},
		{"5511987654321", "5511987654321", true}, // DDI já presente
		{"55 99999-8888", "5555999998888", true}, // DDD 55 sem DDI
		{"9876", "", false},
		{"", "", false},
		{"119876543210000", "", false}, // longo demais
	}
	for _, c := range cases {
		got, ok := NormalizePhone(c.in)
		if ok != c.ok || got != c.out {
			t.Errorf("NormalizePhone(%q) = (%q, %v); esperava (%q, %v)", c.in, got, ok, c.out, c.ok)
		}
	}
}

func TestSubmitPersonal_provisionsOnceAcrossReentries(t *testing.T) {
	api := newMockAPI()
	ctrl, s, _ := newTestWizard(api)
	paymentReady(t, ctrl, s)

	if api.customerCallCount() != 1 {
		t.Fatalf("chamadas de provisionamento = %d; esperava 1", api.customerCallCount())
	}
	// volta ao passo 2 e reenvia: zero novas chamadas de rede
	for i := 0; i < 3; i++ {
		if err := ctrl.Back(s); err != nil {
			t.Fatalf("Back: %v", err)
		}
		if err := ctrl.SubmitPersonal(context.Background(), s, validPersonal()); err != nil {
			t.Fatalf("SubmitPersonal reentrada: %v", err)
		}
	}
	if api.customerCallCount() != 1 {
		t.Fatalf("reentrada reprovisionou: %d chamadas", api.customerCallCount())
	}
	if s.Step != StepPayment {
		t.Fatalf("etapa = %v", s.Step)
	}
}

func TestSubmitPersonal_failureDoesNotAdvanceAndRetryWorks(t *testing.T) {
	api := newMockAPI()
	api.customerErr = errors.New("backend fora do ar")
	ctrl, s, _ := newTestWizard(api)
	if err := ctrl.SelectPlan(s, "p1"); err != nil {
		t.Fatalf("SelectPlan: %v", err)
	}

	if err := ctrl.SubmitPersonal(context.Background(), s, validPersonal()); err == nil {
		t.Fatal("esperava erro de provisionamento")
	}
	if s.Step != StepPersonal || s.Customer != nil {
		t.Fatal("falha não pode avançar nem cachear")
	}

	api.mu.Lock()
	api.customerErr = nil
	api.mu.Unlock()
	if err := ctrl.SubmitPersonal(context.Background(), s, validPersonal()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if s.Step != StepPayment || s.Customer == nil {
		t.Fatal("retry deveria provisionar e avançar")
	}
}

func TestSubmitPersonal_doubleClickCollapsesToOneCall(t *testing.T) {
	api := newMockAPI()
	api.customerBlock = make(chan struct{})
	ctrl, s, _ := newTestWizard(api)
	if err := ctrl.SelectPlan(s, "p1"); err != nil {
		t.Fatalf("SelectPlan: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		firstErr = ctrl.SubmitPersonal(context.Background(), s, validPersonal())
	}()

	// segundo clique enquanto o primeiro está na rede
	waitFor(t, time.Second, "primeiro clique entrar em voo", func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.provisioning
	})
	if err := ctrl.SubmitPersonal(context.Background(), s, validPersonal()); !errors.Is(err, ErrInFlight) {
		t.Fatalf("esperava ErrInFlight, veio %v", err)
	}

	close(api.customerBlock)
	wg.Wait()
	if firstErr != nil {
		t.Fatalf("primeiro clique: %v", firstErr)
	}
	if api.customerCallCount() != 1 {
		t.Fatalf("chamadas = %d; o guard deveria colapsar para 1", api.customerCallCount())
	}
}

func TestSubmitPayment_requiresProvisionedCustomer(t *testing.T) {
	ctrl, s, _ := newTestWizard(newMockAPI())
	// força o passo 3 sem provisionar
	s.Step = StepPayment
	if _, err := ctrl.SubmitPayment(context.Background(), s, validCard()); !errors.Is(err, ErrNotProvisioned) {
		t.Fatalf("esperava ErrNotProvisioned, veio %v", err)
	}
}

func TestSubmitPayment_scenarioC_confirmedWithoutPolling(t *testing.T) {
	api := newMockAPI() // submit default: 200 + CONFIRMED
	ctrl, s, rec := newTestWizard(api)
	paymentReady(t, ctrl, s)

	outcome, err := ctrl.SubmitPayment(context.Background(), s, validCard())
	if err != nil {
		t.Fatalf("SubmitPayment: %v", err)
	}
	if outcome != OutcomeConfirmed {
		t.Fatalf("outcome = %s", outcome)
	}
	if s.Step != StepSuccess {
		t.Fatalf("etapa = %v; esperava sucesso", s.Step)
	}
	time.Sleep(30 * time.Millisecond)
	if api.checkCount() != 0 {
		t.Fatalf("confirmação imediata não pode disparar polling, houve %d checagens", api.checkCount())
	}
	if rec.Last().Kind != notify.KindSuccess {
		t.Fatalf("notificação = %+v", rec.Last())
	}
}

func TestSubmitPayment_unexpectedStatusCombination(t *testing.T) {
	api := newMockAPI()
	api.submits = []submitReply{{res: &backendapi.SubmitResult{
		InternalStatus: 200,
		Payment:        backendapi.PaymentInfo{ID: "pay_x", Status: backendapi.PaymentPending},
	}}}
	ctrl, s, _ := newTestWizard(api)
	paymentReady(t, ctrl, s)

	_, err := ctrl.SubmitPayment(context.Background(), s, validCard())
	var unexpected *UnexpectedStateError
	if !errors.As(err, &unexpected) {
		t.Fatalf("esperava UnexpectedStateError, veio %v", err)
	}
	if unexpected.InternalStatus != 200 || unexpected.PaymentStatus != backendapi.PaymentPending {
		t.Fatalf("códigos de diagnóstico errados: %+v", unexpected)
	}
	// o guard tem que ser liberado para o usuário tentar de novo
	if _, err := ctrl.SubmitPayment(context.Background(), s, validCard()); err != nil {
		t.Fatalf("retry pós-falha: %v", err)
	}
}

func TestSubmitPayment_tokenNeverReusedAcrossAttempts(t *testing.T) {
	api := newMockAPI()
	api.submits = []submitReply{
		{err: errors.New("gateway instável")}, // primeira submissão falha após tokenizar
	}
	ctrl, s, _ := newTestWizard(api)
	paymentReady(t, ctrl, s)

	if _, err := ctrl.SubmitPayment(context.Background(), s, validCard()); err == nil {
		t.Fatal("primeira submissão deveria falhar")
	}
	if _, err := ctrl.SubmitPayment(context.Background(), s, validCard()); err != nil {
		t.Fatalf("segunda submissão: %v", err)
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	if len(api.submitted) != 2 {
		t.Fatalf("submissões = %d", len(api.submitted))
	}
	if api.submitted[0].CardToken == api.submitted[1].CardToken {
		t.Fatalf("token reutilizado entre submissões: %s", api.submitted[0].CardToken)
	}
}

func TestSubmitPayment_couponNameGoesInSubmit(t *testing.T) {
	api := newMockAPI()
	api.coupons["PROMO20"] = &backendapi.Coupon{Name: "PROMO20", DiscountValue: dec(20), Active: true}
	ctrl, s, _ := newTestWizard(api)
	paymentReady(t, ctrl, s)
	if err := ctrl.ApplyCoupon(context.Background(), s, "promo20"); err != nil {
		t.Fatalf("ApplyCoupon: %v", err)
	}
	if _, err := ctrl.SubmitPayment(context.Background(), s, validCard()); err != nil {
		t.Fatalf("SubmitPayment: %v", err)
	}
	api.mu.Lock()
	defer api.mu.Unlock()
	if api.submitted[0].CouponName != "PROMO20" {
		t.Fatalf("cupom no submit = %q", api.submitted[0].CouponName)
	}
	if api.submitted[0].UserID != 42 || api.submitted[0].PlanID != "p1" {
		t.Fatalf("submit com identificadores errados: %+v", api.submitted[0])
	}
}

func TestBack_neverClearsCustomer(t *testing.T) {
	api := newMockAPI()
	ctrl, s, _ := newTestWizard(api)
	paymentReady(t, ctrl, s)
	customer := s.Customer

	if err := ctrl.Back(s); err != nil { // 3 -> 2
		t.Fatalf("Back: %v", err)
	}
	if err := ctrl.Back(s); err != nil { // 2 -> 1
		t.Fatalf("Back: %v", err)
	}
	if err := ctrl.Back(s); !errors.Is(err, ErrWrongStep) { // 1 -> nada
		t.Fatalf("esperava ErrWrongStep, veio %v", err)
	}
	if s.Customer != customer {
		t.Fatal("voltar não pode limpar identificadores provisionados")
	}
}

func TestCardInput_validate(t *testing.T) {
	cases := map[string]func(*CardInput){
		"sem titular":   func(c *CardInput) { c.HolderName = "" },
		"numero curto":  func(c *CardInput) { c.Number = "4111" },
		"mes invalido":  func(c *CardInput) { c.ExpiryMonth = "13" },
		"ano 4 digitos": func(c *CardInput) { c.ExpiryYear = "2028" },
		"cvv curto":     func(c *CardInput) { c.CVV = "12" },
	}
	for name, mutate := range cases {
		card := validCard()
		mutate(&card)
		if err := card.validate(); err == nil {
			t.Errorf("%s: deveria falhar", name)
		}
	}
	card := validCard()
	card.Number = "5162 3062 1937 8829" // com espaços
	if err := card.validate(); err != nil {
		t.Errorf("número com espaços deveria passar: %v", err)
	}
}
