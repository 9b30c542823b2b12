package checkout

import (
	"errors"
	"net/http"

	"odonto-backend/backendapi"
	"odonto-backend/coupons"
	"odonto-backend/notify"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler expõe o wizard de checkout para o front. Uma sessão por instância
// do wizard, endereçada por UUID.
type Handler struct {
	api      BackendAPI
	store    *Store
	ctrl     *Controller
	notifier notify.Notifier
}

func NewHandler(api BackendAPI, notifier notify.Notifier) *Handler {
	if notifier == nil {
		notifier = notify.Log{}
	}
	return &Handler{
		api:      api,
		store:    NewStore(),
		ctrl:     NewController(api, notifier),
		notifier: notifier,
	}
}

// Store dá acesso ao store para o main ligar o janitor.
func (h *Handler) Store() *Store { return h.store }

// Controller exposto para o janitor cancelar pollers de sessão expirada.
func (h *Handler) Controller() *Controller { return h.ctrl }

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/checkout/sessions", h.createSession)
	r.GET("/checkout/sessions/:id", h.getSession)
	r.POST("/checkout/sessions/:id/plan", h.selectPlan)
	r.POST("/checkout/sessions/:id/coupon", h.applyCoupon)
	r.DELETE("/checkout/sessions/:id/coupon", h.removeCoupon)
	r.POST("/checkout/sessions/:id/personal", h.submitPersonal)
	r.POST("/checkout/sessions/:id/back", h.back)
	r.POST("/checkout/sessions/:id/payment", h.submitPayment)
	r.GET("/checkout/sessions/:id/payment", h.paymentState)
	r.DELETE("/checkout/sessions/:id", h.teardown)
}

func (h *Handler) createSession(c *gin.Context) {
	plans, err := h.api.ListPlans(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	s := newSession(plans, coupons.NewEngine(h.api))
	h.store.Put(s)
	c.JSON(http.StatusCreated, s.snapshot(true))
}

func (h *Handler) session(c *gin.Context) (*Session, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id de sessão inválido"})
		return nil, false
	}
	s, ok := h.store.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrSessionGone.Error()})
		return nil, false
	}
	return s, true
}

func (h *Handler) getSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.snapshot(true))
}

func (h *Handler) selectPlan(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var body struct {
		PlanID string `json:"plano_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.PlanID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "plano_id requerido"})
		return
	}
	if err := h.ctrl.SelectPlan(s, body.PlanID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.snapshot(false))
}

func (h *Handler) applyCoupon(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var body struct {
		Code string `json:"codigo"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dados inválidos"})
		return
	}
	if err := h.ctrl.ApplyCoupon(c.Request.Context(), s, body.Code); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.snapshot(false))
}

func (h *Handler) removeCoupon(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	h.ctrl.RemoveCoupon(s)
	c.JSON(http.StatusOK, s.snapshot(false))
}

func (h *Handler) submitPersonal(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var data PersonalData
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dados inválidos"})
		return
	}
	if err := h.ctrl.SubmitPersonal(c.Request.Context(), s, data); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.snapshot(false))
}

func (h *Handler) back(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := h.ctrl.Back(s); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.snapshot(false))
}

func (h *Handler) submitPayment(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var card CardInput
	if err := c.ShouldBindJSON(&card); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dados inválidos"})
		return
	}
	outcome, err := h.ctrl.SubmitPayment(c.Request.Context(), s, card)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resultado": outcome, "sessao": s.snapshot(false)})
}

func (h *Handler) paymentState(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.ctrl.State(s))
}

func (h *Handler) teardown(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id de sessão inválido"})
		return
	}
	if s := h.store.Remove(id); s != nil {
		h.ctrl.Teardown(s)
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// fail converte qualquer erro de passo em resposta HTTP + notificação,
// seguindo a taxonomia do produto. Validação fica inline (sem notificação);
// o resto vira alerta para o usuário.
func (h *Handler) fail(c *gin.Context, err error) {
	var vErr ValidationError
	if errors.As(err, &vErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
		return
	}
	// rejeições locais: resposta inline, sem alerta
	switch {
	case errors.Is(err, coupons.ErrNotFound), errors.Is(err, ErrPlanUnknown):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case errors.Is(err, coupons.ErrInactive):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	case errors.Is(err, coupons.ErrEmpty):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, ErrInFlight), errors.Is(err, ErrWrongStep):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	// o que sobra vira alerta para o usuário
	var unexpected *UnexpectedStateError
	var apiErr *backendapi.APIError
	switch {
	case errors.Is(err, ErrNotProvisioned):
		// violação de pré-condição: falha alta, não é alerta amigável
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	case errors.As(err, &unexpected):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":            "falha inesperada no checkout",
			"status_interno":   unexpected.InternalStatus,
			"status_pagamento": unexpected.PaymentStatus,
		})
	case errors.As(err, &apiErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": apiErr.Message})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "erro interno"})
	}
	h.notifier.Notify(err.Error(), notify.KindError)
}
