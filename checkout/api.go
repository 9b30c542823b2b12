package checkout

import (
	"context"

	"odonto-backend/backendapi"
)

// BackendAPI is the slice of the clinic backend the checkout wizard needs.
// Implemented by backendapi.Client; mocked in tests.
type BackendAPI interface {
	ListPlans(ctx context.Context) ([]backendapi.Plan, error)
	GetCouponByName(ctx context.Context, code string) (*backendapi.Coupon, error)
	CreateCustomer(ctx context.Context, req backendapi.CustomerRequest) (*backendapi.CustomerIDs, error)
	TokenizeCard(ctx context.Context, gatewayCustomerID string, card backendapi.CardFields, holder backendapi.HolderInfo) (string, error)
	SubmitSubscription(ctx context.Context, req backendapi.SubmitRequest) (*backendapi.SubmitResult, error)
	CheckPaymentStatus(ctx context.Context, paymentID string) (string, error)
}
