package handlers

import (
	"context"
	"errors"

	"github.com/vitwit/payrails/types"
)

// PayPalCheckoutRequest opens the PayPal approval flow for an order the
// backend already created.
type PayPalCheckoutRequest struct {
	ClientID    string
	MerchantID  string
	Environment string
	OrderID     string
}

// PayPalApproval is returned once the payer approved the order.
type PayPalApproval struct {
	OrderID string
	PayerID string
}

// PayPalProvider runs the PayPal checkout. A payer who backs out is reported
// as types.ErrCanceled or as a nil approval.
type PayPalProvider interface {
	StartCheckout(ctx context.Context, req *PayPalCheckoutRequest) (*PayPalApproval, error)
}

type PayPalHandler struct {
	config         *types.PayPalConfig
	saveInstrument bool
	deps           Deps
}

var _ PaymentHandler = (*PayPalHandler)(nil)

func NewPayPalHandler(config *types.PayPalConfig, saveInstrument bool, deps Deps) *PayPalHandler {
	return &PayPalHandler{
		config:         config,
		saveInstrument: saveInstrument,
		deps:           deps,
	}
}

func (h *PayPalHandler) Type() types.PaymentType {
	return types.PaymentTypePayPal
}

// MakePayment needs no interaction: the order is created by the authorize
// call and approved in HandlePendingState.
func (h *PayPalHandler) MakePayment(ctx context.Context, amount types.Amount, presenter Presenter) (map[string]any, error) {
	return map[string]any{
		payloadStoreInstrument: h.saveInstrument,
	}, nil
}

func (h *PayPalHandler) HandlePendingState(ctx context.Context, execution *types.Execution, presenter Presenter) (*Continuation, error) {
	if execution == nil || execution.Links.Confirm == nil {
		return nil, types.NewMissingData("confirm link")
	}
	confirm := execution.Links.Confirm

	orderID := confirm.Parameter("orderId")
	if orderID == "" {
		return nil, types.NewMissingData("PayPal order id")
	}
	if h.deps.PayPal == nil {
		return nil, types.NewIncorrectPaymentSetup(h.Type(), errors.New("no PayPal provider"))
	}

	req := &PayPalCheckoutRequest{OrderID: orderID}
	if h.config != nil {
		req.ClientID = h.config.ClientID
		req.MerchantID = h.config.MerchantID
		req.Environment = h.config.Environment
	}

	h.deps.notify(h.Type())
	approval, err := h.deps.PayPal.StartCheckout(ctx, req)
	if err != nil {
		return nil, err
	}
	if approval == nil {
		h.deps.log().Info("paypal checkout abandoned", map[string]any{"order_id": orderID})
		return nil, types.ErrCanceled
	}
	if approval.OrderID != "" {
		orderID = approval.OrderID
	}
	h.deps.log().Info("paypal order approved", map[string]any{"order_id": orderID})

	return &Continuation{
		Link: confirm,
		Payload: map[string]any{
			payloadMethodCode: types.PaymentTypePayPal.MethodCode(),
			"data": map[string]any{
				"orderId": orderID,
				"payerId": approval.PayerID,
			},
		},
	}, nil
}

func (h *PayPalHandler) ProcessSuccessPayload(payload map[string]any, amount types.Amount) (*types.AuthorizeRequest, error) {
	store, _ := payload[payloadStoreInstrument].(bool)

	return buildAuthorizeRequest(types.PaymentComposition{
		PaymentMethodCode: types.PaymentTypePayPal.MethodCode(),
		StoreInstrument:   store,
	}, amount)
}
