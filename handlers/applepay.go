package handlers

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/vitwit/payrails/types"
	"github.com/vitwit/payrails/utils"
)

// ApplePayRequest is what the native payment sheet is configured with.
type ApplePayRequest struct {
	MerchantIdentifier   string
	CountryCode          string
	CurrencyCode         string
	MerchantCapabilities []string
	SupportedNetworks    []string
	Total                string
}

// ApplePayAuthorization is the result of a sheet the user approved.
type ApplePayAuthorization struct {
	PaymentData           json.RawMessage
	TransactionIdentifier string
	Network               string
	DisplayName           string
}

// ApplePayProvider presents the native Apple Pay sheet. A dismissed sheet is
// reported as types.ErrCanceled or as a nil authorization.
type ApplePayProvider interface {
	PresentPaymentSheet(ctx context.Context, req *ApplePayRequest) (*ApplePayAuthorization, error)
}

type ApplePayHandler struct {
	config         *types.ApplePayConfig
	saveInstrument bool
	deps           Deps
}

var _ PaymentHandler = (*ApplePayHandler)(nil)

func NewApplePayHandler(config *types.ApplePayConfig, saveInstrument bool, deps Deps) *ApplePayHandler {
	return &ApplePayHandler{
		config:         config,
		saveInstrument: saveInstrument,
		deps:           deps,
	}
}

func (h *ApplePayHandler) Type() types.PaymentType {
	return types.PaymentTypeApplePay
}

func (h *ApplePayHandler) MakePayment(ctx context.Context, amount types.Amount, presenter Presenter) (map[string]any, error) {
	if h.config == nil {
		return nil, types.NewIncorrectPaymentSetup(h.Type(), errors.New("no Apple Pay configuration"))
	}
	if h.deps.ApplePay == nil {
		return nil, types.NewIncorrectPaymentSetup(h.Type(), errors.New("no Apple Pay provider"))
	}

	total, err := utils.NormalizeAmount(amount)
	if err != nil {
		return nil, err
	}

	params := h.config.Parameters
	auth, err := h.deps.ApplePay.PresentPaymentSheet(ctx, &ApplePayRequest{
		MerchantIdentifier:   params.MerchantIdentifier,
		CountryCode:          params.CountryCode,
		CurrencyCode:         total.Currency,
		MerchantCapabilities: params.MerchantCapabilities,
		SupportedNetworks:    params.SupportedNetworks,
		Total:                total.Value,
	})
	if err != nil {
		return nil, err
	}
	if auth == nil {
		h.deps.log().Info("apple pay sheet dismissed", nil)
		return nil, types.ErrCanceled
	}
	if len(auth.PaymentData) == 0 {
		return nil, types.NewMissingData("Apple Pay payment token")
	}

	return map[string]any{
		payloadInstrumentData: map[string]any{
			payloadPaymentToken:     auth.PaymentData,
			"transactionIdentifier": auth.TransactionIdentifier,
			"paymentMethod": map[string]any{
				"network":     auth.Network,
				"displayName": auth.DisplayName,
			},
		},
		payloadStoreInstrument: h.saveInstrument,
	}, nil
}

// HandlePendingState runs the 3-D Secure page some issuers require after the
// sheet was approved.
func (h *ApplePayHandler) HandlePendingState(ctx context.Context, execution *types.Execution, presenter Presenter) (*Continuation, error) {
	if execution == nil || execution.Links.ThreeDS == "" {
		return nil, types.NewMissingData("3-D Secure link")
	}

	h.deps.notify(h.Type())
	if err := awaitRedirect(ctx, h.deps.log(), h.Type(), presenter, execution.Links.ThreeDS); err != nil {
		return nil, err
	}
	return &Continuation{Link: selfLink(execution)}, nil
}

func (h *ApplePayHandler) ProcessSuccessPayload(payload map[string]any, amount types.Amount) (*types.AuthorizeRequest, error) {
	instrument, ok := payload[payloadInstrumentData].(map[string]any)
	if !ok {
		return nil, invalidPayload(payloadInstrumentData)
	}
	if token, ok := instrument[payloadPaymentToken]; !ok || token == nil {
		return nil, invalidPayload(payloadPaymentToken)
	}
	store, _ := payload[payloadStoreInstrument].(bool)

	return buildAuthorizeRequest(types.PaymentComposition{
		PaymentMethodCode:     types.PaymentTypeApplePay.MethodCode(),
		StoreInstrument:       store,
		PaymentInstrumentData: instrument,
	}, amount)
}
