package handlers

import (
	"errors"

	"github.com/vitwit/payrails/types"
	"github.com/vitwit/payrails/utils"
)

// Risk data is not collected on device; the session id is a fixed stub the
// backend recognizes.
const riskSessionStub = "03bf5b74-d895-48d9-a871-dcd35e609db8"

func buildAuthorizeRequest(composition types.PaymentComposition, amount types.Amount) (*types.AuthorizeRequest, error) {
	normalized, err := utils.NormalizeAmount(amount)
	if err != nil {
		return nil, err
	}

	composition.Amount = normalized
	composition.IntegrationType = types.IntegrationTypeAPI

	return &types.AuthorizeRequest{
		Amount:             normalized,
		ReturnInfo:         DefaultReturnInfo(),
		Risk:               &types.Risk{SessionID: riskSessionStub},
		PaymentComposition: []types.PaymentComposition{composition},
	}, nil
}

// StoredInstrumentRequest builds the authorize body for paying with a saved
// instrument; no provider interaction is involved.
func StoredInstrumentRequest(instrument types.StoredInstrument, amount types.Amount) (*types.AuthorizeRequest, error) {
	if instrument.ID == "" {
		return nil, types.NewInvalidDataFormat("stored instrument has no id", nil)
	}
	code := instrument.PaymentMethodCode
	if code == "" {
		code = instrument.Type.MethodCode()
	}
	if code == "" {
		return nil, types.NewInvalidDataFormat("stored instrument has no payment method", nil)
	}

	return buildAuthorizeRequest(types.PaymentComposition{
		PaymentMethodCode:   code,
		PaymentInstrumentID: instrument.ID,
	}, amount)
}

// New builds the handler for t from its payment option, failing when the
// option does not carry what the handler needs.
func New(
	t types.PaymentType,
	option *types.PaymentOption,
	config *types.Configuration,
	saveInstrument bool,
	deps Deps,
) (PaymentHandler, error) {
	if option == nil {
		return nil, types.NewUnsupportedPayment(t)
	}
	if option.Type() != t {
		return nil, types.NewIncorrectPaymentSetup(t, errors.New("payment option belongs to "+option.Type().String()))
	}

	switch t {
	case types.PaymentTypeCard:
		if config == nil || config.VaultConfiguration == nil || config.VaultConfiguration.ProviderConfigID == "" {
			return nil, types.NewIncorrectPaymentSetup(t, errors.New("no vault configuration"))
		}
		return NewCardHandler(config.VaultConfiguration.ProviderConfigID, saveInstrument, deps), nil

	case types.PaymentTypeApplePay:
		applePay, err := utils.DecodeApplePayConfig(option)
		if err != nil {
			return nil, err
		}
		return NewApplePayHandler(applePay, saveInstrument, deps), nil

	case types.PaymentTypePayPal:
		payPal, err := utils.DecodePayPalConfig(option)
		if err != nil {
			return nil, err
		}
		return NewPayPalHandler(payPal, saveInstrument, deps), nil

	case types.PaymentTypeGenericRedirect:
		return NewRedirectHandler(option.PaymentMethodCode, saveInstrument, deps), nil

	default:
		return nil, types.NewUnsupportedPayment(t)
	}
}

// NewForInstrument builds a handler able to continue a pending stored
// instrument payment. No option config is required.
func NewForInstrument(instrument types.StoredInstrument, deps Deps) PaymentHandler {
	switch instrument.Type {
	case types.PaymentTypeCard:
		return NewCardHandler("", false, deps)
	case types.PaymentTypeApplePay:
		return NewApplePayHandler(nil, false, deps)
	case types.PaymentTypePayPal:
		return NewPayPalHandler(nil, false, deps)
	default:
		return NewRedirectHandler(instrument.PaymentMethodCode, false, deps)
	}
}
