package handlers

import (
	"context"

	"github.com/vitwit/payrails/types"
)

// CardHandler pays with card data encrypted by the vault.
type CardHandler struct {
	vaultProviderConfigID string
	saveInstrument        bool
	deps                  Deps
}

var _ PaymentHandler = (*CardHandler)(nil)

func NewCardHandler(vaultProviderConfigID string, saveInstrument bool, deps Deps) *CardHandler {
	return &CardHandler{
		vaultProviderConfigID: vaultProviderConfigID,
		saveInstrument:        saveInstrument,
		deps:                  deps,
	}
}

func (h *CardHandler) Type() types.PaymentType {
	return types.PaymentTypeCard
}

// MakePayment takes the encrypted card data from the card form when the
// presenter hosts one, otherwise it asks the vault to collect and encrypt.
func (h *CardHandler) MakePayment(ctx context.Context, amount types.Amount, presenter Presenter) (map[string]any, error) {
	var encrypted string
	source := "form"
	if form, ok := presenter.(CardDataSource); ok {
		encrypted = form.EncryptedCardData()
	}

	if encrypted == "" && h.deps.Vault != nil {
		source = "vault"
		fields, err := h.deps.Vault.CollectFields(ctx)
		if err != nil {
			return nil, err
		}
		encrypted, err = h.deps.Vault.Encrypt(ctx, fields)
		if err != nil {
			return nil, err
		}
	}

	if encrypted == "" {
		return nil, types.NewMissingData("encrypted card data")
	}
	h.deps.log().Debug("card data encrypted", map[string]any{"source": source})

	return map[string]any{
		payloadInstrumentData: map[string]any{
			payloadCard: map[string]any{
				payloadEncryptedData:         encrypted,
				payloadVaultProviderConfigID: h.vaultProviderConfigID,
			},
		},
		payloadStoreInstrument: h.saveInstrument,
	}, nil
}

// HandlePendingState runs the 3-D Secure challenge. The result is resolved by
// status, so the continuation points back at the execution.
func (h *CardHandler) HandlePendingState(ctx context.Context, execution *types.Execution, presenter Presenter) (*Continuation, error) {
	if execution == nil || execution.Links.ThreeDS == "" {
		return nil, types.NewMissingData("3-D Secure link")
	}

	h.deps.notify(h.Type())
	if err := awaitRedirect(ctx, h.deps.log(), h.Type(), presenter, execution.Links.ThreeDS); err != nil {
		return nil, err
	}
	return &Continuation{Link: selfLink(execution)}, nil
}

func (h *CardHandler) ProcessSuccessPayload(payload map[string]any, amount types.Amount) (*types.AuthorizeRequest, error) {
	instrument, ok := payload[payloadInstrumentData].(map[string]any)
	if !ok {
		return nil, invalidPayload(payloadInstrumentData)
	}
	card, ok := instrument[payloadCard].(map[string]any)
	if !ok {
		return nil, invalidPayload(payloadCard)
	}
	encrypted, _ := card[payloadEncryptedData].(string)
	if encrypted == "" {
		return nil, invalidPayload(payloadEncryptedData)
	}
	vaultID, _ := card[payloadVaultProviderConfigID].(string)
	if vaultID == "" {
		return nil, invalidPayload(payloadVaultProviderConfigID)
	}
	store, _ := payload[payloadStoreInstrument].(bool)

	return buildAuthorizeRequest(types.PaymentComposition{
		PaymentMethodCode: types.PaymentTypeCard.MethodCode(),
		StoreInstrument:   store,
		PaymentInstrumentData: map[string]any{
			payloadEncryptedData:         encrypted,
			payloadVaultProviderConfigID: vaultID,
		},
	}, amount)
}
