package handlers

import (
	"errors"
	"fmt"

	"github.com/vitwit/payrails/types"
)

// ErrChallengeFailed is returned when a challenge or redirect page lands on
// the error return page.
var ErrChallengeFailed = errors.New("challenge ended on the error page")

// Payload keys shared between MakePayment and ProcessSuccessPayload.
const (
	payloadInstrumentData  = "paymentInstrumentData"
	payloadStoreInstrument = "storeInstrument"
	payloadMethodCode      = "paymentMethodCode"

	payloadCard                  = "card"
	payloadEncryptedData         = "encryptedData"
	payloadVaultProviderConfigID = "vaultProviderConfigId"

	payloadPaymentToken = "paymentToken"
)

func invalidPayload(key string) error {
	return types.NewInvalidDataFormat(fmt.Sprintf("payload is missing %q", key), nil)
}
