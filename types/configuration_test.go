package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupConfiguration(options ...PaymentOption) *Configuration {
	return &Configuration{
		Token: "token",
		Execution: &Execution{
			ID: "exec-1",
			InitialResults: []InitialResult{
				{Body: ResultBody{Name: "other"}},
				{Body: ResultBody{
					Name: "lookup",
					Data: LookupData{PaymentCompositionOptions: options},
				}},
			},
		},
	}
}

func TestConfiguration_PaymentOption(t *testing.T) {
	config := lookupConfiguration(
		PaymentOption{PaymentMethodCode: "card"},
		PaymentOption{PaymentMethodCode: "payPal"},
		PaymentOption{PaymentMethodCode: "klarna"},
	)

	option, ok := config.PaymentOption(PaymentTypePayPal)
	require.True(t, ok)
	assert.Equal(t, "payPal", option.PaymentMethodCode)

	option, ok = config.PaymentOption(PaymentTypeGenericRedirect)
	require.True(t, ok)
	assert.Equal(t, "klarna", option.PaymentMethodCode)

	_, ok = config.PaymentOption(PaymentTypeApplePay)
	assert.False(t, ok)

	option, ok = config.PaymentOptionByCode("klarna")
	require.True(t, ok)
	assert.Equal(t, PaymentTypeGenericRedirect, option.Type())
}

func TestConfiguration_PaymentOptionRefusesDuplicates(t *testing.T) {
	config := lookupConfiguration(
		PaymentOption{PaymentMethodCode: "card"},
		PaymentOption{PaymentMethodCode: "card"},
		PaymentOption{PaymentMethodCode: "ideal"},
		PaymentOption{PaymentMethodCode: "klarna"},
	)

	_, ok := config.PaymentOption(PaymentTypeCard)
	assert.False(t, ok)

	option, ok := config.PaymentOption(PaymentTypeGenericRedirect)
	require.True(t, ok)
	assert.Equal(t, "ideal", option.PaymentMethodCode)

	option, ok = config.PaymentOptionByCode("klarna")
	require.True(t, ok)
	assert.Equal(t, "klarna", option.PaymentMethodCode)
}

func TestConfiguration_AuthorizeLinkMissing(t *testing.T) {
	config := lookupConfiguration()

	_, err := config.AuthorizeLink()
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrMissingData))
	assert.True(t, errors.Is(err, &PayrailsError{Code: ErrMissingData}))

	config.Execution.Links.Authorize = &Link{Href: "https://api.test/authorize", Method: "POST"}
	link, err := config.AuthorizeLink()
	require.NoError(t, err)
	assert.Equal(t, "https://api.test/authorize", link.Href)
}

func TestConfiguration_StoredInstruments(t *testing.T) {
	config := lookupConfiguration(
		PaymentOption{
			PaymentMethodCode: "card",
			PaymentInstruments: []PaymentInstrument{
				{ID: "card-1", Status: "enabled"},
				{ID: "card-2", Status: "disabled"},
			},
		},
		PaymentOption{
			PaymentMethodCode: "payPal",
			PaymentInstruments: []PaymentInstrument{
				{ID: "pp-1", Status: "enabled", Data: map[string]any{"email": "payer@example.com"}},
			},
		},
	)

	all := config.StoredInstruments()
	require.Len(t, all, 2)
	assert.Equal(t, "card-1", all[0].ID)
	assert.Equal(t, PaymentTypeCard, all[0].Type)
	assert.Equal(t, "payer@example.com", all[1].Email)

	payPal := config.StoredInstruments(PaymentTypePayPal)
	require.Len(t, payPal, 1)
	assert.Equal(t, "pp-1", payPal[0].ID)
}

func TestPaymentTypeForCode(t *testing.T) {
	assert.Equal(t, PaymentTypeCard, PaymentTypeForCode("card"))
	assert.Equal(t, PaymentTypeApplePay, PaymentTypeForCode("applePay"))
	assert.Equal(t, PaymentTypeGenericRedirect, PaymentTypeForCode("ideal"))
	assert.Equal(t, "", PaymentTypeGenericRedirect.MethodCode())
}
