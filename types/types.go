package types

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Amount is a monetary value exactly as the merchant backend expresses it.
type Amount struct {
	// Decimal string, e.g. "10.00". The scale is preserved on the wire.
	Value string `json:"value" validate:"required"`

	// ISO 4217 currency code.
	Currency string `json:"currency" validate:"required,len=3"`
}

// Decimal parses the amount value.
func (a Amount) Decimal() (decimal.Decimal, error) {
	return decimal.NewFromString(a.Value)
}

// Configuration is the checkout configuration handed to the SDK by the host app.
// It is created once per checkout and never mutated afterwards.
type Configuration struct {
	// Bearer credential for every execution API call.
	Token string `json:"token" validate:"required"`

	HolderReference string `json:"holderReference"`

	VaultConfiguration *VaultConfiguration `json:"vaultConfiguration,omitempty"`

	// Server-side payment execution this checkout belongs to.
	Execution *Execution `json:"execution" validate:"required"`

	Amount Amount `json:"amount"`
}

// VaultConfiguration describes the tokenization provider used for card data.
type VaultConfiguration struct {
	ProviderID       string `json:"providerId"`
	ProviderConfigID string `json:"providerConfigId"`
	Token            string `json:"token,omitempty"`
	Status           string `json:"status,omitempty"`
}

// Execution is the server-side payment execution record. The same shape is
// returned by GET on the execution resource.
type Execution struct {
	ID                string          `json:"id" validate:"required"`
	Status            StatusHistory   `json:"status"`
	CreatedAt         time.Time       `json:"createdAt"`
	MerchantReference string          `json:"merchantReference,omitempty"`
	HolderReference   string          `json:"holderReference,omitempty"`
	Workflow          Workflow        `json:"workflow"`
	Links             ExecutionLinks  `json:"links"`
	InitialResults    []InitialResult `json:"initialResults,omitempty" validate:"dive"`
	ActionRequired    string          `json:"actionRequired,omitempty"`
}

type Workflow struct {
	Code    string `json:"code"`
	Version int    `json:"version"`
}

// ExecutionLinks are the hypermedia links attached to an execution.
type ExecutionLinks struct {
	Self      string `json:"self,omitempty"`
	Lookup    *Link  `json:"lookup,omitempty"`
	Authorize *Link  `json:"authorize,omitempty"`
	Confirm   *Link  `json:"confirm,omitempty"`
	ThreeDS   string `json:"threeDS,omitempty"`
	Redirect  string `json:"redirect,omitempty"`
}

// Link is an actionable link: where to send a request and how.
type Link struct {
	Method string      `json:"method,omitempty"`
	Href   string      `json:"href"`
	Action *LinkAction `json:"action,omitempty"`
}

// LinkAction carries provider-specific hints attached to a link, such as the
// PayPal order id on a confirm link.
type LinkAction struct {
	Type           string            `json:"type,omitempty"`
	RedirectMethod string            `json:"redirectMethod,omitempty"`
	RedirectURL    string            `json:"redirectUrl,omitempty"`
	Parameters     map[string]string `json:"parameters,omitempty"`
}

// Parameter returns an action parameter, or "" if the link has none.
func (l *Link) Parameter(name string) string {
	if l == nil || l.Action == nil {
		return ""
	}
	return l.Action.Parameters[name]
}

// InitialResult is the result of an action run when the execution was created.
type InitialResult struct {
	Body       ResultBody `json:"body"`
	HTTPStatus int        `json:"httpStatus"`
}

type ResultBody struct {
	Name     string     `json:"name"`
	ActionID string     `json:"actionId,omitempty"`
	Data     LookupData `json:"data"`
}

// LookupData is the payload of the "lookup" action.
type LookupData struct {
	PaymentCompositionOptions []PaymentOption `json:"paymentCompositionOptions" validate:"dive"`
}

// PaymentOption is one payment method the merchant enabled for this checkout.
type PaymentOption struct {
	PaymentMethodCode  string              `json:"paymentMethodCode" validate:"required"`
	Description        string              `json:"description,omitempty"`
	IntegrationType    string              `json:"integrationType,omitempty"`
	Config             json.RawMessage     `json:"config,omitempty"`
	PaymentInstruments []PaymentInstrument `json:"paymentInstruments,omitempty"`
}

// Type reports the payment type this option is handled by.
func (o *PaymentOption) Type() PaymentType {
	return PaymentTypeForCode(o.PaymentMethodCode)
}

// PaymentInstrument is a previously saved payment method as the lookup returns it.
type PaymentInstrument struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	PaymentMethod string         `json:"paymentMethod"`
	HolderID      string         `json:"holderId,omitempty"`
	Data          map[string]any `json:"data,omitempty"`
}

// ApplePayConfig is the provider config attached to an Apple Pay option.
type ApplePayConfig struct {
	Parameters ApplePayParameters `json:"parameters"`
}

type ApplePayParameters struct {
	MerchantIdentifier   string   `json:"merchantIdentifier" validate:"required"`
	CountryCode          string   `json:"countryCode" validate:"required,len=2"`
	MerchantCapabilities []string `json:"merchantCapabilities" validate:"min=1"`
	SupportedNetworks    []string `json:"supportedNetworks" validate:"min=1"`
}

// PayPalConfig is the provider config attached to a PayPal option.
type PayPalConfig struct {
	ClientID    string `json:"clientId" validate:"required"`
	MerchantID  string `json:"merchantId"`
	Environment string `json:"environment,omitempty"`
}

// SDKConfig contains runtime settings of the SDK itself.
type SDKConfig struct {
	// Transport timeout for regular calls. Long-poll calls use the transport default.
	Timeout time.Duration `json:"timeout,omitempty"`

	// Bounded retries while the authorizeRequested marker is not yet visible.
	StatusRetryCount    int           `json:"statusRetryCount,omitempty"`
	StatusRetryInterval time.Duration `json:"statusRetryInterval,omitempty"`

	LogLevel      string `json:"logLevel,omitempty"`
	EnableMetrics bool   `json:"enableMetrics,omitempty"`
	ClientVersion string `json:"clientVersion,omitempty"`
	ClientType    string `json:"clientType,omitempty"`
}

// DefaultSDKConfig returns the settings used when no option overrides them.
func DefaultSDKConfig() SDKConfig {
	return SDKConfig{
		Timeout:             30 * time.Second,
		StatusRetryCount:    5,
		StatusRetryInterval: 250 * time.Millisecond,
		LogLevel:            "info",
		ClientVersion:       "1.0.0",
		ClientType:          "ios-sdk",
	}
}
