package types

import "time"

// Integration type sent with every payment composition.
const IntegrationTypeAPI = "api"

// AuthorizeRequest is the body POSTed to the authorize link.
type AuthorizeRequest struct {
	Amount             Amount               `json:"amount" validate:"required"`
	ReturnInfo         ReturnInfo           `json:"returnInfo"`
	Risk               *Risk                `json:"risk,omitempty"`
	PaymentComposition []PaymentComposition `json:"paymentComposition" validate:"min=1,dive"`
}

// ReturnInfo holds the URLs a challenge or redirect page finally navigates to.
type ReturnInfo struct {
	Success string `json:"success"`
	Cancel  string `json:"cancel"`
	Error   string `json:"error"`
}

type Risk struct {
	SessionID string `json:"sessionId"`
}

// PaymentComposition is one instrument taking part in a payment.
type PaymentComposition struct {
	PaymentMethodCode     string         `json:"paymentMethodCode" validate:"required"`
	IntegrationType       string         `json:"integrationType"`
	Amount                Amount         `json:"amount"`
	StoreInstrument       bool           `json:"storeInstrument"`
	PaymentInstrumentID   string         `json:"paymentInstrumentId,omitempty"`
	PaymentInstrumentData map[string]any `json:"paymentInstrumentData,omitempty"`
}

// ActionResponse is returned by the authorize and confirm actions.
type ActionResponse struct {
	Name       string      `json:"name"`
	ActionID   string      `json:"actionId"`
	Links      ActionLinks `json:"links"`
	ExecutedAt time.Time   `json:"executedAt"`
}

type ActionLinks struct {
	Execution    string `json:"execution"`
	ConsumerWait string `json:"consumerWait,omitempty"`
}

// PaymentResult is what the execution protocol resolves a round to.
type PaymentResult struct {
	Status    PaymentStatus
	Execution *Execution
}
