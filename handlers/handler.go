// Package handlers contains one PaymentHandler per payment type. A handler
// turns user interaction with a provider (vault, wallet sheet, web page) into
// the request body the execution API expects, and drives the extra step a
// pending execution asks for.
package handlers

import (
	"context"

	"github.com/vitwit/payrails/logger"
	"github.com/vitwit/payrails/types"
)

// PaymentHandler drives one payment attempt for one payment type. Instances
// are not reused across attempts.
type PaymentHandler interface {
	Type() types.PaymentType

	// MakePayment collects the provider payload. It returns types.ErrCanceled
	// (possibly wrapped) when the user backs out.
	MakePayment(ctx context.Context, amount types.Amount, presenter Presenter) (map[string]any, error)

	// HandlePendingState runs the interaction a pending execution requires
	// (3-D Secure page, PayPal approval, redirect) and returns how to continue.
	HandlePendingState(ctx context.Context, execution *types.Execution, presenter Presenter) (*Continuation, error)

	// ProcessSuccessPayload builds the authorize body from a MakePayment payload.
	ProcessSuccessPayload(payload map[string]any, amount types.Amount) (*types.AuthorizeRequest, error)
}

// Continuation tells the orchestrator where to resume after a pending step.
type Continuation struct {
	Link    *types.Link
	Payload map[string]any
}

// Presenter is the host UI surface. It is the only presentation capability
// handlers need.
type Presenter interface {
	// PresentWebView shows url and streams every URL the view navigates to.
	// The channel is closed when the view is dismissed.
	PresentWebView(ctx context.Context, url string) (<-chan string, error)
}

// CardDataSource is implemented by presenters hosting a card form; the form
// attaches the encrypted card data it collected.
type CardDataSource interface {
	EncryptedCardData() string
}

// Vault tokenizes card data. Its output is opaque to the SDK.
type Vault interface {
	CollectFields(ctx context.Context) (map[string]string, error)
	Encrypt(ctx context.Context, fields map[string]string) (string, error)
}

// Listener is told right before a handler takes over the screen for a
// challenge.
type Listener interface {
	WillRequestChallengePresentation(t types.PaymentType)
}

// Deps are the collaborators handlers are built with. Any of them may be nil
// when the host does not offer the corresponding payment type.
type Deps struct {
	Vault    Vault
	ApplePay ApplePayProvider
	PayPal   PayPalProvider
	Listener Listener
	Logger   logger.Logger
}

func (d Deps) log() logger.Logger {
	if d.Logger == nil {
		return logger.NoopLogger{}
	}
	return d.Logger
}

func (d Deps) notify(t types.PaymentType) {
	d.log().Info("presenting challenge", map[string]any{
		"payment_method": t.String(),
	})
	if d.Listener != nil {
		d.Listener.WillRequestChallengePresentation(t)
	}
}
