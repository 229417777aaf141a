package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/vitwit/payrails/logger"
	"github.com/vitwit/payrails/types"
)

// Pages a challenge or redirect flow finally lands on. They are sent as the
// returnInfo of every authorize request.
const (
	ReturnURLSuccess = "https://assets.payrails.io/html/payrails-success.html"
	ReturnURLCancel  = "https://assets.payrails.io/html/payrails-cancel.html"
	ReturnURLError   = "https://assets.payrails.io/html/payrails-error.html"
)

// RedirectOutcome classifies a web view navigation.
type RedirectOutcome int

const (
	// RedirectInProgress is any navigation that is not a return page.
	RedirectInProgress RedirectOutcome = iota
	RedirectSuccess
	RedirectCancel
	RedirectError
)

func (o RedirectOutcome) String() string {
	switch o {
	case RedirectSuccess:
		return "success"
	case RedirectCancel:
		return "cancel"
	case RedirectError:
		return "error"
	default:
		return "inProgress"
	}
}

func DefaultReturnInfo() types.ReturnInfo {
	return types.ReturnInfo{
		Success: ReturnURLSuccess,
		Cancel:  ReturnURLCancel,
		Error:   ReturnURLError,
	}
}

// ClassifyRedirect maps a navigation target onto a flow outcome by prefix.
func ClassifyRedirect(url string) RedirectOutcome {
	switch {
	case strings.HasPrefix(url, ReturnURLSuccess):
		return RedirectSuccess
	case strings.HasPrefix(url, ReturnURLCancel):
		return RedirectCancel
	case strings.HasPrefix(url, ReturnURLError):
		return RedirectError
	default:
		return RedirectInProgress
	}
}

// awaitRedirect presents url and intercepts navigations until a return page
// is reached. nil means the success page was reached. Navigation targets are
// not logged; they can carry issuer session data.
func awaitRedirect(ctx context.Context, log logger.Logger, t types.PaymentType, presenter Presenter, url string) error {
	if presenter == nil {
		return types.NewMissingData("presenter for challenge page")
	}

	navigations, err := presenter.PresentWebView(ctx, url)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case next, ok := <-navigations:
			if !ok {
				log.Info("web view dismissed", map[string]any{"payment_method": t.String()})
				return types.ErrCanceled
			}
			outcome := ClassifyRedirect(next)
			if outcome != RedirectInProgress {
				log.Info("redirect classified", map[string]any{
					"payment_method": t.String(),
					"outcome":        outcome.String(),
				})
			}
			switch outcome {
			case RedirectSuccess:
				return nil
			case RedirectCancel:
				return types.ErrCanceled
			case RedirectError:
				return fmt.Errorf("%w: %s", ErrChallengeFailed, next)
			}
		}
	}
}

// selfLink points back at the execution, for continuations that only need
// the status resolved.
func selfLink(execution *types.Execution) *types.Link {
	return &types.Link{Method: http.MethodGet, Href: execution.Links.Self}
}

// RedirectHandler pays with any method that completes on a provider page.
type RedirectHandler struct {
	methodCode     string
	saveInstrument bool
	deps           Deps
}

var _ PaymentHandler = (*RedirectHandler)(nil)

func NewRedirectHandler(methodCode string, saveInstrument bool, deps Deps) *RedirectHandler {
	return &RedirectHandler{
		methodCode:     methodCode,
		saveInstrument: saveInstrument,
		deps:           deps,
	}
}

func (h *RedirectHandler) Type() types.PaymentType {
	return types.PaymentTypeGenericRedirect
}

func (h *RedirectHandler) MakePayment(ctx context.Context, amount types.Amount, presenter Presenter) (map[string]any, error) {
	if h.methodCode == "" {
		return nil, types.NewIncorrectPaymentSetup(h.Type(), errors.New("no payment method code"))
	}
	return map[string]any{
		payloadMethodCode:      h.methodCode,
		payloadStoreInstrument: h.saveInstrument,
	}, nil
}

func (h *RedirectHandler) HandlePendingState(ctx context.Context, execution *types.Execution, presenter Presenter) (*Continuation, error) {
	target := redirectURL(execution)
	if target == "" {
		return nil, types.NewMissingData("redirect link")
	}

	h.deps.notify(h.Type())
	if err := awaitRedirect(ctx, h.deps.log(), h.Type(), presenter, target); err != nil {
		return nil, err
	}
	return &Continuation{Link: selfLink(execution)}, nil
}

func (h *RedirectHandler) ProcessSuccessPayload(payload map[string]any, amount types.Amount) (*types.AuthorizeRequest, error) {
	code, _ := payload[payloadMethodCode].(string)
	if code == "" {
		return nil, invalidPayload(payloadMethodCode)
	}
	store, _ := payload[payloadStoreInstrument].(bool)

	return buildAuthorizeRequest(types.PaymentComposition{
		PaymentMethodCode: code,
		StoreInstrument:   store,
	}, amount)
}

func redirectURL(execution *types.Execution) string {
	links := execution.Links
	switch {
	case links.Redirect != "":
		return links.Redirect
	case links.Confirm != nil && links.Confirm.Action != nil && links.Confirm.Action.RedirectURL != "":
		return links.Confirm.Action.RedirectURL
	default:
		return links.ThreeDS
	}
}
