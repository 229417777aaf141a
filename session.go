package payrails

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vitwit/payrails/handlers"
	"github.com/vitwit/payrails/metrics"
	"github.com/vitwit/payrails/types"
)

// PaymentRequest selects what ExecutePayment pays with.
type PaymentRequest struct {
	Type types.PaymentType

	// MethodCode picks a payment option by code instead of by type. Redirect
	// methods are usually selected this way.
	MethodCode string

	SaveInstrument bool

	// Presenter hosts challenge and redirect pages. Card forms also hand over
	// their encrypted data through it.
	Presenter handlers.Presenter
}

// attempt is the state of one in-flight payment. Only the attempt the session
// currently points at may change session state or report a result.
type attempt struct {
	id       string
	method   types.PaymentType
	cancel   context.CancelFunc
	onResult func(types.OnPayResult)
	started  time.Time

	// result is set before done is closed. It stays nil for attempts that
	// were canceled or superseded.
	result *types.OnPayResult
	done   chan struct{}
}

// IsPaymentAvailable reports whether the configuration offers t and the
// session has what the handler needs to pay with it.
func (s *Session) IsPaymentAvailable(t types.PaymentType) bool {
	option, ok := s.config.PaymentOption(t)
	if !ok {
		return false
	}
	if _, err := handlers.New(t, option, s.config, false, s.handlerDeps(nil)); err != nil {
		return false
	}

	switch t {
	case types.PaymentTypeApplePay:
		return s.applePay != nil
	case types.PaymentTypePayPal:
		return s.payPal != nil
	default:
		return true
	}
}

// StoredInstruments lists the enabled instruments of the holder, optionally
// restricted to the given types.
func (s *Session) StoredInstruments(ts ...types.PaymentType) []types.StoredInstrument {
	return s.config.StoredInstruments(ts...)
}

// IsPaymentInProgress reports whether an attempt is active.
func (s *Session) IsPaymentInProgress() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// ExecutePayment starts a payment attempt and returns immediately. onResult is
// called exactly once through the Dispatcher, unless the attempt is canceled
// with CancelPayment or superseded by a newer attempt.
func (s *Session) ExecutePayment(ctx context.Context, req PaymentRequest, onResult func(types.OnPayResult)) {
	s.executePayment(ctx, req, onResult)
}

// Pay runs a payment attempt and blocks until it resolves or ctx ends. A
// canceled or superseded attempt resolves as cancelled by user.
func (s *Session) Pay(ctx context.Context, req PaymentRequest) types.OnPayResult {
	return wait(ctx, s.executePayment(ctx, req, nil))
}

// ExecuteStoredInstrument pays with a saved instrument. No provider UI is
// involved unless the execution asks for a challenge.
func (s *Session) ExecuteStoredInstrument(
	ctx context.Context,
	instrument types.StoredInstrument,
	presenter handlers.Presenter,
	onResult func(types.OnPayResult),
) {
	s.executeStoredInstrument(ctx, instrument, presenter, onResult)
}

// PayStoredInstrument is the blocking form of ExecuteStoredInstrument.
func (s *Session) PayStoredInstrument(
	ctx context.Context,
	instrument types.StoredInstrument,
	presenter handlers.Presenter,
) types.OnPayResult {
	return wait(ctx, s.executeStoredInstrument(ctx, instrument, presenter, nil))
}

// CancelPayment stops the active attempt. Its result callback is not called
// and anything it reports later is dropped.
func (s *Session) CancelPayment() {
	s.mu.Lock()
	a := s.current
	s.current = nil
	s.mu.Unlock()

	if a == nil {
		return
	}

	a.cancel()
	close(a.done)

	s.logger.Info("payment canceled", map[string]any{
		"attempt_id":     a.id,
		"payment_method": a.method.String(),
	})
	s.notifyState(false)
}

func (s *Session) executePayment(ctx context.Context, req PaymentRequest, onResult func(types.OnPayResult)) *attempt {
	if req.Type == "" && req.MethodCode != "" {
		req.Type = types.PaymentTypeForCode(req.MethodCode)
	}
	a := s.newAttempt(req.Type, onResult)

	handler, err := s.buildHandler(req, a)
	if err != nil {
		return s.reject(a, err)
	}
	a.method = handler.Type()

	attemptCtx := s.begin(ctx, a)
	go s.run(attemptCtx, a, func(ctx context.Context) types.OnPayResult {
		return s.checkout(ctx, handler, req.Presenter)
	})
	return a
}

func (s *Session) executeStoredInstrument(
	ctx context.Context,
	instrument types.StoredInstrument,
	presenter handlers.Presenter,
	onResult func(types.OnPayResult),
) *attempt {
	a := s.newAttempt(instrument.Type, onResult)

	body, err := handlers.StoredInstrumentRequest(instrument, s.config.Amount)
	if err != nil {
		return s.reject(a, err)
	}
	handler := handlers.NewForInstrument(instrument, s.handlerDeps(a))

	attemptCtx := s.begin(ctx, a)
	go s.run(attemptCtx, a, func(ctx context.Context) types.OnPayResult {
		result, err := s.api.MakePayment(ctx, instrument.Type, body)
		if err != nil {
			return resultForError(err)
		}
		return s.settle(ctx, handler, presenter, result)
	})
	return a
}

func (s *Session) newAttempt(method types.PaymentType, onResult func(types.OnPayResult)) *attempt {
	return &attempt{
		id:       uuid.NewString(),
		method:   method,
		onResult: onResult,
		done:     make(chan struct{}),
		started:  time.Now(),
	}
}

// buildHandler resolves the payment option by code or by type and builds its
// handler. Lookup failures surface before any attempt state changes.
func (s *Session) buildHandler(req PaymentRequest, a *attempt) (handlers.PaymentHandler, error) {
	var (
		option *types.PaymentOption
		ok     bool
	)
	if req.MethodCode != "" {
		option, ok = s.config.PaymentOptionByCode(req.MethodCode)
	} else {
		option, ok = s.config.PaymentOption(req.Type)
	}
	if !ok {
		return nil, types.NewUnsupportedPayment(req.Type)
	}

	return handlers.New(req.Type, option, s.config, req.SaveInstrument, s.handlerDeps(a))
}

func (s *Session) handlerDeps(a *attempt) handlers.Deps {
	deps := handlers.Deps{
		Vault:    s.vault,
		ApplePay: s.applePay,
		PayPal:   s.payPal,
		Logger:   s.logger,
	}
	if a != nil {
		deps.Listener = &attemptListener{session: s, attempt: a}
	}
	return deps
}

// reject reports a request that failed before it became an attempt. The
// active attempt, if any, is left alone.
func (s *Session) reject(a *attempt, err error) *attempt {
	s.logger.Warn("payment rejected", map[string]any{
		"payment_method": a.method.String(),
		"error":          err,
	})
	s.metrics.IncCounter(metrics.PaymentResults, map[string]string{
		metrics.LabelPaymentMethod: a.method.String(),
		metrics.LabelResult:        types.ResultError.String(),
	})

	result := types.PayError(err)
	a.result = &result
	s.dispatcher.Dispatch(func() {
		if a.onResult != nil {
			a.onResult(result)
		}
	})
	close(a.done)
	return a
}

// begin makes a the active attempt. A still running attempt is canceled; it
// never reports.
func (s *Session) begin(ctx context.Context, a *attempt) context.Context {
	attemptCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	s.mu.Lock()
	previous := s.current
	s.current = a
	s.mu.Unlock()

	if previous != nil {
		previous.cancel()
		close(previous.done)
		s.logger.Warn("payment attempt superseded", map[string]any{
			"attempt_id":     previous.id,
			"payment_method": previous.method.String(),
			"superseded_by":  a.id,
		})
	}

	s.metrics.IncCounter(metrics.PaymentAttempts, map[string]string{
		metrics.LabelPaymentMethod: a.method.String(),
	})
	s.logger.Info("payment started", map[string]any{
		"attempt_id":     a.id,
		"payment_method": a.method.String(),
	})
	if previous == nil {
		s.notifyState(true)
	}
	return attemptCtx
}

func (s *Session) run(ctx context.Context, a *attempt, flow func(context.Context) types.OnPayResult) {
	ctx, span := s.tracer.Start(ctx, "payrails.payment", trace.WithAttributes(
		attribute.String("payrails.payment_method", a.method.String()),
		attribute.String("payrails.attempt_id", a.id),
	))
	defer span.End()

	result := flow(ctx)

	span.SetAttributes(attribute.String("payrails.result", result.Kind.String()))
	if result.Err != nil {
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, result.Err.Error())
	}

	s.finish(a, result)
}

// checkout runs the full sequence for a freshly built handler.
func (s *Session) checkout(ctx context.Context, handler handlers.PaymentHandler, presenter handlers.Presenter) types.OnPayResult {
	amount := s.config.Amount

	payload, err := handler.MakePayment(ctx, amount, presenter)
	if err != nil {
		return resultForError(err)
	}

	body, err := handler.ProcessSuccessPayload(payload, amount)
	if err != nil {
		return resultForError(err)
	}

	result, err := s.api.MakePayment(ctx, handler.Type(), body)
	if err != nil {
		return resultForError(err)
	}
	return s.settle(ctx, handler, presenter, result)
}

// settle interprets an authorize outcome. Pending hands over to the handler,
// then either completes (card) or confirms.
func (s *Session) settle(
	ctx context.Context,
	handler handlers.PaymentHandler,
	presenter handlers.Presenter,
	result *types.PaymentResult,
) types.OnPayResult {
	switch result.Status {
	case types.PaymentStatusSuccess:
		return types.PaySuccess()
	case types.PaymentStatusFailure:
		return types.PayFailure()
	}

	s.logger.Info("payment pending", map[string]any{
		"payment_method": handler.Type().String(),
		"status":         string(result.Status),
	})

	continuation, err := handler.HandlePendingState(ctx, result.Execution, presenter)
	if err != nil {
		return resultForError(err)
	}

	// A completed 3-D Secure challenge is final for cards.
	if handler.Type() == types.PaymentTypeCard {
		return types.PaySuccess()
	}

	if continuation == nil {
		return types.PayError(types.NewMissingData("pending continuation"))
	}

	confirmed, err := s.api.ConfirmPayment(ctx, handler.Type(), continuation.Link, continuation.Payload)
	if err != nil {
		return resultForError(err)
	}
	if confirmed.Status == types.PaymentStatusSuccess {
		return types.PaySuccess()
	}
	return types.PayFailure()
}

// finish reports result if a is still the active attempt, and releases it.
func (s *Session) finish(a *attempt, result types.OnPayResult) {
	s.mu.Lock()
	if s.current != a {
		s.mu.Unlock()
		s.logger.Debug("dropping result of inactive attempt", map[string]any{
			"attempt_id":     a.id,
			"payment_method": a.method.String(),
			"result":         result.Kind.String(),
		})
		return
	}
	s.current = nil
	s.mu.Unlock()

	a.cancel()

	s.metrics.IncCounter(metrics.PaymentResults, map[string]string{
		metrics.LabelPaymentMethod: a.method.String(),
		metrics.LabelResult:        result.Kind.String(),
	})

	fields := map[string]any{
		"attempt_id":     a.id,
		"payment_method": a.method.String(),
		"result":         result.Kind.String(),
		"elapsed":        time.Since(a.started).String(),
	}
	if result.Err != nil {
		fields["error"] = result.Err
		s.logger.Warn("payment finished with error", fields)
	} else {
		s.logger.Info("payment finished", fields)
	}

	a.result = &result
	delegate := s.delegate
	s.dispatcher.Dispatch(func() {
		if delegate != nil {
			delegate.PaymentStateChanged(false)
		}
		if a.onResult != nil {
			a.onResult(result)
		}
	})
	close(a.done)
}

// wait blocks until a is released. It does not depend on the Dispatcher
// running the result callback, so a stopped main loop cannot hold it.
func wait(ctx context.Context, a *attempt) types.OnPayResult {
	select {
	case <-a.done:
		if a.result != nil {
			return *a.result
		}
		return types.PayCancelledByUser()
	case <-ctx.Done():
		return resultForError(ctx.Err())
	}
}

func (s *Session) notifyState(inProgress bool) {
	if s.delegate == nil {
		return
	}
	delegate := s.delegate
	s.dispatcher.Dispatch(func() {
		delegate.PaymentStateChanged(inProgress)
	})
}

func (s *Session) isActive(a *attempt) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current == a
}

// resultForError folds an error into the result enumeration.
func resultForError(err error) types.OnPayResult {
	switch {
	case errors.Is(err, types.ErrCanceled), errors.Is(err, context.Canceled):
		return types.PayCancelledByUser()
	case types.HasCode(err, types.ErrAuthentication):
		return types.PayAuthorizationFailed()
	default:
		return types.PayError(err)
	}
}

// attemptListener forwards handler notifications to the delegate while its
// attempt is active.
type attemptListener struct {
	session *Session
	attempt *attempt
}

func (l *attemptListener) WillRequestChallengePresentation(t types.PaymentType) {
	s := l.session
	if s.delegate == nil || !s.isActive(l.attempt) {
		return
	}
	delegate := s.delegate
	s.dispatcher.Dispatch(func() {
		delegate.WillRequestChallengePresentation(t)
	})
}
