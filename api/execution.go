package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vitwit/payrails/metrics"
	"github.com/vitwit/payrails/types"
	"github.com/vitwit/payrails/utils"
)

var (
	// Statuses that resolve an authorize round.
	authorizeTargets = []types.StatusCode{
		types.StatusAuthorizeSuccessful,
		types.StatusAuthorizeFailed,
		types.StatusAuthorizePending,
	}

	// After a confirm, pending is no longer an acceptable outcome.
	confirmTargets = []types.StatusCode{
		types.StatusAuthorizeSuccessful,
		types.StatusAuthorizeFailed,
	}
)

var errMarkerMissing = errors.New("authorizeRequested marker not yet recorded")

// MakePayment posts body to the authorize link of the configuration and
// resolves the execution status that follows.
func (c *Client) MakePayment(
	ctx context.Context,
	method types.PaymentType,
	body *types.AuthorizeRequest,
) (*types.PaymentResult, error) {
	link, err := c.config.AuthorizeLink()
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, types.NewInvalidDataFormat("authorize request is empty", nil)
	}
	if err := utils.ValidateStruct(body); err != nil {
		return nil, types.NewInvalidDataFormat("invalid authorize request", err)
	}

	ctx, span := c.tracer.Start(ctx, "payrails.authorize", trace.WithAttributes(
		attribute.String("payrails.payment_method", method.String()),
		attribute.String("payrails.execution_id", c.executionID()),
	))
	defer span.End()

	labels := map[string]string{metrics.LabelPaymentMethod: method.String()}
	start := time.Now()

	var resp types.ActionResponse
	err = c.do(ctx, c.httpClient, methodOrPost(link.Method), link.Href, body, &resp)
	metrics.Since(c.metrics, metrics.OperationAuthorize, start, labels)
	if err != nil {
		recordError(span, err)
		c.logger.Warn("authorize failed", map[string]any{
			"execution_id":   c.executionID(),
			"payment_method": method.String(),
			"error":          err,
		})
		return nil, err
	}

	if resp.Links.Execution == "" {
		err := types.NewMissingData("execution link in authorize response")
		recordError(span, err)
		return nil, err
	}

	c.logger.Info("payment authorize requested", map[string]any{
		"execution_id":   c.executionID(),
		"payment_method": method.String(),
		"action_id":      resp.ActionID,
	})

	return c.resolveStatus(ctx, method, resp.Links.Execution, authorizeTargets)
}

// ConfirmPayment continues a pending payment. A GET link only needs its
// status resolved; any other link receives payload first.
func (c *Client) ConfirmPayment(
	ctx context.Context,
	method types.PaymentType,
	link *types.Link,
	payload map[string]any,
) (*types.PaymentResult, error) {
	if link == nil || link.Href == "" {
		return nil, types.NewMissingData("confirm link")
	}

	if strings.EqualFold(link.Method, http.MethodGet) {
		return c.resolveStatus(ctx, method, link.Href, confirmTargets)
	}

	ctx, span := c.tracer.Start(ctx, "payrails.confirm", trace.WithAttributes(
		attribute.String("payrails.payment_method", method.String()),
		attribute.String("payrails.execution_id", c.executionID()),
	))
	defer span.End()

	labels := map[string]string{metrics.LabelPaymentMethod: method.String()}
	start := time.Now()

	var resp types.ActionResponse
	err := c.do(ctx, c.httpClient, methodOrPost(link.Method), link.Href, payload, &resp)
	metrics.Since(c.metrics, metrics.OperationConfirm, start, labels)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	if resp.Links.Execution == "" {
		err := types.NewMissingData("execution link in confirm response")
		recordError(span, err)
		return nil, err
	}

	return c.resolveStatus(ctx, method, resp.Links.Execution, confirmTargets)
}

// resolveStatus finds the outcome of the current round. A target status only
// counts when it is newer than the latest authorizeRequested marker, so stale
// results of earlier rounds are ignored. If no target is present yet, one long
// poll is issued; a second miss resolves as failure.
func (c *Client) resolveStatus(
	ctx context.Context,
	method types.PaymentType,
	href string,
	targets []types.StatusCode,
) (*types.PaymentResult, error) {
	ctx, span := c.tracer.Start(ctx, "payrails.status", trace.WithAttributes(
		attribute.String("payrails.payment_method", method.String()),
	))
	defer span.End()

	labels := map[string]string{metrics.LabelPaymentMethod: method.String()}
	start := time.Now()
	defer metrics.Since(c.metrics, metrics.OperationStatus, start, labels)

	execution, marker, err := c.fetchWithMarker(ctx, href)
	if err != nil {
		if errors.Is(err, errMarkerMissing) {
			c.logger.Warn("authorizeRequested marker never appeared", map[string]any{
				"execution_id": c.executionID(),
				"retries":      c.retryCount,
			})
			return &types.PaymentResult{Status: types.PaymentStatusFailure, Execution: execution}, nil
		}
		recordError(span, err)
		return nil, err
	}

	if result, ok := match(execution, marker, targets); ok {
		c.logResolved(method, result)
		return result, nil
	}

	c.logger.Debug("no terminal status yet, long polling", map[string]any{
		"execution_id": execution.ID,
		"wait_while":   execution.Status.Codes(),
	})

	execution, err = c.getExecution(ctx, c.pollClient, href, execution.Status.Codes())
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	if latest, ok := execution.Status.Latest(types.StatusAuthorizeRequested); ok {
		marker = latest
	}
	if result, ok := match(execution, marker, targets); ok {
		c.logResolved(method, result)
		return result, nil
	}

	c.logger.Info("no terminal status after long poll", map[string]any{
		"execution_id": execution.ID,
		"status":       execution.Status.Codes(),
	})
	return &types.PaymentResult{Status: types.PaymentStatusFailure, Execution: execution}, nil
}

// fetchWithMarker reads the execution until the authorizeRequested marker is
// visible. The marker can lag behind the authorize response; the re-reads are
// bounded by the configured retry count with exponential backoff.
func (c *Client) fetchWithMarker(ctx context.Context, href string) (*types.Execution, types.Status, error) {
	var (
		execution *types.Execution
		marker    types.Status
	)

	operation := func() error {
		e, err := c.getExecution(ctx, c.httpClient, href, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		execution = e

		latest, ok := e.Status.Latest(types.StatusAuthorizeRequested)
		if !ok {
			return errMarkerMissing
		}
		marker = latest
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInterval
	policy.MaxElapsedTime = 0
	policy.Reset()

	retries := c.retryCount
	if retries < 0 {
		retries = 0
	}
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(retries)), ctx)

	err := backoff.RetryNotify(operation, b, func(err error, wait time.Duration) {
		c.logger.Debug("execution status not ready, retrying", map[string]any{
			"execution_id": c.executionID(),
			"wait":         wait.String(),
		})
	})
	if err != nil {
		return execution, types.Status{}, err
	}
	return execution, marker, nil
}

func match(execution *types.Execution, marker types.Status, targets []types.StatusCode) (*types.PaymentResult, bool) {
	status, ok := execution.Status.LatestAfter(marker.Time, targets...)
	if !ok {
		return nil, false
	}
	paymentStatus, ok := status.Code.PaymentStatus()
	if !ok {
		return nil, false
	}
	return &types.PaymentResult{Status: paymentStatus, Execution: execution}, true
}

func (c *Client) logResolved(method types.PaymentType, result *types.PaymentResult) {
	c.logger.Info("payment status resolved", map[string]any{
		"execution_id":   result.Execution.ID,
		"payment_method": method.String(),
		"status":         string(result.Status),
	})
}

func (c *Client) executionID() string {
	if c.config.Execution == nil {
		return ""
	}
	return c.config.Execution.ID
}

func methodOrPost(method string) string {
	if method == "" {
		return http.MethodPost
	}
	return strings.ToUpper(method)
}
