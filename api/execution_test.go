package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/payrails/types"
)

func authorizeRequest() *types.AuthorizeRequest {
	amount := types.Amount{Value: "10.00", Currency: "EUR"}
	return &types.AuthorizeRequest{
		Amount:     amount,
		ReturnInfo: types.ReturnInfo{Success: "s", Cancel: "c", Error: "e"},
		PaymentComposition: []types.PaymentComposition{{
			PaymentMethodCode: "card",
			IntegrationType:   types.IntegrationTypeAPI,
			Amount:            amount,
			StoreInstrument:   true,
		}},
	}
}

func newTestClient(t *testing.T, config *types.Configuration, opts ...Option) *Client {
	opts = append([]Option{WithStatusRetry(5, time.Millisecond)}, opts...)
	c, err := NewClient(config, opts...)
	require.NoError(t, err)
	return c
}

func TestNewClient_NilConfiguration(t *testing.T) {
	_, err := NewClient(nil)
	assert.True(t, types.HasCode(err, types.ErrSDKNotInitialized))
}

func TestMakePayment_MissingAuthorizeLinkSendsNothing(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	config := &types.Configuration{
		Token:     "secret-token",
		Execution: &types.Execution{ID: "exec-1", Links: types.ExecutionLinks{Self: srv.URL}},
	}
	c := newTestClient(t, config)

	_, err := c.MakePayment(context.Background(), types.PaymentTypeCard, authorizeRequest())
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.ErrMissingData))
	assert.Zero(t, hits.Load())
}

func TestMakePayment_Success(t *testing.T) {
	api := newFakeAPI(t)
	api.reads = []types.StatusHistory{{
		status(types.StatusCreated, 0),
		status(types.StatusAuthorizeSuccessful, 20),
		status(types.StatusAuthorizeRequested, 10),
	}}

	c := newTestClient(t, api.configuration(), WithClientInfo("2.1.0", ""))

	result, err := c.MakePayment(context.Background(), types.PaymentTypeCard, authorizeRequest())
	require.NoError(t, err)
	assert.Equal(t, types.PaymentStatusSuccess, result.Status)
	assert.Equal(t, "exec-1", result.Execution.ID)

	gets, longPolls, authorizes, _ := api.counts()
	assert.Equal(t, 1, authorizes)
	assert.Equal(t, 1, gets)
	assert.Zero(t, longPolls)

	// body shape
	composition := api.lastAuthorize["paymentComposition"].([]any)[0].(map[string]any)
	assert.Equal(t, "card", composition["paymentMethodCode"])
	assert.Equal(t, true, composition["storeInstrument"])
	assert.Equal(t, map[string]any{"value": "10.00", "currency": "EUR"}, api.lastAuthorize["amount"])

	// headers
	assert.Equal(t, "Bearer secret-token", api.headers.Get("Authorization"))
	assert.Equal(t, "application/json", api.headers.Get("Content-Type"))
	assert.Equal(t, "ios-sdk", api.headers.Get(headerClientType))
	assert.Equal(t, "2.1.0", api.headers.Get(headerClientVersion))
	require.Len(t, api.idempotencyKey, 2)
	assert.NotEmpty(t, api.idempotencyKey[0])
	assert.NotEqual(t, api.idempotencyKey[0], api.idempotencyKey[1])
}

func TestMakePayment_LongPollResolvesPending(t *testing.T) {
	api := newFakeAPI(t)
	api.reads = []types.StatusHistory{{
		status(types.StatusCreated, 0),
		status(types.StatusAuthorizeRequested, 10),
	}}
	api.longPoll = types.StatusHistory{
		status(types.StatusCreated, 0),
		status(types.StatusAuthorizeRequested, 10),
		status(types.StatusAuthorizePending, 20),
	}

	c := newTestClient(t, api.configuration())

	result, err := c.MakePayment(context.Background(), types.PaymentTypeCard, authorizeRequest())
	require.NoError(t, err)
	assert.Equal(t, types.PaymentStatusPending, result.Status)

	_, longPolls, _, _ := api.counts()
	assert.Equal(t, 1, longPolls)
	assert.Equal(t, []string{`["created","authorizeRequested"]`}, api.waitWhile)
}

func TestMakePayment_NoStatusAfterLongPollIsFailure(t *testing.T) {
	api := newFakeAPI(t)
	history := types.StatusHistory{
		status(types.StatusAuthorizeFailed, 5),
		status(types.StatusAuthorizeRequested, 10),
	}
	api.reads = []types.StatusHistory{history}
	api.longPoll = history

	c := newTestClient(t, api.configuration())

	result, err := c.MakePayment(context.Background(), types.PaymentTypeCard, authorizeRequest())
	require.NoError(t, err)
	assert.Equal(t, types.PaymentStatusFailure, result.Status)

	_, longPolls, _, _ := api.counts()
	assert.Equal(t, 1, longPolls)
}

func TestMakePayment_AuthenticationError(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			api := newFakeAPI(t)
			api.authorizeCode = code
			c := newTestClient(t, api.configuration())

			_, err := c.MakePayment(context.Background(), types.PaymentTypeCard, authorizeRequest())
			require.Error(t, err)
			assert.True(t, types.HasCode(err, types.ErrAuthentication))

			gets, _, _, _ := api.counts()
			assert.Zero(t, gets)
		})
	}
}

func TestStatusAndConfirm_AuthenticationError(t *testing.T) {
	pending := types.StatusHistory{status(types.StatusAuthorizeRequested, 10)}

	tests := []struct {
		name string
		set  func(api *fakeAPI, code int)
		call func(c *Client, api *fakeAPI) error
	}{
		{
			name: "status read",
			set:  func(api *fakeAPI, code int) { api.readCode = code },
			call: func(c *Client, api *fakeAPI) error {
				_, err := c.MakePayment(context.Background(), types.PaymentTypeCard, authorizeRequest())
				return err
			},
		},
		{
			name: "long poll",
			set: func(api *fakeAPI, code int) {
				api.reads = []types.StatusHistory{pending}
				api.longPollCode = code
			},
			call: func(c *Client, api *fakeAPI) error {
				_, err := c.MakePayment(context.Background(), types.PaymentTypeCard, authorizeRequest())
				return err
			},
		},
		{
			name: "confirm",
			set:  func(api *fakeAPI, code int) { api.confirmCode = code },
			call: func(c *Client, api *fakeAPI) error {
				link := &types.Link{Method: http.MethodPost, Href: api.url("/confirm")}
				_, err := c.ConfirmPayment(context.Background(), types.PaymentTypePayPal, link, map[string]any{})
				return err
			},
		},
	}

	for _, tt := range tests {
		for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden} {
			t.Run(tt.name+"/"+http.StatusText(code), func(t *testing.T) {
				api := newFakeAPI(t)
				tt.set(api, code)
				c := newTestClient(t, api.configuration())

				err := tt.call(c, api)
				require.Error(t, err)
				assert.True(t, types.HasCode(err, types.ErrAuthentication))
			})
		}
	}
}

func TestMakePayment_ReadIsNotRetriedAfterAuthenticationError(t *testing.T) {
	api := newFakeAPI(t)
	api.readCode = http.StatusUnauthorized
	c := newTestClient(t, api.configuration())

	_, err := c.MakePayment(context.Background(), types.PaymentTypeCard, authorizeRequest())
	assert.True(t, types.HasCode(err, types.ErrAuthentication))

	gets, longPolls, _, _ := api.counts()
	assert.Equal(t, 1, gets)
	assert.Zero(t, longPolls)
}

func TestMakePayment_DeadlineIsUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	config := &types.Configuration{
		Token: "secret-token",
		Execution: &types.Execution{
			ID:    "exec-1",
			Links: types.ExecutionLinks{Authorize: &types.Link{Method: http.MethodPost, Href: srv.URL}},
		},
	}
	c := newTestClient(t, config)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.MakePayment(ctx, types.PaymentTypeCard, authorizeRequest())
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.ErrUnknown))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMakePayment_ServerErrorIsUnknown(t *testing.T) {
	api := newFakeAPI(t)
	api.authorizeCode = http.StatusInternalServerError
	c := newTestClient(t, api.configuration())

	_, err := c.MakePayment(context.Background(), types.PaymentTypeCard, authorizeRequest())
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.ErrUnknown))
}

func TestMakePayment_RetriesUntilMarkerVisible(t *testing.T) {
	api := newFakeAPI(t)
	api.reads = []types.StatusHistory{
		{status(types.StatusCreated, 0)},
		{status(types.StatusCreated, 0)},
		{
			status(types.StatusCreated, 0),
			status(types.StatusAuthorizeRequested, 10),
			status(types.StatusAuthorizeFailed, 20),
		},
	}

	c := newTestClient(t, api.configuration())

	result, err := c.MakePayment(context.Background(), types.PaymentTypeCard, authorizeRequest())
	require.NoError(t, err)
	assert.Equal(t, types.PaymentStatusFailure, result.Status)

	gets, longPolls, _, _ := api.counts()
	assert.Equal(t, 3, gets)
	assert.Zero(t, longPolls)
}

func TestMakePayment_MarkerNeverVisibleIsFailure(t *testing.T) {
	api := newFakeAPI(t)
	api.reads = []types.StatusHistory{{status(types.StatusCreated, 0)}}

	c := newTestClient(t, api.configuration(), WithStatusRetry(2, time.Millisecond))

	result, err := c.MakePayment(context.Background(), types.PaymentTypeCard, authorizeRequest())
	require.NoError(t, err)
	assert.Equal(t, types.PaymentStatusFailure, result.Status)

	gets, longPolls, _, _ := api.counts()
	assert.Equal(t, 3, gets)
	assert.Zero(t, longPolls)
}

func TestMakePayment_InvalidBody(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(t, api.configuration())

	body := authorizeRequest()
	body.PaymentComposition = nil

	_, err := c.MakePayment(context.Background(), types.PaymentTypeCard, body)
	assert.True(t, types.HasCode(err, types.ErrInvalidDataFormat))

	_, _, authorizes, _ := api.counts()
	assert.Zero(t, authorizes)
}

func TestConfirmPayment_GetLinkOnlyResolvesStatus(t *testing.T) {
	api := newFakeAPI(t)
	api.reads = []types.StatusHistory{{
		status(types.StatusAuthorizeRequested, 10),
		status(types.StatusAuthorizePending, 15),
		status(types.StatusAuthorizeSuccessful, 30),
	}}

	c := newTestClient(t, api.configuration())

	link := &types.Link{Method: http.MethodGet, Href: api.url("/execution")}
	result, err := c.ConfirmPayment(context.Background(), types.PaymentTypeGenericRedirect, link, nil)
	require.NoError(t, err)
	assert.Equal(t, types.PaymentStatusSuccess, result.Status)

	_, _, _, confirms := api.counts()
	assert.Zero(t, confirms)
}

func TestConfirmPayment_PendingIsNotAnOutcome(t *testing.T) {
	api := newFakeAPI(t)
	api.reads = []types.StatusHistory{{
		status(types.StatusAuthorizeRequested, 10),
		status(types.StatusAuthorizePending, 15),
	}}
	api.longPoll = types.StatusHistory{
		status(types.StatusAuthorizeRequested, 10),
		status(types.StatusAuthorizePending, 15),
		status(types.StatusAuthorizeFailed, 40),
	}

	c := newTestClient(t, api.configuration())

	link := &types.Link{Method: http.MethodPost, Href: api.url("/confirm")}
	payload := map[string]any{"data": map[string]any{"orderId": "order-1", "payerId": "payer-1"}}

	result, err := c.ConfirmPayment(context.Background(), types.PaymentTypePayPal, link, payload)
	require.NoError(t, err)
	assert.Equal(t, types.PaymentStatusFailure, result.Status)

	_, longPolls, _, confirms := api.counts()
	assert.Equal(t, 1, confirms)
	assert.Equal(t, 1, longPolls)
	assert.Equal(t, map[string]any{"orderId": "order-1", "payerId": "payer-1"}, api.lastConfirm["data"])
}

func TestConfirmPayment_MissingLink(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(t, api.configuration())

	_, err := c.ConfirmPayment(context.Background(), types.PaymentTypePayPal, nil, nil)
	assert.True(t, types.HasCode(err, types.ErrMissingData))

	_, err = c.ConfirmPayment(context.Background(), types.PaymentTypePayPal, &types.Link{Method: http.MethodPost}, nil)
	assert.True(t, types.HasCode(err, types.ErrMissingData))
}

func TestMakePayment_CanceledContext(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(t, api.configuration())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.MakePayment(ctx, types.PaymentTypeCard, authorizeRequest())
	require.ErrorIs(t, err, context.Canceled)
}
