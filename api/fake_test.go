package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/vitwit/payrails/types"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func status(code types.StatusCode, seconds int) types.Status {
	return types.Status{Code: code, Time: t0.Add(time.Duration(seconds) * time.Second)}
}

// fakeAPI is an in-memory execution API. Plain reads walk through reads
// (repeating the last one); reads with waitWhile return longPoll.
type fakeAPI struct {
	t   *testing.T
	srv *httptest.Server

	mu             sync.Mutex
	reads          []types.StatusHistory
	longPoll       types.StatusHistory
	authorizeCode  int
	confirmCode    int
	readCode       int
	longPollCode   int
	gets           int
	longPolls      int
	authorizes     int
	confirms       int
	waitWhile      []string
	lastAuthorize  map[string]any
	lastConfirm    map[string]any
	idempotencyKey []string
	headers        http.Header
}

func newFakeAPI(t *testing.T) *fakeAPI {
	f := &fakeAPI{t: t}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /authorize", f.handleAuthorize)
	mux.HandleFunc("POST /confirm", f.handleConfirm)
	mux.HandleFunc("GET /execution", f.handleExecution)

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) url(path string) string {
	return f.srv.URL + path
}

func (f *fakeAPI) configuration() *types.Configuration {
	return &types.Configuration{
		Token: "secret-token",
		Execution: &types.Execution{
			ID: "exec-1",
			Links: types.ExecutionLinks{
				Self:      f.url("/execution"),
				Authorize: &types.Link{Method: http.MethodPost, Href: f.url("/authorize")},
			},
		},
		Amount: types.Amount{Value: "10.00", Currency: "EUR"},
	}
}

func (f *fakeAPI) record(r *http.Request) {
	f.idempotencyKey = append(f.idempotencyKey, r.Header.Get(headerIdempotencyKey))
	f.headers = r.Header.Clone()
}

func (f *fakeAPI) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(r)
	f.authorizes++

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		f.t.Errorf("decode authorize body: %v", err)
	}
	f.lastAuthorize = body

	if f.authorizeCode != 0 {
		w.WriteHeader(f.authorizeCode)
		return
	}
	f.writeAction(w, "authorize")
}

func (f *fakeAPI) handleConfirm(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(r)
	f.confirms++

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		f.t.Errorf("decode confirm body: %v", err)
	}
	f.lastConfirm = body

	if f.confirmCode != 0 {
		w.WriteHeader(f.confirmCode)
		return
	}
	f.writeAction(w, "confirm")
}

func (f *fakeAPI) writeAction(w http.ResponseWriter, name string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(types.ActionResponse{
		Name:     name,
		ActionID: name + "-1",
		Links:    types.ActionLinks{Execution: f.url("/execution")},
	})
}

func (f *fakeAPI) handleExecution(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(r)

	var history types.StatusHistory
	if wait := r.URL.Query().Get("waitWhile[status]"); wait != "" {
		f.longPolls++
		f.waitWhile = append(f.waitWhile, wait)
		if f.longPollCode != 0 {
			w.WriteHeader(f.longPollCode)
			return
		}
		history = f.longPoll
	} else {
		if f.readCode != 0 {
			f.gets++
			w.WriteHeader(f.readCode)
			return
		}
		idx := f.gets
		if idx >= len(f.reads) {
			idx = len(f.reads) - 1
		}
		f.gets++
		if idx >= 0 {
			history = f.reads[idx]
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(types.Execution{
		ID:     "exec-1",
		Status: history,
		Links: types.ExecutionLinks{
			Self:    f.url("/execution"),
			ThreeDS: "https://acs.test/challenge",
		},
	})
}

func (f *fakeAPI) counts() (gets, longPolls, authorizes, confirms int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets, f.longPolls, f.authorizes, f.confirms
}
