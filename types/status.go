package types

import (
	"sort"
	"time"
)

// StatusCode is a status code of a payment execution.
type StatusCode string

const (
	StatusCreated             StatusCode = "created"
	StatusAuthorizeRequested  StatusCode = "authorizeRequested"
	StatusAuthorizeSuccessful StatusCode = "authorizeSuccessful"
	StatusAuthorizeFailed     StatusCode = "authorizeFailed"
	StatusAuthorizePending    StatusCode = "authorizePending"
)

// PaymentStatus is the resolved outcome of one authorize or confirm round.
type PaymentStatus string

const (
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailure PaymentStatus = "failure"
	PaymentStatusPending PaymentStatus = "pending"
)

// PaymentStatus maps a terminal status code to a payment status.
func (c StatusCode) PaymentStatus() (PaymentStatus, bool) {
	switch c {
	case StatusAuthorizeSuccessful:
		return PaymentStatusSuccess, true
	case StatusAuthorizeFailed:
		return PaymentStatusFailure, true
	case StatusAuthorizePending:
		return PaymentStatusPending, true
	default:
		return "", false
	}
}

// Status is one entry of an execution's status history.
type Status struct {
	Code StatusCode `json:"code"`
	Time time.Time  `json:"time"`
}

// StatusHistory is the server-authoritative, append-only status list of an
// execution. Array position carries no meaning; only Time orders entries.
type StatusHistory []Status

// Sorted returns a copy ordered by time, newest first.
func (h StatusHistory) Sorted() StatusHistory {
	out := make(StatusHistory, len(h))
	copy(out, h)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.After(out[j].Time)
	})
	return out
}

// Latest returns the newest entry with the given code.
func (h StatusHistory) Latest(code StatusCode) (Status, bool) {
	for _, s := range h.Sorted() {
		if s.Code == code {
			return s, true
		}
	}
	return Status{}, false
}

// LatestAfter returns the newest entry whose code is one of targets and whose
// time is strictly after the given instant.
func (h StatusHistory) LatestAfter(after time.Time, targets ...StatusCode) (Status, bool) {
	for _, s := range h.Sorted() {
		if !s.Time.After(after) {
			break
		}
		for _, target := range targets {
			if s.Code == target {
				return s, true
			}
		}
	}
	return Status{}, false
}

// Codes returns the distinct codes in the history, in order of first appearance.
func (h StatusHistory) Codes() []StatusCode {
	seen := make(map[StatusCode]struct{}, len(h))
	codes := make([]StatusCode, 0, len(h))
	for _, s := range h {
		if _, ok := seen[s.Code]; ok {
			continue
		}
		seen[s.Code] = struct{}{}
		codes = append(codes, s.Code)
	}
	return codes
}
