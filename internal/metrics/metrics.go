// Package metrics provides lock-free in-process counters for engine flows.
// Counters are plain atomics so the hot paths never contend; Snapshot takes a
// point-in-time copy for export by the caller.
package metrics

import "sync/atomic"

// ID identifies one counter.
type ID int

const (
	RegisterSuccess ID = iota
	RegisterDuplicate
	LoginSuccess
	LoginFailure
	RefreshSuccess
	RefreshFailure
	VerificationRequest
	VerificationSuccess
	VerificationFailure
	ResetRequest
	ResetSuccess
	ResetFailure

	idCount
)

var names = [idCount]string{
	RegisterSuccess:     "register_success",
	RegisterDuplicate:   "register_duplicate",
	LoginSuccess:        "login_success",
	LoginFailure:        "login_failure",
	RefreshSuccess:      "refresh_success",
	RefreshFailure:      "refresh_failure",
	VerificationRequest: "verification_request",
	VerificationSuccess: "verification_success",
	VerificationFailure: "verification_failure",
	ResetRequest:        "reset_request",
	ResetSuccess:        "reset_success",
	ResetFailure:        "reset_failure",
}

// Metrics holds the counter set. A nil *Metrics is valid and counts nothing.
type Metrics struct {
	counters [idCount]atomic.Uint64
}

func New(enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	return &Metrics{}
}

func (m *Metrics) Inc(id ID) {
	if m == nil || id < 0 || id >= idCount {
		return
	}
	m.counters[id].Add(1)
}

// Snapshot is a point-in-time copy of all counters keyed by metric name.
type Snapshot map[string]uint64

func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return nil
	}
	out := make(Snapshot, int(idCount))
	for id := ID(0); id < idCount; id++ {
		out[names[id]] = m.counters[id].Load()
	}
	return out
}
