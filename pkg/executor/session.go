// Package executor implements the Tool Executor (spec §4.5), the hard
// boundary that classifies every tool call and emits ALLOW / BLOCK /
// REQUIRE_APPROVAL decisions against a session's monotonic taint state.
package executor

import (
	"context"
	"time"

	"github.com/aegisrail/govkernel/pkg/ledger"
	"github.com/aegisrail/govkernel/pkg/registry"
)

// SessionState is the one mutable state a session owns (spec §3). It is
// never touched outside the session's own loop goroutine.
type SessionState struct {
	SessionID          string
	StartedAt          time.Time
	ReleaseRootHash    string
	CurrentSensitivity registry.Sensitivity
	TaintSource        string
	SequenceNumber     int64
	LastReceiptHash    *string
}

// call is one Execute invocation queued onto a session's loop.
type call struct {
	req  ToolCallRequest
	ctx  context.Context
	resp chan callResult
}

type callResult struct {
	result *ToolCallResult
	err    error
}

// Session realizes spec.md §5's "one logical actor per session": a single
// goroutine owns the SessionState and processes requests off a buffered
// channel one at a time, so Execute is safe to call concurrently from
// multiple goroutines — every call is serialized onto the session's own
// loop in FIFO order, matching §5's note that the scheduling mechanism is
// an implementation choice (SPEC_FULL.md §5 expansion).
type Session struct {
	state   SessionState
	inbox   chan call
	done    chan struct{}
	deps    Dependencies

	toolCalls []ledger.ToolCallRecord
	approvals []string
}

// NewSession starts a session bound to releaseRootHash, with sensitivity
// initialized at PUBLIC (spec §3: current_sensitivity is monotone
// non-decreasing, so it must start at the bottom of the order), and
// launches its loop goroutine.
func NewSession(sessionID, releaseRootHash string, deps Dependencies, now time.Time) *Session {
	s := &Session{
		state: SessionState{
			SessionID:          sessionID,
			StartedAt:          now,
			ReleaseRootHash:    releaseRootHash,
			CurrentSensitivity: registry.SensitivityPublic,
			SequenceNumber:     0,
		},
		deps:  deps,
		inbox: make(chan call, 32),
		done:  make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *Session) loop() {
	defer close(s.done)
	for c := range s.inbox {
		result, err := s.execute(c.ctx, c.req)
		c.resp <- callResult{result: result, err: err}
	}
}

// Execute enqueues req onto the session's loop and blocks for its result,
// or until ctx is canceled.
func (s *Session) Execute(ctx context.Context, req ToolCallRequest) (*ToolCallResult, error) {
	resp := make(chan callResult, 1)
	select {
	case s.inbox <- call{req: req, ctx: ctx, resp: resp}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-resp:
		return r.result, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops accepting new calls and waits for the loop to drain.
func (s *Session) Close() {
	close(s.inbox)
	<-s.done
}

// State returns a snapshot of the session's current state. Safe to call
// once the Execute call(s) it should reflect have returned and no other
// goroutine is mid-Execute concurrently — the happens-before edge runs
// through each call's own response channel, not across unrelated calls.
func (s *Session) State() SessionState {
	return s.state
}

// PendingToolCalls returns the tool calls recorded since the last receipt
// append, for the caller to fold into the next Receipt. Same caller
// discipline as State.
func (s *Session) PendingToolCalls() []ledger.ToolCallRecord {
	out := make([]ledger.ToolCallRecord, len(s.toolCalls))
	copy(out, s.toolCalls)
	return out
}

// PendingApprovals returns the approval-token hashes consumed since the
// last receipt append.
func (s *Session) PendingApprovals() []string {
	out := make([]string, len(s.approvals))
	copy(out, s.approvals)
	return out
}

// ClearPending drops the accumulated tool calls and approvals after the
// caller has folded them into a sealed Receipt.
func (s *Session) ClearPending() {
	s.toolCalls = nil
	s.approvals = nil
}
