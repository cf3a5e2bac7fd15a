package framework

import "sync"

// SessionState is the coordination surface shared by the loop and the tools
// that steer it: the active plan and a pending request to start a new
// context segment. The loop goroutine is the only writer of the plan steps;
// the mutex only guards the pointers for readers such as a UI.
type SessionState struct {
	mu      sync.RWMutex
	plan    *TaskPlan
	summary *string
}

// NewSessionState returns an empty state.
func NewSessionState() *SessionState {
	return &SessionState{}
}

// Plan returns the active plan or nil.
func (s *SessionState) Plan() *TaskPlan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plan
}

// SetPlan replaces the active plan.
func (s *SessionState) SetPlan(plan *TaskPlan) {
	s.mu.Lock()
	s.plan = plan
	s.mu.Unlock()
}

// RequestSegment asks the loop to restart the transcript from summary once
// the current turn's observation has been recorded.
func (s *SessionState) RequestSegment(summary string) {
	s.mu.Lock()
	s.summary = &summary
	s.mu.Unlock()
}

// TakeSegment returns and clears a pending segment request.
func (s *SessionState) TakeSegment() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.summary == nil {
		return "", false
	}
	summary := *s.summary
	s.summary = nil
	return summary, true
}
