package framework

import "sync"

// DefaultMaxContextTokens is used when the configuration leaves the budget unset.
const DefaultMaxContextTokens = 128000

// ContextWindow owns the ordered transcript sent to the model each turn.
//
// Index 0 always holds the system message. The token count is whatever the
// provider last reported for the prompt; the window never tokenizes locally.
// Eviction runs only inside UpdateTokenUsage and does not recompute the count
// after each removal, so the window may shed more history than strictly
// necessary until the next provider report corrects the figure.
//
// A single control loop writes to the window. Other goroutines must read
// through Snapshot.
type ContextWindow struct {
	mu            sync.RWMutex
	messages      []Message
	maxTokens     int
	currentTokens int
	policies      BudgetPolicies
}

// BudgetPolicies define the usage ratios at which the window reports pressure.
type BudgetPolicies struct {
	WarningThreshold     float64
	CompressionThreshold float64
	CriticalThreshold    float64
}

// BudgetState captures how close the window is to its token budget.
type BudgetState int

const (
	BudgetOK BudgetState = iota
	BudgetWarning
	BudgetNeedsCompression
	BudgetCritical
)

func (bs BudgetState) String() string {
	switch bs {
	case BudgetOK:
		return "OK"
	case BudgetWarning:
		return "Warning"
	case BudgetNeedsCompression:
		return "Needs Compression"
	case BudgetCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// WindowSnapshot is an immutable view of the window for concurrent readers.
type WindowSnapshot struct {
	Messages        []Message
	CurrentTokens   int
	MaxTokens       int
	UsagePercent    float64
	RemainingTokens int
	State           BudgetState
}

// NewContextWindow seeds the transcript with the system prompt.
func NewContextWindow(systemPrompt string, maxTokens int) *ContextWindow {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxContextTokens
	}
	return &ContextWindow{
		messages:  []Message{{Role: RoleSystem, Content: systemPrompt}},
		maxTokens: maxTokens,
		policies: BudgetPolicies{
			WarningThreshold:     0.70,
			CompressionThreshold: 0.80,
			CriticalThreshold:    0.90,
		},
	}
}

// AddUserMessage appends the task wrapped in <question>.
func (w *ContextWindow) AddUserMessage(content string) {
	w.append(RoleUser, WrapTag(TagQuestion, content))
}

// AddAssistantAction records the action the model chose this turn.
func (w *ContextWindow) AddAssistantAction(content string) {
	w.append(RoleAssistant, WrapTag(TagAction, content))
}

// AddObservation feeds a tool result back as a user-role message.
func (w *ContextWindow) AddObservation(content string) {
	w.append(RoleUser, WrapTag(TagObservation, content))
}

// AddFinalAnswer records the terminal answer for the task.
func (w *ContextWindow) AddFinalAnswer(content string) {
	w.append(RoleAssistant, WrapTag(TagFinalAnswer, content))
}

func (w *ContextWindow) append(role Role, content string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages = append(w.messages, Message{Role: role, Content: content})
}

// UpdateTokenUsage stores the provider-reported prompt size and evicts the
// oldest non-system messages while the window is over budget.
func (w *ContextWindow) UpdateTokenUsage(promptTokens int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.currentTokens = promptTokens
	for w.currentTokens > w.maxTokens && len(w.messages) > 1 {
		w.messages = append(w.messages[:1], w.messages[2:]...)
	}
}

// ResetSegment drops everything but the system message and starts a new
// segment seeded with summary.
func (w *ContextWindow) ResetSegment(summary string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages = append(w.messages[:1:1], Message{Role: RoleUser, Content: WrapTag(TagSummary, summary)})
}

// GetMessages returns a copy of the transcript.
func (w *ContextWindow) GetMessages() []Message {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]Message(nil), w.messages...)
}

// Len reports the number of messages including the system prompt.
func (w *ContextWindow) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.messages)
}

// CurrentTokens is the last provider-reported prompt size.
func (w *ContextWindow) CurrentTokens() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.currentTokens
}

// MaxTokens is the configured budget.
func (w *ContextWindow) MaxTokens() int {
	return w.maxTokens
}

// GetTokenUsagePercent reports current usage as a percentage of the budget.
func (w *ContextWindow) GetTokenUsagePercent() float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.usagePercent()
}

// GetRemainingTokens reports the budget left, clamped at zero.
func (w *ContextWindow) GetRemainingTokens() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.remaining()
}

// CheckBudget buckets the current usage against the window policies.
func (w *ContextWindow) CheckBudget() BudgetState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state()
}

// Snapshot returns a consistent copy for readers on other goroutines.
func (w *ContextWindow) Snapshot() WindowSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WindowSnapshot{
		Messages:        append([]Message(nil), w.messages...),
		CurrentTokens:   w.currentTokens,
		MaxTokens:       w.maxTokens,
		UsagePercent:    w.usagePercent(),
		RemainingTokens: w.remaining(),
		State:           w.state(),
	}
}

func (w *ContextWindow) usagePercent() float64 {
	if w.maxTokens <= 0 {
		return 0
	}
	return float64(w.currentTokens) / float64(w.maxTokens) * 100
}

func (w *ContextWindow) remaining() int {
	remaining := w.maxTokens - w.currentTokens
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (w *ContextWindow) state() BudgetState {
	usage := w.usagePercent() / 100
	switch {
	case usage >= w.policies.CriticalThreshold:
		return BudgetCritical
	case usage >= w.policies.CompressionThreshold:
		return BudgetNeedsCompression
	case usage >= w.policies.WarningThreshold:
		return BudgetWarning
	default:
		return BudgetOK
	}
}
