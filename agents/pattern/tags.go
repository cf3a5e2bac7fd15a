package pattern

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lexcodex/reagent/framework"
)

var (
	thoughtPattern     = tagPattern(framework.TagThought)
	actionPattern      = tagPattern(framework.TagAction)
	finalAnswerPattern = tagPattern(framework.TagFinalAnswer)
	reflectionPattern  = tagPattern(framework.TagReflection)
	anyTagPattern      = regexp.MustCompile(`</?[A-Za-z_][\w-]*(\s[^<>]*)?/?>`)
)

func tagPattern(tag string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`(?s)<%s>(.*?)</%s>`, tag, tag))
}

// TurnSections holds the tagged sections found in one model reply.
type TurnSections struct {
	Thought       string
	Action        string
	FinalAnswer   string
	Reflection    string
	HasThought    bool
	HasAction     bool
	HasFinal      bool
	HasReflection bool
}

// ParseTurn extracts the first complete occurrence of each protocol tag.
func ParseTurn(text string) TurnSections {
	var s TurnSections
	s.Thought, s.HasThought = firstMatch(thoughtPattern, text)
	s.Action, s.HasAction = firstMatch(actionPattern, text)
	s.FinalAnswer, s.HasFinal = firstMatch(finalAnswerPattern, text)
	s.Reflection, s.HasReflection = firstMatch(reflectionPattern, text)
	return s
}

func firstMatch(re *regexp.Regexp, text string) (string, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Recovery names the heuristic that produced a final answer.
type Recovery string

const (
	RecoveryNone          Recovery = ""
	RecoveryPreReflection Recovery = "pre_reflection"
	RecoveryUntagged      Recovery = "untagged"
	RecoveryStripped      Recovery = "stripped"
)

// TurnDecision is what the loop does with a reply.
type TurnDecision struct {
	Sections    TurnSections
	FinalAnswer string
	Action      string
	IsFinal     bool
	Recovery    Recovery
}

// DecideTurn resolves a reply into a final answer or an action.
//
// A tagged final answer always wins, even when an action is also present. A
// tagged action comes next. Only when neither is present are the recovery
// heuristics tried, in order: text before a reflection, untagged prose, and
// the reply with the other protocol tags stripped. Anything else is a
// protocol violation.
func DecideTurn(text string) (*TurnDecision, error) {
	s := ParseTurn(text)
	d := &TurnDecision{Sections: s}
	switch {
	case s.HasFinal:
		d.IsFinal = true
		d.FinalAnswer = strings.TrimSpace(s.FinalAnswer)
		return d, nil
	case s.HasAction:
		d.Action = strings.TrimSpace(s.Action)
		return d, nil
	}

	if s.HasReflection {
		idx := strings.Index(text, "<"+framework.TagReflection+">")
		before := stripSpans(text[:idx], thoughtPattern, actionPattern)
		if answer := strings.TrimSpace(before); answer != "" {
			return d.final(answer, RecoveryPreReflection), nil
		}
	}
	if !s.HasThought && !s.HasReflection && !anyTagPattern.MatchString(text) {
		if answer := strings.TrimSpace(text); answer != "" {
			return d.final(answer, RecoveryUntagged), nil
		}
	}
	if s.HasReflection {
		rest := stripSpans(text, thoughtPattern, actionPattern, finalAnswerPattern)
		rest = strings.NewReplacer("<reflection>", "", "</reflection>", "").Replace(rest)
		if answer := strings.TrimSpace(rest); answer != "" {
			return d.final(answer, RecoveryStripped), nil
		}
	}
	return nil, &framework.ProtocolError{
		Reason: "model did not output <action> or <final_answer>",
		Output: text,
	}
}

func (d *TurnDecision) final(answer string, how Recovery) *TurnDecision {
	d.IsFinal = true
	d.FinalAnswer = answer
	d.Recovery = how
	return d
}

func stripSpans(text string, patterns ...*regexp.Regexp) string {
	for _, re := range patterns {
		text = re.ReplaceAllString(text, "")
	}
	return text
}
