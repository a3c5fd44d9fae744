package bridge

import (
	"fmt"
	"strings"
)

// Action decides what happens to an event before it reaches the application.
type Action string

const (
	// ActionForward delivers the event on the event stream.
	ActionForward Action = "forward"
	// ActionLog logs the event and drops it.
	ActionLog Action = "log"
	// ActionSuppress drops the event silently.
	ActionSuppress Action = "suppress"
)

// Rule maps an event kind on topics with a given prefix to an action. An
// empty TopicPrefix matches every topic.
type Rule struct {
	Kind        Kind   `yaml:"kind" mapstructure:"kind"`
	TopicPrefix string `yaml:"topic_prefix" mapstructure:"topic_prefix"`
	Action      Action `yaml:"action" mapstructure:"action"`
}

// Validate checks the rule's kind and action.
func (r Rule) Validate() error {
	switch r.Kind {
	case KindCreated, KindCreatedBatch, KindMessage, KindPushOk, KindPushError, KindPushTimeout:
	default:
		return fmt.Errorf("policy rule: unknown event kind %q", r.Kind)
	}
	switch r.Action {
	case ActionForward, ActionLog, ActionSuppress:
	default:
		return fmt.Errorf("policy rule: unknown action %q", r.Action)
	}
	return nil
}

func (r Rule) matches(kind Kind, topic string) bool {
	return r.Kind == kind && strings.HasPrefix(topic, r.TopicPrefix)
}

// Policy is the declarative table deciding the fate of every event. The
// first matching rule wins; otherwise the per-kind default applies.
type Policy struct {
	rules    []Rule
	defaults map[Kind]Action
}

// DefaultPolicy forwards everything except push timeouts, which are logged.
func DefaultPolicy() *Policy {
	return &Policy{
		defaults: map[Kind]Action{
			KindCreated:      ActionForward,
			KindCreatedBatch: ActionForward,
			KindMessage:      ActionForward,
			KindPushOk:       ActionForward,
			KindPushError:    ActionForward,
			KindPushTimeout:  ActionLog,
		},
	}
}

// NewPolicy returns the default policy extended with rules.
func NewPolicy(rules ...Rule) (*Policy, error) {
	p := DefaultPolicy()
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		p.rules = append(p.rules, r)
	}
	return p, nil
}

// SkipPrefixes builds rules that log, rather than forward, successful push
// outcomes on topics starting with any of prefixes. Push errors on those
// topics are still forwarded.
func SkipPrefixes(prefixes ...string) []Rule {
	rules := make([]Rule, 0, len(prefixes))
	for _, prefix := range prefixes {
		if prefix == "" {
			continue
		}
		rules = append(rules, Rule{Kind: KindPushOk, TopicPrefix: prefix, Action: ActionLog})
	}
	return rules
}

// Decide returns the action for an event of kind on topic.
func (p *Policy) Decide(kind Kind, topic string) Action {
	for _, r := range p.rules {
		if r.matches(kind, topic) {
			return r.Action
		}
	}
	if a, ok := p.defaults[kind]; ok {
		return a
	}
	return ActionForward
}
