package index

import (
	"jitlens/internal/jitlog"
	"jitlens/internal/lang"
)

// Matcher is the single point where source methods and model members are
// declared to be the same method. All correlation delegates to the language
// adapter's signature comparison; nothing else in the system may assume any
// identity between the two representations.
type Matcher struct {
	registry *lang.Registry
}

func NewMatcher(registry *lang.Registry) *Matcher {
	return &Matcher{registry: registry}
}

// Matches reports whether member and method represent the same method.
func (m *Matcher) Matches(member *jitlog.MetaMember, method *lang.SourceMethod) bool {
	if member == nil || method == nil {
		return false
	}
	adapter, ok := m.registry.ForSource(method.Class.File)
	if !ok {
		return false
	}
	return adapter.MatchesSignature(member, method)
}
