package jitlog

import "fmt"

// MemberRef names a method in the log without resolving it against the model.
// Class is the VM form ("java/lang/String"), Descriptor the JVM descriptor
// form ("(Ljava/lang/String;I)V").
type MemberRef struct {
	Class      string
	Name       string
	Descriptor string
}

func (r MemberRef) String() string {
	return fmt.Sprintf("%s.%s%s", r.Class, r.Name, r.Descriptor)
}

// InlineDecision records the outcome of one call site considered for
// inlining during a compilation, at the given BCI of the root method.
type InlineDecision struct {
	BCI     int
	Callee  MemberRef
	Inlined bool
	Reason  string
}

// Elimination records an allocation or lock removed by escape analysis.
type Elimination struct {
	BCI      int
	TypeName string
	Lock     bool
}

// Trap records an uncommon trap the compiler emitted at a BCI.
type Trap struct {
	BCI    int
	Reason string
	Action string
}

// Intrinsic records an intrinsic substitution applied at a BCI.
type Intrinsic struct {
	BCI int
	ID  string
}

// Compilation is one <task> from the log: a single compiled version of a
// method, together with the decision records harvested from the task body.
// Only decisions made in the root parse frame are attributed here; decisions
// inside inlined callees belong to the caller's BCIs already.
type Compilation struct {
	CompileID int
	Compiler  string // "C1" or "C2"
	Level     int
	OSR       bool
	Success   bool
	NMSize    int

	Inlines      []InlineDecision
	Eliminations []Elimination
	Traps        []Trap
	Intrinsics   []Intrinsic
}

// MetaMember is one method or constructor of a MetaClass, identified by
// (declaring class, name, descriptor). A member accumulates every
// compilation of itself found in the log.
type MetaMember struct {
	Class        *MetaClass
	Name         string
	Descriptor   string
	Compilations []*Compilation
}

func (m *MetaMember) String() string {
	return fmt.Sprintf("%s.%s%s", m.Class.Name, m.Name, m.Descriptor)
}

// MetaClass is one class seen in the log, keyed by its VM name.
type MetaClass struct {
	Name    string // VM form, e.g. "java/util/HashMap"
	Members []*MetaMember

	byKey map[string]*MetaMember
}

func memberKey(name, descriptor string) string {
	return name + descriptor
}

// MemberByKey returns the member with the given name and descriptor, or nil.
// Descriptor equality is the sole identity criterion, so overloads with the
// same name never collide.
func (c *MetaClass) MemberByKey(name, descriptor string) *MetaMember {
	return c.byKey[memberKey(name, descriptor)]
}

func (c *MetaClass) ensureMember(name, descriptor string) *MetaMember {
	if m := c.byKey[memberKey(name, descriptor)]; m != nil {
		return m
	}
	m := &MetaMember{Class: c, Name: name, Descriptor: descriptor}
	c.Members = append(c.Members, m)
	c.byKey[memberKey(name, descriptor)] = m
	return m
}

// ParseResult is the full model built from one log file. It is immutable
// once Parse returns; a later load produces a fresh ParseResult rather than
// mutating this one, so readers holding a stale result stay safe.
type ParseResult struct {
	classes    map[string]*MetaClass
	ParseFails int
}

// ClassByName looks a class up by VM name. The lookup is a pure function of
// the name; callers must not cache the pointer across model reloads.
func (r *ParseResult) ClassByName(name string) *MetaClass {
	return r.classes[name]
}

// Classes returns every class in the model. The slice is freshly allocated;
// mutating it does not affect the model.
func (r *ParseResult) Classes() []*MetaClass {
	out := make([]*MetaClass, 0, len(r.classes))
	for _, c := range r.classes {
		out = append(out, c)
	}
	return out
}

func (r *ParseResult) ensureClass(name string) *MetaClass {
	if c := r.classes[name]; c != nil {
		return c
	}
	c := &MetaClass{Name: name, byKey: make(map[string]*MetaMember)}
	r.classes[name] = c
	return c
}
