// Package lang supplies source-level class and method constructs to the rest
// of the system through a per-language adapter. Adapters are the only place
// where source syntax is consulted; everything downstream correlates source
// constructs with model members purely by name and descriptor.
package lang

import (
	"path/filepath"
	"strings"

	"jitlens/internal/jitlog"
)

// SourceFile is one parsed source file. The concrete syntax tree stays
// private to the adapter that produced it.
type SourceFile struct {
	Path     string
	Language string
	Source   []byte

	private any
}

// SourceClass is a handle on one class declaration in a SourceFile.
type SourceClass struct {
	File *SourceFile
	Name string // simple name

	private any
}

// SourceMethod is a handle on one method or constructor declaration.
type SourceMethod struct {
	Class *SourceClass
	Name  string // source name; constructors keep the class name

	private any
}

// Adapter is the capability set jitlens needs from a source language.
type Adapter interface {
	Language() string

	// ParseSource builds a SourceFile from raw source bytes.
	ParseSource(path string, src []byte) (*SourceFile, error)

	// AllClasses enumerates every class-like declaration in the file,
	// nested ones included.
	AllClasses(f *SourceFile) []*SourceClass

	// AllMethods enumerates the methods and constructors declared directly
	// in the class body.
	AllMethods(c *SourceClass) []*SourceMethod

	// ClassVMName returns the fully-qualified VM name of the class
	// ("com/example/Outer$Inner").
	ClassVMName(c *SourceClass) string

	// ContainingClass returns the class a method is declared in.
	ContainingClass(m *SourceMethod) *SourceClass

	// MatchesSignature reports whether the model member and the source
	// method represent the same method.
	MatchesSignature(member *jitlog.MetaMember, m *SourceMethod) bool
}

// Registry holds the available adapters, keyed by language id, with a file
// extension table for selection. A file without a registered adapter is a
// normal, silent no-result.
type Registry struct {
	adapters   map[string]Adapter
	extensions map[string]string
}

// NewRegistry returns a registry with every built-in adapter installed.
func NewRegistry() *Registry {
	r := &Registry{
		adapters:   make(map[string]Adapter),
		extensions: make(map[string]string),
	}
	r.Register(NewJavaAdapter(), ".java")
	return r
}

// Register installs an adapter and maps the given extensions to it.
func (r *Registry) Register(a Adapter, extensions ...string) {
	r.adapters[a.Language()] = a
	for _, ext := range extensions {
		r.extensions[strings.ToLower(ext)] = a.Language()
	}
}

// ForLanguage returns the adapter for a language id.
func (r *Registry) ForLanguage(language string) (Adapter, bool) {
	a, ok := r.adapters[language]
	return a, ok
}

// ForFile selects an adapter by file extension.
func (r *Registry) ForFile(path string) (Adapter, bool) {
	lang, ok := r.extensions[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, false
	}
	return r.ForLanguage(lang)
}

// ForSource returns the adapter that produced a SourceFile.
func (r *Registry) ForSource(f *SourceFile) (Adapter, bool) {
	return r.ForLanguage(f.Language)
}
