// Package index caches built bytecode annotations per source file and
// answers visitor queries over them.
package index

import (
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"jitlens/internal/annotate"
	"jitlens/internal/classfile"
	"jitlens/internal/jitlog"
	"jitlens/internal/lang"
)

// ClassResolver is what Load needs from the class resolver; satisfied by
// *resolver.Resolver.
type ClassResolver interface {
	ResolveClass(*lang.SourceClass) *jitlog.MetaClass
	ResolveBytecode(*jitlog.MetaClass) *classfile.ClassBytecode
}

// Visitor receives one call per (method, member, instruction) with a
// non-empty annotation list, in ascending BCI order within a method.
type Visitor func(method *lang.SourceMethod, member *jitlog.MetaMember, bytecode *classfile.MethodBytecode, ins classfile.Instruction, annotations []annotate.LineAnnotation)

// memberEntry is one cached member of a file entry.
type memberEntry struct {
	member      *jitlog.MetaMember
	bytecode    *classfile.MethodBytecode
	annotations annotate.BytecodeAnnotations
}

type fileEntry struct {
	members []memberEntry
}

// AnnotationIndex holds, per source file, the annotations built for every
// model member of the file's classes. Entries are replaced wholesale by
// Load and never patched in place; concurrent Query calls against a stable
// index are safe.
type AnnotationIndex struct {
	registry *lang.Registry
	matcher  *Matcher
	logger   *logrus.Logger

	mu    sync.RWMutex
	files map[string]*fileEntry
}

// NewAnnotationIndex creates an empty index.
func NewAnnotationIndex(registry *lang.Registry, logger *logrus.Logger) *AnnotationIndex {
	return &AnnotationIndex{
		registry: registry,
		matcher:  NewMatcher(registry),
		logger:   logger,
		files:    make(map[string]*fileEntry),
	}
}

// fileKey is the persistent identity of a source file.
func fileKey(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

// Load builds the annotation entry for one file against the given resolver
// and commits it, replacing any prior entry for that file. A member whose
// annotation build fails is logged and skipped; its siblings still land in
// the entry. Classes without a model entry or without bytecode contribute
// nothing, silently.
func (ix *AnnotationIndex) Load(file *lang.SourceFile, res ClassResolver) {
	adapter, ok := ix.registry.ForSource(file)
	if !ok {
		ix.commit(file.Path, &fileEntry{})
		return
	}

	entry := &fileEntry{}
	for _, cls := range adapter.AllClasses(file) {
		meta := res.ResolveClass(cls)
		if meta == nil {
			continue
		}
		classBC := res.ResolveBytecode(meta)
		if classBC == nil {
			continue
		}
		for _, member := range meta.Members {
			bc := classBC.MethodByKey(member.Name, member.Descriptor)
			if bc == nil {
				continue
			}
			annotations, err := annotate.Build(member, bc)
			if err != nil {
				ix.logger.WithFields(logrus.Fields{
					"member": member.String(),
					"file":   file.Path,
				}).WithError(err).Warn("skipping member: annotation build failed")
				continue
			}
			entry.members = append(entry.members, memberEntry{
				member:      member,
				bytecode:    bc,
				annotations: annotations,
			})
		}
	}
	ix.commit(file.Path, entry)
}

func (ix *AnnotationIndex) commit(path string, entry *fileEntry) {
	ix.mu.Lock()
	ix.files[fileKey(path)] = entry
	ix.mu.Unlock()
}

// Query walks every class and method of the file, resolves each method
// against the cached member set through the signature matcher, and invokes
// the visitor for every instruction carrying at least one annotation, in
// ascending offset order. Methods with no cached match are skipped; a file
// with no entry at all is a no-op.
func (ix *AnnotationIndex) Query(file *lang.SourceFile, visit Visitor) {
	ix.mu.RLock()
	entry := ix.files[fileKey(file.Path)]
	ix.mu.RUnlock()
	if entry == nil {
		return
	}

	adapter, ok := ix.registry.ForSource(file)
	if !ok {
		return
	}

	for _, cls := range adapter.AllClasses(file) {
		for _, method := range adapter.AllMethods(cls) {
			me := entry.lookup(ix.matcher, method)
			if me == nil || len(me.annotations) == 0 {
				continue
			}
			// Instructions are already in ascending offset order.
			for _, ins := range me.bytecode.Instructions {
				if annotations, ok := me.annotations[ins.Offset]; ok {
					visit(method, me.member, me.bytecode, ins, annotations)
				}
			}
		}
	}
}

// lookup matches a source method against the cached key set. No fresh model
// lookup happens here; the entry is the unit of caching.
func (e *fileEntry) lookup(m *Matcher, method *lang.SourceMethod) *memberEntry {
	for i := range e.members {
		if m.Matches(e.members[i].member, method) {
			return &e.members[i]
		}
	}
	return nil
}

// Drop removes the entry for one file.
func (ix *AnnotationIndex) Drop(path string) {
	ix.mu.Lock()
	delete(ix.files, fileKey(path))
	ix.mu.Unlock()
}

// Reset clears every entry. Called when the model is replaced.
func (ix *AnnotationIndex) Reset() {
	ix.mu.Lock()
	ix.files = make(map[string]*fileEntry)
	ix.mu.Unlock()
}
