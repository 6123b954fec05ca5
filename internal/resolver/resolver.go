// Package resolver correlates source-level classes with the compilation
// model and locates their compiled bytecode on the configured output roots.
// Every miss here is a normal condition: a class the compiler never touched
// simply has no model entry, and a class file absent from the output roots
// simply has no bytecode.
package resolver

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"jitlens/internal/classfile"
	"jitlens/internal/jitlog"
	"jitlens/internal/lang"
)

// Resolver resolves classes against one ParseResult. It is built per model
// load; its bytecode memoization dies with it on the next load, so MetaClass
// itself stays immutable.
type Resolver struct {
	model       *jitlog.ParseResult
	registry    *lang.Registry
	outputRoots []string
	logger      *logrus.Logger

	mu       sync.Mutex
	bytecode map[string]*classfile.ClassBytecode // VM name -> parsed class, nil entries cached too
}

// NewResolver creates a resolver over the given model and output roots.
func NewResolver(model *jitlog.ParseResult, registry *lang.Registry, outputRoots []string, logger *logrus.Logger) *Resolver {
	return &Resolver{
		model:       model,
		registry:    registry,
		outputRoots: outputRoots,
		logger:      logger,
		bytecode:    make(map[string]*classfile.ClassBytecode),
	}
}

// ResolveClass finds the MetaClass for a source class. Returns nil when the
// class has no adapter or never appears in the log.
func (r *Resolver) ResolveClass(cls *lang.SourceClass) *jitlog.MetaClass {
	if cls == nil || r.model == nil {
		return nil
	}
	adapter, ok := r.registry.ForSource(cls.File)
	if !ok {
		return nil
	}
	vmName := adapter.ClassVMName(cls)
	if vmName == "" {
		return nil
	}
	return r.model.ClassByName(vmName)
}

// ResolveBytecode locates and parses the class file for a MetaClass across
// the output roots. Returns nil when no root is configured, the file is
// missing, or it fails to parse; none of these are errors.
func (r *Resolver) ResolveBytecode(meta *jitlog.MetaClass) *classfile.ClassBytecode {
	if meta == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.bytecode[meta.Name]; ok {
		return cached
	}

	bc := r.loadBytecode(meta.Name)
	r.bytecode[meta.Name] = bc
	return bc
}

func (r *Resolver) loadBytecode(vmName string) *classfile.ClassBytecode {
	rel := filepath.FromSlash(vmName) + ".class"
	for _, root := range r.outputRoots {
		path := filepath.Join(root, rel)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		bc, err := classfile.Parse(data)
		if err != nil {
			r.logger.WithFields(logrus.Fields{
				"class": vmName,
				"path":  path,
			}).WithError(err).Debug("unparseable class file")
			continue
		}
		return bc
	}
	return nil
}
