// Package inspector is the public surface of the core: load a log, load
// bytecode annotations for a file, and walk them with a visitor.
package inspector

import (
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"jitlens/internal/index"
	"jitlens/internal/jitlog"
	"jitlens/internal/lang"
	"jitlens/internal/resolver"
)

// Inspector owns the active compilation model and the per-file annotation
// cache. Operations are synchronous; the host decides what runs off its
// interactive thread. The host must not run two LoadLog calls, or two
// LoadBytecode calls for the same file, concurrently; concurrent
// ProcessAnnotations calls against a loaded state are fine.
type Inspector struct {
	registry    *lang.Registry
	outputRoots []string
	logger      *logrus.Logger
	idx         *index.AnnotationIndex

	// state is swapped wholesale so readers never see a half-built model.
	state atomic.Pointer[loadedState]
}

type loadedState struct {
	model    *jitlog.ParseResult
	resolver *resolver.Resolver
}

// New creates an Inspector with no log loaded.
func New(registry *lang.Registry, outputRoots []string, logger *logrus.Logger) *Inspector {
	if logger == nil {
		logger = logrus.New()
	}
	return &Inspector{
		registry:    registry,
		outputRoots: outputRoots,
		logger:      logger,
		idx:         index.NewAnnotationIndex(registry, logger),
	}
}

// LoadLog parses a compilation log and atomically replaces the active
// model. Queries in flight against the previous model finish safely against
// it; everything after this call sees only the new one. Individual
// malformed log fragments are logged, not fatal; only an unreadable file
// returns an error.
func (in *Inspector) LoadLog(path string) error {
	result, err := jitlog.ParseFile(path, func(title, body string) {
		in.logger.WithFields(logrus.Fields{
			"log":    path,
			"detail": body,
		}).Warn(title)
	})
	if err != nil {
		return fmt.Errorf("loading log: %w", err)
	}

	next := &loadedState{
		model:    result,
		resolver: resolver.NewResolver(result, in.registry, in.outputRoots, in.logger),
	}
	in.state.Store(next)
	in.idx.Reset()

	in.logger.WithFields(logrus.Fields{
		"log":         path,
		"classes":     len(result.Classes()),
		"parse_fails": result.ParseFails,
	}).Info("compilation log loaded")
	return nil
}

// Model returns the active ParseResult, or nil before the first LoadLog.
func (in *Inspector) Model() *jitlog.ParseResult {
	if s := in.state.Load(); s != nil {
		return s.model
	}
	return nil
}

// LoadBytecode builds and commits the annotation index entry for one file.
// The entry is fully committed before this returns.
func (in *Inspector) LoadBytecode(file *lang.SourceFile) error {
	s := in.state.Load()
	if s == nil {
		return fmt.Errorf("no compilation log loaded")
	}
	in.idx.Load(file, s.resolver)
	return nil
}

// ProcessAnnotations invokes the visitor for every annotated instruction of
// the file, per the index contract. Calling it for a file never loaded is a
// no-op.
func (in *Inspector) ProcessAnnotations(file *lang.SourceFile, visit index.Visitor) {
	in.idx.Query(file, visit)
}
