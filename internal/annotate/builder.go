// Package annotate derives per-bytecode-offset explanations of compiler
// decisions from a member's compilation history.
package annotate

import (
	"fmt"
	"sort"

	"jitlens/internal/classfile"
	"jitlens/internal/jitlog"
)

// AnnotationKind classifies a LineAnnotation.
type AnnotationKind string

const (
	KindInline       AnnotationKind = "inline"
	KindInlineFail   AnnotationKind = "inline_fail"
	KindEliminated   AnnotationKind = "eliminated_allocation"
	KindLockElided   AnnotationKind = "eliminated_lock"
	KindUncommonTrap AnnotationKind = "uncommon_trap"
	KindIntrinsic    AnnotationKind = "intrinsic"
)

// LineAnnotation is one human-readable compiler decision at a BCI.
type LineAnnotation struct {
	Kind AnnotationKind
	Text string
}

// BytecodeAnnotations maps BCI to the decisions made there. Only valid
// instruction offsets of the member's bytecode appear as keys, and only
// offsets that have at least one annotation.
type BytecodeAnnotations map[int][]LineAnnotation

// Offsets returns the annotated BCIs in ascending order.
func (b BytecodeAnnotations) Offsets() []int {
	out := make([]int, 0, len(b))
	for bci := range b {
		out = append(out, bci)
	}
	sort.Ints(out)
	return out
}

// Build derives the annotations for one member from all of its compilations.
// Decisions at offsets that are not instruction boundaries of the given
// bytecode are dropped. Malformed model data comes back as an error (a
// panic inside the walk is recovered into one) so the caller can skip this
// member and keep going with the rest of the file.
func Build(member *jitlog.MetaMember, bytecode *classfile.MethodBytecode) (result BytecodeAnnotations, err error) {
	if member == nil || bytecode == nil {
		return nil, fmt.Errorf("missing member or bytecode")
	}
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("annotation build panic for %s: %v", member, r)
		}
	}()

	result = make(BytecodeAnnotations)
	add := func(bci int, kind AnnotationKind, text string) {
		if !bytecode.HasOffset(bci) {
			return
		}
		result[bci] = append(result[bci], LineAnnotation{Kind: kind, Text: text})
	}

	for _, comp := range member.Compilations {
		tag := compilationTag(comp)

		for _, in := range comp.Inlines {
			callee := in.Callee.Name + in.Callee.Descriptor
			if in.Inlined {
				add(in.BCI, KindInline, fmt.Sprintf("%s inlined %s: %s", tag, callee, in.Reason))
			} else {
				add(in.BCI, KindInlineFail, fmt.Sprintf("%s not inlined %s: %s", tag, callee, in.Reason))
			}
		}
		for _, el := range comp.Eliminations {
			if el.Lock {
				add(el.BCI, KindLockElided, fmt.Sprintf("%s escape analysis: lock elided", tag))
			} else {
				add(el.BCI, KindEliminated, fmt.Sprintf("%s escape analysis: allocation of %s eliminated", tag, el.TypeName))
			}
		}
		for _, tr := range comp.Traps {
			add(tr.BCI, KindUncommonTrap, fmt.Sprintf("%s uncommon trap: %s (%s)", tag, tr.Reason, tr.Action))
		}
		for _, intr := range comp.Intrinsics {
			add(intr.BCI, KindIntrinsic, fmt.Sprintf("%s intrinsic: %s", tag, intr.ID))
		}
	}

	if len(result) == 0 {
		return nil, nil
	}
	return result, nil
}

func compilationTag(comp *jitlog.Compilation) string {
	if comp == nil {
		panic("nil compilation in member history")
	}
	if comp.OSR {
		return fmt.Sprintf("[%s#%d OSR]", comp.Compiler, comp.CompileID)
	}
	return fmt.Sprintf("[%s#%d]", comp.Compiler, comp.CompileID)
}
