package annotate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jitlens/internal/classfile"
	"jitlens/internal/jitlog"
)

func bytecodeWithOffsets(offsets ...int) *classfile.MethodBytecode {
	instructions := make([]classfile.Instruction, len(offsets))
	for i, off := range offsets {
		instructions[i] = classfile.Instruction{Offset: off, Opcode: 0x00, Mnemonic: "nop"}
	}
	return classfile.NewMethodBytecode("run", "()V", instructions)
}

func testMember(comps ...*jitlog.Compilation) *jitlog.MetaMember {
	return &jitlog.MetaMember{
		Class:        &jitlog.MetaClass{Name: "com/example/Foo"},
		Name:         "run",
		Descriptor:   "()V",
		Compilations: comps,
	}
}

func TestBuild_MapsDecisionsToOffsets(t *testing.T) {
	comp := &jitlog.Compilation{
		CompileID: 42,
		Compiler:  "C2",
		Success:   true,
		Inlines: []jitlog.InlineDecision{
			{BCI: 3, Callee: jitlog.MemberRef{Class: "java/lang/String", Name: "length", Descriptor: "()I"}, Inlined: true, Reason: "inline (hot)"},
			{BCI: 11, Callee: jitlog.MemberRef{Class: "java/lang/String", Name: "isEmpty", Descriptor: "()Z"}, Inlined: false, Reason: "too large"},
		},
		Eliminations: []jitlog.Elimination{{BCI: 3, TypeName: "java/lang/StringBuilder"}},
		Traps:        []jitlog.Trap{{BCI: 7, Reason: "null_check", Action: "maybe_recompile"}},
		Intrinsics:   []jitlog.Intrinsic{{BCI: 11, ID: "_hashCode"}},
	}
	bc := bytecodeWithOffsets(0, 3, 7, 11)

	annotations, err := Build(testMember(comp), bc)
	require.NoError(t, err)

	assert.Equal(t, []int{3, 7, 11}, annotations.Offsets())

	require.Len(t, annotations[3], 2)
	assert.Equal(t, KindInline, annotations[3][0].Kind)
	assert.Contains(t, annotations[3][0].Text, "inlined length()I")
	assert.Contains(t, annotations[3][0].Text, "inline (hot)")
	assert.Equal(t, KindEliminated, annotations[3][1].Kind)
	assert.Contains(t, annotations[3][1].Text, "java/lang/StringBuilder")

	require.Len(t, annotations[7], 1)
	assert.Equal(t, KindUncommonTrap, annotations[7][0].Kind)
	assert.Contains(t, annotations[7][0].Text, "null_check")

	require.Len(t, annotations[11], 2)
	assert.Equal(t, KindInlineFail, annotations[11][0].Kind)
	assert.Contains(t, annotations[11][0].Text, "not inlined")
	assert.Equal(t, KindIntrinsic, annotations[11][1].Kind)
}

func TestBuild_DropsInvalidOffsets(t *testing.T) {
	comp := &jitlog.Compilation{
		CompileID: 1,
		Compiler:  "C2",
		Inlines: []jitlog.InlineDecision{
			{BCI: 2, Callee: jitlog.MemberRef{Name: "x", Descriptor: "()V"}, Inlined: true, Reason: "hot"},
			{BCI: -1, Callee: jitlog.MemberRef{Name: "y", Descriptor: "()V"}, Inlined: true, Reason: "hot"},
		},
	}
	bc := bytecodeWithOffsets(0, 2)

	annotations, err := Build(testMember(comp), bc)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, annotations.Offsets())
}

func TestBuild_EmptyResultIsNil(t *testing.T) {
	annotations, err := Build(testMember(&jitlog.Compilation{CompileID: 1, Compiler: "C1"}), bytecodeWithOffsets(0))
	require.NoError(t, err)
	assert.Nil(t, annotations)
}

func TestBuild_MultipleCompilationsAccumulate(t *testing.T) {
	c1 := &jitlog.Compilation{
		CompileID: 1, Compiler: "C1", Level: 3,
		Inlines: []jitlog.InlineDecision{{BCI: 0, Callee: jitlog.MemberRef{Name: "f", Descriptor: "()V"}, Inlined: false, Reason: "not reached"}},
	}
	c2 := &jitlog.Compilation{
		CompileID: 8, Compiler: "C2", Level: 4,
		Inlines: []jitlog.InlineDecision{{BCI: 0, Callee: jitlog.MemberRef{Name: "f", Descriptor: "()V"}, Inlined: true, Reason: "inline (hot)"}},
	}

	annotations, err := Build(testMember(c1, c2), bytecodeWithOffsets(0))
	require.NoError(t, err)
	require.Len(t, annotations[0], 2)
	assert.Contains(t, annotations[0][0].Text, "[C1#1]")
	assert.Contains(t, annotations[0][1].Text, "[C2#8]")
}

func TestBuild_MalformedDataBecomesError(t *testing.T) {
	member := testMember(nil) // nil compilation in the history
	annotations, err := Build(member, bytecodeWithOffsets(0))
	assert.Error(t, err)
	assert.Nil(t, annotations)
}

func TestBuild_MissingInputs(t *testing.T) {
	_, err := Build(nil, bytecodeWithOffsets(0))
	assert.Error(t, err)

	_, err = Build(testMember(), nil)
	assert.Error(t, err)
}
