package resolver

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jitlens/internal/jitlog"
	"jitlens/internal/lang"
)

const resolverLog = `<task compile_id='1' method='com/example/Alpha run ()V' bytes='1'>
<task_done success='1' nmsize='32'/>
</task>
`

const alphaSource = `package com.example;

public class Alpha {
    public void run() {
    }
}
`

// writeClassFile assembles a minimal class file for com/example/Alpha with a
// single void run() method whose body is one return instruction.
func writeClassFile(t *testing.T, root string) {
	t.Helper()
	var buf bytes.Buffer
	u2 := func(v uint16) { _ = binary.Write(&buf, binary.BigEndian, v) }
	u4 := func(v uint32) { _ = binary.Write(&buf, binary.BigEndian, v) }
	utf8 := func(s string) { buf.WriteByte(1); u2(uint16(len(s))); buf.WriteString(s) }

	u4(0xCAFEBABE)
	u2(0)
	u2(52)

	// 1=Code 2=run 3=()V 4=com/example/Alpha 5=Class(4)
	u2(6)
	utf8("Code")
	utf8("run")
	utf8("()V")
	utf8("com/example/Alpha")
	buf.WriteByte(7)
	u2(4)

	u2(0x0021) // access
	u2(5)      // this
	u2(0)      // super
	u2(0)      // interfaces
	u2(0)      // fields

	u2(1) // methods
	u2(0x0001)
	u2(2)
	u2(3)
	u2(1) // Code attribute
	u2(1)
	u4(13)
	u2(0)            // max_stack
	u2(1)            // max_locals
	u4(1)            // code length
	buf.WriteByte(0xb1) // return
	u2(0)            // exception table
	u2(0)            // code attrs

	u2(0) // class attrs

	path := filepath.Join(root, "com", "example", "Alpha.class")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func buildResolver(t *testing.T, outputRoots []string) (*Resolver, *lang.SourceClass) {
	t.Helper()
	model, err := jitlog.Parse(strings.NewReader(resolverLog), nil)
	require.NoError(t, err)

	registry := lang.NewRegistry()
	adapter, ok := registry.ForLanguage("java")
	require.True(t, ok)
	file, err := adapter.ParseSource("/src/Alpha.java", []byte(alphaSource))
	require.NoError(t, err)
	classes := adapter.AllClasses(file)
	require.Len(t, classes, 1)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewResolver(model, registry, outputRoots, logger), classes[0]
}

func TestResolveClass(t *testing.T) {
	res, alpha := buildResolver(t, nil)

	meta := res.ResolveClass(alpha)
	require.NotNil(t, meta)
	assert.Equal(t, "com/example/Alpha", meta.Name)
	assert.NotNil(t, meta.MemberByKey("run", "()V"))

	t.Run("repeat lookups are stable", func(t *testing.T) {
		assert.Same(t, meta, res.ResolveClass(alpha))
	})

	t.Run("unknown class is a silent miss", func(t *testing.T) {
		registry := lang.NewRegistry()
		adapter, _ := registry.ForLanguage("java")
		file, err := adapter.ParseSource("/src/Other.java", []byte("package com.example; class Other {}"))
		require.NoError(t, err)
		other := adapter.AllClasses(file)[0]
		assert.Nil(t, res.ResolveClass(other))
	})
}

func TestResolveBytecode(t *testing.T) {
	outRoot := t.TempDir()
	writeClassFile(t, outRoot)

	t.Run("found on an output root", func(t *testing.T) {
		res, alpha := buildResolver(t, []string{t.TempDir(), outRoot})
		meta := res.ResolveClass(alpha)
		require.NotNil(t, meta)

		bc := res.ResolveBytecode(meta)
		require.NotNil(t, bc)
		assert.Equal(t, "com/example/Alpha", bc.ClassName)
		run := bc.MethodByKey("run", "()V")
		require.NotNil(t, run)
		assert.Equal(t, "return", run.Instructions[0].Mnemonic)

		// Memoized per resolver instance.
		assert.Same(t, bc, res.ResolveBytecode(meta))
	})

	t.Run("no output roots means no bytecode, not an error", func(t *testing.T) {
		res, alpha := buildResolver(t, nil)
		assert.Nil(t, res.ResolveBytecode(res.ResolveClass(alpha)))
	})

	t.Run("nil class", func(t *testing.T) {
		res, _ := buildResolver(t, nil)
		assert.Nil(t, res.ResolveBytecode(nil))
	})
}
