package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jitlens/internal/jitlog"
)

const javaSource = `package com.example;

import java.util.List;
import java.util.concurrent.ConcurrentHashMap;

public class Calculator {

    static class Inner {
        int bump(int v) { return v + 1; }
    }

    public Calculator(int seed) {
    }

    public int add(int a, int b) {
        return a + b;
    }

    public long add(long a, long b) {
        return a + b;
    }

    public String describe(String name, List<String> extras) {
        return name;
    }

    public int[] histogram(byte[][] data) {
        return null;
    }

    public <T> T pick(T first, int index) {
        return first;
    }

    public void fill(ConcurrentHashMap map, String... keys) {
    }
}
`

func parseCalculator(t *testing.T) (*JavaAdapter, *SourceFile) {
	t.Helper()
	adapter := NewJavaAdapter()
	file, err := adapter.ParseSource("Calculator.java", []byte(javaSource))
	require.NoError(t, err)
	return adapter, file
}

func member(class, name, descriptor string) *jitlog.MetaMember {
	return &jitlog.MetaMember{
		Class:      &jitlog.MetaClass{Name: class},
		Name:       name,
		Descriptor: descriptor,
	}
}

func findMethod(t *testing.T, adapter *JavaAdapter, cls *SourceClass, name string, ordinal int) *SourceMethod {
	t.Helper()
	n := 0
	for _, m := range adapter.AllMethods(cls) {
		if m.Name == name {
			if n == ordinal {
				return m
			}
			n++
		}
	}
	t.Fatalf("method %s #%d not found", name, ordinal)
	return nil
}

func TestJavaAdapter_Classes(t *testing.T) {
	adapter, file := parseCalculator(t)

	classes := adapter.AllClasses(file)
	require.Len(t, classes, 2)
	assert.Equal(t, "Calculator", classes[0].Name)
	assert.Equal(t, "Inner", classes[1].Name)

	assert.Equal(t, "com/example/Calculator", adapter.ClassVMName(classes[0]))
	assert.Equal(t, "com/example/Calculator$Inner", adapter.ClassVMName(classes[1]))
}

func TestJavaAdapter_Methods(t *testing.T) {
	adapter, file := parseCalculator(t)
	calculator := adapter.AllClasses(file)[0]

	methods := adapter.AllMethods(calculator)
	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = m.Name
		assert.Same(t, calculator, adapter.ContainingClass(m))
	}
	assert.Equal(t, []string{"Calculator", "add", "add", "describe", "histogram", "pick", "fill"}, names)

	// Inner-class methods never leak into the outer class.
	inner := adapter.AllClasses(file)[1]
	innerMethods := adapter.AllMethods(inner)
	require.Len(t, innerMethods, 1)
	assert.Equal(t, "bump", innerMethods[0].Name)
}

func TestJavaAdapter_MatchesSignature(t *testing.T) {
	adapter, file := parseCalculator(t)
	calculator := adapter.AllClasses(file)[0]

	intAdd := findMethod(t, adapter, calculator, "add", 0)
	longAdd := findMethod(t, adapter, calculator, "add", 1)

	t.Run("overloads route to distinct members", func(t *testing.T) {
		mInt := member("com/example/Calculator", "add", "(II)I")
		mLong := member("com/example/Calculator", "add", "(JJ)J")

		assert.True(t, adapter.MatchesSignature(mInt, intAdd))
		assert.False(t, adapter.MatchesSignature(mInt, longAdd))
		assert.True(t, adapter.MatchesSignature(mLong, longAdd))
		assert.False(t, adapter.MatchesSignature(mLong, intAdd))
	})

	t.Run("constructor matches <init>", func(t *testing.T) {
		ctor := findMethod(t, adapter, calculator, "Calculator", 0)
		assert.True(t, adapter.MatchesSignature(member("com/example/Calculator", "<init>", "(I)V"), ctor))
		assert.False(t, adapter.MatchesSignature(member("com/example/Calculator", "<init>", "()V"), ctor))
		assert.False(t, adapter.MatchesSignature(member("com/example/Calculator", "Calculator", "(I)V"), ctor))
	})

	t.Run("imported and java.lang types resolve", func(t *testing.T) {
		describe := findMethod(t, adapter, calculator, "describe", 0)
		good := member("com/example/Calculator", "describe", "(Ljava/lang/String;Ljava/util/List;)Ljava/lang/String;")
		bad := member("com/example/Calculator", "describe", "(Ljava/lang/String;Ljava/util/ArrayList;)Ljava/lang/String;")
		assert.True(t, adapter.MatchesSignature(good, describe))
		assert.False(t, adapter.MatchesSignature(bad, describe))
	})

	t.Run("arrays", func(t *testing.T) {
		histogram := findMethod(t, adapter, calculator, "histogram", 0)
		assert.True(t, adapter.MatchesSignature(member("com/example/Calculator", "histogram", "([[B)[I"), histogram))
		assert.False(t, adapter.MatchesSignature(member("com/example/Calculator", "histogram", "([B)[I"), histogram))
	})

	t.Run("type variables erase to any reference type", func(t *testing.T) {
		pick := findMethod(t, adapter, calculator, "pick", 0)
		erased := member("com/example/Calculator", "pick", "(Ljava/lang/Object;I)Ljava/lang/Object;")
		assert.True(t, adapter.MatchesSignature(erased, pick))
		primitive := member("com/example/Calculator", "pick", "(II)I")
		assert.False(t, adapter.MatchesSignature(primitive, pick))
	})

	t.Run("varargs compile to arrays", func(t *testing.T) {
		fill := findMethod(t, adapter, calculator, "fill", 0)
		good := member("com/example/Calculator", "fill", "(Ljava/util/concurrent/ConcurrentHashMap;[Ljava/lang/String;)V")
		assert.True(t, adapter.MatchesSignature(good, fill))
	})

	t.Run("arity mismatch", func(t *testing.T) {
		assert.False(t, adapter.MatchesSignature(member("com/example/Calculator", "add", "(III)I"), intAdd))
	})
}

func TestJavaAdapter_DefaultPackage(t *testing.T) {
	adapter := NewJavaAdapter()
	file, err := adapter.ParseSource("Main.java", []byte("class Main { void run() {} }"))
	require.NoError(t, err)

	classes := adapter.AllClasses(file)
	require.Len(t, classes, 1)
	assert.Equal(t, "Main", adapter.ClassVMName(classes[0]))
}

func TestRegistry_Selection(t *testing.T) {
	registry := NewRegistry()

	_, ok := registry.ForFile("src/com/example/Foo.java")
	assert.True(t, ok)

	_, ok = registry.ForFile("script.py")
	assert.False(t, ok)

	adapter, ok := registry.ForLanguage("java")
	require.True(t, ok)
	assert.Equal(t, "java", adapter.Language())
}
