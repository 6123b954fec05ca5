package lang

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"jitlens/internal/jitlog"
)

// JavaAdapter resolves Java source constructs against the JVM naming scheme
// the compilation log uses: VM class names with '$'-separated nesting, and
// method identity by name plus erased JVM descriptor.
type JavaAdapter struct{}

func NewJavaAdapter() *JavaAdapter {
	return &JavaAdapter{}
}

func (a *JavaAdapter) Language() string { return "java" }

// javaFile is the adapter-private payload of a SourceFile.
type javaFile struct {
	tree        *sitter.Tree
	root        *sitter.Node
	packageName string
	imports     map[string]string // simple name -> qualified (dot form)
}

type javaClass struct {
	node *sitter.Node
}

type javaMethod struct {
	node        *sitter.Node
	constructor bool
}

func (a *JavaAdapter) ParseSource(path string, src []byte) (*SourceFile, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(java.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	root := tree.RootNode()
	jf := &javaFile{
		tree:    tree,
		root:    root,
		imports: make(map[string]string),
	}

	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "package_declaration":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				n := child.NamedChild(j)
				if n.Type() == "scoped_identifier" || n.Type() == "identifier" {
					jf.packageName = n.Content(src)
				}
			}
		case "import_declaration":
			a.recordImport(jf, child, src)
		}
	}

	return &SourceFile{Path: path, Language: "java", Source: src, private: jf}, nil
}

func (a *JavaAdapter) recordImport(jf *javaFile, node *sitter.Node, src []byte) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		n := node.NamedChild(i)
		if n.Type() != "scoped_identifier" {
			continue
		}
		qualified := n.Content(src)
		if dot := strings.LastIndexByte(qualified, '.'); dot >= 0 {
			jf.imports[qualified[dot+1:]] = qualified
		}
	}
}

var classDeclTypes = map[string]bool{
	"class_declaration":     true,
	"interface_declaration": true,
	"enum_declaration":      true,
	"record_declaration":    true,
}

func (a *JavaAdapter) AllClasses(f *SourceFile) []*SourceClass {
	jf, ok := f.private.(*javaFile)
	if !ok {
		return nil
	}
	var out []*SourceClass
	a.collectClasses(f, jf.root, &out)
	return out
}

func (a *JavaAdapter) collectClasses(f *SourceFile, node *sitter.Node, out *[]*SourceClass) {
	if classDeclTypes[node.Type()] {
		if nameNode := node.ChildByFieldName("name"); nameNode != nil {
			*out = append(*out, &SourceClass{
				File:    f,
				Name:    nameNode.Content(f.Source),
				private: &javaClass{node: node},
			})
		}
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		a.collectClasses(f, node.NamedChild(i), out)
	}
}

func (a *JavaAdapter) ClassVMName(c *SourceClass) string {
	jc, ok := c.private.(*javaClass)
	if !ok {
		return ""
	}
	jf, ok := c.File.private.(*javaFile)
	if !ok {
		return ""
	}

	// Walk outwards collecting the enclosing class chain for '$' nesting.
	chain := []string{c.Name}
	for n := jc.node.Parent(); n != nil; n = n.Parent() {
		if !classDeclTypes[n.Type()] {
			continue
		}
		if nameNode := n.ChildByFieldName("name"); nameNode != nil {
			chain = append([]string{nameNode.Content(c.File.Source)}, chain...)
		}
	}

	vm := strings.Join(chain, "$")
	if jf.packageName != "" {
		vm = strings.ReplaceAll(jf.packageName, ".", "/") + "/" + vm
	}
	return vm
}

func (a *JavaAdapter) AllMethods(c *SourceClass) []*SourceMethod {
	jc, ok := c.private.(*javaClass)
	if !ok {
		return nil
	}
	body := jc.node.ChildByFieldName("body")
	if body == nil {
		return nil
	}

	var out []*SourceMethod
	collect := func(container *sitter.Node) {
		for i := 0; i < int(container.NamedChildCount()); i++ {
			child := container.NamedChild(i)
			switch child.Type() {
			case "method_declaration":
				if nameNode := child.ChildByFieldName("name"); nameNode != nil {
					out = append(out, &SourceMethod{
						Class:   c,
						Name:    nameNode.Content(c.File.Source),
						private: &javaMethod{node: child},
					})
				}
			case "constructor_declaration":
				out = append(out, &SourceMethod{
					Class:   c,
					Name:    c.Name,
					private: &javaMethod{node: child, constructor: true},
				})
			}
		}
	}
	collect(body)
	// Enum constants precede a ';' after which members live in
	// enum_body_declarations.
	for i := 0; i < int(body.NamedChildCount()); i++ {
		if child := body.NamedChild(i); child.Type() == "enum_body_declarations" {
			collect(child)
		}
	}
	return out
}

func (a *JavaAdapter) ContainingClass(m *SourceMethod) *SourceClass {
	return m.Class
}

// MatchesSignature correlates a model member with a source method by name
// and descriptor. Parameter types the source resolves fully must match the
// descriptor exactly; unresolvable simple names fall back to a simple-name
// comparison, and generic type variables (erased by the compiler) match any
// reference slot.
func (a *JavaAdapter) MatchesSignature(member *jitlog.MetaMember, m *SourceMethod) bool {
	jm, ok := m.private.(*javaMethod)
	if !ok || member == nil {
		return false
	}

	if jm.constructor {
		if member.Name != "<init>" {
			return false
		}
	} else if member.Name != m.Name {
		return false
	}

	memberParams, memberReturn, ok := splitDescriptor(member.Descriptor)
	if !ok {
		return false
	}

	srcParams := a.parameterTypes(m, jm)
	if len(srcParams) != len(memberParams) {
		return false
	}
	for i, p := range srcParams {
		if !matchSlot(memberParams[i], p) {
			return false
		}
	}

	if jm.constructor {
		return memberReturn == "V"
	}
	ret := a.returnType(m, jm)
	return matchSlot(memberReturn, ret)
}

// javaType is one source-level type resolved as far as the syntax allows.
type javaType struct {
	descriptor string // JVM descriptor when resolved
	simple     string // simple class name when unresolved
	dims       int    // array dimensions for the unresolved case
	resolved   bool
	wildcard   bool // generic type variable; erased, matches any reference
}

func (a *JavaAdapter) parameterTypes(m *SourceMethod, jm *javaMethod) []javaType {
	params := jm.node.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	src := m.Class.File.Source
	typeVars := a.typeVariables(jm.node, src)
	jf, _ := m.Class.File.private.(*javaFile)

	var out []javaType
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		switch p.Type() {
		case "formal_parameter":
			if tn := p.ChildByFieldName("type"); tn != nil {
				out = append(out, resolveType(tn, src, jf, typeVars))
			}
		case "spread_parameter":
			// Varargs compile to an array of the declared type.
			for j := 0; j < int(p.NamedChildCount()); j++ {
				n := p.NamedChild(j)
				if strings.HasSuffix(n.Type(), "_type") || n.Type() == "type_identifier" ||
					n.Type() == "scoped_type_identifier" || n.Type() == "generic_type" {
					t := resolveType(n, src, jf, typeVars)
					t = arrayOf(t, 1)
					out = append(out, t)
					break
				}
			}
		}
	}
	return out
}

func (a *JavaAdapter) returnType(m *SourceMethod, jm *javaMethod) javaType {
	tn := jm.node.ChildByFieldName("type")
	if tn == nil {
		return javaType{descriptor: "V", resolved: true}
	}
	jf, _ := m.Class.File.private.(*javaFile)
	src := m.Class.File.Source
	return resolveType(tn, src, jf, a.typeVariables(jm.node, src))
}

// typeVariables collects the generic type parameter names in scope for a
// method: its own plus those of every enclosing class.
func (a *JavaAdapter) typeVariables(node *sitter.Node, src []byte) map[string]bool {
	vars := make(map[string]bool)
	for n := node; n != nil; n = n.Parent() {
		tp := n.ChildByFieldName("type_parameters")
		if tp == nil {
			continue
		}
		for i := 0; i < int(tp.NamedChildCount()); i++ {
			child := tp.NamedChild(i)
			if child.Type() != "type_parameter" {
				continue
			}
			for j := 0; j < int(child.NamedChildCount()); j++ {
				if id := child.NamedChild(j); id.Type() == "type_identifier" {
					vars[id.Content(src)] = true
				}
			}
		}
	}
	return vars
}

var primitiveJavaDescriptors = map[string]string{
	"void":    "V",
	"boolean": "Z",
	"byte":    "B",
	"char":    "C",
	"short":   "S",
	"int":     "I",
	"long":    "J",
	"float":   "F",
	"double":  "D",
}

// javaLangClasses are resolvable without an import.
var javaLangClasses = map[string]bool{
	"Object": true, "String": true, "CharSequence": true, "StringBuilder": true,
	"StringBuffer": true, "Integer": true, "Long": true, "Short": true,
	"Byte": true, "Character": true, "Boolean": true, "Float": true,
	"Double": true, "Number": true, "Void": true, "Class": true, "Enum": true,
	"Thread": true, "Runnable": true, "Iterable": true, "Comparable": true,
	"Throwable": true, "Exception": true, "RuntimeException": true,
	"Error": true, "Math": true, "System": true,
}

func resolveType(node *sitter.Node, src []byte, jf *javaFile, typeVars map[string]bool) javaType {
	switch node.Type() {
	case "integral_type", "floating_point_type", "boolean_type", "void_type":
		if d, ok := primitiveJavaDescriptors[node.Content(src)]; ok {
			return javaType{descriptor: d, resolved: true}
		}
		return javaType{simple: node.Content(src)}
	case "array_type":
		elem := node.ChildByFieldName("element")
		dimsNode := node.ChildByFieldName("dimensions")
		dims := 1
		if dimsNode != nil {
			dims = strings.Count(dimsNode.Content(src), "[")
		}
		if elem == nil {
			return javaType{simple: node.Content(src)}
		}
		return arrayOf(resolveType(elem, src, jf, typeVars), dims)
	case "generic_type":
		// Erasure: only the raw type matters for the descriptor.
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if child.Type() == "type_identifier" || child.Type() == "scoped_type_identifier" {
				return resolveType(child, src, jf, typeVars)
			}
		}
		return javaType{simple: node.Content(src)}
	case "scoped_type_identifier":
		qualified := strings.ReplaceAll(node.Content(src), ".", "/")
		return javaType{descriptor: "L" + qualified + ";", resolved: true}
	case "type_identifier":
		name := node.Content(src)
		if typeVars[name] {
			return javaType{wildcard: true}
		}
		if jf != nil {
			if qualified, ok := jf.imports[name]; ok {
				return javaType{descriptor: "L" + strings.ReplaceAll(qualified, ".", "/") + ";", resolved: true}
			}
		}
		if javaLangClasses[name] {
			return javaType{descriptor: "Ljava/lang/" + name + ";", resolved: true}
		}
		if jf != nil && jf.packageName != "" {
			// Same-package classes need no import; still allow a simple-name
			// fallback because the guess can be wrong for star imports.
			return javaType{simple: name}
		}
		return javaType{simple: name}
	}
	return javaType{simple: node.Content(src)}
}

func arrayOf(t javaType, dims int) javaType {
	if t.resolved {
		t.descriptor = strings.Repeat("[", dims) + t.descriptor
		return t
	}
	t.dims += dims
	return t
}

// matchSlot compares one descriptor slot of the model member against one
// source-level type.
func matchSlot(slot string, t javaType) bool {
	if t.wildcard {
		return len(slot) > 0 && (slot[0] == 'L' || slot[0] == '[')
	}
	if t.resolved {
		return slot == t.descriptor
	}

	// Unresolved simple name: strip matching array dimensions, then compare
	// the simple class name of the slot.
	for i := 0; i < t.dims; i++ {
		if !strings.HasPrefix(slot, "[") {
			return false
		}
		slot = slot[1:]
	}
	if !strings.HasPrefix(slot, "L") || !strings.HasSuffix(slot, ";") {
		return false
	}
	qualified := slot[1 : len(slot)-1]
	if idx := strings.LastIndexByte(qualified, '/'); idx >= 0 {
		qualified = qualified[idx+1:]
	}
	// Inner classes appear as Outer$Inner in VM names.
	if idx := strings.LastIndexByte(qualified, '$'); idx >= 0 {
		qualified = qualified[idx+1:]
	}
	return qualified == t.simple
}

// splitDescriptor breaks "(IZLjava/lang/String;)V" into parameter slots and
// the return slot.
func splitDescriptor(desc string) (params []string, ret string, ok bool) {
	if len(desc) < 3 || desc[0] != '(' {
		return nil, "", false
	}
	i := 1
	for i < len(desc) && desc[i] != ')' {
		start := i
		for i < len(desc) && desc[i] == '[' {
			i++
		}
		if i >= len(desc) {
			return nil, "", false
		}
		if desc[i] == 'L' {
			end := strings.IndexByte(desc[i:], ';')
			if end < 0 {
				return nil, "", false
			}
			i += end + 1
		} else {
			i++
		}
		params = append(params, desc[start:i])
	}
	if i >= len(desc) || desc[i] != ')' || i+1 >= len(desc) {
		return nil, "", false
	}
	return params, desc[i+1:], true
}
