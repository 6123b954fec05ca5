package jitlog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrorListener receives one (title, body) pair per malformed log fragment.
// Parsing always continues after the listener returns.
type ErrorListener func(title, body string)

// Parse reads a HotSpot LogCompilation stream and builds the model.
//
// The log is line-oriented pseudo-XML: separate compiler threads interleave
// their output, so a strict XML parser chokes on real files. We scan tags
// line by line instead, keep per-id dictionaries for <type>/<klass>/<method>
// elements, and track the <parse> frame stack so every decision lands on the
// BCI of the frame it was made in. Only root-frame decisions are attributed
// to the compiled member; anything deeper already belongs to an inlined
// callee's call site.
//
// Malformed fragments are reported through onError and skipped. Only an I/O
// failure on the reader returns a non-nil error.
func Parse(r io.Reader, onError ErrorListener) (*ParseResult, error) {
	if onError == nil {
		onError = func(string, string) {}
	}
	p := &parser{
		result:  &ParseResult{classes: make(map[string]*MetaClass)},
		types:   make(map[string]string),
		methods: make(map[string]MemberRef),
		onError: onError,
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		p.line(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading log: %w", err)
	}
	return p.result, nil
}

// ParseFile opens path and parses it. See Parse.
func ParseFile(path string, onError ErrorListener) (*ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening log: %w", err)
	}
	defer f.Close()
	return Parse(f, onError)
}

// parseFrame is one level of the compiler's <parse> stack. bci tracks the
// most recent <bc> element seen in this frame.
type parseFrame struct {
	methodID string
	bci      int
}

// pendingCall holds a <call> until the following <inline_success> or
// <inline_fail> resolves it.
type pendingCall struct {
	callee MemberRef
	bci    int
	root   bool
}

type parser struct {
	result  *ParseResult
	onError ErrorListener

	// id dictionaries; ids persist across tasks within a thread section and
	// are simply overwritten on redefinition.
	types   map[string]string
	methods map[string]MemberRef

	// current <task> state
	inTask   bool
	skipTask bool
	taskRef  MemberRef
	comp     *Compilation
	frames   []parseFrame
	call     *pendingCall
	elimType string
	elimLock bool
}

func (p *parser) line(s string) {
	rest := s
	for {
		i := strings.IndexByte(rest, '<')
		if i < 0 {
			return
		}
		rest = rest[i:]
		j := strings.IndexByte(rest, '>')
		if j < 0 {
			// Torn line from an interleaved writer.
			if p.inTask {
				p.fail("truncated tag", rest)
			}
			return
		}
		p.tag(rest[:j+1])
		rest = rest[j+1:]
	}
}

func (p *parser) fail(title, body string) {
	p.result.ParseFails++
	p.onError(title, body)
}

func (p *parser) tag(raw string) {
	name, attrs, closing, ok := splitTag(raw)
	if !ok {
		// XML declarations and comments are noise, not errors.
		if strings.HasPrefix(raw, "<?") || strings.HasPrefix(raw, "<!") {
			return
		}
		p.fail("malformed tag", raw)
		return
	}
	if closing {
		p.closeTag(name)
		return
	}

	switch name {
	case "type", "klass":
		if id, n := attrs["id"], attrs["name"]; id != "" && n != "" {
			p.types[id] = n
		}
	case "method":
		p.defineMethod(attrs, raw)
	case "task":
		p.openTask(attrs, raw)
	case "task_done":
		p.finishTask(attrs)
	case "failure":
		if p.comp != nil {
			p.comp.Success = false
		}
	case "nmethod":
		if p.comp != nil {
			if c := attrs["compiler"]; c != "" {
				p.comp.Compiler = c
			}
			if lv, err := strconv.Atoi(attrs["level"]); err == nil {
				p.comp.Level = lv
			}
		}
	case "parse":
		if p.taskActive() {
			p.frames = append(p.frames, parseFrame{methodID: attrs["method"], bci: -1})
		}
	case "bc":
		if p.taskActive() && len(p.frames) > 0 {
			if bci, err := strconv.Atoi(attrs["bci"]); err == nil {
				p.frames[len(p.frames)-1].bci = bci
			}
		}
	case "call":
		p.openCall(attrs)
	case "inline_success":
		p.closeCall(true, attrs["reason"])
	case "inline_fail":
		p.closeCall(false, attrs["reason"])
	case "uncommon_trap":
		p.trap(attrs)
	case "eliminate_allocation":
		if p.taskActive() {
			p.elimType = p.types[attrs["type"]]
			p.elimLock = false
		}
	case "eliminate_lock":
		if p.taskActive() {
			p.elimType = ""
			p.elimLock = true
		}
	case "jvms":
		p.jvms(attrs)
	case "intrinsic":
		if p.taskActive() {
			p.comp.Intrinsics = append(p.comp.Intrinsics, Intrinsic{BCI: p.rootBCI(), ID: attrs["id"]})
		}
	}
}

func (p *parser) closeTag(name string) {
	switch name {
	case "task":
		// A task missing its <task_done> is kept but stays unsuccessful.
		if p.comp != nil {
			p.commitTask()
		}
		p.resetTask()
	case "parse":
		if p.taskActive() && len(p.frames) > 0 {
			p.frames = p.frames[:len(p.frames)-1]
		}
		p.call = nil
	case "eliminate_allocation", "eliminate_lock":
		p.elimType = ""
		p.elimLock = false
	}
}

func (p *parser) taskActive() bool {
	return p.inTask && !p.skipTask && p.comp != nil
}

func (p *parser) defineMethod(attrs map[string]string, raw string) {
	id := attrs["id"]
	holder := p.types[attrs["holder"]]
	name := attrs["name"]
	if id == "" || holder == "" || name == "" {
		p.fail("incomplete method element", raw)
		return
	}
	desc := p.descriptorFor(attrs["arguments"], attrs["return"])
	p.methods[id] = MemberRef{Class: holder, Name: name, Descriptor: desc}
}

// descriptorFor rebuilds the JVM descriptor from the space-separated
// argument type ids and the return type id of a <method> element.
func (p *parser) descriptorFor(arguments, ret string) string {
	var sb strings.Builder
	sb.WriteByte('(')
	if arguments != "" {
		for _, id := range strings.Fields(arguments) {
			sb.WriteString(typeNameToDescriptor(p.types[id]))
		}
	}
	sb.WriteByte(')')
	sb.WriteString(typeNameToDescriptor(p.types[ret]))
	return sb.String()
}

var primitiveDescriptors = map[string]string{
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

// typeNameToDescriptor converts a HotSpot type name to descriptor form.
// Array classes already print in descriptor form ("[I", "[Ljava/lang/String;").
func typeNameToDescriptor(name string) string {
	if name == "" {
		return "V"
	}
	if d, ok := primitiveDescriptors[name]; ok {
		return d
	}
	if name[0] == '[' {
		return name
	}
	return "L" + name + ";"
}

func (p *parser) openTask(attrs map[string]string, raw string) {
	if p.inTask {
		// Interleaved writers tore the previous task apart.
		p.fail("unterminated task", p.taskRef.String())
		p.resetTask()
	}
	p.inTask = true

	ref, ok := parseMethodAttr(attrs["method"])
	if !ok {
		p.fail("malformed task method", raw)
		p.skipTask = true
		return
	}
	p.taskRef = ref
	id, _ := strconv.Atoi(attrs["compile_id"])
	level, _ := strconv.Atoi(attrs["level"])
	compiler := attrs["compiler"]
	if compiler == "" {
		compiler = "C2"
	}
	_, osr := attrs["osr_bci"]
	p.comp = &Compilation{CompileID: id, Compiler: compiler, Level: level, OSR: osr}
}

func (p *parser) finishTask(attrs map[string]string) {
	if p.comp == nil {
		return
	}
	p.comp.Success = attrs["success"] == "1"
	if n, err := strconv.Atoi(attrs["nmsize"]); err == nil {
		p.comp.NMSize = n
	}
	p.commitTask()
	// Keep inTask until </task> so stray trailing elements stay scoped.
	p.comp = nil
	p.frames = nil
	p.call = nil
}

func (p *parser) commitTask() {
	member := p.result.ensureClass(p.taskRef.Class).ensureMember(p.taskRef.Name, p.taskRef.Descriptor)
	member.Compilations = append(member.Compilations, p.comp)
}

func (p *parser) resetTask() {
	p.inTask = false
	p.skipTask = false
	p.comp = nil
	p.frames = nil
	p.call = nil
	p.elimType = ""
	p.elimLock = false
	p.taskRef = MemberRef{}
}

func (p *parser) openCall(attrs map[string]string) {
	if !p.taskActive() || len(p.frames) == 0 {
		return
	}
	top := p.frames[len(p.frames)-1]
	callee, ok := p.methods[attrs["method"]]
	if !ok {
		p.call = nil
		return
	}
	p.call = &pendingCall{callee: callee, bci: top.bci, root: len(p.frames) == 1}
}

func (p *parser) closeCall(inlined bool, reason string) {
	if p.call == nil || !p.taskActive() {
		p.call = nil
		return
	}
	if p.call.root && p.call.bci >= 0 {
		p.comp.Inlines = append(p.comp.Inlines, InlineDecision{
			BCI:     p.call.bci,
			Callee:  p.call.callee,
			Inlined: inlined,
			Reason:  reason,
		})
	}
	p.call = nil
}

func (p *parser) trap(attrs map[string]string) {
	if !p.taskActive() || len(p.frames) > 1 {
		return
	}
	bci, err := strconv.Atoi(attrs["bci"])
	if err != nil {
		bci = p.rootBCI()
	}
	if bci < 0 {
		return
	}
	p.comp.Traps = append(p.comp.Traps, Trap{BCI: bci, Reason: attrs["reason"], Action: attrs["action"]})
}

// jvms attributes an open eliminate_allocation/eliminate_lock to the frame
// naming the compiled member itself. Frames naming inlined callees are
// ignored; their allocations surface at the caller's BCI via the root frame.
func (p *parser) jvms(attrs map[string]string) {
	if !p.taskActive() || (p.elimType == "" && !p.elimLock) {
		return
	}
	ref, ok := p.methods[attrs["method"]]
	if !ok || ref != p.taskRef {
		return
	}
	bci, err := strconv.Atoi(attrs["bci"])
	if err != nil || bci < 0 {
		return
	}
	p.comp.Eliminations = append(p.comp.Eliminations, Elimination{BCI: bci, TypeName: p.elimType, Lock: p.elimLock})
}

func (p *parser) rootBCI() int {
	if len(p.frames) == 0 {
		return -1
	}
	return p.frames[0].bci
}

// parseMethodAttr splits the task attribute form "holder name descriptor",
// e.g. "java/lang/String hashCode ()I".
func parseMethodAttr(s string) (MemberRef, bool) {
	parts := strings.Fields(s)
	if len(parts) != 3 || !strings.HasPrefix(parts[2], "(") {
		return MemberRef{}, false
	}
	return MemberRef{Class: parts[0], Name: parts[1], Descriptor: parts[2]}, true
}

// splitTag dissects one "<name a='v' .../>" or "</name>" fragment.
func splitTag(raw string) (name string, attrs map[string]string, closing, ok bool) {
	if len(raw) < 3 || raw[0] != '<' || raw[len(raw)-1] != '>' {
		return "", nil, false, false
	}
	body := raw[1 : len(raw)-1]
	if strings.HasPrefix(body, "?") || strings.HasPrefix(body, "!") {
		return "", nil, false, false
	}
	if strings.HasPrefix(body, "/") {
		return strings.TrimSpace(body[1:]), nil, true, true
	}
	body = strings.TrimSuffix(body, "/")

	sp := strings.IndexAny(body, " \t")
	if sp < 0 {
		return body, map[string]string{}, false, true
	}
	name = body[:sp]
	attrs = make(map[string]string)
	rest := body[sp+1:]
	for {
		rest = strings.TrimLeft(rest, " \t")
		if rest == "" {
			break
		}
		eq := strings.IndexByte(rest, '=')
		if eq < 0 || eq+2 >= len(rest) || rest[eq+1] != '\'' {
			return "", nil, false, false
		}
		key := rest[:eq]
		end := strings.IndexByte(rest[eq+2:], '\'')
		if end < 0 {
			return "", nil, false, false
		}
		attrs[key] = unescape(rest[eq+2 : eq+2+end])
		rest = rest[eq+2+end+1:]
	}
	return name, attrs, false, true
}

var entityReplacer = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
	"&amp;", "&",
)

func unescape(s string) string {
	if !strings.ContainsRune(s, '&') {
		return s
	}
	return entityReplacer.Replace(s)
}
