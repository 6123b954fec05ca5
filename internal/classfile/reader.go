package classfile

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Instruction is one decoded bytecode instruction. Offset is the BCI within
// the method's code array.
type Instruction struct {
	Offset   int
	Opcode   byte
	Mnemonic string
	Operands []byte
}

// MethodBytecode is the decoded instruction stream of one method. Offsets
// are non-negative, unique and strictly increasing.
type MethodBytecode struct {
	Name         string
	Descriptor   string
	Instructions []Instruction

	offsets map[int]struct{}
}

// HasOffset reports whether bci is a valid instruction offset.
func (m *MethodBytecode) HasOffset(bci int) bool {
	_, ok := m.offsets[bci]
	return ok
}

// ClassBytecode holds the decoded methods of one class file.
type ClassBytecode struct {
	ClassName string // VM form
	Methods   []*MethodBytecode

	byKey map[string]*MethodBytecode
}

// MethodByKey returns the method with the given name and descriptor, or nil.
func (c *ClassBytecode) MethodByKey(name, descriptor string) *MethodBytecode {
	return c.byKey[name+descriptor]
}

// NewMethodBytecode builds a MethodBytecode from an already-decoded
// instruction stream.
func NewMethodBytecode(name, descriptor string, instructions []Instruction) *MethodBytecode {
	mb := &MethodBytecode{
		Name:         name,
		Descriptor:   descriptor,
		Instructions: instructions,
		offsets:      make(map[int]struct{}, len(instructions)),
	}
	for _, ins := range instructions {
		mb.offsets[ins.Offset] = struct{}{}
	}
	return mb
}

// NewClassBytecode assembles a ClassBytecode from its methods.
func NewClassBytecode(className string, methods []*MethodBytecode) *ClassBytecode {
	c := &ClassBytecode{ClassName: className, Methods: methods, byKey: make(map[string]*MethodBytecode, len(methods))}
	for _, m := range methods {
		c.byKey[m.Name+m.Descriptor] = m
	}
	return c
}

var errTruncated = errors.New("truncated class file")

const classMagic = 0xCAFEBABE

// Parse decodes a class file and returns the bytecode of every method that
// has a Code attribute. Abstract and native methods are omitted.
func Parse(data []byte) (*ClassBytecode, error) {
	r := &byteReader{data: data}

	if magic, err := r.u4(); err != nil || magic != classMagic {
		return nil, fmt.Errorf("not a class file (bad magic)")
	}
	r.skip(4) // minor, major

	pool, err := readConstantPool(r)
	if err != nil {
		return nil, err
	}

	r.skip(2) // access flags
	thisClass, err := r.u2()
	if err != nil {
		return nil, err
	}
	className, err := pool.className(thisClass)
	if err != nil {
		return nil, err
	}
	r.skip(2) // super class

	ifaceCount, err := r.u2()
	if err != nil {
		return nil, err
	}
	r.skip(2 * int(ifaceCount))

	// Fields carry no code; walk past them.
	fieldCount, err := r.u2()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(fieldCount); i++ {
		if err := skipMemberInfo(r); err != nil {
			return nil, err
		}
	}

	methodCount, err := r.u2()
	if err != nil {
		return nil, err
	}
	out := &ClassBytecode{ClassName: className, byKey: make(map[string]*MethodBytecode)}
	for i := 0; i < int(methodCount); i++ {
		mb, err := readMethodInfo(r, pool)
		if err != nil {
			return nil, err
		}
		if mb == nil {
			continue
		}
		out.Methods = append(out.Methods, mb)
		out.byKey[mb.Name+mb.Descriptor] = mb
	}
	return out, nil
}

type constantPool struct {
	utf8    map[uint16]string
	classes map[uint16]uint16 // class entry -> utf8 index
}

func (p *constantPool) className(idx uint16) (string, error) {
	nameIdx, ok := p.classes[idx]
	if !ok {
		return "", fmt.Errorf("constant pool index %d is not a class", idx)
	}
	name, ok := p.utf8[nameIdx]
	if !ok {
		return "", fmt.Errorf("class name utf8 index %d missing", nameIdx)
	}
	return name, nil
}

func readConstantPool(r *byteReader) (*constantPool, error) {
	count, err := r.u2()
	if err != nil {
		return nil, err
	}
	pool := &constantPool{utf8: make(map[uint16]string), classes: make(map[uint16]uint16)}
	for i := uint16(1); i < count; i++ {
		tag, err := r.u1()
		if err != nil {
			return nil, err
		}
		switch tag {
		case 1: // Utf8
			n, err := r.u2()
			if err != nil {
				return nil, err
			}
			b, err := r.bytes(int(n))
			if err != nil {
				return nil, err
			}
			pool.utf8[i] = string(b)
		case 7: // Class
			n, err := r.u2()
			if err != nil {
				return nil, err
			}
			pool.classes[i] = n
		case 3, 4: // Integer, Float
			r.skip(4)
		case 5, 6: // Long, Double occupy two pool slots
			r.skip(8)
			i++
		case 8, 16, 19, 20: // String, MethodType, Module, Package
			r.skip(2)
		case 9, 10, 11, 12, 17, 18: // refs, NameAndType, Dynamic, InvokeDynamic
			r.skip(4)
		case 15: // MethodHandle
			r.skip(3)
		default:
			return nil, fmt.Errorf("unknown constant pool tag %d", tag)
		}
	}
	if r.err != nil {
		return nil, errTruncated
	}
	return pool, nil
}

func skipMemberInfo(r *byteReader) error {
	r.skip(6) // access, name, descriptor
	attrCount, err := r.u2()
	if err != nil {
		return err
	}
	for i := 0; i < int(attrCount); i++ {
		r.skip(2)
		n, err := r.u4()
		if err != nil {
			return err
		}
		r.skip(int(n))
	}
	return r.err
}

func readMethodInfo(r *byteReader, pool *constantPool) (*MethodBytecode, error) {
	r.skip(2) // access
	nameIdx, err := r.u2()
	if err != nil {
		return nil, err
	}
	descIdx, err := r.u2()
	if err != nil {
		return nil, err
	}
	attrCount, err := r.u2()
	if err != nil {
		return nil, err
	}

	var code []byte
	for i := 0; i < int(attrCount); i++ {
		attrNameIdx, err := r.u2()
		if err != nil {
			return nil, err
		}
		length, err := r.u4()
		if err != nil {
			return nil, err
		}
		if pool.utf8[attrNameIdx] != "Code" || code != nil {
			r.skip(int(length))
			continue
		}
		body, err := r.bytes(int(length))
		if err != nil {
			return nil, err
		}
		code, err = extractCode(body)
		if err != nil {
			return nil, err
		}
	}
	if code == nil {
		return nil, nil
	}

	instructions, err := decodeCode(code)
	if err != nil {
		return nil, fmt.Errorf("method %s%s: %w", pool.utf8[nameIdx], pool.utf8[descIdx], err)
	}
	return NewMethodBytecode(pool.utf8[nameIdx], pool.utf8[descIdx], instructions), nil
}

// extractCode pulls the code array out of a Code attribute body.
func extractCode(body []byte) ([]byte, error) {
	r := &byteReader{data: body}
	r.skip(4) // max_stack, max_locals
	n, err := r.u4()
	if err != nil {
		return nil, err
	}
	return r.bytes(int(n))
}

// decodeCode walks a code array and yields one Instruction per opcode,
// handling the variable-length forms (wide, tableswitch, lookupswitch).
func decodeCode(code []byte) ([]Instruction, error) {
	var out []Instruction
	pc := 0
	for pc < len(code) {
		op := code[pc]
		if int(op) >= len(opcodes) {
			return nil, fmt.Errorf("invalid opcode 0x%02x at offset %d", op, pc)
		}
		info := opcodes[op]

		size := 1 + info.operands
		switch op {
		case opWide:
			if pc+1 >= len(code) {
				return nil, errTruncated
			}
			if code[pc+1] == opIinc {
				size = 6
			} else {
				size = 4
			}
		case opTableswitch:
			pad := padTo4(pc + 1)
			base := pc + 1 + pad
			if base+12 > len(code) {
				return nil, errTruncated
			}
			low := int(int32(binary.BigEndian.Uint32(code[base+4:])))
			high := int(int32(binary.BigEndian.Uint32(code[base+8:])))
			if high < low {
				return nil, fmt.Errorf("tableswitch bounds inverted at offset %d", pc)
			}
			size = 1 + pad + 12 + (high-low+1)*4
		case opLookupswitch:
			pad := padTo4(pc + 1)
			base := pc + 1 + pad
			if base+8 > len(code) {
				return nil, errTruncated
			}
			npairs := int(int32(binary.BigEndian.Uint32(code[base+4:])))
			if npairs < 0 {
				return nil, fmt.Errorf("lookupswitch pair count negative at offset %d", pc)
			}
			size = 1 + pad + 8 + npairs*8
		}
		if pc+size > len(code) {
			return nil, errTruncated
		}

		out = append(out, Instruction{
			Offset:   pc,
			Opcode:   op,
			Mnemonic: info.mnemonic,
			Operands: code[pc+1 : pc+size],
		})
		pc += size
	}
	return out, nil
}

func padTo4(pc int) int {
	return (4 - pc%4) % 4
}

// byteReader is a sticky-error big-endian cursor over the class file bytes.
type byteReader struct {
	data []byte
	pos  int
	err  error
}

func (r *byteReader) u1() (byte, error) {
	b, err := r.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *byteReader) u2() (uint16, error) {
	b, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *byteReader) u4() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *byteReader) bytes(n int) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	if n < 0 || r.pos+n > len(r.data) {
		r.err = errTruncated
		return nil, r.err
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *byteReader) skip(n int) {
	_, _ = r.bytes(n)
}
