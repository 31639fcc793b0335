package core

import (
	"encoding/binary"
	"math/big"
	"math/bits"
)

// word is a single 32-byte stack/memory value, big-endian.
type word [32]byte

var wordMod = new(big.Int).Lsh(big.NewInt(1), 256)

func wordFromBig(x *big.Int) word {
	m := new(big.Int).Mod(x, wordMod)
	be := m.Bytes()
	var w word
	copy(w[32-len(be):], be)
	return w
}

func bigFromWord(w word) *big.Int {
	return new(big.Int).SetBytes(w[:])
}

// lowU64 reads the low 8 bytes of a word, big-endian, as used for memory
// offsets and jump destinations.
func (w word) lowU64() uint64 {
	return binary.BigEndian.Uint64(w[24:32])
}

func (w word) isZero() bool {
	return w == word{}
}

// storageAccessor abstracts contract storage so the interpreter does not
// need to know whether it is running against the live StateStore or a
// snapshot taken for speculative execution.
type storageAccessor interface {
	GetStorage(key [32]byte) [32]byte
	SetStorage(key, value [32]byte)
}

type contractStorage struct {
	state *StateStore
	id    AccountID
}

func (c contractStorage) GetStorage(key [32]byte) [32]byte { return c.state.GetStorage(c.id, key) }
func (c contractStorage) SetStorage(key, value [32]byte)   { c.state.SetStorage(c.id, key, value) }

// interpreterResult is the outcome of running bytecode to completion.
type interpreterResult struct {
	GasUsed    uint64
	ReturnData []byte
}

// runInterpreter executes code against calldata (copied into memory at
// offset 0 before the first instruction) with the given gas limit and
// storage accessor. Word arithmetic is big-endian; conversion to a memory
// index or jump destination uses the low 64 bits, big-endian.
func runInterpreter(code, calldata []byte, gasLimit uint64, cfg GasConfig, storage storageAccessor) (interpreterResult, error) {
	var stack []word
	memory := make([]byte, len(calldata))
	copy(memory, calldata)

	gasUsed := uint64(0)
	spend := func(base uint64) error {
		cost := cfg.scale(base)
		if gasUsed+cost > gasLimit {
			return ErrOutOfGas
		}
		gasUsed += cost
		return nil
	}

	pop := func() (word, error) {
		if len(stack) == 0 {
			return word{}, ErrStackUnderflow
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v, nil
	}
	push := func(v word) { stack = append(stack, v) }

	growTo := func(end uint64) {
		if end > uint64(len(memory)) {
			grown := make([]byte, end)
			copy(grown, memory)
			memory = grown
		}
	}

	pc := 0
	for pc < len(code) {
		op := Opcode(code[pc])
		switch op {
		case OpStop:
			if err := spend(gasStop); err != nil {
				return interpreterResult{}, err
			}
			return interpreterResult{GasUsed: gasUsed}, nil

		case OpAdd:
			if err := spend(gasAdd); err != nil {
				return interpreterResult{}, err
			}
			b, err := pop()
			if err != nil {
				return interpreterResult{}, err
			}
			a, err := pop()
			if err != nil {
				return interpreterResult{}, err
			}
			push(wordFromBig(new(big.Int).Add(bigFromWord(a), bigFromWord(b))))
			pc++

		case OpSub:
			if err := spend(gasSub); err != nil {
				return interpreterResult{}, err
			}
			b, err := pop()
			if err != nil {
				return interpreterResult{}, err
			}
			a, err := pop()
			if err != nil {
				return interpreterResult{}, err
			}
			push(wordFromBig(new(big.Int).Sub(bigFromWord(a), bigFromWord(b))))
			pc++

		case OpMul:
			// Deliberately truncated to saturating 64-bit arithmetic; the
			// spec treats this as specified behavior, not a bug to fix
			// (see DESIGN.md Open Questions).
			if err := spend(gasMul); err != nil {
				return interpreterResult{}, err
			}
			b, err := pop()
			if err != nil {
				return interpreterResult{}, err
			}
			a, err := pop()
			if err != nil {
				return interpreterResult{}, err
			}
			hi, lo := bits.Mul64(a.lowU64(), b.lowU64())
			var result uint64
			if hi != 0 {
				result = ^uint64(0)
			} else {
				result = lo
			}
			var w word
			binary.BigEndian.PutUint64(w[24:32], result)
			push(w)
			pc++

		case OpMload:
			if err := spend(gasMload); err != nil {
				return interpreterResult{}, err
			}
			off, err := pop()
			if err != nil {
				return interpreterResult{}, err
			}
			start := off.lowU64()
			growTo(start + 32)
			var w word
			copy(w[:], memory[start:start+32])
			push(w)
			pc++

		case OpMstore:
			if err := spend(gasMstore); err != nil {
				return interpreterResult{}, err
			}
			off, err := pop()
			if err != nil {
				return interpreterResult{}, err
			}
			val, err := pop()
			if err != nil {
				return interpreterResult{}, err
			}
			start := off.lowU64()
			growTo(start + 32)
			copy(memory[start:start+32], val[:])
			pc++

		case OpSload:
			if err := spend(gasSload); err != nil {
				return interpreterResult{}, err
			}
			key, err := pop()
			if err != nil {
				return interpreterResult{}, err
			}
			push(word(storage.GetStorage(key)))
			pc++

		case OpSstore:
			if err := spend(gasSstore); err != nil {
				return interpreterResult{}, err
			}
			key, err := pop()
			if err != nil {
				return interpreterResult{}, err
			}
			val, err := pop()
			if err != nil {
				return interpreterResult{}, err
			}
			storage.SetStorage(key, val)
			pc++

		case OpJump:
			if err := spend(gasJump); err != nil {
				return interpreterResult{}, err
			}
			dest, err := pop()
			if err != nil {
				return interpreterResult{}, err
			}
			target := dest.lowU64()
			if target >= uint64(len(code)) {
				return interpreterResult{}, ErrInvalidJump
			}
			pc = int(target)

		case OpJumpi:
			if err := spend(gasJumpi); err != nil {
				return interpreterResult{}, err
			}
			dest, err := pop()
			if err != nil {
				return interpreterResult{}, err
			}
			cond, err := pop()
			if err != nil {
				return interpreterResult{}, err
			}
			target := dest.lowU64()
			if !cond.isZero() && target < uint64(len(code)) {
				pc = int(target)
			} else {
				pc++
			}

		case OpReturn:
			if err := spend(gasReturn); err != nil {
				return interpreterResult{}, err
			}
			off, err := pop()
			if err != nil {
				return interpreterResult{}, err
			}
			size, err := pop()
			if err != nil {
				return interpreterResult{}, err
			}
			start := off.lowU64()
			length := size.lowU64()
			growTo(start + length)
			data := make([]byte, length)
			copy(data, memory[start:start+length])
			return interpreterResult{GasUsed: gasUsed, ReturnData: data}, nil

		default:
			if op >= OpPush1 && op <= OpPush32 {
				if err := spend(gasPush); err != nil {
					return interpreterResult{}, err
				}
				n := int(op-OpPush1) + 1
				if pc+1+n > len(code) {
					return interpreterResult{}, ErrInvalidBytecode
				}
				var w word
				copy(w[32-n:], code[pc+1:pc+1+n])
				push(w)
				pc += 1 + n
				continue
			}
			return interpreterResult{}, ErrInvalidBytecode
		}
	}
	return interpreterResult{GasUsed: gasUsed}, nil
}
