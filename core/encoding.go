package core

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
)

// Canonical byte encoding for hashing and signing. The system picks one
// fixed serialization and uses it everywhere a record needs to become
// bytes: github.com/ethereum/go-ethereum/rlp. (On-disk snapshots written by
// persistence.go use JSON instead.) Every encode* helper panics on error: these
// values are always well-formed in-memory structs (no user-controlled
// readers), so a failure here is a programming error, not a runtime one.

// rlpPayload mirrors TransactionPayload field-for-field; it exists only so
// rlp sees plain fixed-size types (AccountID arrays, non-nil big.Int) with
// no risk of a future TransactionPayload method upsetting the encoding.
type rlpPayload struct {
	Kind     uint8
	To       AccountID
	Amount   *big.Int
	Contract AccountID
	Calldata []byte
	Bytecode []byte
}

func encodePayload(p TransactionPayload) []byte {
	amount := p.Amount
	if amount == nil {
		amount = new(big.Int)
	}
	buf, err := rlp.EncodeToBytes(rlpPayload{
		Kind:     uint8(p.Kind),
		To:       p.To,
		Amount:   amount,
		Contract: p.Contract,
		Calldata: p.Calldata,
		Bytecode: p.Bytecode,
	})
	if err != nil {
		panic("core: encode payload: " + err.Error())
	}
	return buf
}

type rlpAccessList struct {
	Read  []AccountID
	Write []AccountID
}

func encodeAccessList(a AccessList) []byte {
	buf, err := rlp.EncodeToBytes(rlpAccessList{Read: a.Read, Write: a.Write})
	if err != nil {
		panic("core: encode access list: " + err.Error())
	}
	return buf
}

type rlpTransaction struct {
	Nonce      uint64
	Sender     AccountID
	Payload    []byte
	AccessList []byte
}

// encodeTransaction is the canonical encoding of the whole (nonce, sender,
// payload, access_list) record, used for the transaction identifier.
func encodeTransaction(t Transaction) []byte {
	buf, err := rlp.EncodeToBytes(rlpTransaction{
		Nonce:      t.Nonce,
		Sender:     t.Sender,
		Payload:    encodePayload(t.Payload),
		AccessList: encodeAccessList(t.AccessList),
	})
	if err != nil {
		panic("core: encode transaction: " + err.Error())
	}
	return buf
}

type rlpHeader struct {
	ParentHash Hash
	Height     uint64
	Timestamp  uint64
	Proposer   AccountID
	TxRoot     Hash
	StateRoot  Hash
}

func encodeHeader(h BlockHeader) []byte {
	buf, err := rlp.EncodeToBytes(rlpHeader{
		ParentHash: h.ParentHash,
		Height:     h.Height,
		Timestamp:  h.Timestamp,
		Proposer:   h.Proposer,
		TxRoot:     h.TxRoot,
		StateRoot:  h.StateRoot,
	})
	if err != nil {
		panic("core: encode header: " + err.Error())
	}
	return buf
}

// leUint64 returns the little-endian encoding of v.
func leUint64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf
}

// leUint128 returns the 16-byte little-endian encoding of a non-negative
// big.Int, used for the state tree's leaf value hash. Values that do not
// fit in 128 bits are truncated to their low 16 bytes; accounts never carry
// more than MAX_SUPPLY worth of value so this never triggers in practice.
func leUint128(v *big.Int) [16]byte {
	var out [16]byte
	if v == nil {
		return out
	}
	be := v.Bytes()
	if len(be) > 16 {
		be = be[len(be)-16:]
	}
	// be is big-endian; reverse into out's low bytes to produce
	// little-endian, then place at the start of the fixed-size array.
	for i := 0; i < len(be); i++ {
		out[i] = be[len(be)-1-i]
	}
	return out
}
