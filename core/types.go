package core

import (
	"encoding/hex"
	"math/big"
)

// AccountID is a 32-byte value, semantically the Ed25519 public key of a
// signer (or, for a contract account, a derived address of the same shape).
type AccountID [32]byte

func (a AccountID) String() string {
	return hex.EncodeToString(a[:])
}

func (a AccountID) Bytes() []byte {
	return a[:]
}

// AccountState is the mutable part of an account: balance and stake are
// arbitrary-precision non-negative integers (u128 in the spec), nonce is a
// monotonically increasing counter.
type AccountState struct {
	Balance *big.Int
	Nonce   uint64
	Stake   *big.Int
}

// NewAccountState returns a zeroed account state with non-nil big.Int
// fields, since rlp and the tree hasher both require non-nil values.
func NewAccountState() AccountState {
	return AccountState{Balance: new(big.Int), Nonce: 0, Stake: new(big.Int)}
}

// Clone returns a deep copy, used when checkpointing and when building
// per-transaction snapshots for parallel execution.
func (s AccountState) Clone() AccountState {
	return AccountState{
		Balance: new(big.Int).Set(s.Balance),
		Nonce:   s.Nonce,
		Stake:   new(big.Int).Set(s.Stake),
	}
}

// Account pairs an identifier with its state.
type Account struct {
	ID    AccountID
	State AccountState
}

// AccessList declares the accounts a transaction reads and writes. The
// scheduler trusts that this is a superset of what the transaction actually
// touches (spec.md §9 — "access lists as a trust input").
type AccessList struct {
	Read  []AccountID
	Write []AccountID
}

// All returns the union of the read and write sets as a set (map for
// membership tests, used by the conflict check).
func (a AccessList) All() map[AccountID]struct{} {
	out := make(map[AccountID]struct{}, len(a.Read)+len(a.Write))
	for _, id := range a.Read {
		out[id] = struct{}{}
	}
	for _, id := range a.Write {
		out[id] = struct{}{}
	}
	return out
}

// ConflictsWith reports whether a and other name any account in common,
// read or write (reads are treated pessimistically per spec.md §3).
func (a AccessList) ConflictsWith(other AccessList) bool {
	mine := a.All()
	for id := range other.All() {
		if _, ok := mine[id]; ok {
			return true
		}
	}
	return false
}

// PayloadKind discriminates the variants of TransactionPayload.
type PayloadKind uint8

const (
	PayloadTransfer PayloadKind = iota
	PayloadBond
	PayloadUnbond
	PayloadContractCall
	PayloadContractDeploy
)

// TransactionPayload is encoded as a single fixed-shape struct so canonical
// encoding stays a pure function of the value: unused fields for a given
// Kind are always their zero value (Amount defaults to a non-nil zero
// big.Int, never nil, so rlp encoding is deterministic regardless of kind).
type TransactionPayload struct {
	Kind     PayloadKind
	To       AccountID // Transfer
	Amount   *big.Int  // Transfer, Bond, Unbond
	Contract AccountID // ContractCall
	Calldata []byte    // ContractCall
	Bytecode []byte    // ContractDeploy
}

func zeroAmount() *big.Int { return new(big.Int) }

// TransferPayload builds a Transfer payload.
func TransferPayload(to AccountID, amount *big.Int) TransactionPayload {
	return TransactionPayload{Kind: PayloadTransfer, To: to, Amount: amount}
}

// BondPayload builds a Bond payload.
func BondPayload(amount *big.Int) TransactionPayload {
	return TransactionPayload{Kind: PayloadBond, Amount: amount, To: AccountID{}, Contract: AccountID{}}
}

// UnbondPayload builds an Unbond payload.
func UnbondPayload(amount *big.Int) TransactionPayload {
	return TransactionPayload{Kind: PayloadUnbond, Amount: amount, To: AccountID{}, Contract: AccountID{}}
}

// ContractCallPayload builds a ContractCall payload.
func ContractCallPayload(contract AccountID, calldata []byte) TransactionPayload {
	return TransactionPayload{Kind: PayloadContractCall, Contract: contract, Calldata: calldata, Amount: zeroAmount()}
}

// ContractDeployPayload builds a ContractDeploy payload.
func ContractDeployPayload(bytecode []byte) TransactionPayload {
	return TransactionPayload{Kind: PayloadContractDeploy, Bytecode: bytecode, Amount: zeroAmount()}
}

// Transaction is the unsigned record; Sender must equal the Ed25519 public
// key that later signs it.
type Transaction struct {
	Nonce      uint64
	Sender     AccountID
	Payload    TransactionPayload
	AccessList AccessList
}

// ID is the deterministic transaction identifier: the BLAKE3 hash of the
// canonical encoding of the whole record. It is also the mempool dedup key.
func (t Transaction) ID() Hash {
	return hashBytes(encodeTransaction(t))
}

// SignableHash is the BLAKE3 hash signed over: nonce_LE || sender ||
// enc(payload) || enc(access_list).
func (t Transaction) SignableHash() Hash {
	return hashBytes(
		leUint64(t.Nonce),
		t.Sender.Bytes(),
		encodePayload(t.Payload),
		encodeAccessList(t.AccessList),
	)
}

// SignedTransaction is a Transaction plus a 64-byte Ed25519 signature over
// its SignableHash.
type SignedTransaction struct {
	Tx        Transaction
	Signature [64]byte
}

// InclusionProof is a sequence of (sibling hash, path bit) steps from a leaf
// toward the state root.
type InclusionProof struct {
	AccountID AccountID
	ValueHash Hash
	Steps     []ProofStep
}

// ProofStep is one level of an InclusionProof: the sibling hash at that
// level, and the bit (0 = we were the left child, 1 = we were the right
// child) that the key contributed at that depth.
type ProofStep struct {
	SiblingHash Hash
	PathBit     uint8
}

// BlockHeader identifies a block's position in the chain and seals the
// roots computed at production time.
type BlockHeader struct {
	ParentHash Hash
	Height     uint64
	Timestamp  uint64
	Proposer   AccountID
	TxRoot     Hash
	StateRoot  Hash
}

// Hash is BLAKE3 of the canonical header encoding; transactions contribute
// only through TxRoot.
func (h BlockHeader) Hash() Hash {
	return hashBytes(encodeHeader(h))
}

// Block is a header plus its ordered transactions.
type Block struct {
	Header       BlockHeader
	Transactions []Transaction
}

// Hash delegates to the header hash.
func (b Block) Hash() Hash {
	return b.Header.Hash()
}

// TxRoot computes the pairwise Merkle root of transaction identifiers.
// Odd-count levels promote the lone leaf by hashing it with itself.
// The empty set yields the zero hash.
func TxRoot(txs []Transaction) Hash {
	if len(txs) == 0 {
		return ZeroHash
	}
	level := make([]Hash, len(txs))
	for i, tx := range txs {
		level[i] = tx.ID()
	}
	for len(level) > 1 {
		next := make([]Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, hashBytes(level[i].Bytes(), level[i+1].Bytes()))
			} else {
				next = append(next, hashBytes(level[i].Bytes(), level[i].Bytes()))
			}
		}
		level = next
	}
	return level[0]
}

// DeriveContractAddress computes the deterministic address of a contract
// deployed by sender at its nonce *before* increment.
func DeriveContractAddress(sender AccountID, nonceBeforeIncrement uint64) AccountID {
	h := hashBytes(sender.Bytes(), leUint64(nonceBeforeIncrement))
	var id AccountID
	copy(id[:], h[:])
	return id
}
