package core

import "fmt"

// Structural errors — mempool, chain append, block import.
var (
	ErrDuplicateTransaction = fmt.Errorf("mempool: duplicate transaction")
	ErrInvalidSignature     = fmt.Errorf("mempool: invalid signature")
	ErrDoesNotChain         = fmt.Errorf("chain: block does not chain to tip")
	ErrInvalidHeight        = fmt.Errorf("chain: invalid height")
	ErrInvalidTxRoot        = fmt.Errorf("import: invalid tx root")
	ErrInvalidProposer      = fmt.Errorf("import: invalid proposer")
	ErrNoValidators         = fmt.Errorf("import: no validators configured")
	ErrBlockNotChained      = fmt.Errorf("chain: block not chained")
)

// InvalidStateRoot reports a mismatch between the header's declared state
// root and the root recomputed during import.
type InvalidStateRoot struct {
	Expected Hash
	Computed Hash
}

func (e *InvalidStateRoot) Error() string {
	return fmt.Sprintf("invalid state root: expected %s, computed %s", e.Expected, e.Computed)
}

// Execution errors.
var (
	ErrAccountNotFound    = fmt.Errorf("execution: account not found")
	ErrInsufficientBalance = fmt.Errorf("execution: insufficient balance")
	ErrInsufficientStake  = fmt.Errorf("execution: insufficient stake")
	ErrNonceOverflow      = fmt.Errorf("execution: nonce overflow")
	ErrOutOfGas           = fmt.Errorf("vm: out of gas")
	ErrStackUnderflow     = fmt.Errorf("vm: stack underflow")
	ErrInvalidBytecode    = fmt.Errorf("vm: invalid bytecode")
	ErrInvalidJump        = fmt.Errorf("vm: invalid jump destination")
)

// InvalidNonce reports a transaction whose nonce does not match the
// sender's current account nonce.
type InvalidNonce struct {
	Expected uint64
	Got      uint64
}

func (e *InvalidNonce) Error() string {
	return fmt.Sprintf("execution: invalid nonce: expected %d, got %d", e.Expected, e.Got)
}

// Consensus errors.
type InvalidBlockError struct {
	Detail string
}

func (e *InvalidBlockError) Error() string {
	return fmt.Sprintf("consensus: invalid block: %s", e.Detail)
}

var ErrInsufficientVotes = fmt.Errorf("consensus: insufficient votes")

// Equivocation reports a validator casting conflicting votes in one round.
type Equivocation struct {
	Validator AccountID
	Round     uint64
}

func (e *Equivocation) Error() string {
	return fmt.Sprintf("consensus: equivocation by %s at round %d", e.Validator, e.Round)
}

// ConflictDetected is the scheduler's safety net: two views in the same
// parallel batch wrote to the same account. A correct scheduler never
// raises this.
type ConflictDetected struct {
	Detail string
}

func (e *ConflictDetected) Error() string {
	return fmt.Sprintf("scheduler: conflict detected: %s", e.Detail)
}
