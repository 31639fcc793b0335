package core

import (
	"math/big"
	"sync"
)

// Vm executes individual transactions, either against the live StateStore
// (sequential path) or against an isolated ExecutionView (parallel path,
// Transfer only).
type Vm struct {
	cfg GasConfig
}

// NewVm returns a Vm using the default (1.0x) gas configuration.
func NewVm() *Vm {
	return &Vm{cfg: DefaultGasConfig()}
}

// NewVmWithGasConfig returns a Vm scaled by cfg.
func NewVmWithGasConfig(cfg GasConfig) *Vm {
	return &Vm{cfg: cfg}
}

// checkNoncePrecondition verifies the common precondition shared by every
// payload kind: the sender exists and its nonce matches tx.Nonce exactly.
func checkNoncePrecondition(senderState AccountState, ok bool, tx Transaction) error {
	if !ok {
		return ErrAccountNotFound
	}
	if senderState.Nonce != tx.Nonce {
		return &InvalidNonce{Expected: senderState.Nonce, Got: tx.Nonce}
	}
	return nil
}

func incrementNonce(nonce uint64) (uint64, error) {
	if nonce == ^uint64(0) {
		return 0, ErrNonceOverflow
	}
	return nonce + 1, nil
}

// Execute runs tx against the live state store (the sequential path: every
// payload kind is supported here).
func (vm *Vm) Execute(tx Transaction, state *StateStore) (uint64, error) {
	sender, ok := state.GetMut(tx.Sender)
	var senderCopy AccountState
	if ok {
		senderCopy = *sender
	}
	if err := checkNoncePrecondition(senderCopy, ok, tx); err != nil {
		return 0, err
	}

	switch tx.Payload.Kind {
	case PayloadTransfer:
		amount := tx.Payload.Amount
		if sender.Balance.Cmp(amount) < 0 {
			return 0, ErrInsufficientBalance
		}
		newNonce, err := incrementNonce(sender.Nonce)
		if err != nil {
			return 0, err
		}
		sender.Balance = new(big.Int).Sub(sender.Balance, amount)
		sender.Nonce = newNonce
		creditAccount(state, tx.Payload.To, amount)
		return vm.cfg.scale(GasTransfer), nil

	case PayloadBond:
		amount := tx.Payload.Amount
		if sender.Balance.Cmp(amount) < 0 {
			return 0, ErrInsufficientBalance
		}
		newNonce, err := incrementNonce(sender.Nonce)
		if err != nil {
			return 0, err
		}
		sender.Balance = new(big.Int).Sub(sender.Balance, amount)
		sender.Stake = new(big.Int).Add(sender.Stake, amount)
		sender.Nonce = newNonce
		return vm.cfg.scale(GasBond), nil

	case PayloadUnbond:
		amount := tx.Payload.Amount
		if sender.Stake.Cmp(amount) < 0 {
			return 0, ErrInsufficientStake
		}
		newNonce, err := incrementNonce(sender.Nonce)
		if err != nil {
			return 0, err
		}
		sender.Stake = new(big.Int).Sub(sender.Stake, amount)
		sender.Balance = new(big.Int).Add(sender.Balance, amount)
		sender.Nonce = newNonce
		return vm.cfg.scale(GasUnbond), nil

	case PayloadContractDeploy:
		oldNonce := sender.Nonce
		newNonce, err := incrementNonce(sender.Nonce)
		if err != nil {
			return 0, err
		}
		sender.Nonce = newNonce
		addr := DeriveContractAddress(tx.Sender, oldNonce)
		state.Insert(Account{ID: addr, State: NewAccountState()})
		state.SetContractCode(addr, tx.Payload.Bytecode)
		return vm.cfg.scale(GasContractDeploy), nil

	case PayloadContractCall:
		newNonce, err := incrementNonce(sender.Nonce)
		if err != nil {
			return 0, err
		}
		sender.Nonce = newNonce
		code, ok := state.GetContractCode(tx.Payload.Contract)
		if !ok {
			return 0, ErrAccountNotFound
		}
		storage := contractStorage{state: state, id: tx.Payload.Contract}
		result, err := runInterpreter(code, tx.Payload.Calldata, GasContractCallBudget, vm.cfg, storage)
		if err != nil {
			return 0, err
		}
		return result.GasUsed, nil

	default:
		return 0, ErrInvalidBytecode
	}
}

// creditAccount saturating-adds amount to id's balance, creating the
// account with nonce=0, stake=0 if it is absent.
func creditAccount(state *StateStore, id AccountID, amount *big.Int) {
	if existing, ok := state.GetMut(id); ok {
		existing.Balance = new(big.Int).Add(existing.Balance, amount)
		return
	}
	st := NewAccountState()
	st.Balance = new(big.Int).Set(amount)
	state.Insert(Account{ID: id, State: st})
}

// ExecutionView is an isolated state view for the parallel Transfer-only
// batch path: it holds only the accounts named in the batch member's
// access list, and its mutations are merged back into the main store only
// after every worker in the batch has finished.
type ExecutionView struct {
	accounts map[AccountID]AccountState
}

// NewExecutionView builds a view from a snapshot of account states.
func NewExecutionView(snapshot map[AccountID]AccountState) *ExecutionView {
	v := &ExecutionView{accounts: make(map[AccountID]AccountState, len(snapshot))}
	for id, st := range snapshot {
		v.accounts[id] = st.Clone()
	}
	return v
}

// Get returns a copy of id's state within the view.
func (v *ExecutionView) Get(id AccountID) (AccountState, bool) {
	st, ok := v.accounts[id]
	return st, ok
}

// Insert adds or replaces an account within the view.
func (v *ExecutionView) Insert(a Account) {
	v.accounts[a.ID] = a.State.Clone()
}

// AccountIDs returns every account id touched by this view, used by the
// disjointness check across a parallel batch.
func (v *ExecutionView) AccountIDs() []AccountID {
	ids := make([]AccountID, 0, len(v.accounts))
	for id := range v.accounts {
		ids = append(ids, id)
	}
	return ids
}

// MergeInto write-through merges the view's accounts into state.
func (v *ExecutionView) MergeInto(state *StateStore) {
	for id, st := range v.accounts {
		state.MergeAccount(id, st)
	}
}

// ExecuteTransfer runs a Transfer-only transaction against an isolated
// view. Used only by the parallel batch path; any other payload kind here
// is a scheduling bug.
func (vm *Vm) ExecuteTransfer(tx Transaction, view *ExecutionView) (uint64, error) {
	if tx.Payload.Kind != PayloadTransfer {
		return 0, ErrInvalidBytecode
	}
	sender, ok := view.Get(tx.Sender)
	if err := checkNoncePrecondition(sender, ok, tx); err != nil {
		return 0, err
	}
	amount := tx.Payload.Amount
	if sender.Balance.Cmp(amount) < 0 {
		return 0, ErrInsufficientBalance
	}
	newNonce, err := incrementNonce(sender.Nonce)
	if err != nil {
		return 0, err
	}
	sender.Balance = new(big.Int).Sub(sender.Balance, amount)
	sender.Nonce = newNonce
	view.accounts[tx.Sender] = sender

	if recipient, ok := view.Get(tx.Payload.To); ok {
		recipient.Balance = new(big.Int).Add(recipient.Balance, amount)
		view.accounts[tx.Payload.To] = recipient
	} else {
		st := NewAccountState()
		st.Balance = new(big.Int).Set(amount)
		view.accounts[tx.Payload.To] = st
	}
	return vm.cfg.scale(GasTransfer), nil
}

// BlockExecutor runs a block's transactions through the scheduler and the
// VM: batches run sequentially, but within a qualifying batch, Transfer-only
// transactions run in parallel over isolated views (spec.md §4.2, §5).
type BlockExecutor struct {
	vm        *Vm
	scheduler *TransactionScheduler
}

// NewBlockExecutor returns an executor using the default gas configuration.
func NewBlockExecutor() *BlockExecutor {
	return &BlockExecutor{vm: NewVm(), scheduler: NewTransactionScheduler()}
}

// NewBlockExecutorWithGasConfig returns an executor scaled by cfg.
func NewBlockExecutorWithGasConfig(cfg GasConfig) *BlockExecutor {
	return &BlockExecutor{vm: NewVmWithGasConfig(cfg), scheduler: NewTransactionScheduler()}
}

// ExecuteBlock runs every transaction in txs against state, returning the
// saturating total gas used. On error, state may be partially applied; the
// caller is responsible for reverting via its own checkpoint.
func (e *BlockExecutor) ExecuteBlock(txs []Transaction, state *StateStore) (uint64, error) {
	batches := e.scheduler.Schedule(txs)
	var totalGas uint64

	for _, batch := range batches {
		allTransfer := len(batch) > 1
		for _, idx := range batch {
			if txs[idx].Payload.Kind != PayloadTransfer {
				allTransfer = false
				break
			}
		}

		if allTransfer {
			gas, err := e.executeParallelBatch(batch, txs, state)
			if err != nil {
				return totalGas, err
			}
			totalGas = saturatingAddU64(totalGas, gas)
			continue
		}

		for _, idx := range batch {
			gas, err := e.vm.Execute(txs[idx], state)
			if err != nil {
				return totalGas, err
			}
			totalGas = saturatingAddU64(totalGas, gas)
		}
	}
	return totalGas, nil
}

type parallelResult struct {
	view *ExecutionView
	gas  uint64
	err  error
}

// executeParallelBatch fans out Transfer-only transactions over isolated
// per-tx views, then merges them back into state after a disjointness
// check. Because every view is scoped to its transaction's declared access
// list and the scheduler only ever groups disjoint access lists into one
// batch, the merge order does not affect the final state.
func (e *BlockExecutor) executeParallelBatch(batch []int, txs []Transaction, state *StateStore) (uint64, error) {
	results := make([]parallelResult, len(batch))
	var wg sync.WaitGroup
	for pos, idx := range batch {
		tx := txs[idx]
		snapshot := make(map[AccountID]AccountState)
		for id := range tx.AccessList.All() {
			if st, ok := state.Get(id); ok {
				snapshot[id] = st
			}
		}
		wg.Add(1)
		go func(pos int, tx Transaction, snapshot map[AccountID]AccountState) {
			defer wg.Done()
			view := NewExecutionView(snapshot)
			gas, err := e.vm.ExecuteTransfer(tx, view)
			results[pos] = parallelResult{view: view, gas: gas, err: err}
		}(pos, tx, snapshot)
	}
	wg.Wait()

	for _, r := range results {
		if r.err != nil {
			return 0, r.err
		}
	}

	written := make(map[AccountID]struct{})
	for _, r := range results {
		for _, id := range r.view.AccountIDs() {
			if _, dup := written[id]; dup {
				return 0, &ConflictDetected{Detail: "parallel batch wrote to the same account twice"}
			}
			written[id] = struct{}{}
		}
	}

	var totalGas uint64
	for _, r := range results {
		r.view.MergeInto(state)
		totalGas = saturatingAddU64(totalGas, r.gas)
	}
	return totalGas, nil
}

func saturatingAddU64(a, b uint64) uint64 {
	sum := a + b
	if sum < a {
		return ^uint64(0)
	}
	return sum
}
