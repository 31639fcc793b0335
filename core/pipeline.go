package core

import (
	"math/big"
	"time"

	"github.com/sirupsen/logrus"
)

// BlockProducer drains the mempool, executes against a checkpoint of the
// state store, and drives consensus and the chain index to commit a new
// block, grounded on boing-node/src/block_producer.rs and logging in the
// teacher's style (core/consensus.go's logrus usage).
type BlockProducer struct {
	Proposer     AccountID
	MaxTxsPerBlock int
}

// NewBlockProducer returns a producer for proposer with the spec's default
// cap of 1000 transactions per block.
func NewBlockProducer(proposer AccountID) *BlockProducer {
	return &BlockProducer{Proposer: proposer, MaxTxsPerBlock: 1000}
}

// WithMaxTxsPerBlock overrides the per-block transaction cap.
func (p *BlockProducer) WithMaxTxsPerBlock(max int) *BlockProducer {
	p.MaxTxsPerBlock = max
	return p
}

// ProduceBlock runs spec.md §4.5's production algorithm. It returns the
// committed block hash, or nil if this node is not the round's leader, the
// mempool was empty, or production failed for any reason (in which case
// state and mempool are left exactly as they were).
func (p *BlockProducer) ProduceBlock(
	chain *ChainState,
	mempool *Mempool,
	state *StateStore,
	executor *BlockExecutor,
	consensus *ConsensusEngine,
) *Hash {
	nextHeight := chain.Height() + 1
	if consensus.Leader(nextHeight) != p.Proposer {
		return nil
	}

	signedTxs := mempool.DrainForBlock(p.MaxTxsPerBlock)
	if len(signedTxs) == 0 {
		return nil
	}
	txs := make([]Transaction, len(signedTxs))
	for i, s := range signedTxs {
		txs[i] = s.Tx
	}

	parentHash := chain.ParentHash()
	height := nextHeight
	txRoot := TxRoot(txs)

	checkpoint := state.Checkpoint()
	if _, err := executor.ExecuteBlock(txs, state); err != nil {
		logrus.WithError(err).Warn("block production: execution failed")
		state.Revert(checkpoint)
		mempool.Reinsert(signedTxs)
		return nil
	}

	creditBlockReward(state, p.Proposer, height)

	stateRoot := state.StateRoot()
	block := Block{
		Header: BlockHeader{
			ParentHash: parentHash,
			Height:     height,
			Timestamp:  uint64(time.Now().Unix()),
			Proposer:   p.Proposer,
			TxRoot:     txRoot,
			StateRoot:  stateRoot,
		},
		Transactions: txs,
	}

	committedHash, err := consensus.ProposeAndCommit(block)
	if err != nil {
		logrus.WithError(err).Warn("block production: consensus failed")
		state.Revert(checkpoint)
		mempool.Reinsert(signedTxs)
		return nil
	}

	if err := chain.Append(block); err != nil {
		logrus.WithError(err).Warn("block production: chain append failed")
		state.Revert(checkpoint)
		mempool.Reinsert(signedTxs)
		return nil
	}

	logrus.WithFields(logrus.Fields{"height": height, "hash": committedHash}).Info("block production: committed")
	return &committedHash
}

// creditBlockReward credits the block reward to proposer, creating the
// account if it is absent.
func creditBlockReward(state *StateStore, proposer AccountID, height uint64) {
	reward := BlockEmissionValidators(height)
	if reward.Sign() <= 0 {
		return
	}
	if existing, ok := state.GetMut(proposer); ok {
		existing.Balance = new(big.Int).Add(existing.Balance, reward)
		return
	}
	st := NewAccountState()
	st.Balance = reward
	state.Insert(Account{ID: proposer, State: st})
}

// ValidateAndExecuteBlock runs spec.md §4.6 steps 3-6 against a caller
// supplied state snapshot: recompute tx_root, check the proposer is a
// validator, execute on the snapshot, credit the reward, and verify the
// resulting state_root. It does not touch the chain index or consensus
// round; callers compose it with ChainsTo and ChainState.Append.
func ValidateAndExecuteBlock(block Block, parentState *StateStore, validators []AccountID, executor *BlockExecutor) (*StateStore, error) {
	expectedTxRoot := TxRoot(block.Transactions)
	if block.Header.TxRoot != expectedTxRoot {
		return nil, ErrInvalidTxRoot
	}

	found := false
	for _, v := range validators {
		if v == block.Header.Proposer {
			found = true
			break
		}
	}
	if !found {
		return nil, ErrInvalidProposer
	}

	state := parentState.Snapshot()
	if _, err := executor.ExecuteBlock(block.Transactions, state); err != nil {
		return nil, err
	}

	creditBlockReward(state, block.Header.Proposer, block.Header.Height)

	computed := state.StateRoot()
	if computed != block.Header.StateRoot {
		return nil, &InvalidStateRoot{Expected: block.Header.StateRoot, Computed: computed}
	}
	return state, nil
}

// ImportBlock runs the full spec.md §4.6 import sequence: chain-link check,
// validator-set check, re-execution, state-root check. On success it
// returns the new state; the caller is responsible for chain.Append and
// consensus.SyncRound, matching boing-node/src/node.rs's
// import_network_block wiring.
func ImportBlock(block Block, chain *ChainState, parentState *StateStore, consensus *ConsensusEngine, executor *BlockExecutor) (*StateStore, error) {
	latestHash := chain.LatestHash()
	height := chain.Height()
	if !ChainsTo(block, latestHash, height) {
		return nil, ErrDoesNotChain
	}
	validators := consensus.Validators()
	if len(validators) == 0 {
		return nil, ErrNoValidators
	}
	return ValidateAndExecuteBlock(block, parentState, validators, executor)
}
