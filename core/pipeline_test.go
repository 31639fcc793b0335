package core_test

import (
	"crypto/ed25519"
	"math/big"
	"testing"

	core "novaledger/core"
)

// newAlignedNode builds a single-validator chain/consensus pair whose round
// counter is aligned with the chain tip, mirroring
// boing-node/src/node.rs's genesis handling: the engine proposes and
// commits genesis itself, advancing round 0 -> 1 to match
// chain.height()+1 for the first real production attempt.
func newAlignedNode(t *testing.T, proposer core.AccountID) (*core.ChainState, *core.ConsensusEngine) {
	t.Helper()
	genesis := core.Genesis(proposer)
	chain := core.FromGenesis(genesis)
	consensus := core.NewConsensusEngine([]core.AccountID{proposer})
	if _, err := consensus.ProposeAndCommit(genesis); err != nil {
		t.Fatalf("genesis alignment: %v", err)
	}
	return chain, consensus
}

// TestSingleValidatorTransferProduction mirrors S1.
func TestSingleValidatorTransferProduction(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	var proposer core.AccountID
	copy(proposer[:], pub)
	recipient := mkAccountID(2)

	chain, consensus := newAlignedNode(t, proposer)

	state := core.NewStateStore()
	proposerState := core.NewAccountState()
	proposerState.Balance = big.NewInt(1_000_000)
	state.Insert(core.Account{ID: proposer, State: proposerState})

	tx := core.Transaction{
		Nonce:   0,
		Sender:  proposer,
		Payload: core.TransferPayload(recipient, big.NewInt(100)),
		AccessList: core.AccessList{
			Read:  []core.AccountID{proposer},
			Write: []core.AccountID{proposer, recipient},
		},
	}
	signed := core.SignTransaction(tx, priv)
	mempool := core.NewMempool()
	if err := mempool.Insert(signed); err != nil {
		t.Fatalf("mempool insert: %v", err)
	}

	executor := core.NewBlockExecutor()
	producer := core.NewBlockProducer(proposer)

	committed := producer.ProduceBlock(chain, mempool, state, executor, consensus)
	if committed == nil {
		t.Fatalf("expected a committed block")
	}
	if chain.Height() != 1 {
		t.Fatalf("tip height = %d, want 1", chain.Height())
	}

	reward := core.BlockEmissionValidators(1)
	wantProposer := new(big.Int).Sub(big.NewInt(1_000_000), big.NewInt(100))
	wantProposer.Add(wantProposer, reward)
	if balanceOf(t, state, proposer).Cmp(wantProposer) != 0 {
		t.Fatalf("proposer balance = %s, want %s", balanceOf(t, state, proposer), wantProposer)
	}
	if balanceOf(t, state, recipient).Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("recipient balance = %s, want 100", balanceOf(t, state, recipient))
	}
	if mempool.Len() != 0 {
		t.Fatalf("mempool should be empty after production, has %d", mempool.Len())
	}
}

// TestImportRejectsBadStateRoot mirrors S6: a correctly produced block's
// state_root is tampered with before import, and import must fail with
// InvalidStateRoot without mutating local state.
func TestImportRejectsBadStateRoot(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	var proposer core.AccountID
	copy(proposer[:], pub)
	recipient := mkAccountID(2)

	producerChain, producerConsensus := newAlignedNode(t, proposer)
	producerState := core.NewStateStore()
	st := core.NewAccountState()
	st.Balance = big.NewInt(1_000_000)
	producerState.Insert(core.Account{ID: proposer, State: st})

	tx := core.Transaction{
		Nonce:   0,
		Sender:  proposer,
		Payload: core.TransferPayload(recipient, big.NewInt(100)),
		AccessList: core.AccessList{
			Read:  []core.AccountID{proposer},
			Write: []core.AccountID{proposer, recipient},
		},
	}
	signed := core.SignTransaction(tx, priv)
	mempool := core.NewMempool()
	if err := mempool.Insert(signed); err != nil {
		t.Fatalf("mempool insert: %v", err)
	}
	executor := core.NewBlockExecutor()
	producer := core.NewBlockProducer(proposer)
	committedHash := producer.ProduceBlock(producerChain, mempool, producerState, executor, producerConsensus)
	if committedHash == nil {
		t.Fatalf("producer failed to commit")
	}
	block, ok := producerChain.GetBlockByHeight(1)
	if !ok {
		t.Fatalf("produced block not found")
	}

	// Second node starts from the same genesis/parent state, but never saw
	// the real block: we hand it a copy with a corrupted state_root.
	importerChain, importerConsensus := newAlignedNode(t, proposer)
	importerState := core.NewStateStore()
	importerState.Insert(core.Account{ID: proposer, State: st})

	tampered := block
	tampered.Header.StateRoot[0] ^= 0x01

	_, err = core.ImportBlock(tampered, importerChain, importerState, importerConsensus, executor)
	if _, ok := err.(*core.InvalidStateRoot); !ok {
		t.Fatalf("expected InvalidStateRoot, got %v", err)
	}
	if importerChain.Height() != 0 {
		t.Fatalf("importer tip changed despite rejected import: height = %d", importerChain.Height())
	}
}

// TestImportAcceptsValidBlock covers property 10: a block produced by one
// node and imported by another against the same parent yields the same
// state root and is accepted.
func TestImportAcceptsValidBlock(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	var proposer core.AccountID
	copy(proposer[:], pub)
	recipient := mkAccountID(2)

	producerChain, producerConsensus := newAlignedNode(t, proposer)
	producerState := core.NewStateStore()
	st := core.NewAccountState()
	st.Balance = big.NewInt(1_000_000)
	producerState.Insert(core.Account{ID: proposer, State: st})

	tx := core.Transaction{
		Nonce:   0,
		Sender:  proposer,
		Payload: core.TransferPayload(recipient, big.NewInt(100)),
		AccessList: core.AccessList{
			Read:  []core.AccountID{proposer},
			Write: []core.AccountID{proposer, recipient},
		},
	}
	signed := core.SignTransaction(tx, priv)
	mempool := core.NewMempool()
	if err := mempool.Insert(signed); err != nil {
		t.Fatalf("mempool insert: %v", err)
	}
	executor := core.NewBlockExecutor()
	producer := core.NewBlockProducer(proposer)
	if producer.ProduceBlock(producerChain, mempool, producerState, executor, producerConsensus) == nil {
		t.Fatalf("producer failed to commit")
	}
	block, _ := producerChain.GetBlockByHeight(1)

	importerChain, importerConsensus := newAlignedNode(t, proposer)
	importerState := core.NewStateStore()
	importerState.Insert(core.Account{ID: proposer, State: st})

	newState, err := core.ImportBlock(block, importerChain, importerState, importerConsensus, executor)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if newState.StateRoot() != producerState.StateRoot() {
		t.Fatalf("imported state root diverges from producer's")
	}
	if err := importerChain.Append(block); err != nil {
		t.Fatalf("append after import: %v", err)
	}
	importerConsensus.SyncRound(block.Header.Height)
	if importerChain.Height() != 1 {
		t.Fatalf("importer tip height = %d, want 1", importerChain.Height())
	}
}
