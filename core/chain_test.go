package core_test

import (
	"testing"

	core "novaledger/core"
)

// TestChainAppendRejectsWrongParent checks the append precondition.
func TestChainAppendRejectsWrongParent(t *testing.T) {
	proposer := mkAccountID(1)
	genesis := core.Genesis(proposer)
	chain := core.FromGenesis(genesis)

	block := core.Block{Header: core.BlockHeader{
		ParentHash: core.ZeroHash, // wrong: should be genesis.Hash()
		Height:     1,
		Proposer:   proposer,
	}}
	if err := chain.Append(block); err != core.ErrBlockNotChained {
		t.Fatalf("err = %v, want ErrBlockNotChained", err)
	}
}

// TestChainAppendRejectsWrongHeight checks the height half of the append
// precondition.
func TestChainAppendRejectsWrongHeight(t *testing.T) {
	proposer := mkAccountID(1)
	genesis := core.Genesis(proposer)
	chain := core.FromGenesis(genesis)

	block := core.Block{Header: core.BlockHeader{
		ParentHash: genesis.Hash(),
		Height:     2, // should be 1
		Proposer:   proposer,
	}}
	if err := chain.Append(block); err != core.ErrInvalidHeight {
		t.Fatalf("err = %v, want ErrInvalidHeight", err)
	}
}

// TestChainAppendAdvancesTip checks a well-formed block is accepted and
// becomes the new tip.
func TestChainAppendAdvancesTip(t *testing.T) {
	proposer := mkAccountID(1)
	genesis := core.Genesis(proposer)
	chain := core.FromGenesis(genesis)

	block := core.Block{Header: core.BlockHeader{
		ParentHash: genesis.Hash(),
		Height:     1,
		Proposer:   proposer,
	}}
	if err := chain.Append(block); err != nil {
		t.Fatalf("append: %v", err)
	}
	if chain.Height() != 1 {
		t.Fatalf("height = %d, want 1", chain.Height())
	}
	if chain.LatestHash() != block.Hash() {
		t.Fatalf("latest hash not updated")
	}
	if _, ok := chain.GetBlockByHeight(1); !ok {
		t.Fatalf("block not retrievable by height")
	}
	if _, ok := chain.GetBlockByHash(block.Hash()); !ok {
		t.Fatalf("block not retrievable by hash")
	}
}
