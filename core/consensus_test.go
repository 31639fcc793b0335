package core_test

import (
	"errors"
	"testing"

	core "novaledger/core"
)

func mkValidator(b byte) core.AccountID {
	var id core.AccountID
	id[31] = b
	return id
}

// TestLeaderRotation checks leader(r) = validators[r mod n] is exact over n
// consecutive rounds.
func TestLeaderRotation(t *testing.T) {
	validators := []core.AccountID{mkValidator(1), mkValidator(2), mkValidator(3), mkValidator(4)}
	c := core.NewConsensusEngine(validators)
	for r := uint64(0); r < uint64(len(validators))*2; r++ {
		want := validators[r%uint64(len(validators))]
		if got := c.Leader(r); got != want {
			t.Fatalf("round %d: leader = %s, want %s", r, got, want)
		}
	}
}

// TestBFTOneByzantine mirrors S4: four validators, quorum 3, one silent.
func TestBFTOneByzantine(t *testing.T) {
	v1, v2, v3, v4 := mkValidator(1), mkValidator(2), mkValidator(3), mkValidator(4)
	validators := []core.AccountID{v1, v2, v3, v4}
	c := core.NewConsensusEngine(validators)

	if c.Quorum() != 3 {
		t.Fatalf("quorum = %d, want 3", c.Quorum())
	}

	block := core.Block{Header: core.BlockHeader{Height: 0, Proposer: v1}}
	if err := c.Propose(block); err != nil {
		t.Fatalf("propose: %v", err)
	}
	hash := block.Hash()

	if committed, err := c.Vote(hash, v1); err != nil || committed != nil {
		t.Fatalf("vote 1: committed=%v err=%v", committed, err)
	}
	if committed, err := c.Vote(hash, v2); err != nil || committed != nil {
		t.Fatalf("vote 2: committed=%v err=%v", committed, err)
	}
	committed, err := c.Vote(hash, v3)
	if err != nil {
		t.Fatalf("vote 3: %v", err)
	}
	if committed == nil || *committed != hash {
		t.Fatalf("expected commit on third vote, got %v", committed)
	}
	if c.Round() != 1 {
		t.Fatalf("round = %d, want 1 after commit", c.Round())
	}
	// V4 stayed silent; a late vote now has nothing pending to attach to.
	if _, err := c.Vote(hash, v4); err == nil {
		t.Fatalf("expected error voting after round advanced")
	}
}

// TestEquivocation mirrors S5: a validator voting for two different block
// hashes in the same round is rejected on the second vote.
func TestEquivocation(t *testing.T) {
	v1, v2, v3, v4 := mkValidator(1), mkValidator(2), mkValidator(3), mkValidator(4)
	validators := []core.AccountID{v1, v2, v3, v4}
	c := core.NewConsensusEngine(validators)

	blockA := core.Block{Header: core.BlockHeader{Height: 0, Proposer: v1}}
	if err := c.Propose(blockA); err != nil {
		t.Fatalf("propose: %v", err)
	}
	hashA := blockA.Hash()
	otherHash := hashA
	otherHash[0] ^= 0xff // a distinct hash standing in for block B

	if _, err := c.Vote(hashA, v1); err != nil {
		t.Fatalf("first vote: %v", err)
	}
	_, err := c.Vote(otherHash, v1)
	var equiv *core.Equivocation
	if !errors.As(err, &equiv) {
		t.Fatalf("expected Equivocation, got %v", err)
	}
	if equiv.Validator != v1 || equiv.Round != 0 {
		t.Fatalf("unexpected equivocation payload: %+v", equiv)
	}
}

// TestOnlyLeaderCanPropose checks that a non-leader proposal is rejected.
func TestOnlyLeaderCanPropose(t *testing.T) {
	v1, v2 := mkValidator(1), mkValidator(2)
	c := core.NewConsensusEngine([]core.AccountID{v1, v2})
	block := core.Block{Header: core.BlockHeader{Height: 0, Proposer: v2}}
	if err := c.Propose(block); err == nil {
		t.Fatalf("expected error: v2 is not round-0 leader")
	}
}

// TestSecondCommitAtSameRoundImpossible: once a block commits at round r,
// the round counter has moved on, so a second block can never commit at r.
func TestSecondCommitAtSameRoundImpossible(t *testing.T) {
	v1 := mkValidator(1)
	c := core.NewConsensusEngine([]core.AccountID{v1})
	block := core.Block{Header: core.BlockHeader{Height: 0, Proposer: v1}}
	committedRound := c.Round()
	if _, err := c.ProposeAndCommit(block); err != nil {
		t.Fatalf("propose and commit: %v", err)
	}
	if c.Round() == committedRound {
		t.Fatalf("round did not advance after commit")
	}
}
