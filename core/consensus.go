package core

import (
	"github.com/sirupsen/logrus"
)

// ConsensusEngine drives HotStuff-style propose/vote/commit rounds over a
// fixed validator set, grounded on boing-consensus/src/engine.rs and on the
// teacher's logrus-based progress logging (core/consensus.go).
//
// Per round r: Idle -> Proposed(block) -> Committed. The round counter
// advances only on commit. No timeouts or view changes are implemented:
// liveness across faulty leaders is delegated to the enclosing node
// (spec.md §4.3, §9).
type ConsensusEngine struct {
	validators []AccountID
	round      uint64
	pending    *Block
	votes      map[AccountID]Hash
}

// NewConsensusEngine constructs a driver over validators, starting at
// round 0. validators must be non-empty.
func NewConsensusEngine(validators []AccountID) *ConsensusEngine {
	if len(validators) == 0 {
		panic("core: consensus requires at least one validator")
	}
	cp := make([]AccountID, len(validators))
	copy(cp, validators)
	return &ConsensusEngine{validators: cp, votes: make(map[AccountID]Hash)}
}

// Validators returns the fixed validator set.
func (c *ConsensusEngine) Validators() []AccountID {
	return c.validators
}

// Round returns the current round counter.
func (c *ConsensusEngine) Round() uint64 {
	return c.round
}

func (c *ConsensusEngine) f() int {
	return (len(c.validators) - 1) / 3
}

// Quorum returns 2f+1.
func (c *ConsensusEngine) Quorum() int {
	return 2*c.f() + 1
}

// Leader returns the round-robin leader for round r.
func (c *ConsensusEngine) Leader(round uint64) AccountID {
	n := len(c.validators)
	return c.validators[int(round)%n]
}

// Propose enters the voting phase for block. Only the round leader may
// propose, and the block's declared height must equal the current round.
func (c *ConsensusEngine) Propose(block Block) error {
	if block.Header.Height != c.round {
		return &InvalidBlockError{Detail: "block height does not match current round"}
	}
	expected := c.Leader(c.round)
	if block.Header.Proposer != expected {
		return &InvalidBlockError{Detail: "proposer is not the round leader"}
	}
	if !c.isValidator(block.Header.Proposer) {
		return &InvalidBlockError{Detail: "proposer not in validator set"}
	}
	b := block
	c.pending = &b
	c.votes = make(map[AccountID]Hash)
	logrus.WithFields(logrus.Fields{"round": c.round, "block_hash": block.Hash()}).Info("consensus: proposed block")
	return nil
}

func (c *ConsensusEngine) isValidator(id AccountID) bool {
	for _, v := range c.validators {
		if v == id {
			return true
		}
	}
	return false
}

// Vote submits voter's vote for blockHash. Returns the committed hash once
// quorum is reached; detects equivocation when voter has already voted for
// a different hash in this round.
func (c *ConsensusEngine) Vote(blockHash Hash, voter AccountID) (*Hash, error) {
	if !c.isValidator(voter) {
		return nil, &InvalidBlockError{Detail: "voter not in validator set"}
	}
	if c.pending == nil {
		return nil, &InvalidBlockError{Detail: "no pending block to vote on"}
	}
	pendingHash := c.pending.Hash()
	if blockHash != pendingHash {
		if _, already := c.votes[voter]; already {
			return nil, &Equivocation{Validator: voter, Round: c.round}
		}
		return nil, &InvalidBlockError{Detail: "vote for wrong block hash"}
	}

	c.votes[voter] = blockHash
	if len(c.votes) >= c.Quorum() {
		h := pendingHash
		logrus.WithFields(logrus.Fields{"round": c.round, "block_hash": h}).Info("consensus: committed block")
		c.round++
		c.pending = nil
		c.votes = make(map[AccountID]Hash)
		return &h, nil
	}
	return nil, nil
}

// SyncRound forces the round counter to height and clears pending state,
// used after importing a block that did not originate here.
func (c *ConsensusEngine) SyncRound(height uint64) {
	c.round = height
	c.pending = nil
	c.votes = make(map[AccountID]Hash)
}

// ProposeAndCommit proposes block, then casts every validator's vote in
// order, a convenience used in single- and few-validator setups (spec.md
// §4.5 step 7).
func (c *ConsensusEngine) ProposeAndCommit(block Block) (Hash, error) {
	if err := c.Propose(block); err != nil {
		return Hash{}, err
	}
	blockHash := block.Hash()
	for _, v := range append([]AccountID(nil), c.validators...) {
		if h, err := c.Vote(blockHash, v); err == nil && h != nil {
			return *h, nil
		}
	}
	return Hash{}, ErrInsufficientVotes
}
