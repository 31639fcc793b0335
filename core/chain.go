package core

import "sync"

// ChainState is the committed-block index: an ordered sequence of blocks
// plus two indices (by height and by hash), grounded on
// boing-node/src/chain.rs. The tip is the highest-height entry.
type ChainState struct {
	mu            sync.RWMutex
	height        uint64
	latestHash    Hash
	blocksByHeight map[uint64]Block
	blocksByHash   map[Hash]Block
}

// Genesis builds the height-0 block for proposer: all-zero parent hash,
// empty transactions, and roots computed over an empty state.
func Genesis(proposer AccountID) Block {
	return Block{
		Header: BlockHeader{
			ParentHash: ZeroHash,
			Height:     0,
			Timestamp:  0,
			Proposer:   proposer,
			TxRoot:     ZeroHash,
			StateRoot:  ZeroHash,
		},
	}
}

// FromGenesis builds a ChainState whose only entry is genesis.
func FromGenesis(genesis Block) *ChainState {
	c := &ChainState{
		blocksByHeight: make(map[uint64]Block),
		blocksByHash:   make(map[Hash]Block),
	}
	h := genesis.Hash()
	c.blocksByHeight[genesis.Header.Height] = genesis
	c.blocksByHash[h] = genesis
	c.height = genesis.Header.Height
	c.latestHash = h
	return c
}

// Height returns the tip's height.
func (c *ChainState) Height() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.height
}

// LatestHash returns the tip's hash.
func (c *ChainState) LatestHash() Hash {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latestHash
}

// ParentHash is an alias for LatestHash, read at production time before the
// next block's parent pointer is filled in.
func (c *ChainState) ParentHash() Hash {
	return c.LatestHash()
}

// Append adds block to the index. block must chain to the current tip:
// ParentHash == tip hash and Height == tip height + 1.
func (c *ChainState) Append(block Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if block.Header.ParentHash != c.latestHash {
		return ErrBlockNotChained
	}
	if block.Header.Height != c.height+1 {
		return ErrInvalidHeight
	}
	h := block.Hash()
	c.blocksByHeight[block.Header.Height] = block
	c.blocksByHash[h] = block
	c.height = block.Header.Height
	c.latestHash = h
	return nil
}

// GetBlockByHeight returns the block at height, if committed.
func (c *ChainState) GetBlockByHeight(height uint64) (Block, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.blocksByHeight[height]
	return b, ok
}

// GetBlockByHash returns the block with the given hash, if committed.
func (c *ChainState) GetBlockByHash(hash Hash) (Block, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.blocksByHash[hash]
	return b, ok
}

// ChainsTo reports whether block would chain onto (latestHash, height)
// without executing anything — the cheap pre-check block import runs
// before doing any work.
func ChainsTo(block Block, latestHash Hash, height uint64) bool {
	return block.Header.ParentHash == latestHash && block.Header.Height == height+1
}
