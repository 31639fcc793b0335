package core

// Sparse binary Merkle tree over the account map, keyed by AccountID bits
// (most significant bit first). A leaf hash is H(key ‖ value_hash); an
// interior hash is H(left ‖ right) with a missing child substituted by the
// zero hash. This implementation branches over the full 256-bit key rather
// than the 64-bit-capped recursion the original Rust implementation used as
// a simplification (see DESIGN.md).

const treeDepth = 256

// leafEntry is one account's contribution to the tree, reduced to just the
// bits the tree cares about.
type leafEntry struct {
	key       AccountID
	valueHash Hash
}

// leafValueHash is BLAKE3 of the little-endian encodings of
// (balance, nonce, stake) concatenated.
func leafValueHash(s AccountState) Hash {
	balanceLE := leUint128(s.Balance)
	stakeLE := leUint128(s.Stake)
	return hashBytes(balanceLE[:], leUint64(s.Nonce), stakeLE[:])
}

func leafNodeHash(key AccountID, valueHash Hash) Hash {
	return hashBytes(key.Bytes(), valueHash.Bytes())
}

// pathBit returns the bit of key at the given tree depth, MSB first:
// depth 0 is the most significant bit of key[0].
func pathBit(key AccountID, depth int) uint8 {
	byteIdx := depth / 8
	bitIdx := 7 - uint(depth%8)
	return (key[byteIdx] >> bitIdx) & 1
}

// buildSubtree computes the root hash of the subtree rooted at depth that
// contains entries, all of which share the same path prefix up to depth.
func buildSubtree(entries []leafEntry, depth int) Hash {
	switch len(entries) {
	case 0:
		return ZeroHash
	case 1:
		e := entries[0]
		return foldSingleLeaf(leafNodeHash(e.key, e.valueHash), e.key, depth)
	}
	var left, right []leafEntry
	for _, e := range entries {
		if pathBit(e.key, depth) == 0 {
			left = append(left, e)
		} else {
			right = append(right, e)
		}
	}
	lh := buildSubtree(left, depth+1)
	rh := buildSubtree(right, depth+1)
	return hashBytes(lh.Bytes(), rh.Bytes())
}

// foldSingleLeaf extends a single leaf hash up through the implicit empty
// siblings from treeDepth back to fromDepth, producing the hash that a
// fully-expanded tree would have at that depth for a subtree holding
// exactly this one leaf.
func foldSingleLeaf(leaf Hash, key AccountID, fromDepth int) Hash {
	cur := leaf
	for d := treeDepth - 1; d >= fromDepth; d-- {
		if pathBit(key, d) == 0 {
			cur = hashBytes(cur.Bytes(), ZeroHash.Bytes())
		} else {
			cur = hashBytes(ZeroHash.Bytes(), cur.Bytes())
		}
	}
	return cur
}

// proveWalk descends the conceptual tree toward target, collecting proof
// steps in leaf-to-root order. Returns false if target is not in entries.
func proveWalk(entries []leafEntry, depth int, target AccountID) ([]ProofStep, bool) {
	switch len(entries) {
	case 0:
		return nil, false
	case 1:
		if entries[0].key != target {
			return nil, false
		}
		var steps []ProofStep
		for d := treeDepth - 1; d >= depth; d-- {
			steps = append(steps, ProofStep{SiblingHash: ZeroHash, PathBit: pathBit(target, d)})
		}
		return steps, true
	}
	bit := pathBit(target, depth)
	var mine, other []leafEntry
	for _, e := range entries {
		if pathBit(e.key, depth) == bit {
			mine = append(mine, e)
		} else {
			other = append(other, e)
		}
	}
	steps, found := proveWalk(mine, depth+1, target)
	if !found {
		return nil, false
	}
	otherHash := buildSubtree(other, depth+1)
	return append(steps, ProofStep{SiblingHash: otherHash, PathBit: bit}), true
}

// Verify recomputes H(key ‖ value_hash) and folds every step toward the
// root, choosing the sibling side by PathBit; the result must equal root.
func (p InclusionProof) Verify(root Hash) bool {
	cur := leafNodeHash(p.AccountID, p.ValueHash)
	for _, step := range p.Steps {
		if step.PathBit == 0 {
			cur = hashBytes(cur.Bytes(), step.SiblingHash.Bytes())
		} else {
			cur = hashBytes(step.SiblingHash.Bytes(), cur.Bytes())
		}
	}
	return cur == root
}
