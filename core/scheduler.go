package core

// TransactionScheduler partitions a block's transactions into batches using
// a first-fit greedy pass, grounded on boing-execution/src/scheduler.rs.
// Batch k commits before batch k+1; within a batch order is unconstrained,
// which is safe because every pair of transactions sharing a batch has
// disjoint access lists by construction.
type TransactionScheduler struct{}

// NewTransactionScheduler returns a scheduler. It holds no state.
func NewTransactionScheduler() *TransactionScheduler {
	return &TransactionScheduler{}
}

// Schedule returns an ordered list of batches, each batch a list of indices
// into txs. The partition is a pure function of the input sequence: for
// each unassigned transaction i in input order, open a new batch with i,
// then scan forward for any unassigned j whose access list is disjoint
// from every access list already in the batch.
func (s *TransactionScheduler) Schedule(txs []Transaction) [][]int {
	assigned := make([]bool, len(txs))
	var batches [][]int

	for i := range txs {
		if assigned[i] {
			continue
		}
		batch := []int{i}
		batchLists := []AccessList{txs[i].AccessList}
		assigned[i] = true

		for j := i + 1; j < len(txs); j++ {
			if assigned[j] {
				continue
			}
			disjoint := true
			for _, existing := range batchLists {
				if existing.ConflictsWith(txs[j].AccessList) {
					disjoint = false
					break
				}
			}
			if disjoint {
				batch = append(batch, j)
				batchLists = append(batchLists, txs[j].AccessList)
				assigned[j] = true
			}
		}
		batches = append(batches, batch)
	}
	return batches
}
