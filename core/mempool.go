package core

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// QaVerdict is the outcome of an optional deployment-quality check run over
// a ContractDeploy payload before it is accepted into the mempool.
type QaVerdict int

const (
	QaAllow QaVerdict = iota
	QaReject
	QaUnsure
)

// DeployQualityChecker is the optional hook spec.md §4.4 allows a mempool
// to layer on top of signature verification. Reject and Unsure both refuse
// the insert; only Allow proceeds. Grounded on boing-node/src/mempool.rs's
// use of boing_qa::check_contract_deploy, but kept here as a thin injected
// interface: the rule engine behind it is governance-shaped and out of
// scope (spec.md §1).
type DeployQualityChecker interface {
	CheckContractDeploy(bytecode []byte) (QaVerdict, string)
}

// QaRejected reports that a ContractDeploy was refused by the quality hook.
type QaRejected struct {
	Reason string
}

func (e *QaRejected) Error() string { return "mempool: QA rejected: " + e.Reason }

// ErrQaPendingPool reports that a ContractDeploy was referred to a
// community QA pool (Unsure) and is not accepted until that pool decides.
var ErrQaPendingPool = &QaRejected{Reason: "referred to QA pool, not yet accepted"}

// Mempool holds pending SignedTransactions per sender, ordered by nonce,
// plus a global dedup set of transaction identifiers. Safe for concurrent
// insert/drain/reinsert (spec.md §5 — "the mempool is safe for concurrent
// insert/drain/reinsert").
type Mempool struct {
	mu       sync.Mutex
	bySender map[AccountID]map[uint64]SignedTransaction
	byID     map[Hash]struct{}
	count    int
	qa       DeployQualityChecker
}

// NewMempool returns an empty mempool with no QA hook installed.
func NewMempool() *Mempool {
	return &Mempool{
		bySender: make(map[AccountID]map[uint64]SignedTransaction),
		byID:     make(map[Hash]struct{}),
	}
}

// WithQualityChecker installs an optional ContractDeploy quality hook.
func (m *Mempool) WithQualityChecker(qa DeployQualityChecker) *Mempool {
	m.qa = qa
	return m
}

// Insert validates and admits signed. A replacement for the same
// (sender, nonce) under a different transaction identifier is permitted
// and replaces the prior entry; count is unchanged in that case.
func (m *Mempool) Insert(signed SignedTransaction) error {
	if err := signed.Verify(); err != nil {
		return ErrInvalidSignature
	}
	if signed.Tx.Payload.Kind == PayloadContractDeploy && m.qa != nil {
		switch verdict, reason := m.qa.CheckContractDeploy(signed.Tx.Payload.Bytecode); verdict {
		case QaReject:
			return &QaRejected{Reason: reason}
		case QaUnsure:
			return ErrQaPendingPool
		}
	}

	txID := signed.Tx.ID()
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.byID[txID]; dup {
		return ErrDuplicateTransaction
	}

	sender := signed.Tx.Sender
	nonce := signed.Tx.Nonce
	byNonce, ok := m.bySender[sender]
	if !ok {
		byNonce = make(map[uint64]SignedTransaction)
		m.bySender[sender] = byNonce
	}
	if prior, replacing := byNonce[nonce]; replacing {
		delete(m.byID, prior.Tx.ID())
		byNonce[nonce] = signed
		m.byID[txID] = struct{}{}
		return nil
	}
	byNonce[nonce] = signed
	m.byID[txID] = struct{}{}
	m.count++
	logrus.WithFields(logrus.Fields{"tx_id": txID, "correlation": uuid.NewString()}).Debug("mempool: accepted transaction")
	return nil
}

// DrainForBlock removes and returns up to max entries in the deterministic
// order (nonce asc, sender-bytes asc).
func (m *Mempool) DrainForBlock(max int) []SignedTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	type candidate struct {
		sender AccountID
		nonce  uint64
	}
	var candidates []candidate
	for sender, byNonce := range m.bySender {
		for nonce := range byNonce {
			candidates = append(candidates, candidate{sender, nonce})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].nonce != candidates[j].nonce {
			return candidates[i].nonce < candidates[j].nonce
		}
		return lessAccountID(candidates[i].sender, candidates[j].sender)
	})

	if max < len(candidates) {
		candidates = candidates[:max]
	}
	out := make([]SignedTransaction, 0, len(candidates))
	for _, c := range candidates {
		byNonce := m.bySender[c.sender]
		signed := byNonce[c.nonce]
		delete(byNonce, c.nonce)
		delete(m.byID, signed.Tx.ID())
		m.count--
		out = append(out, signed)
	}
	return out
}

// Reinsert re-runs Insert on every entry; errors are silently skipped, a
// best-effort restoration after a failed production attempt.
func (m *Mempool) Reinsert(entries []SignedTransaction) {
	for _, signed := range entries {
		_ = m.Insert(signed)
	}
}

// Len returns the number of pending transactions.
func (m *Mempool) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}
