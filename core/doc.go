// Package core implements a permissionless proof-of-stake chain's
// consensus, execution, and state layers as a transport-free library.
//
// Exposes:
//   - ConsensusEngine    – round-based HotStuff-style propose/vote/commit.
//   - BlockExecutor       – access-list scheduling with a parallel Transfer fast path.
//   - StateStore          – authenticated account state with Merkle inclusion proofs.
//   - BlockProducer / ImportBlock – the production and import pipelines.
//   - Mempool             – nonce-ordered, per-sender pending transactions.
//   - BlockProvider / Gossip – abstract hooks a transport layer implements.
//
// Nothing in this package dials a socket; a node binary wires a transport
// and a persistence backend around it.
package core
