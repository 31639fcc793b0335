package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Persistence is a filesystem-backed snapshot store for the chain index and
// account state, grounded on boing-node/src/persistence.rs's directory
// layout (chain/blocks/<height>, chain/meta, state/accounts) with bincode
// swapped for JSON to match this core's RLP-for-wire/JSON-for-disk split.
type Persistence struct {
	base string
}

// NewPersistence returns a Persistence rooted at base, creating it if
// necessary.
func NewPersistence(base string) (*Persistence, error) {
	p := &Persistence{base: base}
	if err := p.ensureDirs(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Persistence) ensureDirs() error {
	for _, dir := range []string{p.blocksDir(), p.stateDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("persistence: create %s: %w", dir, err)
		}
	}
	return nil
}

func (p *Persistence) blocksDir() string { return filepath.Join(p.base, "chain", "blocks") }
func (p *Persistence) stateDir() string  { return filepath.Join(p.base, "state") }
func (p *Persistence) metaPath() string  { return filepath.Join(p.base, "chain", "meta.json") }
func (p *Persistence) blockPath(height uint64) string {
	return filepath.Join(p.blocksDir(), fmt.Sprintf("%d.json", height))
}
func (p *Persistence) accountsPath() string { return filepath.Join(p.stateDir(), "accounts.json") }

type chainMeta struct {
	Height     uint64 `json:"height"`
	LatestHash Hash   `json:"latest_hash"`
}

// persistedStateStore is the on-disk shape of a StateStore, produced by
// StateStore.ExportForPersistence.
type persistedStateStore struct {
	Accounts []Account              `json:"accounts"`
	Code     []CodeEntry            `json:"code"`
	Storage  []ContractStorageEntry `json:"storage"`
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("persistence: marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("persistence: write %s: %w", path, err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("persistence: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("persistence: unmarshal %s: %w", path, err)
	}
	return nil
}

// SaveBlock writes a single committed block to its own file, keyed by
// height.
func (p *Persistence) SaveBlock(block Block) error {
	return writeJSON(p.blockPath(block.Header.Height), block)
}

// SaveChainMeta writes the tip pointer.
func (p *Persistence) SaveChainMeta(chain *ChainState) error {
	return writeJSON(p.metaPath(), chainMeta{Height: chain.Height(), LatestHash: chain.LatestHash()})
}

// SaveState exports state and writes it to disk in one file.
func (p *Persistence) SaveState(state *StateStore) error {
	accounts, code, storage := state.ExportForPersistence()
	return writeJSON(p.accountsPath(), persistedStateStore{Accounts: accounts, Code: code, Storage: storage})
}

// HasPersistedData reports whether a previous run left chain metadata
// behind.
func (p *Persistence) HasPersistedData() bool {
	_, err := os.Stat(p.metaPath())
	return err == nil
}

// LoadChain reconstructs a ChainState by reading meta.json and every block
// file from genesis up to the recorded tip height, in order.
func (p *Persistence) LoadChain(genesis Block) (*ChainState, error) {
	var meta chainMeta
	if err := readJSON(p.metaPath(), &meta); err != nil {
		return nil, err
	}
	chain := FromGenesis(genesis)
	for height := genesis.Header.Height + 1; height <= meta.Height; height++ {
		var block Block
		if err := readJSON(p.blockPath(height), &block); err != nil {
			return nil, err
		}
		if err := chain.Append(block); err != nil {
			return nil, fmt.Errorf("persistence: replay block %d: %w", height, err)
		}
	}
	if chain.LatestHash() != meta.LatestHash {
		return nil, fmt.Errorf("persistence: replayed tip %s does not match recorded tip %s", chain.LatestHash(), meta.LatestHash)
	}
	return chain, nil
}

// LoadState reads the account/code/storage snapshot back into a fresh
// StateStore.
func (p *Persistence) LoadState() (*StateStore, error) {
	var snap persistedStateStore
	if err := readJSON(p.accountsPath(), &snap); err != nil {
		return nil, err
	}
	return LoadFromPersistence(snap.Accounts, snap.Code, snap.Storage), nil
}
