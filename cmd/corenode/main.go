// Package main wires BlockProducer, Mempool and ConsensusEngine into a
// single-process multi-validator demonstration loop, adapted from the
// teacher's cmd/synnergy/main.go command-tree conventions (a flat cobra
// root with a handful of subcommands).
package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"math/big"
	mrand "math/rand"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"novaledger/core"
	"novaledger/pkg/config"
)

func main() {
	rootCmd := &cobra.Command{Use: "corenode"}
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(genesisCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// validator bundles the key material and AccountID for one in-process
// validator; genesisCmd and runCmd both need the full set up front so the
// chain's validator set and genesis balances are known before any block is
// produced.
type validator struct {
	id   core.AccountID
	priv ed25519.PrivateKey
}

func newValidatorSet(n int) []validator {
	out := make([]validator, n)
	for i := range out {
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			logrus.WithError(err).Fatal("corenode: key generation failed")
		}
		var id core.AccountID
		copy(id[:], pub)
		out[i] = validator{id: id, priv: priv}
	}
	return out
}

func genesisCmd() *cobra.Command {
	n := 4
	cmd := &cobra.Command{
		Use:   "genesis",
		Short: "print a fresh validator set and its genesis account ids",
		Run: func(cmd *cobra.Command, args []string) {
			validators := newValidatorSet(n)
			for i, v := range validators {
				fmt.Printf("validator[%d] = %s\n", i, v.id)
			}
		},
	}
	cmd.Flags().IntVar(&n, "validators", n, "number of validators to generate")
	return cmd
}

func runCmd() *cobra.Command {
	var (
		env         string
		blocks      int
		validatorsN int
		dataDir     string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run a single-process multi-validator demonstration chain",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load(env)
			if err != nil {
				logrus.WithError(err).Warn("corenode: falling back to built-in defaults, config load failed")
				cfg = &config.Config{}
				cfg.Consensus.BlockTimeSecs = 2
				cfg.Execution.MaxTxsPerBlock = 1000
			}
			if dataDir != "" {
				cfg.Storage.DataDir = dataDir
			}
			runDemo(cfg, validatorsN, blocks)
		},
	}
	cmd.Flags().StringVar(&env, "env", "", "config environment name, e.g. dev")
	cmd.Flags().IntVar(&blocks, "blocks", 10, "number of block ticks to run before exiting")
	cmd.Flags().IntVar(&validatorsN, "validators", 4, "number of validators in the demonstration set")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "override the configured persistence directory")
	return cmd
}

// runDemo seeds a validator set with a starting balance each, then ticks
// block production once per configured block time: at each tick whichever
// validator is the round's leader drains the mempool, executes, and commits,
// following core/pipeline.go's ProduceBlock contract end to end. One
// transfer transaction is submitted at the start of each tick so each block
// has something to execute.
func runDemo(cfg *config.Config, validatorsN, blocks int) {
	blockTime := time.Duration(cfg.Consensus.BlockTimeSecs) * time.Second
	if blockTime <= 0 {
		blockTime = 2 * time.Second
	}
	maxTxs := cfg.Execution.MaxTxsPerBlock
	if maxTxs <= 0 {
		maxTxs = 1000
	}

	validators := newValidatorSet(validatorsN)
	ids := make([]core.AccountID, len(validators))
	for i, v := range validators {
		ids[i] = v.id
	}

	state := core.NewStateStore()
	startingBalance := big.NewInt(1_000_000)
	for _, id := range ids {
		st := core.NewAccountState()
		st.Balance = new(big.Int).Set(startingBalance)
		state.Insert(core.Account{ID: id, State: st})
	}

	genesis := core.Genesis(ids[0])
	chain := core.FromGenesis(genesis)
	consensus := core.NewConsensusEngine(ids)
	// Commit genesis through consensus so the round counter equals
	// chain.Height()+1, the height the first production tick proposes.
	if _, err := consensus.ProposeAndCommit(genesis); err != nil {
		logrus.WithError(err).Fatal("corenode: genesis commit failed")
	}
	mempool := core.NewMempool()
	executor := core.NewBlockExecutor()

	var persistence *core.Persistence
	if cfg.Storage.DataDir != "" {
		p, err := core.NewPersistence(cfg.Storage.DataDir)
		if err != nil {
			logrus.WithError(err).Warn("corenode: persistence disabled, directory setup failed")
		} else {
			persistence = p
		}
	}

	producers := make(map[core.AccountID]*core.BlockProducer, len(validators))
	for _, v := range validators {
		producers[v.id] = core.NewBlockProducer(v.id).WithMaxTxsPerBlock(maxTxs)
	}

	rng := mrand.New(mrand.NewSource(1))
	nonces := make(map[core.AccountID]uint64, len(validators))

	for tick := 0; tick < blocks; tick++ {
		submitRandomTransfer(mempool, validators, rng, nonces)

		nextHeight := chain.Height() + 1
		leader := consensus.Leader(nextHeight)
		producer, ok := producers[leader]
		if !ok {
			logrus.WithField("leader", leader).Warn("corenode: leader not found among local validators, skipping tick")
			time.Sleep(blockTime)
			continue
		}

		hash := producer.ProduceBlock(chain, mempool, state, executor, consensus)
		if hash == nil {
			logrus.WithField("height", nextHeight).Info("corenode: tick produced no block")
			time.Sleep(blockTime)
			continue
		}

		block, _ := chain.GetBlockByHash(*hash)
		logrus.WithFields(logrus.Fields{
			"height": block.Header.Height,
			"hash":   hash,
			"txs":    len(block.Transactions),
		}).Info("corenode: committed block")

		if persistence != nil {
			if err := persistence.SaveBlock(block); err != nil {
				logrus.WithError(err).Warn("corenode: failed to persist block")
			}
			if err := persistence.SaveChainMeta(chain); err != nil {
				logrus.WithError(err).Warn("corenode: failed to persist chain meta")
			}
			if err := persistence.SaveState(state); err != nil {
				logrus.WithError(err).Warn("corenode: failed to persist state")
			}
		}

		time.Sleep(blockTime)
	}
}

// submitRandomTransfer signs and inserts one small transfer between two
// distinct validators. nonces tracks the next nonce this demo intends to use
// per sender, incremented only when the mempool accepts the submission:
// since each tick drains and commits before the next submission, this stays
// in lockstep with the sender's actual on-chain nonce.
func submitRandomTransfer(mempool *core.Mempool, validators []validator, rng *mrand.Rand, nonces map[core.AccountID]uint64) {
	if len(validators) < 2 {
		return
	}
	from := validators[rng.Intn(len(validators))]
	to := validators[rng.Intn(len(validators))]
	for to.id == from.id {
		to = validators[rng.Intn(len(validators))]
	}

	nonce := nonces[from.id]
	tx := core.Transaction{
		Nonce:   nonce,
		Sender:  from.id,
		Payload: core.TransferPayload(to.id, big.NewInt(int64(1+rng.Intn(100)))),
		AccessList: core.AccessList{
			Read:  []core.AccountID{from.id, to.id},
			Write: []core.AccountID{from.id, to.id},
		},
	}
	signed := core.SignTransaction(tx, from.priv)
	if err := mempool.Insert(signed); err != nil {
		logrus.WithError(err).Debug("corenode: demo transfer not queued")
		return
	}
	nonces[from.id] = nonce + 1
}
