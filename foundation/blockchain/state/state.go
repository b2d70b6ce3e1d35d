// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/mempool"
	"github.com/ardanlabs/ledger/foundation/blockchain/pow"
)

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for serializing mining.
type Worker interface {
	Shutdown()
	Mine(ctx context.Context, args MineArgs) (database.Block, error)
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	Storage   database.Storage
	Genesis   genesis.Genesis
	Workers   int
	EvHandler EventHandler
}

// State manages the blockchain database.
type State struct {
	mu        sync.Mutex
	evHandler EventHandler

	genesis genesis.Genesis
	storage database.Storage
	mempool *mempool.Mempool
	engine  *pow.Engine

	Worker Worker
}

// New constructs a new blockchain for data management.
func New(cfg Config) (*State, error) {
	if cfg.Storage == nil {
		return nil, errors.New("storage is required")
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	state := State{
		evHandler: ev,
		genesis:   cfg.Genesis,
		storage:   cfg.Storage,
		mempool:   mempool.New(),
		engine:    pow.New(cfg.Workers, pow.EventHandler(ev)),
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	// Make sure the database file is properly closed.
	return s.storage.Close()
}

// EnsureGenesis writes the genesis block if the chain is empty. Calling it
// on a chain that already has blocks does nothing.
func (s *State) EnsureGenesis() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.storage.TipHeight()
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, database.ErrEmptyChain):
		return fmt.Errorf("genesis: %w", err)
	}

	s.evHandler("state: EnsureGenesis: MINING: genesis: difficulty[%d]", s.genesis.Difficulty)

	block, err := database.NewGenesisBlock(s.genesis)
	if err != nil {
		return fmt.Errorf("genesis: build: %w", err)
	}

	// The genesis block is always mined the same way so every node with the
	// same settings produces the same block.
	res, err := pow.Sequential(context.Background(), block.Header)
	if err != nil {
		return fmt.Errorf("genesis: mine: %w", err)
	}
	block.Header = res.Header

	if err := s.storage.Write(database.NewBlockData(block)); err != nil {
		return fmt.Errorf("genesis: %w", err)
	}

	s.evHandler("state: EnsureGenesis: genesis written: hash[%s]", block.Hash())
	s.blockEvent(block)

	return nil
}

// Genesis returns a copy of the genesis information.
func (s *State) Genesis() genesis.Genesis {
	return s.genesis
}

// Workers returns the number of workers used to mine.
func (s *State) Workers() int {
	return s.engine.Workers()
}
