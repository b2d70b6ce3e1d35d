// Package genesis maintains access to the genesis settings of the chain.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Genesis represents the genesis file.
type Genesis struct {
	Date          time.Time `json:"date"`            // Timestamp recorded in the genesis block.
	Data          string    `json:"data"`            // Payload recorded in the genesis block.
	Difficulty    uint32    `json:"difficulty"`      // Target of the genesis block and the default mining target.
	TransPerBlock uint16    `json:"trans_per_block"` // The maximum number of transactions that can be in a block.
}

// Default returns the genesis settings used when no file is provided.
func Default() Genesis {
	return Genesis{
		Date:          time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Data:          "Genesis Block",
		Difficulty:    20,
		TransPerBlock: 99,
	}
}

// =============================================================================

// Load opens and consumes the genesis file. An empty path returns the
// default settings. Fields missing from the file keep their default value,
// and a zero trans_per_block falls back to the default block size.
func Load(path string) (Genesis, error) {
	genesis := Default()
	if path == "" {
		return genesis, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, fmt.Errorf("reading genesis file: %w", err)
	}

	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("decoding genesis file: %w", err)
	}

	if genesis.TransPerBlock == 0 {
		genesis.TransPerBlock = Default().TransPerBlock
	}

	return genesis, nil
}
