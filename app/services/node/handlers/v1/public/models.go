package public

import (
	"github.com/ardanlabs/ledger/business/sys/validate"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/pow"
)

// Default and maximum number of blocks returned by a list call.
const (
	blocksPerBatch      = 25
	maxBlocksPerRequest = blocksPerBatch * 10
)

// newTx is what a client submits to add a transaction to the mempool.
type newTx struct {
	From   string `json:"from" validate:"required"`
	To     string `json:"to" validate:"required"`
	Amount uint64 `json:"amount" validate:"gt=0"`
}

// Validate checks the data in the model is considered clean.
func (ntx newTx) Validate() error {
	return validate.Check(ntx)
}

// mineRequest is what a client submits to mine the next block. A missing
// target uses the genesis difficulty.
type mineRequest struct {
	Target *uint32 `json:"target"`
	Data   string  `json:"data"`
	MaxTxs int     `json:"max_txs" validate:"gte=0"`
}

// Validate checks the data in the model is considered clean.
func (mr mineRequest) Validate() error {
	if err := validate.Check(mr); err != nil {
		return err
	}

	if mr.Target != nil {
		if err := pow.CheckTarget(*mr.Target); err != nil {
			return validate.NewFieldsError("target", err)
		}
	}

	return nil
}

// =============================================================================

type head struct {
	Height uint64 `json:"height"`
}

type tip struct {
	Height uint64         `json:"height"`
	Hash   *database.Hash `json:"hash,omitempty"`
}

type accepted struct {
	Accepted bool        `json:"accepted"`
	Tx       database.Tx `json:"tx"`
	Pending  int         `json:"pending"`
}

type blockRow struct {
	Index      uint64        `json:"index"`
	TimeStamp  uint64        `json:"ts"`
	TxCount    int           `json:"tx_count"`
	Hash       database.Hash `json:"hash"`
	Nonce      uint64        `json:"nonce"`
	Difficulty uint32        `json:"difficulty"`
	PrevHash   database.Hash `json:"previous_hash"`
	MerkleRoot database.Hash `json:"merkle_root"`
	DataHash   database.Hash `json:"data_hash"`
	Data       *string       `json:"data,omitempty"`
}

type blockDetail struct {
	blockRow
	Transactions []database.Tx `json:"transactions"`
}

func toBlockRow(block database.Block) blockRow {
	return blockRow{
		Index:      block.Header.Index,
		TimeStamp:  block.Header.TimeStamp,
		TxCount:    len(block.Transactions()),
		Hash:       block.Hash(),
		Nonce:      block.Header.Nonce,
		Difficulty: block.Header.Difficulty,
		PrevHash:   block.Header.PrevHash,
		MerkleRoot: block.Header.MerkleRoot,
		DataHash:   block.DisplayDataHash(),
		Data:       block.Data,
	}
}

func toBlockDetail(block database.Block) blockDetail {
	trans := block.Transactions()
	if trans == nil {
		trans = []database.Tx{}
	}

	return blockDetail{
		blockRow:     toBlockRow(block),
		Transactions: trans,
	}
}
