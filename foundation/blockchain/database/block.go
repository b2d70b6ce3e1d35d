package database

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/merkle"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// HashSize is the number of bytes in a Hash.
const HashSize = sha256.Size

// Hash represents a SHA-256 digest used for block, merkle and data hashes.
type Hash [HashSize]byte

// ZeroHash represents a hash code of zeros.
var ZeroHash Hash

// ToHash converts the 0x prefixed hex representation into a Hash.
func ToHash(s string) (Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return Hash{}, fmt.Errorf("decoding hash: %w", err)
	}

	if len(b) != HashSize {
		return Hash{}, fmt.Errorf("invalid hash length, got %d, exp %d", len(b), HashSize)
	}

	var h Hash
	copy(h[:], b)
	return h, nil
}

// IsZero reports whether the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// String returns the 0x prefixed hex representation of the hash.
func (h Hash) String() string {
	return hexutil.Encode(h[:])
}

// MarshalText implements the encoding.TextMarshaler interface.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (h *Hash) UnmarshalText(text []byte) error {
	v, err := ToHash(string(text))
	if err != nil {
		return err
	}

	*h = v
	return nil
}

// =============================================================================

// Header layout sizes. The nonce is stored in the trailing bytes so a miner
// can rewrite it in place between attempts.
const (
	HeaderSize  = 8 + HashSize + HashSize + HashSize + 8 + 4 + 8
	NonceOffset = HeaderSize - 8
)

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	Index      uint64 `json:"index"`       // Block number in the chain, genesis is 0.
	PrevHash   Hash   `json:"prev_hash"`   // Hash of the previous block header in the chain.
	MerkleRoot Hash   `json:"merkle_root"` // Merkle root over the block's transactions.
	DataHash   Hash   `json:"data_hash"`   // Hash of the opaque payload, see DataHash.
	TimeStamp  uint64 `json:"timestamp"`   // Unix seconds when the block was mined.
	Difficulty uint32 `json:"difficulty"`  // Number of leading zero bits the hash requires.
	Nonce      uint64 `json:"nonce"`       // Value identified to solve the hash solution.
}

// Bytes returns the byte form of the header that is hashed.
func (bh BlockHeader) Bytes() []byte {
	b := make([]byte, HeaderSize)

	binary.LittleEndian.PutUint64(b[0:], bh.Index)
	copy(b[8:], bh.PrevHash[:])
	copy(b[8+HashSize:], bh.DataHash[:])
	copy(b[8+2*HashSize:], bh.MerkleRoot[:])
	binary.LittleEndian.PutUint64(b[8+3*HashSize:], bh.TimeStamp)
	binary.LittleEndian.PutUint32(b[16+3*HashSize:], bh.Difficulty)
	binary.LittleEndian.PutUint64(b[NonceOffset:], bh.Nonce)

	return b
}

// Hash returns the unique hash for the header.
func (bh BlockHeader) Hash() Hash {
	return sha256.Sum256(bh.Bytes())
}

// =============================================================================

// Block represents a group of transactions batched together.
type Block struct {
	Header BlockHeader
	Trans  *merkle.Tree[Tx]
	Data   *string
}

// BlockArgs represents the information needed to construct a block.
type BlockArgs struct {
	Index      uint64
	PrevHash   Hash
	TimeStamp  uint64
	Difficulty uint32
	Trans      []Tx
	Data       *string
}

// NewBlock constructs a block with the nonce left at zero. The merkle root
// and data hash are computed from the transactions and payload.
func NewBlock(args BlockArgs) (Block, error) {

	// Construct a merkle tree from the transactions for this block. The root
	// of this tree will be part of the block to be mined.
	tree, err := merkle.NewTree(args.Trans)
	if err != nil {
		return Block{}, err
	}

	var root Hash
	copy(root[:], tree.MerkleRoot)

	nb := Block{
		Header: BlockHeader{
			Index:      args.Index,
			PrevHash:   args.PrevHash,
			MerkleRoot: root,
			DataHash:   DataHash(args.Data),
			TimeStamp:  args.TimeStamp,
			Difficulty: args.Difficulty,
		},
		Trans: tree,
		Data:  args.Data,
	}

	return nb, nil
}

// NewGenesisBlock constructs the unmined genesis block described by the
// genesis configuration. The same configuration always produces the same
// block.
func NewGenesisBlock(gen genesis.Genesis) (Block, error) {
	return NewBlock(BlockArgs{
		Index:      0,
		PrevHash:   ZeroHash,
		TimeStamp:  uint64(gen.Date.UTC().Unix()),
		Difficulty: gen.Difficulty,
		Data:       NormalizeData(gen.Data),
	})
}

// Hash returns the unique hash for the Block.
func (b Block) Hash() Hash {

	// CORE NOTE: Hashing the block header and not the whole block so the
	// blockchain can be cryptographically checked by only needing block
	// headers. The transactions are committed through the merkle root.

	return b.Header.Hash()
}

// Transactions returns the ordered set of transactions in the block.
func (b Block) Transactions() []Tx {
	if b.Trans == nil {
		return nil
	}
	return b.Trans.Values()
}

// DisplayDataHash returns the data hash for presentation. A block without
// a payload renders as the zero hash even though the header carries the real
// digest of the absent marker.
func (b Block) DisplayDataHash() Hash {
	if b.Data == nil {
		return ZeroHash
	}
	return b.Header.DataHash
}

// ValidateMerkleRoot checks the header commits to the block's transactions.
func (b Block) ValidateMerkleRoot() error {
	var root Hash
	if b.Trans != nil {
		copy(root[:], b.Trans.MerkleRoot)
	}

	if root != b.Header.MerkleRoot {
		return fmt.Errorf("merkle root does not match transactions, got %s, exp %s", root, b.Header.MerkleRoot)
	}

	return nil
}

// =============================================================================

// DataHash returns the hash of the block payload. A missing payload hashes
// the empty byte sequence which is the defined marker for no data.
func DataHash(data *string) Hash {
	if data == nil {
		return sha256.Sum256(nil)
	}
	return sha256.Sum256([]byte(*data))
}

// NormalizeData converts a payload string into the optional form used by
// blocks. An empty string means no payload.
func NormalizeData(data string) *string {
	if data == "" {
		return nil
	}
	return &data
}

// MerkleRoot returns the merkle root over the ordered set of transactions.
func MerkleRoot(trans []Tx) (Hash, error) {
	tree, err := merkle.NewTree(trans)
	if err != nil {
		return Hash{}, err
	}

	var root Hash
	copy(root[:], tree.MerkleRoot)
	return root, nil
}

// =============================================================================

// BlockData represents what is written to storage and sent over the api.
type BlockData struct {
	Hash   Hash        `json:"hash"`
	Header BlockHeader `json:"header"`
	Trans  []Tx        `json:"trans"`
	Data   *string     `json:"data,omitempty"`
}

// NewBlockData constructs the value to serialize to storage.
func NewBlockData(block Block) BlockData {
	return BlockData{
		Hash:   block.Hash(),
		Header: block.Header,
		Trans:  block.Transactions(),
		Data:   block.Data,
	}
}

// ToBlock converts a storage block into a block, rebuilding the merkle tree
// and checking the recorded hash still matches the header.
func ToBlock(blockData BlockData) (Block, error) {
	tree, err := merkle.NewTree(blockData.Trans)
	if err != nil {
		return Block{}, err
	}

	block := Block{
		Header: blockData.Header,
		Trans:  tree,
		Data:   blockData.Data,
	}

	if hash := block.Hash(); hash != blockData.Hash {
		return Block{}, fmt.Errorf("block %d hash mismatch, got %s, exp %s", blockData.Header.Index, hash, blockData.Hash)
	}

	return block, nil
}
