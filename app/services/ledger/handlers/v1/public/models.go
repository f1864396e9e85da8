package public

import (
	"github.com/ardanlabs/ledger/foundation/blockchain/chain"
	"github.com/ardanlabs/ledger/foundation/blockchain/contract"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type info struct {
	Account string `json:"account"`
	Name    string `json:"name"`
	Balance uint64 `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

type actInfo struct {
	LatestBlock string `json:"latest_block"`
	Uncommitted int    `json:"uncommitted"`
	Accounts    []info `json:"accounts"`
}

type tx struct {
	ID       string        `json:"id"`
	From     string        `json:"from"`
	FromName string        `json:"from_name"`
	To       string        `json:"to"`
	ToName   string        `json:"to_name"`
	Amount   uint64        `json:"amount"`
	Nonce    uint64        `json:"nonce"`
	Sig      hexutil.Bytes `json:"sig"`
}

type block struct {
	Index        uint64 `json:"index"`
	Timestamp    uint64 `json:"timestamp"`
	PrevHash     string `json:"prev_hash"`
	Nonce        uint64 `json:"nonce"`
	Hash         string `json:"hash"`
	MerkleRoot   string `json:"merkle_root"`
	Transactions []tx   `json:"transactions"`
}

type proof struct {
	Block       uint64          `json:"block"`
	Transaction tx              `json:"transaction"`
	Root        hexutil.Bytes   `json:"root"`
	Leaf        hexutil.Bytes   `json:"leaf"`
	Hashes      []hexutil.Bytes `json:"hashes"`
	Order       []int64         `json:"order"`
}

type chainReport struct {
	Valid       bool   `json:"valid"`
	Length      int    `json:"length"`
	Difficulty  uint   `json:"difficulty"`
	LatestBlock string `json:"latest_block"`
	FailedIndex *int   `json:"failed_index,omitempty"`
	Error       string `json:"error,omitempty"`
}

type contractInfo struct {
	Address  string            `json:"address"`
	Owner    string            `json:"owner"`
	Code     hexutil.Bytes     `json:"code"`
	Balances map[string]uint64 `json:"balances"`
}

// =============================================================================

// NewTx is what a wallet submits to the node to be added to the mempool.
type NewTx struct {
	From      string        `json:"from" validate:"required,address"`
	To        string        `json:"to" validate:"required,address"`
	Amount    uint64        `json:"amount"`
	Nonce     uint64        `json:"nonce" validate:"gt=0"`
	Signature hexutil.Bytes `json:"signature" validate:"required,len=65"`
}

func (ntx NewTx) toTransaction() chain.Transaction {
	tran := chain.NewTransaction(ntx.From, ntx.To, ntx.Amount, ntx.Nonce)
	tran.Signature = ntx.Signature

	return tran
}

// NewContract is a signed request to deploy a contract owned by the signer.
type NewContract struct {
	Owner     string            `json:"owner" validate:"required,address"`
	Code      hexutil.Bytes     `json:"code"`
	Balances  map[string]uint64 `json:"balances"`
	Nonce     uint64            `json:"nonce" validate:"gt=0"`
	Signature hexutil.Bytes     `json:"sig" validate:"required,len=65"`
}

func (nc NewContract) toDeployment() contract.Deployment {
	return contract.Deployment{
		Owner:     nc.Owner,
		Code:      nc.Code,
		Balances:  nc.Balances,
		Nonce:     nc.Nonce,
		Signature: nc.Signature,
	}
}

// ContractCall is a signed method invocation against a deployed contract.
type ContractCall struct {
	From      string         `json:"from" validate:"required,address"`
	Method    string         `json:"method" validate:"required"`
	Args      map[string]any `json:"args"`
	Nonce     uint64         `json:"nonce" validate:"gt=0"`
	Signature hexutil.Bytes  `json:"sig" validate:"required,len=65"`
}

func (cc ContractCall) toCall(address string) (contract.Call, error) {
	op, err := contract.DecodeOperation(cc.Method, cc.Args)
	if err != nil {
		return contract.Call{}, err
	}

	call := contract.NewCall(address, cc.From, op, cc.Nonce)
	call.Signature = cc.Signature

	return call, nil
}

// =============================================================================

func (h Handlers) toTx(tran chain.Transaction) tx {
	return tx{
		ID:       tran.ID(),
		From:     tran.From,
		FromName: h.NS.Lookup(tran.From),
		To:       tran.To,
		ToName:   h.NS.Lookup(tran.To),
		Amount:   tran.Amount,
		Nonce:    tran.Nonce,
		Sig:      tran.Signature,
	}
}

func (h Handlers) toBlock(blk chain.Block) block {
	trans := make([]tx, len(blk.Transactions))
	for i, tran := range blk.Transactions {
		trans[i] = h.toTx(tran)
	}

	// A block that can't produce a root is reported without one.
	root, _ := blk.MerkleRoot()

	return block{
		Index:        blk.Index,
		Timestamp:    blk.Timestamp,
		PrevHash:     blk.PrevHash,
		Nonce:        blk.Nonce,
		Hash:         blk.Hash,
		MerkleRoot:   root,
		Transactions: trans,
	}
}

func (h Handlers) toProof(p state.Proof) proof {
	hashes := make([]hexutil.Bytes, len(p.Hashes))
	for i, hash := range p.Hashes {
		hashes[i] = hash
	}

	return proof{
		Block:       p.Block,
		Transaction: h.toTx(p.Transaction),
		Root:        p.Root,
		Leaf:        p.Leaf,
		Hashes:      hashes,
		Order:       p.Order,
	}
}
