package meta

import (
	"errors"
	"math/big"
)

// 交易：To 为空时表示部署合约
type Transaction struct {
	ChainID   int64             `json:"chain_id"`
	Nonce     uint64            `json:"nonce"`
	From      string            `json:"from"`
	To        string            `json:"to"`
	Contract  string            `json:"contract"` // 部署时使用的合约名称
	Method    string            `json:"method"`
	Args      map[string]string `json:"args"`
	Value     *big.Int          `json:"value"`
	GasPrice  *big.Int          `json:"gas_price"`
	PublicKey []byte            `json:"public_key"`
	Sign      []byte            `json:"sign"`
	Hash      string            `json:"hash"`
}

func (t *Transaction) IsCreate() bool {
	return t.To == ""
}

// 只读调用
type CallMsg struct {
	From   string            `json:"from"`
	To     string            `json:"to"`
	Method string            `json:"method"`
	Args   map[string]string `json:"args"`
	Value  *big.Int          `json:"value"`
}

// 交易回执
type Receipt struct {
	TxHash            string   `json:"tx_hash"`
	BlockHeight       uint64   `json:"block_height"`
	BlockHash         string   `json:"block_hash"`
	From              string   `json:"from"`
	To                string   `json:"to"`
	ContractAddress   string   `json:"contract_address"`
	Contract          string   `json:"contract"`
	Method            string   `json:"method"`
	GasUsed           uint64   `json:"gas_used"`
	EffectiveGasPrice *big.Int `json:"effective_gas_price"`
	Status            uint64   `json:"status"`
}

// 交易实际花费的 gas 费用
func (r *Receipt) GasCost() *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(r.GasUsed), r.EffectiveGasPrice)
}

type Header struct {
	Height    uint64 `json:"height"`
	Timestamp int64  `json:"timestamp"`
	PrevHash  string `json:"prev_hash"`
	Hash      string `json:"hash"`
	GasUsed   uint64 `json:"gas_used"`
}

type Block struct {
	Header
	TX       []Transaction `json:"tx"`
	Receipts []Receipt     `json:"receipts"`
}

// ErrNotFound 区块、回执不存在
var ErrNotFound = errors.New("not found")
