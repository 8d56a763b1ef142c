// Package provider 合约客户端：对本地链和远程节点提供统一的调用方式。
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/fundme/meta"
	"github.com/fundme/wallet"
)

// Backend 由进程内的 chain.Chain 和 rpc.Client 实现
type Backend interface {
	ChainID(ctx context.Context) (int64, error)
	BlockNumber(ctx context.Context) (uint64, error)
	BalanceAt(ctx context.Context, address string) (*big.Int, error)
	NonceAt(ctx context.Context, address string) (uint64, error)
	SendTransaction(ctx context.Context, tx *meta.Transaction) (string, error)
	CallContract(ctx context.Context, msg meta.CallMsg) (json.RawMessage, error)
	TransactionReceipt(ctx context.Context, hash string) (*meta.Receipt, error)
	SubscribeNewHead(ctx context.Context) (<-chan meta.Header, error)
}

var ErrNoSigner = errors.New("contract is not connected to a signer")

// PollInterval 订阅断开后轮询回执的间隔
var PollInterval = 200 * time.Millisecond

// TransactOpts 交易参数
type TransactOpts struct {
	Value    *big.Int
	GasPrice *big.Int
}

// Pending 已发送但尚未确认的交易
type Pending struct {
	Hash    string
	backend Backend
}

func NewPending(b Backend, hash string) *Pending {
	return &Pending{Hash: hash, backend: b}
}

// Wait 等待交易被打包，并且其后又出了 confirmations-1 个区块
func (p *Pending) Wait(ctx context.Context, confirmations int) (*meta.Receipt, error) {
	if confirmations < 1 {
		confirmations = 1
	}
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	heads, err := p.backend.SubscribeNewHead(subCtx)
	if err != nil {
		heads = nil
	}
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		r, err := p.check(ctx, confirmations)
		if err != nil || r != nil {
			return r, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case _, ok := <-heads:
			if !ok {
				heads = nil
			}
		case <-ticker.C:
		}
	}
}

func (p *Pending) check(ctx context.Context, confirmations int) (*meta.Receipt, error) {
	r, err := p.backend.TransactionReceipt(ctx, p.Hash)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	head, err := p.backend.BlockNumber(ctx)
	if err != nil {
		return nil, err
	}
	if head+1 < r.BlockHeight+uint64(confirmations) {
		return nil, nil
	}
	return r, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, meta.ErrNotFound)
}

// Contract 绑定到某个地址的合约，可以切换签名账户
type Contract struct {
	Address string
	backend Backend
	signer  *wallet.Signer
}

func NewContract(address string, b Backend, signer *wallet.Signer) *Contract {
	return &Contract{Address: address, backend: b, signer: signer}
}

// Connect 返回一个使用其他账户签名的副本
func (c *Contract) Connect(signer *wallet.Signer) *Contract {
	return &Contract{Address: c.Address, backend: c.backend, signer: signer}
}

func (c *Contract) Backend() Backend {
	return c.backend
}

func (c *Contract) Signer() *wallet.Signer {
	return c.signer
}

// Transact 发送一笔调用合约的交易
func (c *Contract) Transact(ctx context.Context, method string, opts *TransactOpts, args map[string]string) (*Pending, error) {
	if c.signer == nil {
		return nil, ErrNoSigner
	}
	tx := &meta.Transaction{To: c.Address, Method: method, Args: args}
	return SendTx(ctx, c.backend, c.signer, tx, opts)
}

// Call 只读调用，结果解码到 out
func (c *Contract) Call(ctx context.Context, method string, args map[string]string, out interface{}) error {
	msg := meta.CallMsg{To: c.Address, Method: method, Args: args}
	if c.signer != nil {
		msg.From = c.signer.Address
	}
	raw, err := c.backend.CallContract(ctx, msg)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

// Deploy 发送部署交易
func Deploy(ctx context.Context, b Backend, signer *wallet.Signer, contractName string, args map[string]string, opts *TransactOpts) (*Pending, error) {
	tx := &meta.Transaction{Contract: contractName, Args: args}
	return SendTx(ctx, b, signer, tx, opts)
}

// SendTx 填充 chain id、nonce 后签名发送
func SendTx(ctx context.Context, b Backend, signer *wallet.Signer, tx *meta.Transaction, opts *TransactOpts) (*Pending, error) {
	chainID, err := b.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain id: %w", err)
	}
	nonce, err := b.NonceAt(ctx, signer.Address)
	if err != nil {
		return nil, fmt.Errorf("get nonce: %w", err)
	}
	tx.ChainID = chainID
	tx.Nonce = nonce
	if opts != nil {
		tx.Value = opts.Value
		tx.GasPrice = opts.GasPrice
	}
	if tx.Value == nil {
		tx.Value = new(big.Int)
	}
	signer.SignTx(tx)
	hash, err := b.SendTransaction(ctx, tx)
	if err != nil {
		return nil, err
	}
	return NewPending(b, hash), nil
}
