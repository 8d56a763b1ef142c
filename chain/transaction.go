package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/cloudflare/cfssl/log"
	"github.com/davecgh/go-spew/spew"
	"github.com/fundme/commoncon"
	"github.com/fundme/contract"
	"github.com/fundme/meta"
	"github.com/fundme/util"
	"github.com/fundme/wallet"
)

var (
	ErrWrongChain              = errors.New("transaction chain id does not match")
	ErrNonceTooLow             = errors.New("nonce too low")
	ErrNonceTooHigh            = errors.New("nonce too high")
	ErrInsufficientFundsForGas = errors.New("insufficient funds for gas * price + value")
)

// SendTransaction 执行一笔交易并立即出块（automine）。
// 执行失败时账户状态整体回滚，交易不会被打包，也不收取 gas。
func (c *Chain) SendTransaction(ctx context.Context, tx *meta.Transaction) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := wallet.VerifyTx(tx); err != nil {
		return "", err
	}
	if tx.ChainID != c.chainID {
		return "", fmt.Errorf("%w: got %d, want %d", ErrWrongChain, tx.ChainID, c.chainID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	from := util.NormalizeAddress(tx.From)
	nonce := c.state.GetNonce(from)
	switch {
	case tx.Nonce < nonce:
		return "", fmt.Errorf("%w: got %d, want %d", ErrNonceTooLow, tx.Nonce, nonce)
	case tx.Nonce > nonce:
		return "", fmt.Errorf("%w: got %d, want %d", ErrNonceTooHigh, tx.Nonce, nonce)
	}

	gasPrice := c.gasPrice
	if tx.GasPrice != nil && tx.GasPrice.Sign() > 0 {
		gasPrice = tx.GasPrice
	}

	receipt := meta.Receipt{
		TxHash:            tx.Hash,
		From:              from,
		To:                tx.To,
		Method:            tx.Method,
		EffectiveGasPrice: new(big.Int).Set(gasPrice),
		Status:            1,
	}

	snapshot := c.state.Copy()
	gasUsed, err := c.apply(tx, from, nonce, &receipt)
	if err == nil {
		cost := new(big.Int).Mul(new(big.Int).SetUint64(gasUsed), gasPrice)
		if c.state.SubBalance(from, cost) != nil {
			err = ErrInsufficientFundsForGas
		}
	}
	if err != nil {
		c.state = snapshot
		log.Infof("transaction %s from %s reverted: %s", tx.Hash, from, err)
		return "", err
	}
	c.state.IncNonce(from)
	receipt.GasUsed = gasUsed

	block, err := c.seal([]meta.Transaction{*tx}, []meta.Receipt{receipt})
	if err != nil {
		c.state = snapshot
		return "", err
	}
	label := methodLabel(tx)
	c.reporter.Record(receipt.Contract, label, gasUsed)

	log.Infof("Contract call: %s#%s  Transaction: %s  From: %s  Value: %s ETH  Gas used: %d  Block #%d",
		receipt.Contract, label, tx.Hash, from, util.FormatEther(tx.Value), gasUsed, block.Height)
	log.Debugf("receipt: %s", spew.Sdump(receipt))
	return tx.Hash, nil
}

// 在当前状态上执行交易，返回消耗的 gas
func (c *Chain) apply(tx *meta.Transaction, from string, nonce uint64, receipt *meta.Receipt) (uint64, error) {
	env := &contract.Env{
		State: c.state,
		Gas:   contract.NewGasMeter(c.gasLimit),
		Block: contract.BlockInfo{Height: c.head.Height + 1, Timestamp: c.nextTimestamp()},
	}
	msg := contract.Message{From: from, To: tx.To, Method: tx.Method, Args: tx.Args, Value: tx.Value}

	if tx.IsCreate() {
		if err := env.Gas.Consume(commoncon.TxCreateGas); err != nil {
			return 0, err
		}
		artifact, err := contract.Lookup(tx.Contract)
		if err != nil {
			return 0, err
		}
		address := util.CreateAddress(from, nonce)
		if err := env.Create(artifact, address, msg); err != nil {
			return 0, err
		}
		receipt.ContractAddress = address
		receipt.Contract = artifact.Name
		receipt.Method = ""
		return env.Gas.Used(), nil
	}

	if err := env.Gas.Consume(commoncon.TxGas); err != nil {
		return 0, err
	}
	receipt.To = util.NormalizeAddress(tx.To)
	receipt.Contract = c.state.ContractName(tx.To)
	if _, err := env.Execute(msg); err != nil {
		return 0, err
	}
	return env.Gas.Used(), nil
}

func methodLabel(tx *meta.Transaction) string {
	switch {
	case tx.IsCreate():
		return "<deploy>"
	case tx.Method == "":
		return "<receive>"
	}
	return tx.Method
}
