package chain_test

import (
	"bytes"
	"context"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/fundme/chain"
	"github.com/fundme/commoncon"
	"github.com/fundme/contract"
	"github.com/fundme/contract/system/oracle"
	"github.com/fundme/contract/template/fundme"
	"github.com/fundme/meta"
	"github.com/fundme/util"
	"github.com/fundme/wallet"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func newChain(t *testing.T) (*chain.Chain, []*wallet.Signer) {
	t.Helper()
	signers := wallet.DevAccounts(commoncon.DefaultMnemonic, 5)
	var genesis []chain.GenesisAccount
	for _, s := range signers {
		genesis = append(genesis, chain.GenesisAccount{Address: s.Address, Balance: util.MustParseEther("10000")})
	}
	c, err := chain.New(chain.Config{ChainID: commoncon.LocalChainID, Genesis: genesis})
	assert.NilError(t, err)
	return c, signers
}

func send(t *testing.T, c *chain.Chain, s *wallet.Signer, tx meta.Transaction) (*meta.Receipt, error) {
	t.Helper()
	ctx := context.Background()
	nonce, err := c.NonceAt(ctx, s.Address)
	assert.NilError(t, err)
	tx.ChainID = commoncon.LocalChainID
	tx.Nonce = nonce
	s.SignTx(&tx)
	hash, err := c.SendTransaction(ctx, &tx)
	if err != nil {
		return nil, err
	}
	return c.TransactionReceipt(ctx, hash)
}

func deployStack(t *testing.T, c *chain.Chain, deployer *wallet.Signer) (feed, fm string) {
	t.Helper()
	r, err := send(t, c, deployer, meta.Transaction{
		Contract: commoncon.MockV3AggregatorName,
		Args:     map[string]string{"decimals": "8", "initialAnswer": commoncon.InitialAnswer},
	})
	assert.NilError(t, err)
	feed = r.ContractAddress
	r, err = send(t, c, deployer, meta.Transaction{
		Contract: commoncon.FundMeName,
		Args:     map[string]string{"priceFeed": feed},
	})
	assert.NilError(t, err)
	return feed, r.ContractAddress
}

func TestDeployCreatesContractAccount(t *testing.T) {
	c, signers := newChain(t)
	feed, fm := deployStack(t, c, signers[0])
	assert.Assert(t, util.IsAddress(feed))
	assert.Assert(t, feed != fm)
	assert.Equal(t, fm, util.CreateAddress(signers[0].Address, 1))

	raw, err := c.CallContract(context.Background(), meta.CallMsg{To: fm, Method: "s_priceFeed"})
	assert.NilError(t, err)
	assert.Equal(t, string(raw), `"`+feed+`"`)

	n, err := c.BlockNumber(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, n, uint64(2))
}

func TestRevertedTransactionLeavesStateUntouched(t *testing.T) {
	c, signers := newChain(t)
	_, fm := deployStack(t, c, signers[0])
	ctx := context.Background()

	before, _ := c.BalanceAt(ctx, signers[1].Address)
	height, _ := c.BlockNumber(ctx)

	_, err := send(t, c, signers[1], meta.Transaction{To: fm, Method: "fund", Value: big.NewInt(1)})
	assert.ErrorIs(t, err, fundme.ErrNotEnoughFunds)

	after, _ := c.BalanceAt(ctx, signers[1].Address)
	assert.Equal(t, before.String(), after.String())
	nonce, _ := c.NonceAt(ctx, signers[1].Address)
	assert.Equal(t, nonce, uint64(0))
	h, _ := c.BlockNumber(ctx)
	assert.Equal(t, h, height)
	bal, _ := c.BalanceAt(ctx, fm)
	assert.Equal(t, bal.Sign(), 0)
}

func TestNonceAndChainChecks(t *testing.T) {
	c, signers := newChain(t)
	ctx := context.Background()

	tx := meta.Transaction{ChainID: commoncon.LocalChainID, Nonce: 3, To: signers[1].Address, Value: big.NewInt(1)}
	signers[0].SignTx(&tx)
	_, err := c.SendTransaction(ctx, &tx)
	assert.ErrorIs(t, err, chain.ErrNonceTooHigh)

	tx = meta.Transaction{ChainID: 5, To: signers[1].Address, Value: big.NewInt(1)}
	signers[0].SignTx(&tx)
	_, err = c.SendTransaction(ctx, &tx)
	assert.ErrorIs(t, err, chain.ErrWrongChain)

	tx = meta.Transaction{ChainID: commoncon.LocalChainID, To: signers[1].Address, Value: big.NewInt(1)}
	signers[0].SignTx(&tx)
	tx.Value = big.NewInt(2)
	_, err = c.SendTransaction(ctx, &tx)
	assert.ErrorIs(t, err, wallet.ErrInvalidSignature)
}

func TestPlainTransferChargesGas(t *testing.T) {
	c, signers := newChain(t)
	ctx := context.Background()
	start0, _ := c.BalanceAt(ctx, signers[0].Address)
	start1, _ := c.BalanceAt(ctx, signers[1].Address)

	value := util.MustParseEther("1")
	r, err := send(t, c, signers[0], meta.Transaction{To: signers[1].Address, Value: value})
	assert.NilError(t, err)
	assert.Equal(t, r.GasUsed, commoncon.TxGas)

	end0, _ := c.BalanceAt(ctx, signers[0].Address)
	end1, _ := c.BalanceAt(ctx, signers[1].Address)
	want0 := new(big.Int).Sub(start0, value)
	want0.Sub(want0, r.GasCost())
	assert.Equal(t, end0.String(), want0.String())
	assert.Equal(t, end1.String(), new(big.Int).Add(start1, value).String())
}

func TestWithdrawConservesValue(t *testing.T) {
	c, signers := newChain(t)
	ctx := context.Background()
	owner := signers[0]
	_, fm := deployStack(t, c, owner)

	_, err := send(t, c, signers[1], meta.Transaction{To: fm, Method: "fund", Value: util.MustParseEther("1")})
	assert.NilError(t, err)

	startContract, _ := c.BalanceAt(ctx, fm)
	startOwner, _ := c.BalanceAt(ctx, owner.Address)
	r, err := send(t, c, owner, meta.Transaction{To: fm, Method: "withdrawAll"})
	assert.NilError(t, err)
	endContract, _ := c.BalanceAt(ctx, fm)
	endOwner, _ := c.BalanceAt(ctx, owner.Address)

	assert.Equal(t, endContract.Sign(), 0)
	assert.Equal(t,
		new(big.Int).Add(startContract, startOwner).String(),
		new(big.Int).Add(endOwner, r.GasCost()).String())
}

func TestReceiveRoutesToFund(t *testing.T) {
	c, signers := newChain(t)
	_, fm := deployStack(t, c, signers[0])
	_, err := send(t, c, signers[2], meta.Transaction{To: fm, Value: util.MustParseEther("1")})
	assert.NilError(t, err)

	raw, err := c.CallContract(context.Background(), meta.CallMsg{To: fm, Method: "s_funders", Args: map[string]string{"index": "0"}})
	assert.NilError(t, err)
	assert.Equal(t, string(raw), `"`+signers[2].Address+`"`)
}

func TestMineAndSubscribe(t *testing.T) {
	c, _ := newChain(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	heads, err := c.SubscribeNewHead(ctx)
	assert.NilError(t, err)

	assert.NilError(t, c.Mine(ctx, 3))
	var got []uint64
	for i := 0; i < 3; i++ {
		select {
		case h := <-heads:
			got = append(got, h.Height)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for head")
		}
	}
	assert.DeepEqual(t, got, []uint64{1, 2, 3})

	h2, err := c.HeaderByNumber(ctx, 2)
	assert.NilError(t, err)
	h1, err := c.HeaderByNumber(ctx, 1)
	assert.NilError(t, err)
	assert.Equal(t, h2.PrevHash, h1.Hash)
	assert.Assert(t, h2.Timestamp > h1.Timestamp)

	_, err = c.HeaderByNumber(ctx, 99)
	assert.ErrorIs(t, err, chain.ErrNotFound)
}

func TestGasReport(t *testing.T) {
	c, signers := newChain(t)
	_, fm := deployStack(t, c, signers[0])
	for i := 1; i < 3; i++ {
		_, err := send(t, c, signers[i], meta.Transaction{To: fm, Method: "fund", Value: util.MustParseEther("1")})
		assert.NilError(t, err)
	}
	stats := c.GasReporter().Stats()
	var fund chain.GasStats
	for _, s := range stats {
		if s.Contract == commoncon.FundMeName && s.Method == "fund" {
			fund = s
		}
	}
	assert.Equal(t, fund.Calls, 2)
	assert.Assert(t, fund.Min <= fund.Avg() && fund.Avg() <= fund.Max)

	var buf bytes.Buffer
	assert.NilError(t, c.GasReporter().WriteReport(&buf, c.GasPrice()))
	assert.Check(t, is.Contains(buf.String(), "MockV3Aggregator"))
	assert.Check(t, strings.Contains(buf.String(), "fund"))
}

func TestOracleStubIsRegistered(t *testing.T) {
	_, err := contract.Lookup(oracle.Artifact().Name)
	assert.NilError(t, err)
	assert.Assert(t, util.Contains(contract.Artifacts(), commoncon.FundMeName))
}
