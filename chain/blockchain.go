package chain

import (
	"context"
	"encoding/json"
	"math/big"
	"sync"
	"time"

	"github.com/cloudflare/cfssl/log"
	"github.com/fundme/account"
	"github.com/fundme/commoncon"
	"github.com/fundme/contract"
	"github.com/fundme/meta"
	"github.com/fundme/util"
)

var ErrNotFound = meta.ErrNotFound

// GenesisAccount 创世区块中预置余额的账户
type GenesisAccount struct {
	Address string
	Balance *big.Int
}

type Config struct {
	ChainID  int64
	GasPrice *big.Int
	GasLimit uint64
	Store    BlockStore
	Genesis  []GenesisAccount
	Now      func() time.Time
}

// Chain 单节点账本：执行交易、出块、保存回执
type Chain struct {
	mu       sync.Mutex
	chainID  int64
	gasPrice *big.Int
	gasLimit uint64
	now      func() time.Time
	state    *account.State
	store    BlockStore
	head     meta.Header
	subs     map[int]chan meta.Header
	nextSub  int
	reporter *GasReporter
}

func New(cfg Config) (*Chain, error) {
	c := &Chain{
		chainID:  cfg.ChainID,
		gasPrice: cfg.GasPrice,
		gasLimit: cfg.GasLimit,
		now:      cfg.Now,
		state:    account.NewState(),
		store:    cfg.Store,
		subs:     map[int]chan meta.Header{},
		reporter: NewGasReporter(),
	}
	if c.gasPrice == nil {
		c.gasPrice, _ = util.ParseBig(commoncon.DefaultGasPriceWei)
	}
	if c.gasLimit == 0 {
		c.gasLimit = commoncon.DefaultGasLimit
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.store == nil {
		c.store = NewMemoryStore()
	}
	for _, g := range cfg.Genesis {
		c.state.CreateAccount(g.Address, g.Balance)
	}
	if err := c.generateGenesisBlock(); err != nil {
		return nil, err
	}
	return c, nil
}

//生成创世区块
func (c *Chain) generateGenesisBlock() error {
	genesis := meta.Block{Header: meta.Header{Timestamp: c.now().Unix()}}
	genesis.Hash = util.CalculateBlockHash(genesis)
	if err := c.store.Append(context.Background(), genesis); err != nil {
		return err
	}
	c.head = genesis.Header
	return nil
}

// 出块时间戳严格递增
func (c *Chain) nextTimestamp() int64 {
	ts := c.now().Unix()
	if ts <= c.head.Timestamp {
		ts = c.head.Timestamp + 1
	}
	return ts
}

// 生成新区块并通知订阅者，调用方持有锁
func (c *Chain) seal(txs []meta.Transaction, receipts []meta.Receipt) (meta.Block, error) {
	block := meta.Block{
		Header: meta.Header{
			Height:    c.head.Height + 1,
			Timestamp: c.nextTimestamp(),
			PrevHash:  c.head.Hash,
		},
		TX:       txs,
		Receipts: receipts,
	}
	for _, r := range receipts {
		block.GasUsed += r.GasUsed
	}
	block.Hash = util.CalculateBlockHash(block)
	ctx := context.Background()
	for i := range block.Receipts {
		block.Receipts[i].BlockHeight = block.Height
		block.Receipts[i].BlockHash = block.Hash
	}
	if err := c.store.Append(ctx, block); err != nil {
		return block, err
	}
	for _, r := range block.Receipts {
		if err := c.store.PutReceipt(ctx, r); err != nil {
			return block, err
		}
	}
	c.head = block.Header
	for _, ch := range c.subs {
		select {
		case ch <- block.Header:
		default:
		}
	}
	return block, nil
}

func (c *Chain) ChainID(ctx context.Context) (int64, error) {
	return c.chainID, nil
}

func (c *Chain) BlockNumber(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.head.Height, nil
}

func (c *Chain) HeaderByNumber(ctx context.Context, height uint64) (meta.Header, error) {
	b, err := c.store.Get(ctx, height)
	if err != nil {
		return meta.Header{}, err
	}
	return b.Header, nil
}

func (c *Chain) BalanceAt(ctx context.Context, address string) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.GetBalance(address), nil
}

func (c *Chain) NonceAt(ctx context.Context, address string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.GetNonce(address), nil
}

// AccountAt 返回账户快照，不存在的账户余额为 0
func (c *Chain) AccountAt(ctx context.Context, address string) (meta.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.GetAccount(address), nil
}

func (c *Chain) TransactionReceipt(ctx context.Context, hash string) (*meta.Receipt, error) {
	r, err := c.store.Receipt(ctx, hash)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CallContract 在状态副本上执行只读调用
func (c *Chain) CallContract(ctx context.Context, msg meta.CallMsg) (json.RawMessage, error) {
	c.mu.Lock()
	state := c.state.Copy()
	block := contract.BlockInfo{Height: c.head.Height, Timestamp: c.head.Timestamp}
	c.mu.Unlock()

	env := &contract.Env{State: state, Gas: contract.NewGasMeter(c.gasLimit), Block: block}
	res, err := env.Execute(contract.Message{
		From:     msg.From,
		To:       msg.To,
		Method:   msg.Method,
		Args:     msg.Args,
		Value:    msg.Value,
		ReadOnly: true,
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(res)
}

// Mine 打包 n 个空区块
func (c *Chain) Mine(ctx context.Context, n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := c.seal(nil, nil); err != nil {
			return err
		}
	}
	return nil
}

// StartIntervalMining 定时出空块，直到 ctx 结束
func (c *Chain) StartIntervalMining(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.Mine(ctx, 1); err != nil && ctx.Err() == nil {
					log.Errorf("interval mining failed: %s", err)
				}
			}
		}
	}()
}

// SubscribeNewHead 订阅新区块，ctx 结束后通道关闭
func (c *Chain) SubscribeNewHead(ctx context.Context) (<-chan meta.Header, error) {
	ch := make(chan meta.Header, 16)
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		delete(c.subs, id)
		close(ch)
		c.mu.Unlock()
	}()
	return ch, nil
}

// Accounts 返回所有账户的快照
func (c *Chain) Accounts() []meta.Account {
	c.mu.Lock()
	defer c.mu.Unlock()
	var accs []meta.Account
	for _, addr := range c.state.GetTotalAddress() {
		accs = append(accs, c.state.GetAccount(addr))
	}
	return accs
}

func (c *Chain) GasReporter() *GasReporter {
	return c.reporter
}

func (c *Chain) GasPrice() *big.Int {
	return new(big.Int).Set(c.gasPrice)
}
