package redis

import (
	"context"
	"math/big"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/fundme/chain"
	"github.com/fundme/meta"
	"gotest.tools/v3/assert"
)

func newStore(t *testing.T) *BlockStore {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewBlockStore(NewClient(mr.Addr(), "", 0), "test")
}

func TestAppendAndGet(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	assert.NilError(t, s.Append(ctx, meta.Block{Header: meta.Header{Height: 0, Hash: "0x00"}}))
	assert.NilError(t, s.Append(ctx, meta.Block{Header: meta.Header{Height: 1, Hash: "0x01", PrevHash: "0x00"}}))

	n, err := s.Len(ctx)
	assert.NilError(t, err)
	assert.Equal(t, n, uint64(2))

	b, err := s.Get(ctx, 1)
	assert.NilError(t, err)
	assert.Equal(t, b.PrevHash, "0x00")

	_, err = s.Get(ctx, 5)
	assert.ErrorIs(t, err, chain.ErrNotFound)

	assert.ErrorContains(t, s.Append(ctx, meta.Block{Header: meta.Header{Height: 7}}), "store height is 2")
}

func TestReceipts(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	r := meta.Receipt{TxHash: "0xabc", GasUsed: 21000, EffectiveGasPrice: big.NewInt(7), Status: 1}
	assert.NilError(t, s.PutReceipt(ctx, r))

	got, err := s.Receipt(ctx, "0xabc")
	assert.NilError(t, err)
	assert.Equal(t, got.GasCost().Int64(), int64(147000))

	_, err = s.Receipt(ctx, "0xdef")
	assert.ErrorIs(t, err, chain.ErrNotFound)

	assert.NilError(t, s.Reset(ctx))
	_, err = s.Receipt(ctx, "0xabc")
	assert.ErrorIs(t, err, chain.ErrNotFound)
}

func TestChainOnRedis(t *testing.T) {
	ctx := context.Background()
	c, err := chain.New(chain.Config{ChainID: 31337, Store: newStore(t)})
	assert.NilError(t, err)
	assert.NilError(t, c.Mine(ctx, 2))
	h, err := c.HeaderByNumber(ctx, 2)
	assert.NilError(t, err)
	assert.Equal(t, h.Height, uint64(2))
}
