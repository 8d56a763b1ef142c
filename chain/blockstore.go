package chain

import (
	"context"
	"fmt"
	"sync"

	"github.com/fundme/meta"
)

// BlockStore 保存区块和交易回执
type BlockStore interface {
	Append(ctx context.Context, b meta.Block) error
	Get(ctx context.Context, height uint64) (meta.Block, error)
	Len(ctx context.Context) (uint64, error)
	PutReceipt(ctx context.Context, r meta.Receipt) error
	Receipt(ctx context.Context, txHash string) (meta.Receipt, error)
}

// MemoryStore 进程内存储，本地网络默认使用
type MemoryStore struct {
	mu       sync.RWMutex
	blocks   []meta.Block
	receipts map[string]meta.Receipt
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{receipts: map[string]meta.Receipt{}}
}

func (m *MemoryStore) Append(ctx context.Context, b meta.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if uint64(len(m.blocks)) != b.Height {
		return fmt.Errorf("append block %d: store height is %d", b.Height, len(m.blocks))
	}
	m.blocks = append(m.blocks, b)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, height uint64) (meta.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if height >= uint64(len(m.blocks)) {
		return meta.Block{}, fmt.Errorf("block %d: %w", height, ErrNotFound)
	}
	return m.blocks[height], nil
}

func (m *MemoryStore) Len(ctx context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.blocks)), nil
}

func (m *MemoryStore) PutReceipt(ctx context.Context, r meta.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts[r.TxHash] = r
	return nil
}

func (m *MemoryStore) Receipt(ctx context.Context, txHash string) (meta.Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.receipts[txHash]
	if !ok {
		return meta.Receipt{}, fmt.Errorf("receipt %s: %w", txHash, ErrNotFound)
	}
	return r, nil
}
