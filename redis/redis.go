package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cloudflare/cfssl/log"
	"github.com/fundme/chain"
	"github.com/fundme/commoncon"
	"github.com/fundme/meta"
	"github.com/go-redis/redis/v8"
)

// BlockStore 用 redis list 保存区块，hash 保存回执。
// 同一个 redis 可以被多个网络共用，key 以 prefix 区分。
type BlockStore struct {
	rdb    *redis.Client
	prefix string
}

func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func NewBlockStore(rdb *redis.Client, prefix string) *BlockStore {
	return &BlockStore{rdb: rdb, prefix: prefix}
}

// Reset 清空当前网络的数据（本地网络每次启动都重新开始）
func (s *BlockStore) Reset(ctx context.Context) error {
	return s.rdb.Del(ctx, s.blocksKey(), s.receiptsKey()).Err()
}

func (s *BlockStore) blocksKey() string {
	return s.prefix + ":" + commoncon.BlockChainKey
}

func (s *BlockStore) receiptsKey() string {
	return s.prefix + ":" + commoncon.ReceiptsKey
}

func (s *BlockStore) Append(ctx context.Context, b meta.Block) error {
	n, err := s.Len(ctx)
	if err != nil {
		return err
	}
	if n != b.Height {
		return fmt.Errorf("append block %d: store height is %d", b.Height, n)
	}
	bs, err := json.Marshal(b)
	if err != nil {
		return err
	}
	if err := s.rdb.RPush(ctx, s.blocksKey(), bs).Err(); err != nil {
		log.Errorf("block push to list error: %s", err)
		return err
	}
	return nil
}

func (s *BlockStore) Get(ctx context.Context, height uint64) (meta.Block, error) {
	var b meta.Block
	val, err := s.rdb.LIndex(ctx, s.blocksKey(), int64(height)).Result()
	if errors.Is(err, redis.Nil) {
		return b, fmt.Errorf("block %d: %w", height, chain.ErrNotFound)
	}
	if err != nil {
		return b, err
	}
	return b, json.Unmarshal([]byte(val), &b)
}

func (s *BlockStore) Len(ctx context.Context) (uint64, error) {
	n, err := s.rdb.LLen(ctx, s.blocksKey()).Result()
	if err != nil {
		return 0, err
	}
	return uint64(n), nil
}

func (s *BlockStore) PutReceipt(ctx context.Context, r meta.Receipt) error {
	bs, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.rdb.HSet(ctx, s.receiptsKey(), r.TxHash, bs).Err()
}

func (s *BlockStore) Receipt(ctx context.Context, txHash string) (meta.Receipt, error) {
	var r meta.Receipt
	val, err := s.rdb.HGet(ctx, s.receiptsKey(), txHash).Result()
	if errors.Is(err, redis.Nil) {
		log.Debugf("the receipt:%s does not exist", txHash)
		return r, fmt.Errorf("receipt %s: %w", txHash, chain.ErrNotFound)
	}
	if err != nil {
		return r, err
	}
	return r, json.Unmarshal([]byte(val), &r)
}
