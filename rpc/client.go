package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cloudflare/cfssl/log"
	"github.com/fundme/commoncon"
	"github.com/fundme/contract"
	"github.com/fundme/meta"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client 实现 provider.Backend，连接到 fundme node
type Client struct {
	baseURL string
	wsURL   string
	http    *http.Client
}

// Dial 连接节点并确认节点可用
func Dial(ctx context.Context, rawURL string) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(rawURL, "/"))
	if err != nil {
		return nil, err
	}
	ws := *u
	switch u.Scheme {
	case "http":
		ws.Scheme = "ws"
	case "https":
		ws.Scheme = "wss"
	default:
		return nil, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	ws.Path += "/ws"
	c := &Client{
		baseURL: u.String(),
		wsURL:   ws.String(),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	if _, err := c.Info(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// 发送请求并解码结果；非 2xx 返回时还原为对应的错误
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	id := uuid.NewString()
	req.Header.Set(commoncon.RequestIDHeader, id)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	log.Debugf("[%s] %s %s %d", id, method, path, resp.StatusCode)
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var e errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
		return fmt.Errorf("node returned %s", resp.Status)
	}
	if e.Revert != nil {
		return contract.Revert(*e.Revert)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", e.Error, meta.ErrNotFound)
	}
	return fmt.Errorf("%s", e.Error)
}

func (c *Client) Info(ctx context.Context) (ChainInfo, error) {
	var info ChainInfo
	err := c.do(ctx, http.MethodGet, "/chain", nil, &info)
	return info, err
}

func (c *Client) ChainID(ctx context.Context) (int64, error) {
	info, err := c.Info(ctx)
	return info.ChainID, err
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	info, err := c.Info(ctx)
	return info.BlockNumber, err
}

func (c *Client) HeaderByNumber(ctx context.Context, height uint64) (meta.Header, error) {
	var h meta.Header
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/blocks/%d", height), nil, &h)
	return h, err
}

func (c *Client) AccountAt(ctx context.Context, address string) (meta.Account, error) {
	var acc meta.Account
	err := c.do(ctx, http.MethodGet, "/accounts/"+url.PathEscape(address), nil, &acc)
	return acc, err
}

func (c *Client) BalanceAt(ctx context.Context, address string) (*big.Int, error) {
	acc, err := c.AccountAt(ctx, address)
	if err != nil {
		return nil, err
	}
	return acc.Balance, nil
}

func (c *Client) NonceAt(ctx context.Context, address string) (uint64, error) {
	acc, err := c.AccountAt(ctx, address)
	return acc.Nonce, err
}

func (c *Client) SendTransaction(ctx context.Context, tx *meta.Transaction) (string, error) {
	var resp TxResponse
	err := c.do(ctx, http.MethodPost, "/tx", tx, &resp)
	return resp.Hash, err
}

func (c *Client) CallContract(ctx context.Context, msg meta.CallMsg) (json.RawMessage, error) {
	var resp CallResponse
	err := c.do(ctx, http.MethodPost, "/call", msg, &resp)
	return resp.Result, err
}

func (c *Client) TransactionReceipt(ctx context.Context, hash string) (*meta.Receipt, error) {
	var r meta.Receipt
	if err := c.do(ctx, http.MethodGet, "/tx/"+url.PathEscape(hash)+"/receipt", nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Mine 让节点出 n 个空块
func (c *Client) Mine(ctx context.Context, n int) error {
	return c.do(ctx, http.MethodPost, "/mine", MineRequest{Blocks: n}, nil)
}

// SubscribeNewHead 通过 websocket 订阅新区块，ctx 结束或连接断开时通道关闭
func (c *Client) SubscribeNewHead(ctx context.Context) (<-chan meta.Header, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return nil, err
	}
	ch := make(chan meta.Header, 16)
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	go func() {
		defer close(ch)
		for {
			var h meta.Header
			if err := conn.ReadJSON(&h); err != nil {
				if ctx.Err() == nil {
					log.Debugf("new head subscription closed: %s", err)
				}
				return
			}
			select {
			case ch <- h:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}
