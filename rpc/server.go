// Package rpc 通过 HTTP 和 websocket 暴露本地链，rpc.Client 是对应的客户端。
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/cloudflare/cfssl/log"
	"github.com/fundme/chain"
	"github.com/fundme/contract"
	"github.com/fundme/meta"
	"github.com/gin-gonic/gin"
)

// 错误返回格式，合约回滚时 Revert 为回滚原因
type errorResponse struct {
	Error  string  `json:"error"`
	Revert *string `json:"revert,omitempty"`
}

type ChainInfo struct {
	ChainID     int64  `json:"chainId"`
	BlockNumber uint64 `json:"blockNumber"`
	GasPrice    string `json:"gasPrice"`
}

type TxResponse struct {
	Hash string `json:"hash"`
}

type CallResponse struct {
	Result json.RawMessage `json:"result"`
}

type MineRequest struct {
	Blocks int `json:"blocks"`
}

type Server struct {
	chain  *chain.Chain
	engine *gin.Engine
}

func NewServer(c *chain.Chain) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{chain: c, engine: gin.New()}
	r := s.engine
	r.Use(gin.Recovery(), RequestID(), Cors(), Secure())
	r.GET("/chain", s.getChain)               // 链信息
	r.GET("/blocks/:height", s.getBlock)      // 区块头
	r.GET("/accounts/:address", s.getAccount) // 账户余额、nonce、合约
	r.POST("/tx", s.postTx)                   // 提交一笔已签名交易
	r.GET("/tx/:hash/receipt", s.getReceipt)  // 交易回执
	r.POST("/call", s.postCall)               // 只读调用
	r.POST("/mine", s.postMine)               // 出空块
	r.GET("/ws", s.subscribeHeads)            // 推送新区块
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe 阻塞直到 ctx 结束
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:        addr,
		Handler:     s.engine,
		ReadTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	log.Infof("Started HTTP and WebSocket JSON-RPC server at http://%s/", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func abort(c *gin.Context, status int, err error) {
	resp := errorResponse{Error: err.Error()}
	if reason, ok := contract.RevertReason(err); ok {
		resp.Revert = &reason
	}
	if errors.Is(err, meta.ErrNotFound) {
		status = http.StatusNotFound
	}
	c.AbortWithStatusJSON(status, resp)
}

func (s *Server) getChain(c *gin.Context) {
	ctx := c.Request.Context()
	chainID, _ := s.chain.ChainID(ctx)
	head, _ := s.chain.BlockNumber(ctx)
	c.JSON(http.StatusOK, ChainInfo{ChainID: chainID, BlockNumber: head, GasPrice: s.chain.GasPrice().String()})
}

func (s *Server) getBlock(c *gin.Context) {
	height, err := strconv.ParseUint(c.Param("height"), 10, 64)
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	h, err := s.chain.HeaderByNumber(c.Request.Context(), height)
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, h)
}

func (s *Server) getAccount(c *gin.Context) {
	acc, err := s.chain.AccountAt(c.Request.Context(), c.Param("address"))
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, acc)
}

func (s *Server) postTx(c *gin.Context) {
	tx := meta.Transaction{}
	if err := c.ShouldBindJSON(&tx); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	hash, err := s.chain.SendTransaction(c.Request.Context(), &tx)
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusOK, TxResponse{Hash: hash})
}

func (s *Server) getReceipt(c *gin.Context) {
	r, err := s.chain.TransactionReceipt(c.Request.Context(), c.Param("hash"))
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) postCall(c *gin.Context) {
	msg := meta.CallMsg{}
	if err := c.ShouldBindJSON(&msg); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	res, err := s.chain.CallContract(c.Request.Context(), msg)
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusOK, CallResponse{Result: res})
}

func (s *Server) postMine(c *gin.Context) {
	req := MineRequest{Blocks: 1}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}
	}
	if req.Blocks < 1 {
		req.Blocks = 1
	}
	ctx := c.Request.Context()
	if err := s.chain.Mine(ctx, req.Blocks); err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	head, _ := s.chain.BlockNumber(ctx)
	c.JSON(http.StatusOK, ChainInfo{BlockNumber: head})
}
