package rpc

import (
	"context"
	"net/http"

	"github.com/cloudflare/cfssl/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upGrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// 使用WebSocket推送新区块头，客户端断开或服务关闭时结束
func (s *Server) subscribeHeads(c *gin.Context) {
	ws, err := upGrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Info("Upgrade failed: ", err)
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	heads, err := s.chain.SubscribeNewHead(ctx)
	if err != nil {
		log.Errorf("subscribe new heads: %s", err)
		return
	}

	// 读到错误说明客户端已断开
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case h, ok := <-heads:
			if !ok {
				return
			}
			if err := ws.WriteJSON(h); err != nil {
				log.Info(err)
				return
			}
		}
	}
}
