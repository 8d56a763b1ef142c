// Package explorer 本地的 Etherscan 兼容验证服务，开发网络和测试中代替真实的区块浏览器。
package explorer

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cloudflare/cfssl/log"
	"github.com/fundme/contract"
	"github.com/fundme/util"
	"github.com/fundme/verify"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const FailResult = "Fail - Unable to verify"

// Lookup 返回地址上部署的合约名称
type Lookup func(ctx context.Context, address string) (string, bool)

type job struct {
	address string
	passed  bool
	polls   int
}

// Server 收到的源码与注册表中同名合约的源码一致，并且地址上确实部署了该合约，才算验证通过
type Server struct {
	mu       sync.Mutex
	lookup   Lookup
	apiKey   string
	jobs     map[string]*job
	verified map[string]string
}

func New(lookup Lookup, apiKey string) *Server {
	return &Server{
		lookup:   lookup,
		apiKey:   apiKey,
		jobs:     map[string]*job{},
		verified: map[string]string{},
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api", s.checkStatus).Methods(http.MethodGet).Queries("action", "checkverifystatus")
	r.HandleFunc("/api", s.getSource).Methods(http.MethodGet).Queries("action", "getsourcecode")
	r.HandleFunc("/api", s.verifySource).Methods(http.MethodPost)
	return r
}

// ListenAndServe 阻塞直到 ctx 结束
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Handler:      s.Router(),
		Addr:         addr,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	log.Infof("explorer listening on %s", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) authorized(r *http.Request) bool {
	return s.apiKey == "" || ParseParam("apikey", r) == s.apiKey
}

func (s *Server) verifySource(w http.ResponseWriter, r *http.Request) {
	if ParseParam("module", r) != "contract" || ParseParam("action", r) != "verifysourcecode" {
		BadRequestResponse(w)
		return
	}
	if !s.authorized(r) {
		notOK(w, "Invalid API Key")
		return
	}
	address := ParseParam("contractaddress", r)
	if !util.IsAddress(address) {
		notOK(w, "Invalid contract address format")
		return
	}
	address = util.NormalizeAddress(address)
	name := ParseParam("contractname", r)

	s.mu.Lock()
	_, done := s.verified[address]
	s.mu.Unlock()
	if done {
		notOK(w, "Contract source code already verified")
		return
	}

	deployed, found := s.lookup(r.Context(), address)
	if !found {
		notOK(w, "Unable to locate ContractCode at "+address)
		return
	}
	passed := false
	if artifact, err := contract.Lookup(name); err == nil {
		passed = deployed == name && artifact.Source == ParseParam("sourceCode", r)
	}

	guid := strings.ReplaceAll(uuid.NewString(), "-", "")
	s.mu.Lock()
	s.jobs[guid] = &job{address: address, passed: passed}
	if passed {
		s.verified[address] = name
	}
	s.mu.Unlock()
	log.Infof("explorer: verification %s submitted for %s (%s)", guid, name, address)
	ok(w, guid)
}

// 第一次查询总是返回排队中
func (s *Server) checkStatus(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		notOK(w, "Invalid API Key")
		return
	}
	guid := ParseParam("guid", r)
	s.mu.Lock()
	j, found := s.jobs[guid]
	if found {
		j.polls++
	}
	s.mu.Unlock()

	switch {
	case !found:
		notOK(w, "Unable to locate guid")
	case j.polls == 1:
		notOK(w, verify.StatusPending)
	case j.passed:
		ok(w, verify.StatusPass)
	default:
		notOK(w, FailResult)
	}
}

func (s *Server) getSource(w http.ResponseWriter, r *http.Request) {
	address := ParseParam("address", r)
	if address == "" {
		BadRequestResponse(w)
		return
	}
	s.mu.Lock()
	name, found := s.verified[util.NormalizeAddress(address)]
	s.mu.Unlock()
	if !found {
		notOK(w, "Contract source code not verified")
		return
	}
	ok(w, name)
}

// Verified 地址是否已通过验证
func (s *Server) Verified(address string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, found := s.verified[util.NormalizeAddress(address)]
	return found
}
