// Package verify 向 Etherscan 兼容的区块浏览器提交合约源码验证。
package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cloudflare/cfssl/log"
)

const (
	StatusPending         = "Pending in queue"
	StatusPass            = "Pass - Verified"
	StatusAlreadyVerified = "Already Verified"
	CodeFormat            = "go-artifact"
)

var (
	ErrNoAPIKey           = errors.New("etherscan api key is not set")
	ErrVerificationFailed = errors.New("verification failed")
)

// Request 一次验证请求
type Request struct {
	Address         string
	ContractName    string
	Source          string
	ConstructorArgs map[string]string
}

// Response 浏览器 API 的通用返回格式
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

type Client struct {
	APIURL       string
	APIKey       string
	HTTP         *http.Client
	PollInterval time.Duration
}

func NewClient(apiURL, apiKey string) *Client {
	return &Client{
		APIURL:       apiURL,
		APIKey:       apiKey,
		HTTP:         &http.Client{Timeout: 30 * time.Second},
		PollInterval: 2 * time.Second,
	}
}

// Verify 提交源码并轮询结果，直到通过、失败或 ctx 结束。已验证过的合约视为成功
func (c *Client) Verify(ctx context.Context, req Request) error {
	if c.APIKey == "" {
		return ErrNoAPIKey
	}
	args, err := json.Marshal(req.ConstructorArgs)
	if err != nil {
		return err
	}
	form := url.Values{
		"module":                {"contract"},
		"action":                {"verifysourcecode"},
		"apikey":                {c.APIKey},
		"contractaddress":       {req.Address},
		"contractname":          {req.ContractName},
		"sourceCode":            {req.Source},
		"codeformat":            {CodeFormat},
		"constructorArguements": {string(args)},
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.do(httpReq)
	if err != nil {
		return err
	}
	if resp.Status != "1" {
		if isAlreadyVerified(resp.Result) {
			log.Infof("Contract %s is already verified", req.Address)
			return nil
		}
		return fmt.Errorf("%w: %s", ErrVerificationFailed, resp.Result)
	}

	guid := resp.Result
	log.Infof("Successfully submitted source code for contract %s (%s), guid %s", req.ContractName, req.Address, guid)
	ticker := time.NewTicker(c.PollInterval)
	defer ticker.Stop()
	for {
		status, err := c.CheckStatus(ctx, guid)
		if err != nil {
			return err
		}
		switch {
		case status == StatusPass:
			log.Infof("Successfully verified contract %s on the block explorer", req.ContractName)
			return nil
		case isAlreadyVerified(status):
			return nil
		case status != StatusPending:
			return fmt.Errorf("%w: %s", ErrVerificationFailed, status)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// CheckStatus 查询验证任务状态
func (c *Client) CheckStatus(ctx context.Context, guid string) (string, error) {
	q := url.Values{
		"module": {"contract"},
		"action": {"checkverifystatus"},
		"guid":   {guid},
		"apikey": {c.APIKey},
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.do(httpReq)
	if err != nil {
		return "", err
	}
	return resp.Result, nil
}

func (c *Client) do(req *http.Request) (*Response, error) {
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	res, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("explorer returned %s", res.Status)
	}
	var resp Response
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode explorer response: %w", err)
	}
	return &resp, nil
}

func isAlreadyVerified(s string) bool {
	return strings.Contains(strings.ToLower(s), "already verified")
}
