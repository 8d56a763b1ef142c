// Package deploy 按标签执行部署脚本，并把部署结果记录到 levelDB。
package deploy

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"path/filepath"

	"github.com/cloudflare/cfssl/log"
	"github.com/fundme/chain"
	"github.com/fundme/config"
	"github.com/fundme/global"
	"github.com/fundme/levelDB"
	"github.com/fundme/meta"
	"github.com/fundme/provider"
	"github.com/fundme/rpc"
	"github.com/fundme/util"
	"github.com/fundme/verify"
	"github.com/fundme/wallet"
)

var (
	ErrNoAccounts       = errors.New("no accounts configured for network")
	ErrUnknownNamedAcct = errors.New("unknown named account")
)

// Verifier 源码验证，verify.Client 实现
type Verifier interface {
	Verify(ctx context.Context, req verify.Request) error
}

// Runtime 部署脚本的运行环境
type Runtime struct {
	Config      *config.Config
	Network     config.Network
	ChainID     int64
	Backend     provider.Backend
	Local       *chain.Chain // 进程内网络时不为空
	Signers     []*wallet.Signer
	Deployments *levelDB.DB
	Verifier    Verifier
}

// NewLocalChain 按开发账户配置创建进程内的链
func NewLocalChain(cfg *config.Config, network config.Network, store chain.BlockStore) (*chain.Chain, []*wallet.Signer, error) {
	balance, err := util.ParseEther(cfg.Dev.Balance)
	if err != nil {
		return nil, nil, fmt.Errorf("dev balance: %w", err)
	}
	signers := wallet.DevAccounts(cfg.Dev.Mnemonic, cfg.Dev.Count)
	genesis := make([]chain.GenesisAccount, 0, len(signers))
	for _, s := range signers {
		genesis = append(genesis, chain.GenesisAccount{Address: s.Address, Balance: new(big.Int).Set(balance)})
	}
	c, err := chain.New(chain.Config{ChainID: network.ChainID, Store: store, Genesis: genesis})
	if err != nil {
		return nil, nil, err
	}
	return c, signers, nil
}

// NewRuntime 连接到指定网络。没有 url 的网络在进程内运行，部署记录也只保存在内存里
func NewRuntime(ctx context.Context, cfg *config.Config, networkName string) (*Runtime, error) {
	network, err := cfg.Network(networkName)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Config: cfg, Network: network}

	if network.URL == "" {
		c, signers, err := NewLocalChain(cfg, network, nil)
		if err != nil {
			return nil, err
		}
		rt.Backend, rt.Local, rt.Signers = c, c, signers
		if rt.Deployments, err = levelDB.OpenMem(); err != nil {
			return nil, err
		}
	} else {
		client, err := rpc.Dial(ctx, network.URL)
		if err != nil {
			return nil, fmt.Errorf("connect %s: %w", network.Name, err)
		}
		rt.Backend = client
		if rt.Signers, err = networkSigners(cfg, network); err != nil {
			return nil, err
		}
		path := filepath.Join(global.RootDir, "deployments", network.Name)
		if rt.Deployments, err = levelDB.Open(path); err != nil {
			return nil, err
		}
	}

	if rt.ChainID, err = rt.Backend.ChainID(ctx); err != nil {
		rt.Close()
		return nil, err
	}
	if rt.ChainID != network.ChainID {
		log.Warningf("network %s is configured with chain id %d but the node reports %d", network.Name, network.ChainID, rt.ChainID)
	}
	if cfg.Etherscan.APIKey != "" {
		rt.Verifier = verify.NewClient(cfg.Etherscan.APIURL, cfg.Etherscan.APIKey)
	}
	return rt, nil
}

// 配置了私钥就使用私钥，否则使用开发账户（本地节点）
func networkSigners(cfg *config.Config, network config.Network) ([]*wallet.Signer, error) {
	if len(network.Accounts) == 0 {
		if network.Ephemeral {
			return wallet.DevAccounts(cfg.Dev.Mnemonic, cfg.Dev.Count), nil
		}
		return nil, fmt.Errorf("%w: %s", ErrNoAccounts, network.Name)
	}
	signers := make([]*wallet.Signer, 0, len(network.Accounts))
	for i, key := range network.Accounts {
		s, err := wallet.FromHex(key)
		if err != nil {
			return nil, fmt.Errorf("account %d of %s: %w", i, network.Name, err)
		}
		signers = append(signers, s)
	}
	return signers, nil
}

func (rt *Runtime) Close() error {
	if rt.Deployments == nil {
		return nil
	}
	return rt.Deployments.Close()
}

// NamedAccount 按 namedAccounts 配置取得签名账户
func (rt *Runtime) NamedAccount(name string) (*wallet.Signer, error) {
	na, ok := rt.Config.NamedAccounts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNamedAcct, name)
	}
	i := na.Index(rt.ChainID)
	if i < 0 || i >= len(rt.Signers) {
		return nil, fmt.Errorf("named account %s: index %d out of range (%d accounts)", name, i, len(rt.Signers))
	}
	return rt.Signers[i], nil
}

type DeployOptions struct {
	Contract          string // 为空时与部署名相同
	From              *wallet.Signer
	Args              map[string]string
	WaitConfirmations int
}

// Deploy 部署合约，等待确认后写入部署记录
func (rt *Runtime) Deploy(ctx context.Context, name string, opts DeployOptions) (meta.Deployment, error) {
	contractName := opts.Contract
	if contractName == "" {
		contractName = name
	}
	dep := meta.Deployment{Name: name, Contract: contractName, Args: opts.Args}
	if opts.From == nil {
		return dep, ErrNoAccounts
	}
	dep.Deployer = opts.From.Address

	pending, err := provider.Deploy(ctx, rt.Backend, opts.From, contractName, opts.Args, nil)
	if err != nil {
		return dep, fmt.Errorf("deploy %s: %w", name, err)
	}
	log.Infof("deploying %q (tx: %s)...", name, pending.Hash)
	receipt, err := pending.Wait(ctx, opts.WaitConfirmations)
	if err != nil {
		return dep, fmt.Errorf("wait for %s: %w", name, err)
	}
	dep.Address = receipt.ContractAddress
	dep.TxHash = receipt.TxHash
	dep.BlockHeight = receipt.BlockHeight
	dep.Receipt = receipt
	if err := rt.Deployments.SaveDeployment(dep); err != nil {
		return dep, err
	}
	log.Infof("deployed %q at %s with %d gas", name, dep.Address, receipt.GasUsed)
	return dep, nil
}

// Get 读取部署记录
func (rt *Runtime) Get(name string) (meta.Deployment, error) {
	dep, err := rt.Deployments.GetDeployment(name)
	if err != nil {
		return dep, fmt.Errorf("no deployment found for %s: %w", name, err)
	}
	return dep, nil
}

// Contract 返回绑定到已部署合约的客户端
func (rt *Runtime) Contract(name string, signer *wallet.Signer) (*provider.Contract, error) {
	dep, err := rt.Get(name)
	if err != nil {
		return nil, err
	}
	return provider.NewContract(dep.Address, rt.Backend, signer), nil
}
