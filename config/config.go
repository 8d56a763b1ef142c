// Package config 读取网络、账户、节点等配置。
//
// 默认配置嵌入在二进制中（config.yaml），RootDir 下的 fundme.yaml 会覆盖同名字段；
// 配置中的 ${VAR} 在读取前用环境变量展开，.env 文件中的变量也会被加载。
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cloudflare/cfssl/log"
	"github.com/fundme/commoncon"
	"github.com/fundme/global"
	"github.com/fundme/util"
	"github.com/joho/godotenv"
	viper2 "github.com/spf13/viper"
)

//go:embed config.yaml
var defaultConfig []byte

const FileName = "fundme.yaml"

var ErrUnknownNetwork = errors.New("unknown network")

type PriceFeed struct {
	Strategy string
	Address  string
}

type Network struct {
	Name               string
	URL                string
	ChainID            int64
	Accounts           []string // 十六进制私钥种子
	BlockConfirmations int
	Ephemeral          bool
	PriceFeed          PriceFeed
}

// NamedAccount 命名账户在各条链上对应的账户下标
type NamedAccount struct {
	Default int
	Chains  map[string]int
}

func (n NamedAccount) Index(chainID int64) int {
	if i, ok := n.Chains[strconv.FormatInt(chainID, 10)]; ok {
		return i
	}
	return n.Default
}

type GasReporter struct {
	Enabled       bool
	OutputFile    string
	NoColors      bool
	Currency      string
	Coinmarketcap string
}

type Redis struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type Node struct {
	Listen         string
	BlockStore     string // memory | redis
	MiningInterval time.Duration
	Redis          Redis
}

type Dev struct {
	Mnemonic string
	Count    int
	Balance  string
}

type Mocks struct {
	Decimals      uint8
	InitialAnswer string
}

type Etherscan struct {
	APIKey     string
	APIURL     string
	BrowserURL string
}

type Config struct {
	DefaultNetwork string
	Networks       map[string]Network
	NamedAccounts  map[string]NamedAccount
	GasReporter    GasReporter
	Node           Node
	Dev            Dev
	Mocks          Mocks
	Etherscan      Etherscan
}

// Load 读取配置。path 为空时使用 RootDir 下的 fundme.yaml（不存在则只用默认配置）
func Load(path string) (*Config, error) {
	envFile := filepath.Join(global.RootDir, ".env")
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	viper := viper2.New()
	viper.SetConfigType("yaml")
	if err := viper.ReadConfig(bytes.NewReader(expand(defaultConfig))); err != nil {
		return nil, fmt.Errorf("read default config: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = filepath.Join(global.RootDir, FileName)
	}
	if explicit || util.FileExists(path) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := viper.MergeConfig(bytes.NewReader(expand(data))); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		log.Debugf("config loaded from %s", path)
	}

	viper.SetEnvPrefix("FUNDME")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

// Default 只使用内置默认配置
func Default() *Config {
	viper := viper2.New()
	viper.SetConfigType("yaml")
	if err := viper.ReadConfig(bytes.NewReader(expand(defaultConfig))); err != nil {
		panic(err.Error())
	}
	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		panic(err.Error())
	}
	cfg.normalize()
	return cfg
}

func expand(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}

func (c *Config) normalize() {
	for name, n := range c.Networks {
		n.Name = name
		if n.BlockConfirmations < 1 {
			n.BlockConfirmations = 1
		}
		var accounts []string
		for _, a := range n.Accounts {
			if a = strings.TrimSpace(a); a != "" {
				accounts = append(accounts, a)
			}
		}
		n.Accounts = accounts
		c.Networks[name] = n
	}
	if c.Dev.Mnemonic == "" {
		c.Dev.Mnemonic = commoncon.DefaultMnemonic
	}
	if c.Dev.Count == 0 {
		c.Dev.Count = commoncon.DefaultAccountCount
	}
	if c.Dev.Balance == "" {
		c.Dev.Balance = commoncon.DefaultAccountBalance
	}
}

// Network 按名称查找网络，name 为空时使用 defaultNetwork
func (c *Config) Network(name string) (Network, error) {
	if name == "" {
		name = c.DefaultNetwork
	}
	n, ok := c.Networks[strings.ToLower(name)]
	if !ok {
		return Network{}, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
	}
	return n, nil
}

// NetworkNames 返回按名称排序的网络列表
func (c *Config) NetworkNames() []string {
	names := make([]string, 0, len(c.Networks))
	for name := range c.Networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
