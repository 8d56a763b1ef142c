package deploy

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fundme/commoncon"
	"github.com/fundme/util"
)

var (
	ErrUnknownStrategy = errors.New("unknown price feed strategy")
	ErrNoPriceFeed     = errors.New("price feed address is not configured")
)

// PriceFeedStrategy 返回 FundMe 使用的价格源地址
type PriceFeedStrategy func(ctx context.Context, rt *Runtime) (string, error)

var (
	strategyMu sync.RWMutex
	strategies = map[string]PriceFeedStrategy{
		commoncon.PriceFeedStrategyMock:   mockPriceFeed,
		commoncon.PriceFeedStrategyStatic: staticPriceFeed,
	}
)

// RegisterStrategy 注册（或替换）一个价格源解析策略
func RegisterStrategy(name string, s PriceFeedStrategy) {
	strategyMu.Lock()
	defer strategyMu.Unlock()
	strategies[name] = s
}

// ResolvePriceFeed 按网络配置的策略解析价格源地址
func ResolvePriceFeed(ctx context.Context, rt *Runtime) (string, error) {
	name := rt.Network.PriceFeed.Strategy
	strategyMu.RLock()
	s, ok := strategies[name]
	strategyMu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w %q on network %s", ErrUnknownStrategy, name, rt.Network.Name)
	}
	return s(ctx, rt)
}

// UsesMock 该网络是否需要先部署模拟价格源
func UsesMock(rt *Runtime) bool {
	return rt.Network.PriceFeed.Strategy == commoncon.PriceFeedStrategyMock
}

// 使用已部署的 MockV3Aggregator
func mockPriceFeed(ctx context.Context, rt *Runtime) (string, error) {
	dep, err := rt.Get(commoncon.MockV3AggregatorName)
	if err != nil {
		return "", err
	}
	return dep.Address, nil
}

// 使用网络配置中的固定地址
func staticPriceFeed(ctx context.Context, rt *Runtime) (string, error) {
	addr := rt.Network.PriceFeed.Address
	if addr == "" {
		return "", fmt.Errorf("%w for network %s", ErrNoPriceFeed, rt.Network.Name)
	}
	if !util.IsAddress(addr) {
		return "", fmt.Errorf("invalid price feed address %q", addr)
	}
	return util.NormalizeAddress(addr), nil
}
