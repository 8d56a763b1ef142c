// Package fundme 众筹合约。
//
// 任何人都可以向合约转账，但换算后不能低于 MinimumUSD；只有部署者可以提走全部余额，
// 提款的同时清空所有出资记录和出资人列表。
package fundme

import (
	_ "embed"
	"math/big"

	"github.com/fundme/commoncon"
	"github.com/fundme/contract"
)

//go:embed fundme.go
var source string

const (
	slotPriceFeed = "s_priceFeed"
	slotFunders   = "s_funders"
	slotAmounts   = "s_addressToAmountFunded"
	immOwner      = "i_owner"
)

var MinimumUSD, _ = new(big.Int).SetString(commoncon.MinimumUSD, 10)

var (
	ErrNotOwner        = contract.Revert("FundMe__NotOwner()")
	ErrNotEnoughFunds  = contract.Revert("Didn't send enough funds. Minimum is 50 USD in ETH")
	ErrInvalidPrice    = contract.Revert("invalid price")
	ErrIndexOutOfRange = contract.Revert("index out of bounds")
	ErrCallFailed      = contract.Revert("Call failed")
)

func init() {
	contract.Register(Artifact())
}

func Artifact() *contract.Artifact {
	fundMethod := contract.Method{Fn: fund, Payable: true}
	return &contract.Artifact{
		Name:        commoncon.FundMeName,
		Source:      source,
		Constructor: &contract.Method{Fn: construct},
		Methods: map[string]contract.Method{
			"fund":                    fundMethod,
			"withdrawAll":             {Fn: withdrawAll},
			"cheaperWithdrawAll":      {Fn: cheaperWithdrawAll},
			"s_priceFeed":             {View: true, Fn: priceFeed},
			"i_owner":                 {View: true, Fn: owner},
			"s_addressToAmountFunded": {View: true, Fn: amountFunded},
			"s_funders":               {View: true, Fn: funderAt},
			"getVersion":              {View: true, Fn: version},
			"MINIMUM_USD":             {View: true, Fn: func(*contract.Context) (interface{}, error) { return MinimumUSD, nil }},
		},
		Receive:  &fundMethod,
		Fallback: &fundMethod,
	}
}

// args: priceFeed
func construct(ctx *contract.Context) (interface{}, error) {
	feed, err := ctx.AddressArg("priceFeed")
	if err != nil {
		return nil, err
	}
	if err := ctx.SetImmutable(immOwner, ctx.Caller()); err != nil {
		return nil, err
	}
	return nil, ctx.Store(slotPriceFeed, feed)
}

func fund(ctx *contract.Context) (interface{}, error) {
	usd, err := getConversionRate(ctx, ctx.Value())
	if err != nil {
		return nil, err
	}
	if usd.Cmp(MinimumUSD) < 0 {
		return nil, ErrNotEnoughFunds
	}
	funder := ctx.Caller()
	key := contract.SlotKey(slotAmounts, funder)
	amount := new(big.Int)
	if _, err := ctx.Load(key, amount); err != nil {
		return nil, err
	}
	if err := ctx.Store(key, amount.Add(amount, ctx.Value())); err != nil {
		return nil, err
	}
	return nil, pushFunder(ctx, funder)
}

func pushFunder(ctx *contract.Context, funder string) error {
	var n uint64
	if _, err := ctx.Load(contract.SlotLength(slotFunders), &n); err != nil {
		return err
	}
	if err := ctx.Store(contract.SlotIndex(slotFunders, n), funder); err != nil {
		return err
	}
	return ctx.Store(contract.SlotLength(slotFunders), n+1)
}

func onlyOwner(ctx *contract.Context) error {
	var o string
	if err := ctx.Immutable(immOwner, &o); err != nil {
		return err
	}
	if ctx.Caller() != o {
		return ErrNotOwner
	}
	return nil
}

// withdrawAll 每次循环都从存储读取数组长度
func withdrawAll(ctx *contract.Context) (interface{}, error) {
	if err := onlyOwner(ctx); err != nil {
		return nil, err
	}
	var i uint64
	for {
		var n uint64
		if _, err := ctx.Load(contract.SlotLength(slotFunders), &n); err != nil {
			return nil, err
		}
		if i >= n {
			break
		}
		var funder string
		if _, err := ctx.Load(contract.SlotIndex(slotFunders, i), &funder); err != nil {
			return nil, err
		}
		if err := ctx.Delete(contract.SlotKey(slotAmounts, funder)); err != nil {
			return nil, err
		}
		i++
	}
	if err := clearFunders(ctx, i); err != nil {
		return nil, err
	}
	return nil, payOwner(ctx)
}

// cheaperWithdrawAll 先把出资人列表读入内存，结果与 withdrawAll 相同
func cheaperWithdrawAll(ctx *contract.Context) (interface{}, error) {
	if err := onlyOwner(ctx); err != nil {
		return nil, err
	}
	funders, err := loadFunders(ctx)
	if err != nil {
		return nil, err
	}
	for _, funder := range funders {
		if err := ctx.Delete(contract.SlotKey(slotAmounts, funder)); err != nil {
			return nil, err
		}
	}
	if err := clearFunders(ctx, uint64(len(funders))); err != nil {
		return nil, err
	}
	return nil, payOwner(ctx)
}

func loadFunders(ctx *contract.Context) ([]string, error) {
	var n uint64
	if _, err := ctx.Load(contract.SlotLength(slotFunders), &n); err != nil {
		return nil, err
	}
	funders := make([]string, 0, n)
	for i := uint64(0); i < n; i++ {
		var funder string
		if _, err := ctx.Load(contract.SlotIndex(slotFunders, i), &funder); err != nil {
			return nil, err
		}
		funders = append(funders, funder)
	}
	return funders, nil
}

// s_funders = new address[](0)
func clearFunders(ctx *contract.Context, n uint64) error {
	for i := uint64(0); i < n; i++ {
		if err := ctx.Delete(contract.SlotIndex(slotFunders, i)); err != nil {
			return err
		}
	}
	return ctx.Delete(contract.SlotLength(slotFunders))
}

func payOwner(ctx *contract.Context) error {
	var o string
	if err := ctx.Immutable(immOwner, &o); err != nil {
		return err
	}
	if err := ctx.Transfer(o, ctx.Balance()); err != nil {
		ctx.Infof("transfer to owner failed: %s", err)
		return ErrCallFailed
	}
	return nil
}

func priceFeed(ctx *contract.Context) (interface{}, error) {
	var feed string
	_, err := ctx.Load(slotPriceFeed, &feed)
	return feed, err
}

func owner(ctx *contract.Context) (interface{}, error) {
	var o string
	err := ctx.Immutable(immOwner, &o)
	return o, err
}

// args: funder
func amountFunded(ctx *contract.Context) (interface{}, error) {
	funder, err := ctx.AddressArg("funder")
	if err != nil {
		return nil, err
	}
	amount := new(big.Int)
	_, err = ctx.Load(contract.SlotKey(slotAmounts, funder), amount)
	return amount, err
}

// args: index；越界时回滚
func funderAt(ctx *contract.Context) (interface{}, error) {
	i, err := ctx.Uint64Arg("index")
	if err != nil {
		return nil, err
	}
	var n uint64
	if _, err := ctx.Load(contract.SlotLength(slotFunders), &n); err != nil {
		return nil, err
	}
	if i >= n {
		return nil, ErrIndexOutOfRange
	}
	var funder string
	_, err = ctx.Load(contract.SlotIndex(slotFunders, i), &funder)
	return funder, err
}

func version(ctx *contract.Context) (interface{}, error) {
	var feed string
	if _, err := ctx.Load(slotPriceFeed, &feed); err != nil {
		return nil, err
	}
	return ctx.Call(feed, "version", nil)
}
