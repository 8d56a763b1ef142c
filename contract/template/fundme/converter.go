package fundme

import (
	"math/big"

	"github.com/fundme/contract"
)

var ether = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// ScalePrice 把价格源的答案统一为18位小数
func ScalePrice(answer *big.Int, decimals uint64) *big.Int {
	switch {
	case decimals < 18:
		f := new(big.Int).Exp(big.NewInt(10), new(big.Int).SetUint64(18-decimals), nil)
		return new(big.Int).Mul(answer, f)
	case decimals > 18:
		f := new(big.Int).Exp(big.NewInt(10), new(big.Int).SetUint64(decimals-18), nil)
		return new(big.Int).Quo(answer, f)
	}
	return new(big.Int).Set(answer)
}

// ConversionRate 以 wei 计的金额换算为 USD（18位小数）
func ConversionRate(price, ethAmount *big.Int) *big.Int {
	usd := new(big.Int).Mul(price, ethAmount)
	return usd.Quo(usd, ether)
}

// 从价格源读取最新价格
func getPrice(ctx *contract.Context) (*big.Int, error) {
	var feed string
	if _, err := ctx.Load(slotPriceFeed, &feed); err != nil {
		return nil, err
	}
	res, err := ctx.Call(feed, "latestRoundData", nil)
	if err != nil {
		return nil, err
	}
	var rd struct {
		Answer *big.Int `json:"answer"`
	}
	if err := contract.Decode(res, &rd); err != nil {
		return nil, err
	}
	if rd.Answer == nil || rd.Answer.Sign() <= 0 {
		return nil, ErrInvalidPrice
	}
	res, err = ctx.Call(feed, "decimals", nil)
	if err != nil {
		return nil, err
	}
	var decimals uint64
	if err := contract.Decode(res, &decimals); err != nil {
		return nil, err
	}
	return ScalePrice(rd.Answer, decimals), nil
}

func getConversionRate(ctx *contract.Context, ethAmount *big.Int) (*big.Int, error) {
	price, err := getPrice(ctx)
	if err != nil {
		return nil, err
	}
	return ConversionRate(price, ethAmount), nil
}
