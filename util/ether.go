package util

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

const EtherDecimals = 18

// ParseEther 将 "0.1" 这样的 ETH 数额转换为 wei
func ParseEther(s string) (*big.Int, error) {
	return ParseUnits(s, EtherDecimals)
}

func ParseUnits(s string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	shifted := d.Shift(decimals)
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, fmt.Errorf("amount %q has more than %d decimals", s, decimals)
	}
	return shifted.BigInt(), nil
}

// MustParseEther 仅用于常量
func MustParseEther(s string) *big.Int {
	v, err := ParseEther(s)
	if err != nil {
		panic(err)
	}
	return v
}

func FormatEther(wei *big.Int) string {
	return FormatUnits(wei, EtherDecimals)
}

func FormatUnits(v *big.Int, decimals int32) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -decimals).String()
}

// ParseBig 解析十进制整数字符串
func ParseBig(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return v, nil
}
