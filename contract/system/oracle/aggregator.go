// Package oracle 本地网络使用的价格源合约。
//
// MockV3Aggregator 的接口与 Chainlink 的 AggregatorV3Interface 一致，
// 部署时指定小数位数和初始价格，之后可以通过 updateAnswer 修改。
package oracle

import (
	_ "embed"
	"math/big"

	"github.com/fundme/commoncon"
	"github.com/fundme/contract"
)

//go:embed aggregator.go
var source string

const Version = 0
const Description = "v0.6/tests/MockV3Aggregator.sol"

// 存储槽
const (
	slotDecimals        = "decimals"
	slotLatestAnswer    = "latestAnswer"
	slotLatestTimestamp = "latestTimestamp"
	slotLatestRound     = "latestRound"
	slotAnswers         = "getAnswer"
	slotTimestamps      = "getTimestamp"
	slotStartedAt       = "getStartedAt"
)

// RoundData latestRoundData 的返回值
type RoundData struct {
	RoundID         uint64   `json:"roundId"`
	Answer          *big.Int `json:"answer"`
	StartedAt       int64    `json:"startedAt"`
	UpdatedAt       int64    `json:"updatedAt"`
	AnsweredInRound uint64   `json:"answeredInRound"`
}

func init() {
	contract.Register(Artifact())
}

func Artifact() *contract.Artifact {
	return &contract.Artifact{
		Name:        commoncon.MockV3AggregatorName,
		Source:      source,
		Constructor: &contract.Method{Fn: construct},
		Methods: map[string]contract.Method{
			"decimals":        {View: true, Fn: decimals},
			"latestAnswer":    {View: true, Fn: latestAnswer},
			"latestRound":     {View: true, Fn: latestRound},
			"latestRoundData": {View: true, Fn: latestRoundData},
			"getRoundData":    {View: true, Fn: getRoundData},
			"updateAnswer":    {Fn: updateAnswer},
			"version":         {View: true, Fn: func(*contract.Context) (interface{}, error) { return Version, nil }},
			"description":     {View: true, Fn: func(*contract.Context) (interface{}, error) { return Description, nil }},
		},
	}
}

// args: decimals, initialAnswer
func construct(ctx *contract.Context) (interface{}, error) {
	d, err := ctx.Uint64Arg("decimals")
	if err != nil {
		return nil, err
	}
	if d > 77 {
		return nil, contract.Revert("decimals out of range")
	}
	if err := ctx.Store(slotDecimals, d); err != nil {
		return nil, err
	}
	answer, err := ctx.BigArg("initialAnswer")
	if err != nil {
		return nil, err
	}
	return nil, setAnswer(ctx, answer)
}

func updateAnswer(ctx *contract.Context) (interface{}, error) {
	answer, err := ctx.BigArg("answer")
	if err != nil {
		return nil, err
	}
	return nil, setAnswer(ctx, answer)
}

func setAnswer(ctx *contract.Context, answer *big.Int) error {
	var round uint64
	if _, err := ctx.Load(slotLatestRound, &round); err != nil {
		return err
	}
	round++
	now := ctx.BlockTimestamp()
	writes := []struct {
		key string
		v   interface{}
	}{
		{slotLatestAnswer, answer},
		{slotLatestTimestamp, now},
		{slotLatestRound, round},
		{contract.SlotIndex(slotAnswers, round), answer},
		{contract.SlotIndex(slotTimestamps, round), now},
		{contract.SlotIndex(slotStartedAt, round), now},
	}
	for _, w := range writes {
		if err := ctx.Store(w.key, w.v); err != nil {
			return err
		}
	}
	return nil
}

func decimals(ctx *contract.Context) (interface{}, error) {
	var d uint64
	_, err := ctx.Load(slotDecimals, &d)
	return d, err
}

func latestAnswer(ctx *contract.Context) (interface{}, error) {
	answer := new(big.Int)
	_, err := ctx.Load(slotLatestAnswer, answer)
	return answer, err
}

func latestRound(ctx *contract.Context) (interface{}, error) {
	var round uint64
	_, err := ctx.Load(slotLatestRound, &round)
	return round, err
}

func latestRoundData(ctx *contract.Context) (interface{}, error) {
	var round uint64
	if _, err := ctx.Load(slotLatestRound, &round); err != nil {
		return nil, err
	}
	return roundData(ctx, round)
}

func getRoundData(ctx *contract.Context) (interface{}, error) {
	round, err := ctx.Uint64Arg("roundId")
	if err != nil {
		return nil, err
	}
	return roundData(ctx, round)
}

func roundData(ctx *contract.Context, round uint64) (RoundData, error) {
	rd := RoundData{RoundID: round, AnsweredInRound: round, Answer: new(big.Int)}
	if _, err := ctx.Load(contract.SlotIndex(slotAnswers, round), rd.Answer); err != nil {
		return rd, err
	}
	if _, err := ctx.Load(contract.SlotIndex(slotStartedAt, round), &rd.StartedAt); err != nil {
		return rd, err
	}
	if _, err := ctx.Load(contract.SlotIndex(slotTimestamps, round), &rd.UpdatedAt); err != nil {
		return rd, err
	}
	return rd, nil
}
