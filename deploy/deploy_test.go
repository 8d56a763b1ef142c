package deploy

import (
	"context"
	"math/big"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fundme/commoncon"
	"github.com/fundme/config"
	"github.com/fundme/explorer"
	"github.com/fundme/verify"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestScriptOrderAndTags(t *testing.T) {
	names := func(ss []Script) []string {
		var out []string
		for _, s := range ss {
			out = append(out, s.Name)
		}
		return out
	}
	assert.DeepEqual(t, names(Scripts()), []string{"00_deploy_mocks", "01_deploy_fund_me"})
	assert.DeepEqual(t, names(Scripts(commoncon.TagAll)), []string{"00_deploy_mocks", "01_deploy_fund_me"})
	assert.DeepEqual(t, names(Scripts(commoncon.TagMocks)), []string{"00_deploy_mocks"})
	assert.DeepEqual(t, names(Scripts(commoncon.TagFundMe)), []string{"01_deploy_fund_me"})
	assert.Assert(t, is.Len(Scripts("nothing"), 0))
}

func TestFixtureDeploysMockThenFundMe(t *testing.T) {
	ctx := context.Background()
	rt, err := Fixture(ctx, nil, commoncon.TagAll)
	assert.NilError(t, err)
	defer rt.Close()

	feed, err := rt.Get(commoncon.MockV3AggregatorName)
	assert.NilError(t, err)
	fm, err := rt.Get(commoncon.FundMeName)
	assert.NilError(t, err)
	assert.Assert(t, feed.BlockHeight < fm.BlockHeight)
	assert.Equal(t, fm.Args["priceFeed"], feed.Address)

	// chain 31337 上 deployer 是 1 号账户
	deployer, err := rt.NamedAccount("deployer")
	assert.NilError(t, err)
	assert.Equal(t, deployer.Address, rt.Signers[1].Address)
	assert.Equal(t, fm.Deployer, deployer.Address)

	c, err := rt.Contract(commoncon.FundMeName, deployer)
	assert.NilError(t, err)
	var priceFeed string
	assert.NilError(t, c.Call(ctx, "s_priceFeed", nil, &priceFeed))
	assert.Equal(t, priceFeed, feed.Address)

	var answer *big.Int
	mock, err := rt.Contract(commoncon.MockV3AggregatorName, nil)
	assert.NilError(t, err)
	assert.NilError(t, mock.Call(ctx, "latestAnswer", nil, &answer))
	assert.Equal(t, answer.String(), commoncon.InitialAnswer)
}

func TestFundMeWithoutMockFails(t *testing.T) {
	_, err := Fixture(context.Background(), nil, commoncon.TagFundMe)
	assert.ErrorContains(t, err, "no deployment found for MockV3Aggregator")
}

func staticConfig(address string) *config.Config {
	cfg := config.Default()
	n := cfg.Networks[commoncon.HardhatNetwork]
	n.PriceFeed = config.PriceFeed{Strategy: commoncon.PriceFeedStrategyStatic, Address: address}
	cfg.Networks[commoncon.HardhatNetwork] = n
	return cfg
}

func TestStaticStrategySkipsMock(t *testing.T) {
	const feed = "0xD4a33860578De61DBAbDc8BFdb98FD742fA7028e"
	rt, err := Fixture(context.Background(), staticConfig(feed), commoncon.TagAll)
	assert.NilError(t, err)
	defer rt.Close()

	_, err = rt.Get(commoncon.MockV3AggregatorName)
	assert.Assert(t, err != nil)
	fm, err := rt.Get(commoncon.FundMeName)
	assert.NilError(t, err)
	assert.Equal(t, fm.Args["priceFeed"], "0xd4a33860578de61dbabdc8bfdb98fd742fa7028e")
}

func TestStaticStrategyNeedsAddress(t *testing.T) {
	_, err := Fixture(context.Background(), staticConfig(""), commoncon.TagAll)
	assert.ErrorIs(t, err, ErrNoPriceFeed)
}

func TestUnknownStrategy(t *testing.T) {
	cfg := config.Default()
	n := cfg.Networks[commoncon.HardhatNetwork]
	n.PriceFeed.Strategy = "oracle-network"
	cfg.Networks[commoncon.HardhatNetwork] = n
	_, err := Fixture(context.Background(), cfg, commoncon.TagAll)
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestRegisterStrategy(t *testing.T) {
	const name = "first-account"
	RegisterStrategy(name, func(ctx context.Context, rt *Runtime) (string, error) {
		return rt.Signers[0].Address, nil
	})
	cfg := config.Default()
	n := cfg.Networks[commoncon.HardhatNetwork]
	n.PriceFeed.Strategy = name
	cfg.Networks[commoncon.HardhatNetwork] = n

	rt, err := Fixture(context.Background(), cfg, commoncon.TagAll)
	assert.NilError(t, err)
	defer rt.Close()
	fm, err := rt.Get(commoncon.FundMeName)
	assert.NilError(t, err)
	assert.Equal(t, fm.Args["priceFeed"], rt.Signers[0].Address)
}

type failingVerifier struct{ calls int }

func (f *failingVerifier) Verify(context.Context, verify.Request) error {
	f.calls++
	return verify.ErrVerificationFailed
}

// 非临时网络上验证失败不影响部署结果
func TestVerificationFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	rt, err := Fixture(ctx, nil, commoncon.TagMocks)
	assert.NilError(t, err)
	defer rt.Close()

	v := &failingVerifier{}
	rt.Verifier = v
	rt.Network.Ephemeral = false
	rt.Network.BlockConfirmations = 2

	done := make(chan error, 1)
	go func() { done <- Run(ctx, rt, commoncon.TagFundMe) }()
	// 等待第二个确认块
	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = rt.Local.Mine(ctx, 1)
	}()
	select {
	case err := <-done:
		assert.NilError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("deploy did not finish")
	}
	assert.Equal(t, v.calls, 1)
	_, err = rt.Get(commoncon.FundMeName)
	assert.NilError(t, err)
}

func TestVerifyAgainstExplorer(t *testing.T) {
	ctx := context.Background()
	rt, err := Fixture(ctx, nil, commoncon.TagAll)
	assert.NilError(t, err)
	defer rt.Close()

	srv := explorer.New(func(ctx context.Context, address string) (string, bool) {
		for _, a := range rt.Local.Accounts() {
			if a.Address == address && a.IsContract() {
				return a.Data.ContractName, true
			}
		}
		return "", false
	}, "key")
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()
	client := verify.NewClient(ts.URL+"/api", "key")
	client.PollInterval = 10 * time.Millisecond
	rt.Verifier = client

	fm, err := rt.Get(commoncon.FundMeName)
	assert.NilError(t, err)
	assert.NilError(t, Verify(ctx, rt, fm.Contract, fm.Address, fm.Args))
	assert.Assert(t, srv.Verified(fm.Address))
}
