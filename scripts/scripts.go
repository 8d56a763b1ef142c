// Package scripts 对已部署的 FundMe 执行出资和提款。
package scripts

import (
	"context"

	"github.com/cloudflare/cfssl/log"
	"github.com/fundme/commoncon"
	"github.com/fundme/deploy"
	"github.com/fundme/meta"
	"github.com/fundme/provider"
	"github.com/fundme/util"
)

func fundMe(rt *deploy.Runtime) (*provider.Contract, error) {
	deployer, err := rt.NamedAccount("deployer")
	if err != nil {
		return nil, err
	}
	c, err := rt.Contract(commoncon.FundMeName, deployer)
	if err != nil {
		return nil, err
	}
	log.Infof("Got contract FundMe at %s", c.Address)
	return c, nil
}

// Fund 以 deployer 身份向 FundMe 转入 0.1 ETH
func Fund(ctx context.Context, rt *deploy.Runtime) (*meta.Receipt, error) {
	c, err := fundMe(rt)
	if err != nil {
		return nil, err
	}
	value, err := util.ParseEther(commoncon.DefaultFundValue)
	if err != nil {
		return nil, err
	}
	log.Info("Funding contract...")
	p, err := c.Transact(ctx, "fund", &provider.TransactOpts{Value: value}, nil)
	if err != nil {
		return nil, err
	}
	r, err := p.Wait(ctx, 1)
	if err != nil {
		return nil, err
	}
	log.Info("Funded!")
	return r, nil
}

// Withdraw 以 deployer 身份提走全部余额
func Withdraw(ctx context.Context, rt *deploy.Runtime) (*meta.Receipt, error) {
	c, err := fundMe(rt)
	if err != nil {
		return nil, err
	}
	log.Info("Withdrawing...")
	p, err := c.Transact(ctx, "withdrawAll", nil, nil)
	if err != nil {
		return nil, err
	}
	r, err := p.Wait(ctx, 1)
	if err != nil {
		return nil, err
	}
	log.Info("Withdrawn!")
	return r, nil
}
