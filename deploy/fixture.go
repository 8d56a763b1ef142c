package deploy

import (
	"context"

	"github.com/fundme/commoncon"
	"github.com/fundme/config"
	_ "github.com/fundme/contract/system/oracle"
	_ "github.com/fundme/contract/template/fundme"
	"github.com/fundme/levelDB"
)

// Fixture 新建一条进程内的 hardhat 链并执行指定标签的部署脚本，每次调用互不影响
func Fixture(ctx context.Context, cfg *config.Config, tags ...string) (*Runtime, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	network, err := cfg.Network(commoncon.HardhatNetwork)
	if err != nil {
		return nil, err
	}
	c, signers, err := NewLocalChain(cfg, network, nil)
	if err != nil {
		return nil, err
	}
	db, err := levelDB.OpenMem()
	if err != nil {
		return nil, err
	}
	rt := &Runtime{
		Config:      cfg,
		Network:     network,
		ChainID:     network.ChainID,
		Backend:     c,
		Local:       c,
		Signers:     signers,
		Deployments: db,
	}
	if err := Run(ctx, rt, tags...); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}
