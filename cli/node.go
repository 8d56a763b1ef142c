package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cloudflare/cfssl/log"
	"github.com/fundme/chain"
	"github.com/fundme/commoncon"
	"github.com/fundme/config"
	"github.com/fundme/deploy"
	"github.com/fundme/explorer"
	"github.com/fundme/global"
	"github.com/fundme/levelDB"
	"github.com/fundme/redis"
	"github.com/fundme/rpc"
	"github.com/fundme/util"
	"github.com/fundme/wallet"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	nodeListen     string
	nodeExplorer   string
	nodeNoDeploy   bool
	nodeDeployTags []string
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Start a local development node",
	Long: `Starts an in-process chain for the localhost network, runs the deploy
scripts against it and serves it over HTTP and WebSocket until interrupted.

Blocks are stored in memory, or in redis when node.blockStore is "redis".
With node.miningInterval set, empty blocks are mined on that interval.`,
	RunE: runNode,
}

func init() {
	nodeCmd.Flags().StringVar(&nodeListen, "listen", "", "listen address (default is node.listen in config)")
	nodeCmd.Flags().StringVar(&nodeExplorer, "explorer", "", "also serve a local verification explorer on this address")
	nodeCmd.Flags().BoolVar(&nodeNoDeploy, "no-deploy", false, "do not run the deploy scripts on start")
	nodeCmd.Flags().StringSliceVar(&nodeDeployTags, "tags", []string{commoncon.TagAll}, "deploy script tags to run on start")
}

func runNode(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	network, err := cfg.Network(commoncon.LocalhostNetwork)
	if err != nil {
		return err
	}
	listen := nodeListen
	if listen == "" {
		listen = cfg.Node.Listen
	}

	store, closeStore, err := blockStore(ctx, network)
	if err != nil {
		return err
	}
	defer closeStore()

	c, signers, err := deploy.NewLocalChain(cfg, network, store)
	if err != nil {
		return err
	}
	printAccounts(cmd, c, signers)

	if !nodeNoDeploy {
		if err := deployOnStart(ctx, network, c, signers); err != nil {
			return err
		}
	}

	c.StartIntervalMining(ctx, cfg.Node.MiningInterval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return rpc.NewServer(c).ListenAndServe(gctx, listen)
	})
	if nodeExplorer != "" {
		lookup := func(ctx context.Context, address string) (string, bool) {
			acc, err := c.AccountAt(ctx, address)
			if err != nil || !acc.IsContract() {
				return "", false
			}
			return acc.Data.ContractName, true
		}
		g.Go(func() error {
			return explorer.New(lookup, cfg.Etherscan.APIKey).ListenAndServe(gctx, nodeExplorer)
		})
	}
	err = g.Wait()
	writeGasReport(c)
	return err
}

func blockStore(ctx context.Context, network config.Network) (chain.BlockStore, func(), error) {
	if cfg.Node.BlockStore != "redis" {
		return nil, func() {}, nil
	}
	r := cfg.Node.Redis
	rdb := redis.NewClient(r.Addr, r.Password, r.DB)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", r.Addr, err)
	}
	bs := redis.NewBlockStore(rdb, r.Prefix+":"+network.Name)
	if err := bs.Reset(ctx); err != nil {
		rdb.Close()
		return nil, nil, err
	}
	log.Infof("storing blocks in redis %s", r.Addr)
	return bs, func() { rdb.Close() }, nil
}

// 节点每次启动都是新链，旧的部署记录先清掉
func deployOnStart(ctx context.Context, network config.Network, c *chain.Chain, signers []*wallet.Signer) error {
	db, err := levelDB.Open(filepath.Join(global.RootDir, "deployments", network.Name))
	if err != nil {
		return err
	}
	rt := &deploy.Runtime{
		Config:      cfg,
		Network:     network,
		ChainID:     network.ChainID,
		Backend:     c,
		Local:       c,
		Signers:     signers,
		Deployments: db,
	}
	defer rt.Close()

	stale, err := db.Deployments()
	if err != nil {
		return err
	}
	for _, d := range stale {
		if err := db.DeleteDeployment(d.Name); err != nil {
			return err
		}
	}
	return deploy.Run(ctx, rt, nodeDeployTags...)
}

func printAccounts(cmd *cobra.Command, c *chain.Chain, signers []*wallet.Signer) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Accounts")
	fmt.Fprintln(out, "========")
	ctx := context.Background()
	for i, s := range signers {
		bal, _ := c.BalanceAt(ctx, s.Address)
		fmt.Fprintf(out, "Account #%d: %s (%s ETH)\n", i, s.Address, util.FormatEther(bal))
	}
	fmt.Fprintln(out)
}
