package deploy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/cloudflare/cfssl/log"
	"github.com/fundme/commoncon"
	"github.com/fundme/contract"
	"github.com/fundme/util"
	"github.com/fundme/verify"
)

// Script 一个部署步骤，按 Name 排序执行
type Script struct {
	Name string
	Tags []string
	Func func(ctx context.Context, rt *Runtime) error
}

var (
	scriptsMu sync.Mutex
	scripts   = map[string]Script{}
)

func Register(s Script) {
	scriptsMu.Lock()
	defer scriptsMu.Unlock()
	scripts[s.Name] = s
}

func init() {
	Register(Script{Name: "00_deploy_mocks", Tags: []string{commoncon.TagAll, commoncon.TagMocks}, Func: deployMocks})
	Register(Script{Name: "01_deploy_fund_me", Tags: []string{commoncon.TagAll, commoncon.TagFundMe}, Func: deployFundMe})
}

// Scripts 返回匹配任一标签的脚本，不指定标签时返回全部
func Scripts(tags ...string) []Script {
	scriptsMu.Lock()
	defer scriptsMu.Unlock()
	var selected []Script
	for _, s := range scripts {
		if len(tags) == 0 || hasTag(s, tags) {
			selected = append(selected, s)
		}
	}
	sort.Slice(selected, func(i, j int) bool { return selected[i].Name < selected[j].Name })
	return selected
}

func hasTag(s Script, tags []string) bool {
	for _, t := range tags {
		if util.Contains(s.Tags, t) {
			return true
		}
	}
	return false
}

// Run 依次执行脚本，遇到错误立即停止
func Run(ctx context.Context, rt *Runtime, tags ...string) error {
	for _, s := range Scripts(tags...) {
		log.Debugf("running deploy script %s", s.Name)
		if err := s.Func(ctx, rt); err != nil {
			return fmt.Errorf("%s: %w", s.Name, err)
		}
	}
	return nil
}

func deployMocks(ctx context.Context, rt *Runtime) error {
	if !UsesMock(rt) {
		return nil
	}
	deployer, err := rt.NamedAccount("deployer")
	if err != nil {
		return err
	}
	log.Info("Local network detected! Deploying mocks...")
	_, err = rt.Deploy(ctx, commoncon.MockV3AggregatorName, DeployOptions{
		From: deployer,
		Args: map[string]string{
			"decimals":      strconv.Itoa(int(rt.Config.Mocks.Decimals)),
			"initialAnswer": rt.Config.Mocks.InitialAnswer,
		},
		WaitConfirmations: 1,
	})
	if err != nil {
		return err
	}
	log.Info("Mocks Deployed!")
	log.Info("------------------------------------------------")
	return nil
}

func deployFundMe(ctx context.Context, rt *Runtime) error {
	deployer, err := rt.NamedAccount("deployer")
	if err != nil {
		return err
	}
	feed, err := ResolvePriceFeed(ctx, rt)
	if err != nil {
		return err
	}
	log.Info("----------------------------------------------------")
	log.Info("Deploying FundMe and waiting for confirmations...")
	dep, err := rt.Deploy(ctx, commoncon.FundMeName, DeployOptions{
		From:              deployer,
		Args:              map[string]string{"priceFeed": feed},
		WaitConfirmations: rt.Network.BlockConfirmations,
	})
	if err != nil {
		return err
	}
	log.Infof("FundMe deployed at %s", dep.Address)

	if !rt.Network.Ephemeral && rt.Verifier != nil {
		if err := Verify(ctx, rt, dep.Contract, dep.Address, dep.Args); err != nil {
			log.Warningf("verification of %s failed: %s", dep.Name, err)
		}
	}
	return nil
}

// Verify 提交合约源码验证
func Verify(ctx context.Context, rt *Runtime, contractName, address string, args map[string]string) error {
	if rt.Verifier == nil {
		return errors.New("no verifier configured")
	}
	artifact, err := contract.Lookup(contractName)
	if err != nil {
		return err
	}
	log.Info("Verifying contract...")
	return rt.Verifier.Verify(ctx, verify.Request{
		Address:         address,
		ContractName:    contractName,
		Source:          artifact.Source,
		ConstructorArgs: args,
	})
}
