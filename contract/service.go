package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/cloudflare/cfssl/log"
	"github.com/fundme/meta"
	"github.com/fundme/util"
)

/*
 * 区块链提供给合约的接口
 */

const maxCallDepth = 64

// StateDB 合约执行时能看到的账户状态
type StateDB interface {
	GetBalance(address string) *big.Int
	Transfer(from, to string, amount *big.Int) error
	GetStorage(address, key string) (string, bool)
	SetStorage(address, key, value string)
	DeleteStorage(address, key string)
	GetImmutable(address, key string) (string, bool)
	SetImmutable(address, key, value string)
	ContractName(address string) string
	CreateContract(address, name string) meta.Account
}

// Env 一笔交易的执行环境
type Env struct {
	State StateDB
	Gas   *GasMeter
	Block BlockInfo
}

// BlockInfo 当前打包区块的信息
type BlockInfo struct {
	Height    uint64
	Timestamp int64
}

// Message 一次外部调用
type Message struct {
	From     string
	To       string
	Method   string
	Args     map[string]string
	Value    *big.Int
	ReadOnly bool
}

// Create 在 address 上部署合约并执行构造函数
func (e *Env) Create(artifact *Artifact, address string, msg Message) error {
	address = util.NormalizeAddress(address)
	e.State.CreateContract(address, artifact.Name)
	ctx := e.newContext(artifact.Name, address, ConstructorMethod, msg.From, msg.From, msg.Args, msg.Value, false, 0)
	if err := e.transferValue(ctx, artifact.Constructor); err != nil {
		return err
	}
	if artifact.Constructor == nil {
		return nil
	}
	_, err := invoke(ctx, artifact.Constructor)
	return err
}

// Execute 外部账户调用合约
func (e *Env) Execute(msg Message) (interface{}, error) {
	return e.call(msg.From, msg.From, util.NormalizeAddress(msg.To), msg.Method, msg.Args, msg.Value, msg.ReadOnly, 0)
}

func (e *Env) call(caller, origin, to, method string, args map[string]string, value *big.Int, readOnly bool, depth int) (interface{}, error) {
	if depth > maxCallDepth {
		return nil, ErrMaxCallDepth
	}
	name := e.State.ContractName(to)
	if name == "" {
		// 向外部账户转账
		if value != nil && value.Sign() > 0 && !readOnly {
			return nil, wrap(e.State.Transfer(caller, to, value))
		}
		return nil, nil
	}
	artifact, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	m, err := artifact.resolve(method)
	if err != nil {
		return nil, err
	}
	ctx := e.newContext(name, to, method, caller, origin, args, value, readOnly || m.View, depth)
	if err := e.transferValue(ctx, m); err != nil {
		return nil, err
	}
	return invoke(ctx, m)
}

func (e *Env) newContext(name, address, method, caller, origin string, args map[string]string, value *big.Int, readOnly bool, depth int) *Context {
	if value == nil {
		value = new(big.Int)
	}
	if args == nil {
		args = map[string]string{}
	}
	return &Context{
		env:      e,
		name:     name,
		address:  address,
		method:   method,
		args:     args,
		caller:   util.NormalizeAddress(caller),
		origin:   util.NormalizeAddress(origin),
		value:    new(big.Int).Set(value),
		readOnly: readOnly,
		depth:    depth,
	}
}

// 调用前先把转账金额转入合约
func (e *Env) transferValue(ctx *Context, m *Method) error {
	if ctx.value.Sign() == 0 {
		return nil
	}
	if m == nil || !m.Payable || ctx.readOnly {
		return ErrNonPayable
	}
	return wrap(e.State.Transfer(ctx.caller, ctx.address, ctx.value))
}

func invoke(ctx *Context, m *Method) (res interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("[%s.%s] panic: %v", ctx.name, ctx.method, r)
			res, err = nil, Revert(fmt.Sprint(r))
		}
	}()
	res, err = m.Fn(ctx)
	if err != nil {
		log.Debugf("[%s.%s] reverted: %s", ctx.name, ctx.method, err)
		return nil, wrap(err)
	}
	return res, nil
}

// 合约内部错误统一转为回滚，out of gas 保持原样
func wrap(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrOutOfGas) || errors.Is(err, ErrReverted) {
		return err
	}
	return &RevertError{Reason: err.Error(), cause: err}
}

// Decode 将合约返回值转换为指定类型（跨合约调用和 RPC 返回的数据格式一致）
func Decode(res interface{}, out interface{}) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// Call 当前合约调用其他合约的只读方法（staticcall）
func (c *Context) Call(to, method string, args map[string]string) (interface{}, error) {
	to = util.NormalizeAddress(to)
	if err := c.env.Gas.ConsumeCall(to, false); err != nil {
		return nil, err
	}
	return c.env.call(c.address, c.origin, to, method, args, nil, true, c.depth+1)
}

// Transfer 当前合约向 to 账户转账
func (c *Context) Transfer(to string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	if c.readOnly {
		return ErrWriteProtection
	}
	to = util.NormalizeAddress(to)
	if err := c.env.Gas.ConsumeCall(to, true); err != nil {
		return err
	}
	if c.env.State.ContractName(to) != "" {
		// 接收方是合约时触发 receive
		_, err := c.env.call(c.address, c.origin, to, "", nil, amount, false, c.depth+1)
		return err
	}
	if err := c.env.State.Transfer(c.address, to, amount); err != nil {
		return Revert("合约账户余额不足，无法转账")
	}
	return nil
}
