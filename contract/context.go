package contract

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"

	"github.com/cloudflare/cfssl/log"
	"github.com/fundme/util"
)

const ConstructorMethod = "constructor"

// 合约调用上下文
type Context struct {
	env      *Env
	name     string            // 当前执行的合约的名称
	address  string            // 合约地址
	method   string            // 被调用的方法
	args     map[string]string // 参数
	caller   string            // 调用者地址（合约账户、外部账户）
	origin   string            // 最初调用者（外部账户），如果不涉及合约调用合约，那么 Caller == Origin
	value    *big.Int          // 调用合约时的转账金额
	readOnly bool
	depth    int
}

// 返回调用者地址（合约账户、外部账户）
func (c *Context) Caller() string {
	return c.caller
}

// 返回交易发起者的地址。这是一个不随着调用深度变化的值
// 例：账户alice调用了A合约，A合约调用了B合约，Origin()得到的都是alice的账户地址。
func (c *Context) Origin() string {
	return c.origin
}

// 返回调用合约时转入了多少资产
func (c *Context) Value() *big.Int {
	return new(big.Int).Set(c.value)
}

// 返回当前合约的地址
func (c *Context) Self() string {
	return c.address
}

// 返回合约的名称
func (c *Context) Name() string {
	return c.name
}

func (c *Context) Method() string {
	return c.method
}

// 返回当前合约拥有多少资产
func (c *Context) Balance() *big.Int {
	return c.env.State.GetBalance(c.address)
}

func (c *Context) BlockTimestamp() int64 {
	return c.env.Block.Timestamp
}

func (c *Context) BlockHeight() uint64 {
	return c.env.Block.Height
}

// Arg 返回字符串参数，缺失时回滚
func (c *Context) Arg(key string) (string, error) {
	v, ok := c.args[key]
	if !ok {
		return "", Revert(fmt.Sprintf("missing argument %q", key))
	}
	return v, nil
}

func (c *Context) AddressArg(key string) (string, error) {
	v, err := c.Arg(key)
	if err != nil {
		return "", err
	}
	if !util.IsAddress(v) {
		return "", Revert(fmt.Sprintf("argument %q is not an address", key))
	}
	return util.NormalizeAddress(v), nil
}

func (c *Context) BigArg(key string) (*big.Int, error) {
	v, err := c.Arg(key)
	if err != nil {
		return nil, err
	}
	n, err := util.ParseBig(v)
	if err != nil {
		return nil, Revert(fmt.Sprintf("argument %q: %s", key, err))
	}
	return n, nil
}

func (c *Context) Uint64Arg(key string) (uint64, error) {
	v, err := c.Arg(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, Revert(fmt.Sprintf("argument %q: %s", key, err))
	}
	return n, nil
}

// Load 读取存储槽，槽为空时返回 false
func (c *Context) Load(key string, v interface{}) (bool, error) {
	if err := c.env.Gas.ConsumeSload(c.address, key); err != nil {
		return false, err
	}
	raw, ok := c.env.State.GetStorage(c.address, key)
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal([]byte(raw), v)
}

// Store 写入存储槽
func (c *Context) Store(key string, v interface{}) error {
	if c.readOnly {
		return ErrWriteProtection
	}
	_, exists := c.env.State.GetStorage(c.address, key)
	if err := c.env.Gas.ConsumeSstore(c.address, key, exists); err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.env.State.SetStorage(c.address, key, string(raw))
	return nil
}

// Delete 清空存储槽（等价于写入零值）
func (c *Context) Delete(key string) error {
	if c.readOnly {
		return ErrWriteProtection
	}
	_, exists := c.env.State.GetStorage(c.address, key)
	if !exists {
		return c.env.Gas.ConsumeSload(c.address, key)
	}
	if err := c.env.Gas.ConsumeSstore(c.address, key, true); err != nil {
		return err
	}
	c.env.State.DeleteStorage(c.address, key)
	return nil
}

// 只能在构造函数中写入
func (c *Context) SetImmutable(key string, v interface{}) error {
	if c.method != ConstructorMethod {
		return Revert("immutable written outside constructor")
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.env.State.SetImmutable(c.address, key, string(raw))
	return nil
}

// 读取 immutable 不消耗存储读取的 gas
func (c *Context) Immutable(key string, v interface{}) error {
	raw, ok := c.env.State.GetImmutable(c.address, key)
	if !ok {
		return fmt.Errorf("immutable %q not set", key)
	}
	return json.Unmarshal([]byte(raw), v)
}

func (c *Context) Infof(format string, args ...interface{}) {
	log.Infof("[%s.%s] "+format, append([]interface{}{c.name, c.method}, args...)...)
}

// SlotIndex 数组元素的存储槽
func SlotIndex(name string, i uint64) string {
	return name + "[" + strconv.FormatUint(i, 10) + "]"
}

// SlotKey mapping 元素的存储槽
func SlotKey(name, key string) string {
	return name + "[" + key + "]"
}

// SlotLength 数组长度的存储槽
func SlotLength(name string) string {
	return name + ".length"
}
