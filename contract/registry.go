package contract

import (
	"fmt"
	"sort"
	"sync"
)

// Method 合约方法。Payable 方法才能接收转账，View 方法不能写存储
type Method struct {
	Fn      func(ctx *Context) (interface{}, error)
	Payable bool
	View    bool
}

// Artifact 相当于编译后的合约：构造函数加方法表
type Artifact struct {
	Name        string
	Source      string
	Constructor *Method
	Methods     map[string]Method
	Receive     *Method // 无方法名的转账
	Fallback    *Method // 没有方法匹配时执行
}

var (
	mu        sync.RWMutex
	artifacts = map[string]*Artifact{}
)

// Register 在 init() 中注册合约
func Register(a *Artifact) {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := artifacts[a.Name]; ok {
		panic(fmt.Sprintf("contract %s registered twice", a.Name))
	}
	artifacts[a.Name] = a
}

func Lookup(name string) (*Artifact, error) {
	mu.RLock()
	defer mu.RUnlock()
	a, ok := artifacts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrContractNotFound, name)
	}
	return a, nil
}

// Artifacts 返回已注册的合约名称
func Artifacts() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(artifacts))
	for name := range artifacts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// 根据方法名找到要执行的方法
func (a *Artifact) resolve(method string) (*Method, error) {
	if m, ok := a.Methods[method]; ok {
		return &m, nil
	}
	if method == "" && a.Receive != nil {
		return a.Receive, nil
	}
	if a.Fallback != nil {
		return a.Fallback, nil
	}
	return nil, Revert(fmt.Sprintf("%s has no method %q and no fallback", a.Name, method))
}
