package account

import (
	"errors"
	"math/big"
	"sort"

	"github.com/cloudflare/cfssl/log"
	"github.com/fundme/meta"
	"github.com/fundme/util"
)

/* 这里封装了所有的对账户的操作
 * 包括普通账户和合约账户，合约存储也挂在账户上，
 * 因此交易执行前 Copy() 一次即可在失败时整体回滚
 */

var ErrInsufficientBalance = errors.New("insufficient balance")

type State struct {
	Accounts map[string]*meta.Account // key: 账户地址
}

func NewState() *State {
	return &State{Accounts: map[string]*meta.Account{}}
}

// 创建普通账户
func (s *State) CreateAccount(address string, balance *big.Int) meta.Account {
	acc := s.getOrCreate(address)
	acc.Balance = new(big.Int).Set(balance)
	return *acc
}

// 创建智能合约账户
func (s *State) CreateContract(address, name string) meta.Account {
	acc := s.getOrCreate(address)
	acc.Data = meta.AccountData{
		ContractName: name,
		Storage:      map[string]string{},
		Immutables:   map[string]string{},
	}
	return *acc
}

func (s *State) getOrCreate(address string) *meta.Account {
	address = util.NormalizeAddress(address)
	acc, ok := s.Accounts[address]
	if !ok {
		acc = &meta.Account{Address: address, Balance: new(big.Int)}
		s.Accounts[address] = acc
	}
	return acc
}

func (s *State) get(address string) (*meta.Account, bool) {
	acc, ok := s.Accounts[util.NormalizeAddress(address)]
	return acc, ok
}

func (s *State) GetBalance(address string) *big.Int {
	acc, ok := s.get(address)
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(acc.Balance)
}

func (s *State) AddBalance(receiver string, amount *big.Int) {
	acc := s.getOrCreate(receiver)
	acc.Balance = new(big.Int).Add(acc.Balance, amount)
}

func (s *State) SubBalance(sender string, amount *big.Int) error {
	if !s.CanTransfer(sender, amount) {
		return ErrInsufficientBalance
	}
	acc := s.getOrCreate(sender)
	acc.Balance = new(big.Int).Sub(acc.Balance, amount)
	return nil
}

// 判断交易发起方是否有足够余额
func (s *State) CanTransfer(sender string, amount *big.Int) bool {
	if s.GetBalance(sender).Cmp(amount) < 0 {
		log.Debugf("[CanTransfer]: %s insufficient balance.", sender)
		return false
	}
	return true
}

func (s *State) Transfer(from, to string, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if err := s.SubBalance(from, amount); err != nil {
		return err
	}
	s.AddBalance(to, amount)
	return nil
}

func (s *State) GetNonce(address string) uint64 {
	acc, ok := s.get(address)
	if !ok {
		return 0
	}
	return acc.Nonce
}

func (s *State) IncNonce(address string) {
	s.getOrCreate(address).Nonce++
}

// 合约存储
func (s *State) GetStorage(address, key string) (string, bool) {
	acc, ok := s.get(address)
	if !ok || acc.Data.Storage == nil {
		return "", false
	}
	v, ok := acc.Data.Storage[key]
	return v, ok
}

func (s *State) SetStorage(address, key, value string) {
	acc := s.getOrCreate(address)
	if acc.Data.Storage == nil {
		acc.Data.Storage = map[string]string{}
	}
	acc.Data.Storage[key] = value
}

func (s *State) DeleteStorage(address, key string) {
	if acc, ok := s.get(address); ok && acc.Data.Storage != nil {
		delete(acc.Data.Storage, key)
	}
}

func (s *State) GetImmutable(address, key string) (string, bool) {
	acc, ok := s.get(address)
	if !ok || acc.Data.Immutables == nil {
		return "", false
	}
	v, ok := acc.Data.Immutables[key]
	return v, ok
}

func (s *State) SetImmutable(address, key, value string) {
	acc := s.getOrCreate(address)
	if acc.Data.Immutables == nil {
		acc.Data.Immutables = map[string]string{}
	}
	acc.Data.Immutables[key] = value
}

// 账户地址是否存在
func (s *State) ContainsAddress(address string) bool {
	_, ok := s.get(address)
	return ok
}

// 获取账户信息
func (s *State) GetAccount(address string) meta.Account {
	acc, ok := s.get(address)
	if !ok {
		return meta.Account{Address: util.NormalizeAddress(address), Balance: new(big.Int)}
	}
	return copyAccount(acc)
}

// 合约名称，非合约账户返回空
func (s *State) ContractName(address string) string {
	acc, ok := s.get(address)
	if !ok {
		return ""
	}
	return acc.Data.ContractName
}

func (s *State) IsContractAccount(address string) bool {
	return s.ContractName(address) != ""
}

// 获取所有的账户地址（有序）
func (s *State) GetTotalAddress() []string {
	totalAddress := make([]string, 0, len(s.Accounts))
	for address := range s.Accounts {
		totalAddress = append(totalAddress, address)
	}
	sort.Strings(totalAddress)
	return totalAddress
}

// Copy 深拷贝，用作交易执行前的快照
func (s *State) Copy() *State {
	cp := NewState()
	for k, acc := range s.Accounts {
		c := copyAccount(acc)
		cp.Accounts[k] = &c
	}
	return cp
}

func copyAccount(acc *meta.Account) meta.Account {
	c := meta.Account{
		Address: acc.Address,
		Balance: new(big.Int).Set(acc.Balance),
		Nonce:   acc.Nonce,
		Data:    meta.AccountData{ContractName: acc.Data.ContractName},
	}
	if acc.Data.Storage != nil {
		c.Data.Storage = make(map[string]string, len(acc.Data.Storage))
		for k, v := range acc.Data.Storage {
			c.Data.Storage[k] = v
		}
	}
	if acc.Data.Immutables != nil {
		c.Data.Immutables = make(map[string]string, len(acc.Data.Immutables))
		for k, v := range acc.Data.Immutables {
			c.Data.Immutables[k] = v
		}
	}
	return c
}
