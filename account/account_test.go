package account

import (
	"math/big"
	"testing"

	"gotest.tools/v3/assert"
)

const (
	alice = "0x00000000000000000000000000000000000000a1"
	bob   = "0x00000000000000000000000000000000000000b2"
)

func TestTransfer(t *testing.T) {
	s := NewState()
	s.CreateAccount(alice, big.NewInt(100))

	assert.NilError(t, s.Transfer(alice, bob, big.NewInt(40)))
	assert.Equal(t, s.GetBalance(alice).Int64(), int64(60))
	assert.Equal(t, s.GetBalance(bob).Int64(), int64(40))

	assert.ErrorIs(t, s.Transfer(bob, alice, big.NewInt(41)), ErrInsufficientBalance)
	assert.Equal(t, s.GetBalance(bob).Int64(), int64(40))
}

func TestCopyIsDeep(t *testing.T) {
	s := NewState()
	s.CreateAccount(alice, big.NewInt(10))
	s.CreateContract(bob, "FundMe")
	s.SetStorage(bob, "slot", "1")

	snap := s.Copy()
	s.AddBalance(alice, big.NewInt(5))
	s.SetStorage(bob, "slot", "2")
	s.IncNonce(alice)

	assert.Equal(t, snap.GetBalance(alice).Int64(), int64(10))
	v, ok := snap.GetStorage(bob, "slot")
	assert.Assert(t, ok)
	assert.Equal(t, v, "1")
	assert.Equal(t, snap.GetNonce(alice), uint64(0))
}

func TestAddressesAreCaseInsensitive(t *testing.T) {
	s := NewState()
	s.CreateAccount("0x00000000000000000000000000000000000000AA", big.NewInt(1))
	assert.Assert(t, s.ContainsAddress("0x00000000000000000000000000000000000000aa"))
	assert.Equal(t, s.GetBalance("00000000000000000000000000000000000000aa").Int64(), int64(1))
}

func TestContractAccount(t *testing.T) {
	s := NewState()
	s.CreateContract(bob, "MockV3Aggregator")
	assert.Assert(t, s.IsContractAccount(bob))
	assert.Assert(t, !s.IsContractAccount(alice))
	assert.Equal(t, s.ContractName(bob), "MockV3Aggregator")
	assert.DeepEqual(t, s.GetTotalAddress(), []string{bob})
}
