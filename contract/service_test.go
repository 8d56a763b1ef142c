package contract_test

import (
	"math/big"
	"testing"

	"github.com/fundme/account"
	"github.com/fundme/contract"
	"gotest.tools/v3/assert"
)

const (
	user    = "0x00000000000000000000000000000000000000a1"
	counter = "0x00000000000000000000000000000000000000c1"
	reader  = "0x00000000000000000000000000000000000000c2"
)

func init() {
	contract.Register(&contract.Artifact{
		Name: "TestCounter",
		Constructor: &contract.Method{Fn: func(ctx *contract.Context) (interface{}, error) {
			return nil, ctx.SetImmutable("owner", ctx.Caller())
		}},
		Methods: map[string]contract.Method{
			"inc": {Fn: func(ctx *contract.Context) (interface{}, error) {
				var n uint64
				if _, err := ctx.Load("count", &n); err != nil {
					return nil, err
				}
				return nil, ctx.Store("count", n+1)
			}},
			"get": {View: true, Fn: func(ctx *contract.Context) (interface{}, error) {
				var n uint64
				_, err := ctx.Load("count", &n)
				return n, err
			}},
			"deposit": {Payable: true, Fn: func(ctx *contract.Context) (interface{}, error) {
				return ctx.Value().String(), nil
			}},
			"fail": {Fn: func(ctx *contract.Context) (interface{}, error) {
				if err := ctx.Store("count", uint64(99)); err != nil {
					return nil, err
				}
				return nil, contract.Revert("boom")
			}},
			"badWrite": {View: true, Fn: func(ctx *contract.Context) (interface{}, error) {
				return nil, ctx.Store("count", uint64(1))
			}},
		},
	})
	contract.Register(&contract.Artifact{
		Name: "TestReader",
		Methods: map[string]contract.Method{
			"read": {View: true, Fn: func(ctx *contract.Context) (interface{}, error) {
				target, err := ctx.AddressArg("target")
				if err != nil {
					return nil, err
				}
				return ctx.Call(target, "get", nil)
			}},
		},
	})
}

func newEnv(t *testing.T) (*contract.Env, *account.State) {
	t.Helper()
	state := account.NewState()
	state.CreateAccount(user, big.NewInt(1000))
	env := &contract.Env{State: state, Gas: contract.NewGasMeter(1000000)}
	a, err := contract.Lookup("TestCounter")
	assert.NilError(t, err)
	assert.NilError(t, env.Create(a, counter, contract.Message{From: user}))
	r, err := contract.Lookup("TestReader")
	assert.NilError(t, err)
	assert.NilError(t, env.Create(r, reader, contract.Message{From: user}))
	return env, state
}

func TestStorageAndView(t *testing.T) {
	env, _ := newEnv(t)
	for i := 0; i < 3; i++ {
		_, err := env.Execute(contract.Message{From: user, To: counter, Method: "inc"})
		assert.NilError(t, err)
	}
	res, err := env.Execute(contract.Message{From: user, To: counter, Method: "get", ReadOnly: true})
	assert.NilError(t, err)
	assert.Equal(t, res, uint64(3))

	res, err = env.Execute(contract.Message{From: user, To: reader, Method: "read", Args: map[string]string{"target": counter}})
	assert.NilError(t, err)
	assert.Equal(t, res, uint64(3))
}

func TestImmutableSetInConstructor(t *testing.T) {
	_, state := newEnv(t)
	v, ok := state.GetImmutable(counter, "owner")
	assert.Assert(t, ok)
	assert.Equal(t, v, `"`+user+`"`)
}

func TestRevertErrors(t *testing.T) {
	env, _ := newEnv(t)
	_, err := env.Execute(contract.Message{From: user, To: counter, Method: "fail"})
	assert.ErrorIs(t, err, contract.Revert("boom"))
	assert.ErrorIs(t, err, contract.ErrReverted)
	reason, ok := contract.RevertReason(err)
	assert.Assert(t, ok)
	assert.Equal(t, reason, "boom")

	_, err = env.Execute(contract.Message{From: user, To: counter, Method: "nope"})
	assert.ErrorIs(t, err, contract.ErrReverted)

	_, err = env.Execute(contract.Message{From: user, To: counter, Method: "badWrite"})
	assert.ErrorIs(t, err, contract.ErrWriteProtection)
}

func TestPayable(t *testing.T) {
	env, state := newEnv(t)
	_, err := env.Execute(contract.Message{From: user, To: counter, Method: "inc", Value: big.NewInt(1)})
	assert.ErrorIs(t, err, contract.ErrNonPayable)

	res, err := env.Execute(contract.Message{From: user, To: counter, Method: "deposit", Value: big.NewInt(10)})
	assert.NilError(t, err)
	assert.Equal(t, res, "10")
	assert.Equal(t, state.GetBalance(counter).Int64(), int64(10))
	assert.Equal(t, state.GetBalance(user).Int64(), int64(990))
}

func TestWarmSlotsAreCheaper(t *testing.T) {
	env, _ := newEnv(t)
	env.Gas = contract.NewGasMeter(1000000)
	_, err := env.Execute(contract.Message{From: user, To: counter, Method: "get", ReadOnly: true})
	assert.NilError(t, err)
	cold := env.Gas.Used()
	_, err = env.Execute(contract.Message{From: user, To: counter, Method: "get", ReadOnly: true})
	assert.NilError(t, err)
	assert.Assert(t, env.Gas.Used()-cold < cold)
}

func TestOutOfGas(t *testing.T) {
	env, _ := newEnv(t)
	env.Gas = contract.NewGasMeter(100)
	_, err := env.Execute(contract.Message{From: user, To: counter, Method: "inc"})
	assert.ErrorIs(t, err, contract.ErrOutOfGas)
}
