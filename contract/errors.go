package contract

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfGas         = errors.New("out of gas")
	ErrWriteProtection  = errors.New("write protection")
	ErrContractNotFound = errors.New("contract not found")
	ErrNonPayable       = Revert("non-payable method cannot receive value")
	ErrMaxCallDepth     = Revert("max call depth exceeded")
)

// RevertError 合约主动回滚；reason 为空的 RevertError 可以匹配任意回滚
type RevertError struct {
	Reason string
	cause  error
}

func Revert(reason string) *RevertError {
	return &RevertError{Reason: reason}
}

// ErrReverted 用于 errors.Is 判断是否为回滚
var ErrReverted = &RevertError{}

func (e *RevertError) Error() string {
	return fmt.Sprintf("execution reverted: %s", e.Reason)
}

func (e *RevertError) Unwrap() error {
	return e.cause
}

func (e *RevertError) Is(target error) bool {
	t, ok := target.(*RevertError)
	if !ok {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// RevertReason 取出回滚原因
func RevertReason(err error) (string, bool) {
	var re *RevertError
	if errors.As(err, &re) {
		return re.Reason, true
	}
	return "", false
}
