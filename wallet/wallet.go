package wallet

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fundme/meta"
	"github.com/fundme/util"
)

var (
	ErrInvalidSignature = errors.New("invalid transaction signature")
	ErrSenderMismatch   = errors.New("transaction sender does not match public key")
)

// Signer 持有一个账户的私钥
type Signer struct {
	priv    ed25519.PrivateKey
	Address string
}

func NewSigner(priv ed25519.PrivateKey) *Signer {
	pub := priv.Public().(ed25519.PublicKey)
	return &Signer{priv: priv, Address: PubkeyToAddress(pub)}
}

// FromHex 由32字节种子（hex）恢复账户，用于从环境变量读取私钥
func FromHex(s string) (*Signer, error) {
	seed, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("private key must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return NewSigner(ed25519.NewKeyFromSeed(seed)), nil
}

// DevAccounts 由助记词确定性地派生开发账户
func DevAccounts(mnemonic string, count int) []*Signer {
	signers := make([]*Signer, 0, count)
	for i := 0; i < count; i++ {
		seed := sha256.Sum256([]byte(mnemonic + "/" + strconv.Itoa(i)))
		signers = append(signers, NewSigner(ed25519.NewKeyFromSeed(seed[:])))
	}
	return signers
}

func PubkeyToAddress(pub ed25519.PublicKey) string {
	hashed := sha256.Sum256(pub)
	return util.BytesToAddress(hashed[:])
}

func (s *Signer) PublicKey() ed25519.PublicKey {
	return s.priv.Public().(ed25519.PublicKey)
}

// SignTx 填充公钥、签名和交易hash
func (s *Signer) SignTx(tx *meta.Transaction) {
	tx.From = s.Address
	tx.PublicKey = s.PublicKey()
	hashed := util.CalculateTxHash(*tx)
	tx.Sign = ed25519.Sign(s.priv, hashed)
	tx.Hash = util.ToHex(hashed)
}

// VerifyTx 校验签名以及发送方地址
func VerifyTx(tx *meta.Transaction) error {
	if len(tx.PublicKey) != ed25519.PublicKeySize {
		return ErrInvalidSignature
	}
	pub := ed25519.PublicKey(tx.PublicKey)
	if PubkeyToAddress(pub) != util.NormalizeAddress(tx.From) {
		return ErrSenderMismatch
	}
	hashed := util.CalculateTxHash(*tx)
	if !ed25519.Verify(pub, hashed, tx.Sign) {
		return ErrInvalidSignature
	}
	if tx.Hash != util.ToHex(hashed) {
		return ErrInvalidSignature
	}
	return nil
}
