package util

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/cloudflare/cfssl/log"
	"github.com/fundme/meta"
)

//计算hash摘要
func CalculateHash(msg []byte) ([]byte, error) {
	h := sha256.New()
	if _, err := h.Write(msg); err != nil {
		log.Info(err)
		return nil, err
	}
	return h.Sum(nil), nil
}

//计算交易hash，签名与hash字段不参与计算
func CalculateTxHash(t meta.Transaction) []byte {
	t.Sign = nil
	t.Hash = ""
	jt, err := json.Marshal(t)
	DealJsonErr("CalculateTxHash", err)
	hashed, _ := CalculateHash(jt)
	return hashed
}

//计算区块hash
func CalculateBlockHash(b meta.Block) string {
	b.Hash = ""
	jb, err := json.Marshal(b)
	DealJsonErr("CalculateBlockHash", err)
	hashed, _ := CalculateHash(jb)
	return ToHex(hashed)
}

func ToHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}
