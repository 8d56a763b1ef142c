package util

import (
	"encoding/binary"
	"encoding/hex"
	"os"
	"strings"

	"github.com/cloudflare/cfssl/log"
)

const AddressLength = 20

// 判断文件或文件夹是否存在
func FileExists(path string) bool {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false
		}
		log.Info(err)
		return false
	}
	return true
}

// 判断数组是否包含该元素
func Contains(arr []string, target string) bool {
	for _, a := range arr {
		if a == target {
			return true
		}
	}
	return false
}

// 由摘要的后20字节生成地址
func BytesToAddress(b []byte) string {
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	return "0x" + hex.EncodeToString(b)
}

// 合约地址由部署者地址和部署者 nonce 决定
func CreateAddress(deployer string, nonce uint64) string {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, nonce)
	hashed, _ := CalculateHash(append([]byte(NormalizeAddress(deployer)), buf...))
	return BytesToAddress(hashed)
}

func IsAddress(s string) bool {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	if len(s) != 2*AddressLength {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// 统一为小写并带 0x 前缀
func NormalizeAddress(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	return s
}
