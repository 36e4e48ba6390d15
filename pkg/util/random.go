package util

import (
	"crypto/rand"
	"math/big"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// RandBase36 生成长度为 n 的 [0-9a-z] 随机串
func RandBase36(n int) string {
	buf := make([]byte, n)
	max := big.NewInt(int64(len(base36)))
	for i := range buf {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			buf[i] = base36[i%len(base36)]
			continue
		}
		buf[i] = base36[v.Int64()]
	}
	return string(buf)
}
