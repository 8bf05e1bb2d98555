package auth

import (
	"crypto/rand"
	"math/big"
)

const secretAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateSecret 生成 n 位字母数字随机串（crypto/rand）
func GenerateSecret(n int) (string, error) {
	max := big.NewInt(int64(len(secretAlphabet)))
	b := make([]byte, n)
	for i := range b {
		k, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = secretAlphabet[k.Int64()]
	}
	return string(b), nil
}
