package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// PasswordParams Argon2id 参数
type PasswordParams struct {
	Memory  uint32 // KiB
	Time    uint32
	Threads uint8
	SaltLen uint32
	KeyLen  uint32
}

// DefaultPasswordParams m=19456 KiB, t=2, p=1
var DefaultPasswordParams = PasswordParams{
	Memory:  19 * 1024,
	Time:    2,
	Threads: 1,
	SaltLen: 16,
	KeyLen:  32,
}

// 解码时的上限，防止恶意 hash 撑爆内存/CPU
const (
	maxMemoryKiB = 1 << 20
	maxTime      = 16
	maxKeyLen    = 128
)

var errBadHash = errors.New("malformed password hash")

var b64 = base64.RawStdEncoding

func HashPassword(pw string) (string, error) { return DefaultPasswordParams.Hash(pw) }

// Hash 返回 PHC 格式：$argon2id$v=19$m=..,t=..,p=..$salt$hash
func (p PasswordParams) Hash(pw string) (string, error) {
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	key := argon2.IDKey([]byte(pw), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Threads,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// DummyHash 按当前参数拼一个格式合法、不对应任何密码的 hash。
// 用于未知用户登录时照常跑一次 argon2，不依赖随机数，不会失败。
func (p PasswordParams) DummyHash() string {
	keyLen := p.KeyLen
	if keyLen == 0 {
		keyLen = DefaultPasswordParams.KeyLen
	}
	salt := []byte("menu-catalog-dummy-salt")
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Threads,
		b64.EncodeToString(salt), b64.EncodeToString(make([]byte, keyLen)))
}

// CheckPassword 格式错误与不匹配一律返回 false
func CheckPassword(pw, hashed string) bool {
	if isBcrypt(hashed) {
		return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(pw)) == nil
	}
	p, salt, key, err := decodeArgon2(hashed)
	if err != nil {
		return false
	}
	got := argon2.IDKey([]byte(pw), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	return subtle.ConstantTimeCompare(got, key) == 1
}

// NeedsRehash 旧 bcrypt 或参数与当前配置不一致时返回 true
func NeedsRehash(hashed string, want PasswordParams) bool {
	if isBcrypt(hashed) {
		return true
	}
	p, _, _, err := decodeArgon2(hashed)
	if err != nil {
		return true
	}
	return p.Memory != want.Memory || p.Time != want.Time || p.Threads != want.Threads || p.KeyLen != want.KeyLen
}

func isBcrypt(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

func decodeArgon2(s string) (PasswordParams, []byte, []byte, error) {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, hash
	parts := strings.Split(s, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return PasswordParams{}, nil, nil, errBadHash
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return PasswordParams{}, nil, nil, errBadHash
	}
	var p PasswordParams
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return PasswordParams{}, nil, nil, errBadHash
	}
	if p.Memory == 0 || p.Memory > maxMemoryKiB || p.Time == 0 || p.Time > maxTime || p.Threads == 0 {
		return PasswordParams{}, nil, nil, errBadHash
	}
	salt, err := b64.Strict().DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return PasswordParams{}, nil, nil, errBadHash
	}
	key, err := b64.Strict().DecodeString(parts[5])
	if err != nil || len(key) == 0 || len(key) > maxKeyLen {
		return PasswordParams{}, nil, nil, errBadHash
	}
	p.SaltLen = uint32(len(salt))
	p.KeyLen = uint32(len(key))
	return p, salt, key, nil
}
