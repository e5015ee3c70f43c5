package schedule

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/wilhg/xmcp/pkg/xapi"
)

// KeySize is the length of a vault key in bytes.
const KeySize = 32

const nonceSize = 24

var errSealed = errors.New("schedule: sealed credentials cannot be opened")

// Vault seals the per-request credentials stored with a scheduled post so
// the database never holds them in clear text.
type Vault struct {
	key [KeySize]byte
}

// NewVault returns a Vault using key.
func NewVault(key []byte) (*Vault, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("schedule: vault key must be %d bytes, got %d", KeySize, len(key))
	}
	v := &Vault{}
	copy(v.key[:], key)
	return v, nil
}

// ParseVaultKey builds a Vault from a base64 encoded key.
func ParseVaultKey(s string) (*Vault, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("schedule: decode vault key: %w", err)
	}
	return NewVault(key)
}

// RandomVault returns a Vault with a fresh key. Posts sealed with it cannot
// be opened by another process.
func RandomVault() *Vault {
	v := &Vault{}
	if _, err := io.ReadFull(rand.Reader, v.key[:]); err != nil {
		panic(fmt.Sprintf("schedule: read random key: %v", err))
	}
	return v
}

// Seal encrypts c with a random nonce prepended to the box.
func (v *Vault) Seal(c xapi.Credentials) ([]byte, error) {
	msg, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("schedule: read nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], msg, &nonce, &v.key), nil
}

// Open reverses Seal.
func (v *Vault) Open(box []byte) (xapi.Credentials, error) {
	var c xapi.Credentials
	if len(box) < nonceSize+secretbox.Overhead {
		return c, errSealed
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	msg, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &v.key)
	if !ok {
		return c, errSealed
	}
	if err := json.Unmarshal(msg, &c); err != nil {
		return c, fmt.Errorf("schedule: decode sealed credentials: %w", err)
	}
	return c, nil
}
