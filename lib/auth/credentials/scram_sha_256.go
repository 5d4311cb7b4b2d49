package credentials

import (
	"bytes"
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/minio/sha256-simd"

	"gfx.cafe/ghalliday1/scram"

	"gfx.cafe/gfx/regat/lib/auth"
)

// ScramSHA256 is a stored SCRAM-SHA-256 verifier, parsed from the
// "SCRAM-SHA-256$<iters>:<salt>$<stored key>:<server key>" secret format.
// It can check a presented password but never produce one.
type ScramSHA256 struct {
	Iters     int
	Salt      []byte
	StoredKey []byte
	ServerKey []byte
}

func ScramSHA256FromString(value string) (ScramSHA256, error) {
	alg, iterKeys, ok := strings.Cut(value, "$")
	if !ok || alg != "SCRAM-SHA-256" {
		return ScramSHA256{}, ErrInvalidSecretFormat
	}
	iterSalt, keys, ok := strings.Cut(iterKeys, "$")
	if !ok {
		return ScramSHA256{}, ErrInvalidSecretFormat
	}
	iter, salt, ok := strings.Cut(iterSalt, ":")
	if !ok {
		return ScramSHA256{}, ErrInvalidSecretFormat
	}
	storedKey, serverKey, ok := strings.Cut(keys, ":")
	if !ok {
		return ScramSHA256{}, ErrInvalidSecretFormat
	}

	var res ScramSHA256
	var err error
	res.Iters, err = strconv.Atoi(iter)
	if err != nil {
		return ScramSHA256{}, err
	}

	res.Salt, err = base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return ScramSHA256{}, err
	}

	res.StoredKey, err = base64.StdEncoding.DecodeString(storedKey)
	if err != nil {
		return ScramSHA256{}, err
	}

	res.ServerKey, err = base64.StdEncoding.DecodeString(serverKey)
	if err != nil {
		return ScramSHA256{}, err
	}

	return res, nil
}

func (ScramSHA256) Credentials() {}

// VerifyCleartext re-derives the stored key from the presented password and
// the verifier's salt and iteration count.
func (T ScramSHA256) VerifyCleartext(value string) error {
	hasher := scram.Hasher(sha256.New)
	salted := hasher.SaltedPassword([]byte(value), T.Salt, T.Iters)
	storedKey := hasher.StoredKey(hasher.ClientKey(salted))
	if !bytes.Equal(storedKey, T.StoredKey) {
		return auth.ErrFailed
	}
	return nil
}

var _ auth.Credentials = ScramSHA256{}
var _ auth.CleartextServer = ScramSHA256{}
