package credentials

import (
	"gfx.cafe/gfx/regat/lib/auth"
)

type Cleartext struct {
	Username string
	Password string
}

func (Cleartext) Credentials() {}

func (T Cleartext) EncodeCleartext() string {
	return T.Password
}

func (T Cleartext) VerifyCleartext(value string) error {
	if T.Password != value {
		return auth.ErrFailed
	}
	return nil
}

var _ auth.Credentials = Cleartext{}
var _ auth.CleartextClient = Cleartext{}
var _ auth.CleartextServer = Cleartext{}
