package credentials

import (
	"strings"

	"gfx.cafe/gfx/regat/lib/auth"
)

func FromString(user, password string) auth.Credentials {
	if password == "" {
		return nil
	} else if strings.HasPrefix(password, "SCRAM-SHA-256$") {
		verifier, err := ScramSHA256FromString(password)
		if err != nil {
			return Cleartext{
				Username: user,
				Password: password,
			}
		}
		return verifier
	} else {
		return Cleartext{
			Username: user,
			Password: password,
		}
	}
}
