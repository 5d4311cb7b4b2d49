package credentials

import "errors"

var ErrInvalidSecretFormat = errors.New("invalid secret format")
