package auth

import "errors"

var ErrFailed = errors.New("auth failed")
