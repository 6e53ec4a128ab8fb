package isa

import (
	"errors"
	"io/fs"
	"os"
)

type timeoutError interface {
	Timeout() bool
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err)
}

func isExist(err error) bool {
	return errors.Is(err, fs.ErrExist) || os.IsExist(err)
}

func isPermission(err error) bool {
	return errors.Is(err, fs.ErrPermission) || os.IsPermission(err)
}

func isTimeout(err error) bool {
	var t timeoutError
	if errors.As(err, &t) {
		return t.Timeout()
	}
	return false
}
