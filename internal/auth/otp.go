package auth

import (
	"crypto/rand"
	"math/big"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// DefaultCodeTTL is the window a one-time code stays valid.
const DefaultCodeTTL = 5 * time.Minute

var codeSpace = big.NewInt(900000)

// GenerateCode returns a 6 digit numeric one-time code in [100000, 999999].
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate one-time code")
	}

	code := n.Int64() + 100000
	return formatCode(code), nil
}

func formatCode(n int64) string {
	buf := [6]byte{}
	for i := 5; i >= 0; i-- {
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[:])
}
