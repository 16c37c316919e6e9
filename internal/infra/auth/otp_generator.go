package auth

import (
	"crypto/rand"
	"math/big"
	"strings"

	"gatekeeper/internal/domain/service"

	"github.com/pkg/errors"
)

var ten = big.NewInt(10)

type digitGenerator struct{}

// NewCodeGenerator returns a CodeGenerator drawing digits from crypto/rand.
func NewCodeGenerator() service.CodeGenerator {
	return digitGenerator{}
}

// Generate returns length uniformly random decimal digits. Leading zeros are kept.
func (digitGenerator) Generate(length int) (string, error) {
	if length <= 0 {
		return "", errors.Errorf("code length must be positive, got %d", length)
	}

	var b strings.Builder
	b.Grow(length)
	for range length {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", errors.Wrap(err, "failed to read random digit")
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	return b.String(), nil
}
