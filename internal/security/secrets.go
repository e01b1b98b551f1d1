package security

import (
	"errors"
	"os"
	"strings"
)

// ErrEmptySecret is returned when a signing secret resolves to nothing.
var ErrEmptySecret = errors.New("empty signing secret")

const filePrefix = "file://"

// LoadSecret resolves a signing secret. s is either the inline secret or file://path, in which case
// the file content (trailing whitespace trimmed) is the secret.
func LoadSecret(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmptySecret
	}
	if !strings.HasPrefix(s, filePrefix) {
		return []byte(s), nil
	}
	b, err := os.ReadFile(strings.TrimPrefix(s, filePrefix))
	if err != nil {
		return nil, err
	}
	b = []byte(strings.TrimRight(string(b), " \t\r\n"))
	if len(b) == 0 {
		return nil, ErrEmptySecret
	}
	return b, nil
}
