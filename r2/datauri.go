package r2

import (
	"encoding/base64"
	"errors"
	"regexp"
)

var dataURIPattern = regexp.MustCompile(`^data:([A-Za-z+\-/.]+);base64,(.+)$`)

// ErrInvalidDataURI is returned for payloads that are not base64 data URIs.
var ErrInvalidDataURI = errors.New("invalid base64 data URI")

// ParseDataURI splits a base64 data URI into its MIME type and bytes.
func ParseDataURI(s string) (string, []byte, error) {
	m := dataURIPattern.FindStringSubmatch(s)
	if m == nil {
		return "", nil, ErrInvalidDataURI
	}
	data, err := base64.StdEncoding.DecodeString(m[2])
	if err != nil {
		return "", nil, ErrInvalidDataURI
	}
	return m[1], data, nil
}
