package model

import (
	"crypto/rand"
	"io"
	"regexp"
	"strings"
)

const referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var referenceCodeRe = regexp.MustCompile(`^PAY-[A-Z0-9]{7}-[A-Z0-9]{5}$`)

// GenerateReferenceCode creates a random, human shareable code.
// Format: PAY-XXXXXXX-XXXXX
func GenerateReferenceCode() (string, error) {
	const n = 12
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	// 252 is the largest multiple of 36 below 256; rejecting above it keeps the draw uniform.
	for i := 0; i < n; i++ {
		for buf[i] >= 252 {
			var b [1]byte
			if _, err := io.ReadFull(rand.Reader, b[:]); err != nil {
				return "", err
			}
			buf[i] = b[0]
		}
		buf[i] = referenceAlphabet[int(buf[i])%len(referenceAlphabet)]
	}
	return "PAY-" + string(buf[:7]) + "-" + string(buf[7:]), nil
}

func NormalizeReferenceCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// IsReferenceCode reports whether s is a well-formed code, ignoring case.
func IsReferenceCode(s string) bool {
	return referenceCodeRe.MatchString(NormalizeReferenceCode(s))
}
