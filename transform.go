// SPDX-License-Identifier: GPL-3.0-or-later

package nopaccept

import (
	"fmt"
	"strings"
)

// ByteTransform maps one input byte to one output byte.
//
// Implementations must be total and free of side effects.
type ByteTransform func(b byte) byte

// Identity returns b unchanged. Pumping with Identity echoes the stream.
func Identity(b byte) byte {
	return b
}

// caseBit is the bit distinguishing upper and lower case ASCII letters.
const caseBit = ' '

// CaseFlip flips the case of ASCII letters and returns every other
// byte (digits, punctuation, control and non-ASCII bytes) unchanged.
//
// CaseFlip is an involution: CaseFlip(CaseFlip(b)) == b for every b.
func CaseFlip(b byte) byte {
	if isASCIILetter(b) {
		return b ^ caseBit
	}
	return b
}

func isASCIILetter(b byte) bool {
	return ('A' <= b && b <= 'Z') || ('a' <= b && b <= 'z')
}

// ParseByteTransform returns the [ByteTransform] with the given name.
//
// Accepted names are "identity" (alias "echo") and "caseflip" (alias
// "uppercase"), compared case-insensitively.
func ParseByteTransform(name string) (ByteTransform, error) {
	switch strings.ToLower(name) {
	case "identity", "echo":
		return Identity, nil
	case "caseflip", "uppercase":
		return CaseFlip, nil
	default:
		return nil, fmt.Errorf("unknown byte transform: %q", name)
	}
}
