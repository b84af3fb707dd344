// SPDX-License-Identifier: GPL-3.0-or-later

// Package sockerr recognizes the socket errors an acceptor cares about.
//
// [IsBindFailure] tells apart a bind failure caused by the local endpoint
// (port already taken, address not local, privileged port) from other
// listen errors. [IsPeerGone] recognizes a peer that went away while a
// connection was being pumped.
package sockerr

import "errors"

// IsBindFailure returns whether err is a local endpoint bind failure.
func IsBindFailure(err error) bool {
	return errors.Is(err, errEADDRINUSE) ||
		errors.Is(err, errEADDRNOTAVAIL) ||
		errors.Is(err, errEACCES)
}

// IsPeerGone returns whether err indicates that the peer reset or
// abandoned the connection.
func IsPeerGone(err error) bool {
	return errors.Is(err, errECONNRESET) ||
		errors.Is(err, errECONNABORTED) ||
		errors.Is(err, errEPIPE)
}
