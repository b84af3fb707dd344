//go:build unix

//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/rbmk-project/rbmk/blob/v0.17.0/pkg/common/errclass/unix.go
//

package sockerr

import "golang.org/x/sys/unix"

const (
	errEADDRINUSE    = unix.EADDRINUSE
	errEADDRNOTAVAIL = unix.EADDRNOTAVAIL
	errEACCES        = unix.EACCES
	errECONNABORTED  = unix.ECONNABORTED
	errECONNRESET    = unix.ECONNRESET
	errEPIPE         = unix.EPIPE
)
