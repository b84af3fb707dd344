//go:build windows

//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/rbmk-project/rbmk/blob/v0.17.0/pkg/common/errclass/windows.go
//

package sockerr

import "golang.org/x/sys/windows"

const (
	errEADDRINUSE    = windows.WSAEADDRINUSE
	errEADDRNOTAVAIL = windows.WSAEADDRNOTAVAIL
	errEACCES        = windows.WSAEACCES
	errECONNABORTED  = windows.WSAECONNABORTED
	errECONNRESET    = windows.WSAECONNRESET
	errEPIPE         = windows.ERROR_BROKEN_PIPE
)
