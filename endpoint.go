// SPDX-License-Identifier: GPL-3.0-or-later

package nopaccept

import "net/netip"

// NewEndpointFunc returns a [Func] that always returns the given [netip.AddrPort].
//
// Use it as the first stage of a client pipeline targeting an [*Acceptor].
func NewEndpointFunc(endpoint netip.AddrPort) Func[Unit, netip.AddrPort] {
	return ConstFunc(endpoint)
}
