// SPDX-License-Identifier: GPL-3.0-or-later

package nopaccept

// Unit is a type not containing any value.
//
// A [Handler] returns Unit because processing a connection produces
// side effects only.
type Unit struct{}
