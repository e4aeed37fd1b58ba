// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package server

import "github.com/decred/slog"

var log = slog.Disabled

// UseLogger sets the package-level logger used by server. By default the
// package logs nothing.
func UseLogger(logger slog.Logger) {
	log = logger
}
