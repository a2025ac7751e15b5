// Copyright (c) 2022 Hirotsuna Mizuno. All rights reserved.
// Use of this source code is governed by the MIT license that can be found in
// the LICENSE file.

// Command localcache manipulates a local blob cache from the command line.
//
//	localcache [--dir DIR] [--namespace NS] [--ext EXT] [--debug] COMMAND [ARGS]
//
// The log level is read from the LOCALCACHE_LOG environment variable, and
// defaults to WARN. The --debug flag sets it to DEBUG.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	os.Exit(realMain(context.Background(), os.Args))
}

func realMain(ctx context.Context, args []string) int {
	initLogger(os.Stderr, os.Getenv("LOCALCACHE_LOG"))

	app := newApp()
	if err := app.Run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	return 0
}
