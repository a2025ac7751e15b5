// Copyright (c) 2022 Hirotsuna Mizuno. All rights reserved.
// Use of this source code is governed by the MIT license that can be found in
// the LICENSE file.

// Command imgsv is an example HTTP server that serves swatch images through a
// local cache. The first request for an image creates it, and the following
// ones are answered from the cache until the image is removed or the cache is
// purged.
//
//	imgsv [--listen [host]:port] [--dir DIR] [--verbose]
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newCommand().Run(ctx, os.Args)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "imgsv",
		Usage: "serve swatch images through a local cache",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "listen",
				Aliases: []string{"l"},
				Usage:   "[host]:port to listen on",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("IMGSV_LISTEN"),
				),
				Value: ":8080",
			},
			&cli.StringFlag{
				Name:  "dir",
				Usage: "base directory of the cache",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("IMGSV_DIR"),
				),
				Value: "/tmp/go-localcache-example",
			},
			&cli.BoolFlag{
				Name:        "verbose",
				Aliases:     []string{"v"},
				Usage:       "log cache operations",
				HideDefault: true,
			},
		},
		Action: run,
	}
}

// run runs the image server and the HTTP server until ctx is done.
func run(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("verbose") {
		log.SetLevel(log.DebugLevel)
	}
	sv, err := newServer(cmd.String("dir"))
	if err != nil {
		return err
	}
	httpd := &http.Server{
		Addr:           cmd.String("listen"),
		Handler:        sv,
		ReadTimeout:    time.Second * 10,
		WriteTimeout:   time.Minute,
		MaxHeaderBytes: 1 << 12,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sv.serve(gctx) })
	g.Go(func() error {
		log.Infof("listening on %s", httpd.Addr)
		if err := httpd.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("httpd: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sdctx, sdcancel := context.WithTimeout(context.Background(), time.Second*5)
		defer sdcancel()
		return httpd.Shutdown(sdctx) //nolint:contextcheck
	})

	return g.Wait()
}
