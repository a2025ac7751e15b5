// Copyright (c) 2022 Hirotsuna Mizuno. All rights reserved.
// Use of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/apex/log"
	"github.com/tunabay/go-localcache"
	"github.com/urfave/cli/v3"
)

// errNotCached is returned by the get command on a cache miss.
var errNotCached = errors.New("not cached")

// globalFlags returns the flags of the root command, which configure the
// cache.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "dir",
			Aliases: []string{"d"},
			Usage:   "base directory, relative to the user data directory unless absolute",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("LOCALCACHE_DIR"),
			),
		},
		&cli.StringFlag{
			Name:    "namespace",
			Aliases: []string{"n"},
			Usage:   "cache directory name",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("LOCALCACHE_NAMESPACE"),
			),
			Value: localcache.DefaultNamespace,
		},
		&cli.StringFlag{
			Name:    "ext",
			Aliases: []string{"e"},
			Usage:   "default file extension",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("LOCALCACHE_EXT"),
			),
			Value: localcache.DefaultExtension,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "log cache operations, overriding LOCALCACHE_LOG",
			HideDefault: true,
		},
	}
}

// app holds the cache shared by the subcommands. The cache is opened in the
// Before hook of the root command.
type app struct {
	cache *localcache.Cache
}

// newApp builds the command tree.
func newApp() *cli.Command {
	a := &app{}

	return &cli.Command{
		Name:  "localcache",
		Usage: "manipulate a local blob cache",
		Flags: globalFlags(),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, a.open(cmd)
		},
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "store a file, or standard input, under an identifier",
				ArgsUsage: "<identifier> [file|-]",
				Flags:     []cli.Flag{opExtFlag()},
				Action:    a.add,
			},
			{
				Name:      "get",
				Usage:     "write a cached blob to standard output",
				ArgsUsage: "<identifier>",
				Flags:     []cli.Flag{opExtFlag()},
				Action:    a.get,
			},
			{
				Name:      "rm",
				Usage:     "remove a cached blob",
				ArgsUsage: "<identifier>",
				Flags:     []cli.Flag{opExtFlag()},
				Action:    a.remove,
			},
			{
				Name:      "path",
				Usage:     "print the file path of an identifier",
				ArgsUsage: "<identifier>",
				Flags: []cli.Flag{
					opExtFlag(),
					&cli.BoolFlag{
						Name:        "url",
						Usage:       "print as a file URL",
						HideDefault: true,
					},
				},
				Action: a.path,
			},
			{
				Name:  "ls",
				Usage: "list cached files",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:        "long",
						Aliases:     []string{"l"},
						Usage:       "list regular files with time and size, oldest first",
						HideDefault: true,
					},
				},
				Action: a.list,
			},
			{
				Name:   "purge",
				Usage:  "remove all cached files",
				Action: a.purge,
			},
			{
				Name:   "stat",
				Usage:  "print the cache status",
				Action: a.stat,
			},
		},
	}
}

// opExtFlag returns the per operation extension flag. An empty value means
// the default extension of the cache.
func opExtFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "as",
		Usage: "file extension for this operation",
	}
}

// open creates the cache from the global flags.
func (a *app) open(cmd *cli.Command) error {
	if cmd.Bool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	conf := &localcache.Config{
		Dir:       cmd.String("dir"),
		Namespace: cmd.String("namespace"),
		Extension: cmd.String("ext"),
		Logger:    &cacheLogger{log: log.Log},
		DebugLog:  cmd.Bool("debug"),
	}
	c, err := localcache.NewWithConfig(conf)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	if err := c.Err(); err != nil {
		return fmt.Errorf("cache not ready: %w", err)
	}
	log.Debugf("cache dir: %s", c.Dir())
	a.cache = c

	return nil
}

// identifier returns the identifier argument.
func identifier(cmd *cli.Command) (string, error) {
	if cmd.Args().Len() < 1 {
		return "", fmt.Errorf("%s: identifier required", cmd.Name)
	}
	return cmd.Args().First(), nil
}

func (a *app) add(_ context.Context, cmd *cli.Command) error {
	id, err := identifier(cmd)
	if err != nil {
		return err
	}

	var r io.Reader = stdin(cmd)
	if name := cmd.Args().Get(1); name != "" && name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	path, err := a.cache.Add(data, id, cmd.String("as"))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout(cmd), path)
	return err
}

func (a *app) get(_ context.Context, cmd *cli.Command) error {
	id, err := identifier(cmd)
	if err != nil {
		return err
	}
	data, ok, err := a.cache.Data(id, cmd.String("as"))
	switch {
	case err != nil:
		return err
	case !ok:
		return fmt.Errorf("%s: %w", id, errNotCached)
	}
	_, err = stdout(cmd).Write(data)
	return err
}

func (a *app) remove(_ context.Context, cmd *cli.Command) error {
	id, err := identifier(cmd)
	if err != nil {
		return err
	}
	return a.cache.Remove(id, cmd.String("as"))
}

func (a *app) path(_ context.Context, cmd *cli.Command) error {
	id, err := identifier(cmd)
	if err != nil {
		return err
	}
	if cmd.Bool("url") {
		u, err := a.cache.FileURL(id, cmd.String("as"))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout(cmd), u)
		return err
	}
	path, err := a.cache.FilePath(id, cmd.String("as"))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout(cmd), path)
	return err
}

func (a *app) list(_ context.Context, cmd *cli.Command) error {
	w := stdout(cmd)
	if !cmd.Bool("long") {
		for _, name := range a.cache.CachedFileList() {
			if _, err := fmt.Fprintln(w, name); err != nil {
				return err
			}
		}
		return nil
	}

	entries, err := a.cache.Entries()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%s %10d %s\n", e.ModTime().Format(time.RFC3339), e.Size(), e.Name()); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) purge(_ context.Context, _ *cli.Command) error {
	return a.cache.Purge()
}

func (a *app) stat(_ context.Context, cmd *cli.Command) error {
	_, err := fmt.Fprintf(stdout(cmd), "dir: %s\n%v\n", a.cache.Dir(), a.cache.Status())
	return err
}

// stdout returns the writer for the command output.
func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// stdin returns the reader for the command input.
func stdin(cmd *cli.Command) io.Reader {
	if r := cmd.Root().Reader; r != nil {
		return r
	}
	return os.Stdin
}
