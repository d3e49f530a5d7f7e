/**
 * Copyright (c) 2022, Xerra Earth Observation Institute
 * See LICENSE.TXT in the root directory of this source tree.
 */

// Command redis-cli is a minimal sample driver for the client library: it
// dials a single host, sends one command, prints the reply, and exits --
// the same shape as the teacher's cmd/get, with logrus doing the logging.
package main

import (
	"context"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"gitlab.com/xerra/common/go-redisclient/conn"
	"gitlab.com/xerra/common/go-redisclient/rediserr"
	"gitlab.com/xerra/common/go-redisclient/resp"
	"gitlab.com/xerra/common/go-redisclient/sink"
	"gitlab.com/xerra/common/go-redisclient/transport"
)

// Exit codes: 0 for a normal reply, 8 for --help or a server-side error
// reply, and a plain 1 for anything that kept the command from completing at all
// (dial failure, protocol error, timeout).
const (
	exitOK          = 0
	exitServerError = 8
	exitHelp        = 8
	exitFailure     = 1
)

func main() {
	var hostname string
	var port int
	helpRequested := false

	root := &cobra.Command{
		Use:   "redis-cli COMMAND [ARG...]",
		Short: "Send one command to a Redis-speaking server and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(hostname, port, args)
		},
		SilenceUsage: true,
	}

	// Claim the help flag without a shorthand before Execute runs
	// InitDefaultHelpFlag: cobra otherwise adds its own "help" flag at
	// "-h", which would collide with -h/--hostname below and panic
	// pflag's AddFlag ("unable to redefine 'h' shorthand").
	root.PersistentFlags().BoolP("help", "", false, "help for redis-cli")

	root.Flags().StringVarP(&hostname, "hostname", "h", "127.0.0.1", "server hostname")
	root.Flags().IntVarP(&port, "port", "p", 6379, "server port")
	root.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		helpRequested = true
		cmd.Root().UsageFunc()(cmd)
	})

	if err := root.Execute(); err != nil {
		logrus.Errorf("redis-cli: %v", err)
		os.Exit(exitCodeFor(err))
	}
	if helpRequested {
		os.Exit(exitHelp)
	}
}

func run(hostname string, port int, args []string) error {
	log := sink.NewLogrus(nil)

	connector := transport.NewSingleHost(transport.Host{Name: hostname, Port: port}, nil)
	c := conn.New(connector, conn.WithSink(log))

	req := resp.NewRequest(args...)
	ctx := context.Background()

	top, err := c.Transmit(ctx, req)
	if err != nil {
		logrus.Errorf("%s: %v", strings.Join(args, " "), err)
		os.Exit(exitFailure)
	}

	if top.Kind() == resp.Error {
		logrus.Errorf("server error: %s", top.String())
		os.Exit(exitServerError)
	}

	logrus.Infof("%s", top.Dump())
	os.Exit(exitOK)
	return nil
}

func exitCodeFor(err error) int {
	if rediserr.Is(err, rediserr.ServerError) {
		return exitServerError
	}
	return exitFailure
}
