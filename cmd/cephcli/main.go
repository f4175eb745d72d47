// Command cephcli sends administrative commands to a Ceph cluster.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/cephforge/cephcli/internal/cli"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	root := cli.NewCephCommand(cli.NewApp(version))
	code := cli.Run(func() error { return root.ExecuteContext(ctx) }, os.Stderr)
	stop()
	os.Exit(code)
}
