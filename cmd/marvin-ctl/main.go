package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	cli "github.com/spf13/pflag"

	"marvin/internal/ipc"
)

func main() {
	socket := cli.StringP("socket", "s", ipc.SocketPath, "Control socket path")
	timeout := cli.DurationP("timeout", "T", 2*time.Minute, "How long to wait for the reply")
	cli.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: marvin-ctl [flags] trigger | say <command>")
		cli.PrintDefaults()
	}
	cli.Parse()

	msg := ipc.ControlMessage{Cmd: ipc.CmdTrigger}
	if args := cli.Args(); len(args) > 0 {
		msg.Cmd = args[0]
		msg.Text = strings.Join(args[1:], " ")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	reply, err := ipc.SendCommand(ctx, *socket, msg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "marvin:", err)
		os.Exit(1)
	}
	if reply.Text != "" {
		fmt.Println(reply.Text)
	}
}
