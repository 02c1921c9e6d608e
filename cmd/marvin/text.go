package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"marvin/internal/assistant"
)

type handler interface {
	Handle(text string) string
}

// chat reads one command per line until EOF, a farewell or ctx is done.
func chat(ctx context.Context, a handler, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "Você: ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		reply := a.Handle(line)
		fmt.Fprintf(out, "Marvin: %s\n", reply)
		if assistant.IsFarewell(reply) {
			return nil
		}
	}
}
