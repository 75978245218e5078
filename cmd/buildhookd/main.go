// Command buildhookd serves the CI build webhook and offers signing and
// offline checking helpers.
package main

import (
	"os"
	"strings"
)

type exitCoder interface {
	ExitCode() int
}

func main() {
	if err := Execute(os.Args[1:]); err != nil {
		msg := strings.Join(strings.Fields(err.Error()), " ")
		if msg == "" {
			msg = "error"
		}
		_, _ = os.Stderr.WriteString(msg + "\n")
		code := 1
		if ec, ok := err.(exitCoder); ok {
			if c := ec.ExitCode(); c != 0 {
				code = c
			}
		}
		os.Exit(code)
	}
}
