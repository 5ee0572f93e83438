package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/govm-net/counter/poller"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
)

func (a *app) successf(format string, args ...any) {
	green.Fprintf(a.out, format+"\n", args...)
}

func (a *app) errorf(format string, args ...any) {
	red.Fprintf(a.out, format+"\n", args...)
}

// field prints a highlighted label followed by a value
func (a *app) field(label string, value any) {
	yellow.Fprintf(a.out, "%s:", label)
	fmt.Fprintf(a.out, " %v\n", value)
}

// consoleObserver reports poll attempts on the terminal
type consoleObserver struct {
	out io.Writer
}

var _ poller.Observer = consoleObserver{}

func (o consoleObserver) OnAttempt(attempt int) {
	yellow.Fprintf(o.out, "Attempt %d\n", attempt)
}
