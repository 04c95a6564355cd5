//go:build windows

package main

import (
	"os"
	"os/signal"
)

func notifyInterrupt(ch chan<- os.Signal) {
	signal.Notify(ch, os.Interrupt)
}
