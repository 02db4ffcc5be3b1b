package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Config string `short:"c" long:"config" default:"armsort.json" description:"Configuration file (.json, .yaml or .yml)"`

	Run      RunCommand      `command:"run" description:"Run the sorting cell in the terminal"`
	Simulate SimulateCommand `command:"simulate" alias:"sim" description:"Sort one batch headless and print a summary"`
	Serve    ServeCommand    `command:"serve" description:"Run the sorting cell and stream it to local observers"`
	Setup    SetupCommand    `command:"setup" description:"Detect and calibrate a mirror arm"`
	History  HistoryCommand  `command:"history" description:"List journaled runs or export one"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "armsort - two-link arm pick-and-place sorting cell"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
