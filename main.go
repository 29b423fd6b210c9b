// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Main entrypoint for chromaswap application

package main

import (
	"fmt"
	"os"

	"github.com/evolution-gaming/chromaswap/internal/logging"
)

// root represents top level of chromaswap command, including dispatching to subcommands.
func root(args []string) error {
	usage := `chromaswap - green screen background replacement

Usage:

    chromaswap <command> [arguments] [-h|-help]

The commands are:

    run         replace background of every video in green/ directory
    test        process a single video to tune keying parameters
    still       replace background of a single image, writes PNG
    plot        create stats plot from per-frame stats JSON
    convert     re-encode source videos to H.264 mp4 for processing
    dump-conf   output actual application configuration
    version     print chromaswap version and exit

Use "chromaswap <command> -h|-help" for more information about command.`

	if len(args) < 1 {
		fmt.Println(usage)
		return &AppError{msg: "please, specify command", exitCode: 2}
	}

	switch args[0] {
	case "run":
		return CreateRunCommand().Run(args[1:])
	case "test":
		return CreateTestCommand().Run(args[1:])
	case "still":
		return CreateStillCommand().Run(args[1:])
	case "plot":
		return CreatePlotCommand().Run(args[1:])
	case "convert":
		return CreateConvertCommand().Run(args[1:])
	case "dump-conf", "dump":
		return CreateDumpConfCommand().Run(args[1:])
	case "version":
		printVersion()
		return nil
	case "-h", "-help", "--help", "?":
		fmt.Println(usage)
		return &AppError{
			exitCode: 2,
		}
	default:
		// No commands were matched at this point, so bail out with default usage message.
		fmt.Println(usage)
		return &AppError{
			msg:      "unknown command/flag",
			exitCode: 2,
		}
	}
}

func main() {
	// Enable info logger by default and early enough.
	logging.EnableInfoLogger()

	if err := root(os.Args[1:]); err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintf(os.Stderr, "%v\n", msg)
		}
		switch e := err.(type) {
		case *AppError:
			os.Exit(e.ExitCode())
		default:
			os.Exit(1)
		}
	}
	os.Exit(0)
}
