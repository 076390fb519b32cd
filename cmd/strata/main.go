// Package main provides the strata CLI.
package main

import (
	"fmt"
	"os"

	"github.com/strata-ml/strata/internal/checkpoint"
	"github.com/strata-ml/strata/internal/logger"
)

const version = "v0.1.0"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			fmt.Printf("strata %s\n", version)
			return
		case "inspect":
			inspect(os.Args[2:])
			return
		}
	}

	fmt.Println("strata - hierarchical attention kernel for Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version              Show version")
	fmt.Println("  inspect <file>       List tensors in a checkpoint")
}

// inspect prints the tensor inventory of a checkpoint file.
func inspect(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: strata inspect <file>")
		os.Exit(2)
	}

	stateDict, header, err := checkpoint.Load(args[0])
	if err != nil {
		logger.Log.Error("inspect failed", "path", args[0], "error", err.Error())
		os.Exit(1)
	}

	fmt.Printf("strata checkpoint %s (format v%d, written by %s at %s)\n",
		args[0], header.FormatVersion, header.StrataVersion, header.CreatedAt.Format("2006-01-02 15:04:05"))
	for _, meta := range header.Tensors {
		fmt.Printf("  %-24s %-8s %v  %d bytes\n", meta.Name, meta.DType, meta.Shape, meta.Size)
	}
	fmt.Printf("%d tensors\n", len(stateDict))
}
