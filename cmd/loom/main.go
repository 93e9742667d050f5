// Package main provides the Loom CLI.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/loom-ml/loom/internal/dtype"
)

const version = "v0.0.1-dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			fmt.Printf("Loom %s\n", version)
			return
		case "dtypes":
			printDTypes()
			return
		}
	}

	fmt.Println("Loom - Typed device arrays for Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version    Show version")
	fmt.Println("  dtypes     List registered element types")
}

func printDTypes() {
	all := dtype.Default.All()
	sort.Slice(all, func(i, j int) bool { return all[i].Name() < all[j].Name() })
	for _, d := range all {
		if d.IsBlock() {
			fmt.Printf("%-12s %3d bits  block %d -> %d bytes\n", d.Name(), d.BitWidth(), d.BlockSize(), d.BlockBytes())
			continue
		}
		fmt.Printf("%-12s %3d bits\n", d.Name(), d.BitWidth())
	}
}
