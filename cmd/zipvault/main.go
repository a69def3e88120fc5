// Copyright Elliot Nunn. Portions copyright 2010 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command zipvault is a thin convenience wrapper over the zipvault
// package: it loads an archive from disk into memory and prints its
// reconstructed entry tree, or extracts a single member to stdout.
// It is not part of the core decoder's contract.
package main

import (
	"fmt"
	"os"

	"github.com/birchvale/zipvault"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: zipvault <archive.zip> [entry-to-extract]")
		os.Exit(2)
	}

	buf, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, "zipvault:", err)
		os.Exit(1)
	}

	r, err := zipvault.Load(buf)
	if err != nil {
		fmt.Fprintln(os.Stderr, "zipvault:", err)
		os.Exit(1)
	}

	if len(os.Args) >= 3 {
		entry, err := r.FindEntry(os.Args[2])
		if err != nil {
			fmt.Fprintln(os.Stderr, "zipvault:", err)
			os.Exit(1)
		}
		content, err := r.Extract(entry, zipvault.DefaultExtractOptions())
		if err != nil {
			fmt.Fprintln(os.Stderr, "zipvault:", err)
			os.Exit(1)
		}
		os.Stdout.Write(content.Bytes)
		return
	}

	r.Walk(func(e *zipvault.Entry, depth int) {
		for i := 0; i < depth; i++ {
			fmt.Print("  ")
		}
		fmt.Println(e.Name)
	})

	stats := r.GetStats()
	fmt.Fprintf(os.Stderr, "%d files, %d directories, %d bytes\n", stats.FileCount, stats.DirCount, stats.TotalSize)
}
