// Command tilectl inspects and maintains a tile store.
//
//	tilectl --store ./array ls
//	tilectl --store s3://bucket/arrays/dense --ddb-table tilestore-commits info
//	tilectl --store ./array cat 7 > tile7.bin
//	tilectl --store ./array put --filters shuffle,zstd:3,crc32c schema schema.json
//	tilectl --store ./array gc --dry-run
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "tilectl:", err)
		os.Exit(1)
	}
}
