package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/yungbote/progress-reconciler/internal/app"
)

func main() {
	var passes int
	var limit int
	var grace time.Duration
	flag.IntVar(&passes, "passes", 10, "max replay passes; stops early when a pass finds nothing")
	flag.IntVar(&limit, "limit", 0, "rows per pass (overrides NOTIFY_REPLAY_LIMIT)")
	flag.DurationVar(&grace, "grace", 0, "skip rows updated more recently than this (overrides NOTIFY_REPLAY_GRACE_SECONDS)")
	flag.Parse()

	if limit > 0 {
		os.Setenv("NOTIFY_REPLAY_LIMIT", strconv.Itoa(limit))
	}
	if grace > 0 {
		os.Setenv("NOTIFY_REPLAY_GRACE_SECONDS", strconv.Itoa(int(grace/time.Second)))
	}

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx := context.Background()
	var indexed, notified, failed int
	for i := 1; i <= passes; i++ {
		res, err := application.Services.Replayer.ReplayOnce(ctx)
		if err != nil {
			fmt.Printf("pass %d failed: %v\n", i, err)
			os.Exit(1)
		}
		indexed += res.Indexed
		notified += res.Notified
		failed += res.Failed
		fmt.Printf("pass %d: indexed=%d notified=%d failed=%d\n", i, res.Indexed, res.Notified, res.Failed)
		if res.Indexed+res.Notified == 0 {
			break
		}
	}
	fmt.Printf("done: indexed=%d notified=%d failed=%d\n", indexed, notified, failed)
}
