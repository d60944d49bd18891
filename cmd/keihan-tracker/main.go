package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	lib "github.com/dk-butsuri/keihan-tracker"
	"github.com/dk-butsuri/keihan-tracker/config"
	"github.com/dk-butsuri/keihan-tracker/feed"
	"github.com/dk-butsuri/keihan-tracker/store"
	"github.com/dk-butsuri/keihan-tracker/tracker"
)

func main() {
	mode := flag.String("mode", "oneshot", "oneshot|serve")
	baseURL := flag.String("baseURL", "", "feed base URL (overrides config)")
	flag.Parse()

	_ = godotenv.Load(".env")
	lib.InitLogging()
	if err := config.LoadAppConfig(); err != nil {
		panic(err)
	}

	url := config.Config.Feed.BaseURL
	if *baseURL != "" {
		url = *baseURL
	}
	timeout := time.Duration(config.Config.Feed.TimeoutMS) * time.Millisecond
	client := feed.NewClient(url, timeout)
	tr := tracker.New(client)

	var st *store.Store
	if path := config.Config.Store.Path; path != "" {
		var err error
		st, err = store.Open(path)
		if err != nil {
			panic(err)
		}
		defer st.Close()
		if err := st.Init(context.Background()); err != nil {
			panic(err)
		}
	}

	switch *mode {
	case "oneshot":
		if err := tr.Poll(context.Background()); err != nil {
			panic(err)
		}
		printSummary(tr)
	case "serve":
		if err := tr.Poll(context.Background()); err != nil {
			log.Printf("initial poll failed: %v", err)
		}
		go pollLoop(tr, st)
		srv := lib.NewServer(tr, st, config.Config.Server.Port)
		srv.Start()
		srv.HandleGracefulShutdown()
	default:
		panic("unknown mode")
	}
}

func pollLoop(tr *tracker.Tracker, st *store.Store) {
	interval := time.Duration(config.Config.Feed.PollIntervalMS) * time.Millisecond
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		if err := tr.Poll(ctx); err != nil {
			log.Printf("poll failed: %v", err)
			cancel()
			continue
		}
		if st != nil {
			if _, err := st.SaveSnapshot(ctx, tr.LastPolled(), tr.ServiceDay(), tr.FindTrains()); err != nil {
				log.Printf("snapshot save failed: %v", err)
			}
		}
		cancel()
	}
}

func printSummary(tr *tracker.Tracker) {
	now := time.Now()
	fmt.Printf("service day %s, %d trains tracked\n",
		tr.ServiceDay().Format("2006-01-02"), tr.TrainCount())
	for _, t := range tr.FindTrains() {
		dest := ""
		if t.Destination != nil {
			dest = t.Destination.Name.JA
		}
		line := fmt.Sprintf("%04d %-8s %s %s %s", t.BlockNo, t.Status(now), t.Category(), t.Direction(), dest)
		if t.Active != nil {
			if st := tr.NextStation(t); st != nil {
				line += " next " + st.Name.JA
			}
			if d := t.DelayMinutes(); d > 0 {
				line += fmt.Sprintf(" +%dmin", d)
			}
		}
		fmt.Println(line)
	}
}
