package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/park285/cheese-pvp-server/internal/pvpclient"
)

// pvpcheck pairs two scripted players against a running server, plays one
// move and resigns, printing every frame it sees.
func main() {
	wsURL := os.Getenv("PVP_WS_URL")
	if wsURL == "" {
		wsURL = "ws://localhost:5555/"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	players := map[string]*pvpclient.Client{}
	overs := make(chan string, 2)
	for _, name := range []string{"check_white", "check_black"} {
		c := pvpclient.New(wsURL, pvpclient.WithReconnect(3, time.Second))
		c.OnStateChange(func(s pvpclient.State) { log.Printf("[%s] state: %s", name, s) })
		c.OnMessage(func(f pvpclient.Frame) {
			fmt.Printf("[%s] %s\n", name, f.Raw)
			if f.Over != nil {
				overs <- name
			}
		})
		if err := c.Connect(ctx); err != nil {
			log.Fatalf("[%s] connect error: %v", name, err)
		}
		defer c.Close(context.Background())
		players[name] = c
	}

	for name, c := range players {
		if err := c.CreateGame(ctx, name, "5+0"); err != nil {
			log.Fatalf("[%s] createGame error: %v", name, err)
		}
	}

	white, black := waitForSides(ctx, players)
	if white == nil {
		log.Fatal("no game started")
	}
	if err := white.MakeMove(ctx, "e4"); err != nil {
		log.Fatalf("move error: %v", err)
	}
	time.Sleep(500 * time.Millisecond)
	if err := black.Resign(ctx); err != nil {
		log.Fatalf("resign error: %v", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case name := <-overs:
			log.Printf("[%s] game over received", name)
		case <-ctx.Done():
			log.Fatal("timed out waiting for game over")
		}
	}
}

func waitForSides(ctx context.Context, players map[string]*pvpclient.Client) (white, black *pvpclient.Client) {
	t := time.NewTicker(100 * time.Millisecond)
	defer t.Stop()
	for {
		white, black = nil, nil
		for _, c := range players {
			gs, ok := c.Game()
			if !ok {
				continue
			}
			switch gs.Color {
			case "white":
				white = c
			case "black":
				black = c
			}
		}
		if white != nil && black != nil {
			return white, black
		}
		select {
		case <-ctx.Done():
			return nil, nil
		case <-t.C:
		}
	}
}
