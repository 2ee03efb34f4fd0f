// Interactive test client: authenticates, subscribes to a game, and
// lets you place bets or (as admin) start games and deal cards from
// stdin.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
)

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func send(c *websocket.Conn, msgType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	env := envelope{Type: msgType, Data: data}
	return c.WriteJSON(env)
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	userID := flag.Int64("user", 1, "user id")
	admin := flag.Bool("admin", false, "authenticate as admin")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			var env envelope
			if err := c.ReadJSON(&env); err != nil {
				log.Println("Read error:", err)
				return
			}
			log.Printf("<- %s: %s", env.Type, string(env.Data))
		}
	}()

	if err := send(c, "authenticate", map[string]any{"userId": *userID, "isAdmin": *admin}); err != nil {
		log.Fatalf("authenticate failed: %v", err)
	}

	fmt.Println("Commands:")
	fmt.Println("  sub <gameId>")
	fmt.Println("  sync <gameId>")
	fmt.Println("  bet <gameId> <andar|bahar> <amount> <round>")
	fmt.Println("  start <openingCard>            (admin)")
	fmt.Println("  deal <gameId> <card> <side> <pos>  (admin)")
	fmt.Println("  advance <gameId>               (admin)")

	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			return
		default:
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "sub":
			if len(fields) == 2 {
				send(c, "subscribe_game", map[string]any{"gameId": fields[1]})
			}
		case "sync":
			if len(fields) == 2 {
				send(c, "sync_request", map[string]any{"gameId": fields[1]})
			}
		case "bet":
			if len(fields) == 5 {
				amount, _ := strconv.ParseInt(fields[3], 10, 64)
				round, _ := strconv.Atoi(fields[4])
				send(c, "place_bet", map[string]any{
					"gameId": fields[1], "side": fields[2], "amount": amount, "round": round,
				})
			}
		case "start":
			if len(fields) == 2 {
				send(c, "start_game", map[string]any{"openingCard": fields[1]})
			}
		case "deal":
			if len(fields) == 5 {
				pos, _ := strconv.Atoi(fields[4])
				send(c, "deal_card", map[string]any{
					"gameId": fields[1], "card": fields[2], "side": fields[3], "position": pos,
				})
			}
		case "advance":
			if len(fields) == 2 {
				send(c, "advance_round", map[string]any{"gameId": fields[1]})
			}
		default:
			fmt.Println("unknown command")
		}
	}
}
