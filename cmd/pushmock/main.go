// pushmock simulates the backend push broker locally. It accepts the JSON
// subscribe/message envelope on /ws and drives a handful of fake matches
// through SCHEDULED -> LIVE -> FINISHED, with goals in between, plus the
// occasional notification on the per-user queue.
//
// Usage:
//
//	go run cmd/pushmock/main.go
//
// Then point the daemon at it:
//
//	WCPREDICT_WS_URL=ws://localhost:9300/ws
package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const listenAddr = ":9300"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

type mockMatch struct {
	mu        sync.Mutex
	id        int64
	home      string
	away      string
	venue     string
	group     string
	status    string
	homeScore int
	awayScore int
	kickoff   time.Time
}

var mockMatches = []*mockMatch{
	{id: 1, home: "Brazil", away: "Germany", venue: "Lusail Stadium", group: "Group G", status: "SCHEDULED", kickoff: time.Now().Add(20 * time.Second)},
	{id: 2, home: "Argentina", away: "France", venue: "Al Bayt Stadium", group: "Group C", status: "SCHEDULED", kickoff: time.Now().Add(45 * time.Second)},
	{id: 3, home: "Spain", away: "Japan", venue: "Khalifa Stadium", group: "Group E", status: "LIVE", kickoff: time.Now().Add(-30 * time.Minute)},
}

type subscription struct {
	ID          int    `json:"id"`
	Destination string `json:"destination"`
}

type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
	subs map[string]bool
}

func (c *client) send(destination string, body any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.subs[destination] {
		return
	}
	raw, _ := json.Marshal(body)
	frame := map[string]any{
		"type":        "message",
		"destination": destination,
		"body":        json.RawMessage(raw),
	}
	if err := c.conn.WriteJSON(frame); err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
	}
}

var (
	clientsMu sync.Mutex
	clients   = map[*client]bool{}
)

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handleWS)

	fmt.Fprintf(os.Stderr, "push mock listening on %s\n", listenAddr)
	fmt.Fprintf(os.Stderr, "  WS: ws://localhost%s/ws\n", listenAddr)

	go tickMatches()
	go tickNotifications()

	if err := http.ListenAndServe(listenAddr, mux); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &client{conn: conn, subs: make(map[string]bool)}
	clientsMu.Lock()
	clients[c] = true
	clientsMu.Unlock()

	fmt.Fprintf(os.Stderr, "client connected (auth=%v)\n", r.Header.Get("Authorization") != "")

	defer func() {
		clientsMu.Lock()
		delete(clients, c)
		clientsMu.Unlock()
		conn.Close()
	}()

	for {
		var frame struct {
			Type string `json:"type"`
			subscription
		}
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		if frame.Type == "subscribe" {
			c.mu.Lock()
			c.subs[frame.Destination] = true
			c.mu.Unlock()
			fmt.Fprintf(os.Stderr, "subscribed: %s (sid=%d)\n", frame.Destination, frame.ID)
		}
	}
}

func broadcast(destination string, body any) {
	clientsMu.Lock()
	defer clientsMu.Unlock()
	for c := range clients {
		c.send(destination, body)
	}
}

func (m *mockMatch) payload() map[string]any {
	return map[string]any{
		"id":        m.id,
		"homeTeam":  m.home,
		"awayTeam":  m.away,
		"venue":     m.venue,
		"group":     m.group,
		"matchDate": m.kickoff.UTC().Format("2006-01-02T15:04:05"),
		// Half the pushes wrap the status like the backend's DTO path does.
		"status":    m.wireStatus(),
		"homeScore": m.homeScore,
		"awayScore": m.awayScore,
	}
}

func (m *mockMatch) wireStatus() any {
	if rand.Intn(2) == 0 {
		return m.status
	}
	return map[string]string{"name": m.status}
}

func tickMatches() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		for _, m := range mockMatches {
			m.mu.Lock()
			changed := false
			switch m.status {
			case "SCHEDULED":
				if time.Now().After(m.kickoff) {
					m.status = "LIVE"
					changed = true
					fmt.Fprintf(os.Stderr, "match %d goes LIVE\n", m.id)
				}
			case "LIVE":
				switch rand.Intn(10) {
				case 0:
					m.homeScore++
					changed = true
				case 1:
					m.awayScore++
					changed = true
				case 2:
					if time.Since(m.kickoff) > time.Minute {
						m.status = "FINISHED"
						changed = true
						fmt.Fprintf(os.Stderr, "match %d FINISHED %d:%d\n", m.id, m.homeScore, m.awayScore)
					}
				}
			}
			payload := m.payload()
			m.mu.Unlock()

			if changed {
				broadcast("/topic/matches/update", payload)
				broadcast("/topic/matches/status", payload)
			}
		}
	}
}

var notifID int64

func tickNotifications() {
	ticker := time.NewTicker(25 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		notifID++
		broadcast("/user/queue/notifications", map[string]any{
			"id":        notifID,
			"type":      "MATCH_RESULT",
			"title":     "Match finished",
			"message":   fmt.Sprintf("Result #%d is in, check your points", notifID),
			"icon":      "trophy",
			"linkUrl":   "/leaderboard",
			"read":      false,
			"createdAt": time.Now().UTC().Format("2006-01-02T15:04:05"),
		})
	}
}
