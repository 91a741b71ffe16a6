// Package cli implements lobbywire's operator-facing status command,
// rendering the live connection registry as a table the way the teacher's
// CLI renders its game server status table.
package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
)

// statusResponse mirrors the JSON shape of GET /api/monitor/status.
type statusResponse struct {
	Connections int `json:"connections"`
	Health      struct {
		CPUPercent    float64 `json:"cpu_percent"`
		MemoryPercent float64 `json:"memory_percent"`
	} `json:"health"`
}

// connectionsResponse mirrors the JSON shape of GET /api/monitor/connections.
type connectionsResponse struct {
	Connections []struct {
		RemoteAddr  string    `json:"remote_addr"`
		Status      string    `json:"status"`
		ConnectedAt time.Time `json:"connected_at"`
	} `json:"connections"`
}

// StatusCommand fetches the current connection registry and health sample
// from the monitor API at apiAddr and renders them as a table on stdout.
func StatusCommand(apiAddr string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	var status statusResponse
	if err := getJSON(client, "http://"+apiAddr+"/api/monitor/status", &status); err != nil {
		return fmt.Errorf("failed to fetch status: %w", err)
	}

	var conns connectionsResponse
	if err := getJSON(client, "http://"+apiAddr+"/api/monitor/connections", &conns); err != nil {
		return fmt.Errorf("failed to fetch connections: %w", err)
	}

	fmt.Printf("\nlobbywire — %d connection(s), CPU %.1f%%, memory %.1f%%\n\n",
		status.Connections, status.Health.CPUPercent, status.Health.MemoryPercent)

	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"Remote Address", "Status", "Connected At"})
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)

	for _, c := range conns.Connections {
		tw.Append([]string{
			c.RemoteAddr,
			c.Status,
			c.ConnectedAt.Format(time.RFC3339),
		})
	}

	tw.Render()
	fmt.Println()
	return nil
}

func getJSON(client *http.Client, url string, dst interface{}) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}
