// Package probe checks vehicle reachability with a single ICMP echo. The
// result only feeds the connectivity indicator on the dashboard; nothing
// in the core logic consumes it.
package probe

import (
	"context"
	"math"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

// Result is the JSON shape the dashboard polls.
type Result struct {
	Connected bool     `json:"connected"`
	Ping      *float64 `json:"ping"` // round-trip in ms, null when unreachable
	IP        string   `json:"ip"`
	Error     string   `json:"error,omitempty"`
}

// Timeout bounds the whole probe; the vehicle is on the local network, so
// one second is already generous.
const Timeout = time.Second

// Ping sends one echo request to the vehicle. Unreachable hosts and probe
// errors both come back as Connected=false; this is best-effort only.
func Ping(ctx context.Context, ip string) Result {
	p, err := probing.NewPinger(ip)
	if err != nil {
		return Result{IP: ip, Error: err.Error()}
	}
	p.Count = 1
	p.Timeout = Timeout
	// Unprivileged UDP ping so the server does not need CAP_NET_RAW.
	p.SetPrivileged(false)

	if err := p.RunWithContext(ctx); err != nil {
		return Result{IP: ip, Error: err.Error()}
	}
	stats := p.Statistics()
	if stats.PacketsRecv == 0 {
		return Result{IP: ip}
	}
	ms := math.Round(float64(stats.AvgRtt)/float64(time.Millisecond)*100) / 100
	return Result{Connected: true, Ping: &ms, IP: ip}
}
