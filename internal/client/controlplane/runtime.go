package controlplane

import (
	"os"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/process"
)

var startedAt = time.Now()

type RuntimeInfo struct {
	PID        int32   `json:"pid"`
	StartedAt  string  `json:"startedAt"`
	Uptime     string  `json:"uptime"`
	Goroutines int     `json:"goroutines"`
	RSS        string  `json:"rss,omitempty"`
	CPUPercent float64 `json:"cpuPercent"`
	Threads    int32   `json:"threads,omitempty"`
}

// runtimeInfo describes this process. Fields gopsutil cannot read on the
// platform are left empty.
func runtimeInfo() *RuntimeInfo {
	info := &RuntimeInfo{
		PID:        int32(os.Getpid()),
		StartedAt:  startedAt.UTC().Format(time.RFC3339),
		Uptime:     time.Since(startedAt).Round(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
	}

	p, err := process.NewProcess(info.PID)
	if err != nil {
		return info
	}
	if mem, err := p.MemoryInfo(); err == nil {
		info.RSS = humanize.Bytes(mem.RSS)
	}
	if cpu, err := p.CPUPercent(); err == nil {
		info.CPUPercent = cpu
	}
	if n, err := p.NumThreads(); err == nil {
		info.Threads = n
	}
	return info
}
