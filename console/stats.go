package console

import (
	"github.com/shirou/gopsutil/v4/process"
)

// Stats is a snapshot of the game process.
type Stats struct {
	PID     int     `json:"pid"`
	RAM     float64 `json:"ram"` // MB resident
	CPU     float64 `json:"cpu"` // percent
	Threads int32   `json:"threads"`
}

// Sample reads resource usage of pid.
func Sample(pid int) (Stats, error) {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return Stats{}, err
	}
	s := Stats{PID: pid}
	if memInfo, err := proc.MemoryInfo(); err == nil && memInfo != nil {
		s.RAM = float64(memInfo.RSS) / 1024 / 1024
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		s.CPU = cpu
	}
	if n, err := proc.NumThreads(); err == nil {
		s.Threads = n
	}
	return s, nil
}
