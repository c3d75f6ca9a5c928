package services

import (
	"context"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

const (
	appName    = "VoiceCraft Pro"
	appVersion = "1.0"
)

var appFeatures = []string{
	"Secure user authentication",
	"High-quality text-to-speech",
	"File upload support",
	"Conversion history",
	"Multiple languages",
}

// SystemServiceProvider defines the interface for the about/system endpoint.
type SystemServiceProvider interface {
	About(ctx context.Context) (About, error)
}

// About describes the application and the host it runs on.
type About struct {
	Name     string   `json:"name"`
	Version  string   `json:"version"`
	Features []string `json:"features"`
	Engines  []string `json:"engines"`
	Host     HostInfo `json:"host"`
}

// HostInfo holds the host facts gathered by gopsutil. Fields stay zero when unavailable.
type HostInfo struct {
	Hostname      string  `json:"hostname"`
	OS            string  `json:"os"`
	Platform      string  `json:"platform"`
	UptimeSeconds uint64  `json:"uptimeSeconds"`
	CPUs          int     `json:"cpus"`
	MemoryTotal   uint64  `json:"memoryTotal"`
	MemoryUsedPct float64 `json:"memoryUsedPercent"`
	GoVersion     string  `json:"goVersion"`
	ProcessUptime string  `json:"processUptime"`
}

// SystemService reports application and host information.
type SystemService struct {
	engines   func() []string
	startedAt time.Time
}

// NewSystemService creates a new SystemService. engines lists the registered engine names.
func NewSystemService(engines func() []string) *SystemService {
	return &SystemService{engines: engines, startedAt: time.Now()}
}

// About gathers the about page data. Host lookups that fail are logged and left empty.
func (s *SystemService) About(ctx context.Context) (About, error) {
	info := HostInfo{
		OS:            runtime.GOOS,
		GoVersion:     runtime.Version(),
		ProcessUptime: time.Since(s.startedAt).Round(time.Second).String(),
	}

	if h, err := host.InfoWithContext(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to read host info")
	} else {
		info.Hostname = h.Hostname
		info.Platform = h.Platform
		info.UptimeSeconds = h.Uptime
		if h.OS != "" {
			info.OS = h.OS
		}
	}
	if n, err := cpu.CountsWithContext(ctx, true); err != nil {
		log.Warn().Err(err).Msg("Failed to count CPUs")
	} else {
		info.CPUs = n
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to read memory stats")
	} else {
		info.MemoryTotal = vm.Total
		info.MemoryUsedPct = vm.UsedPercent
	}

	var engines []string
	if s.engines != nil {
		engines = s.engines()
	}

	return About{
		Name:     appName,
		Version:  appVersion,
		Features: append([]string(nil), appFeatures...),
		Engines:  engines,
		Host:     info,
	}, ctx.Err()
}
