// Package hwid derives a stable machine fingerprint for hardware-bound
// licenses. The fingerprint is a SHA-256 over hardware factors that do not
// change between runs (MAC address, hostname, CPU identity, OS/arch);
// anything session- or clock-derived is deliberately excluded so the same
// machine always reports the same fingerprint.
package hwid

import (
	"fmt"
	"net"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"keygate/pkg/digest"
)

// Fingerprint is a machine identity snapshot. The Fingerprint field is
// what gets sent to the license server; the components are kept for
// diagnostics.
type Fingerprint struct {
	Fingerprint string    `json:"fingerprint"`
	Hostname    string    `json:"hostname"`
	MACAddress  string    `json:"mac_address"`
	CPU         string    `json:"cpu"`
	OS          string    `json:"os"`
	Arch        string    `json:"arch"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Generator computes and caches fingerprints. Probing network interfaces
// on every call is wasteful, so results are held for cacheTTL.
type Generator struct {
	mu       sync.RWMutex
	cached   *Fingerprint
	expires  time.Time
	cacheTTL time.Duration
}

const defaultCacheTTL = time.Hour

// NewGenerator returns a Generator with a one hour cache.
func NewGenerator() *Generator {
	return &Generator{cacheTTL: defaultCacheTTL}
}

// Generate returns the machine fingerprint, computing it if the cached one
// expired. Individual factor lookups falling over degrade to fixed
// fallback strings rather than failing the whole fingerprint.
func (g *Generator) Generate() (*Fingerprint, error) {
	g.mu.RLock()
	if g.cached != nil && time.Now().Before(g.expires) {
		fp := *g.cached
		g.mu.RUnlock()
		return &fp, nil
	}
	g.mu.RUnlock()

	mac, err := primaryMAC()
	if err != nil {
		mac = "unknown-mac"
	}
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "unknown-host"
	}
	hostname = strings.ToLower(strings.TrimSpace(hostname))

	factors := []string{mac, hostname, cpuIdentity(), runtime.GOOS, runtime.GOARCH}
	sum := digest.SHA256.SumHex([]byte(strings.Join(factors, "|")))

	fp := &Fingerprint{
		Fingerprint: sum,
		Hostname:    hostname,
		MACAddress:  mac,
		CPU:         cpuIdentity(),
		OS:          runtime.GOOS,
		Arch:        runtime.GOARCH,
		GeneratedAt: time.Now(),
	}

	g.mu.Lock()
	g.cached = fp
	g.expires = time.Now().Add(g.cacheTTL)
	g.mu.Unlock()

	out := *fp
	return &out, nil
}

// Matches reports whether the stored fingerprint belongs to this machine.
func (g *Generator) Matches(stored string) (bool, error) {
	current, err := g.Generate()
	if err != nil {
		return false, fmt.Errorf("generate fingerprint: %w", err)
	}
	return current.Fingerprint == stored, nil
}

// ClearCache drops the cached fingerprint. Useful in tests and after
// network reconfiguration.
func (g *Generator) ClearCache() {
	g.mu.Lock()
	g.cached = nil
	g.expires = time.Time{}
	g.mu.Unlock()
}

// primaryMAC returns the MAC of the first up, non-loopback interface,
// falling back to any interface with a hardware address.
func primaryMAC() (string, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return "", fmt.Errorf("list interfaces: %w", err)
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		if mac := iface.HardwareAddr.String(); mac != "" && mac != "00:00:00:00:00:00" {
			return mac, nil
		}
	}
	for _, iface := range interfaces {
		if mac := iface.HardwareAddr.String(); mac != "" && mac != "00:00:00:00:00:00" {
			return mac, nil
		}
	}
	return "", fmt.Errorf("no usable MAC address")
}

// cpuIdentity returns a short stable CPU identifier. Exact CPU model
// strings differ per OS; hashing whatever identity the platform exposes
// normalizes the length.
func cpuIdentity() string {
	raw := runtime.GOOS + "-" + runtime.GOARCH

	switch runtime.GOOS {
	case "windows":
		if id := os.Getenv("PROCESSOR_IDENTIFIER"); id != "" {
			raw = id
		}
	case "linux":
		if data, err := os.ReadFile("/proc/cpuinfo"); err == nil {
			for _, line := range strings.Split(string(data), "\n") {
				if strings.HasPrefix(line, "model name") {
					raw = line
					break
				}
			}
		}
	}

	return digest.SHA256.SumHex([]byte(raw))[:16]
}
