package workerpool

import (
	"errors"
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// MaxCPUs is the number of CPUs a CPUMask can address.
const MaxCPUs = 1024

var ErrAffinityUnsupported = errors.New("workerpool: cpu affinity and real-time scheduling are not supported on this platform")

// CPUMask is a set of logical CPUs a worker may run on.
type CPUMask struct {
	bits [MaxCPUs / 64]uint64
}

// NewCPUMask returns a mask with the given CPUs set.
func NewCPUMask(cpus ...int) CPUMask {
	var m CPUMask
	for _, c := range cpus {
		m.Set(c)
	}
	return m
}

// Set adds cpu to the mask. Out of range values are ignored.
func (m *CPUMask) Set(cpu int) {
	if cpu < 0 || cpu >= MaxCPUs {
		return
	}
	m.bits[cpu/64] |= 1 << (uint(cpu) % 64)
}

func (m *CPUMask) Clear(cpu int) {
	if cpu < 0 || cpu >= MaxCPUs {
		return
	}
	m.bits[cpu/64] &^= 1 << (uint(cpu) % 64)
}

func (m CPUMask) IsSet(cpu int) bool {
	if cpu < 0 || cpu >= MaxCPUs {
		return false
	}
	return m.bits[cpu/64]&(1<<(uint(cpu)%64)) != 0
}

func (m CPUMask) Count() int {
	n := 0
	for _, w := range m.bits {
		n += bits.OnesCount64(w)
	}
	return n
}

func (m CPUMask) Empty() bool { return m.Count() == 0 }

// CPUs lists the CPUs in the mask in ascending order.
func (m CPUMask) CPUs() []int {
	cpus := make([]int, 0, m.Count())
	for i, w := range m.bits {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			cpus = append(cpus, i*64+b)
			w &^= 1 << uint(b)
		}
	}
	return cpus
}

// String renders the mask in cpulist format, e.g. "0-3,6".
func (m CPUMask) String() string {
	cpus := m.CPUs()
	var sb strings.Builder
	for i := 0; i < len(cpus); {
		j := i
		for j+1 < len(cpus) && cpus[j+1] == cpus[j]+1 {
			j++
		}
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		if i == j {
			sb.WriteString(strconv.Itoa(cpus[i]))
		} else {
			fmt.Fprintf(&sb, "%d-%d", cpus[i], cpus[j])
		}
		i = j + 1
	}
	return sb.String()
}

// ParseCPUMask parses a cpulist such as "0-3,6,8-9".
func ParseCPUMask(s string) (CPUMask, error) {
	var m CPUMask
	s = strings.TrimSpace(s)
	if s == "" {
		return m, fmt.Errorf("cpu mask: empty list")
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		lo, hi, isRange := strings.Cut(part, "-")
		first, err := parseCPU(lo)
		if err != nil {
			return CPUMask{}, err
		}
		last := first
		if isRange {
			if last, err = parseCPU(hi); err != nil {
				return CPUMask{}, err
			}
			if last < first {
				return CPUMask{}, fmt.Errorf("cpu mask: bad range %q", part)
			}
		}
		for c := first; c <= last; c++ {
			m.Set(c)
		}
	}
	return m, nil
}

func parseCPU(s string) (int, error) {
	c, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("cpu mask: bad cpu %q: %w", s, err)
	}
	if c < 0 || c >= MaxCPUs {
		return 0, fmt.Errorf("cpu mask: cpu %d out of range [0, %d)", c, MaxCPUs)
	}
	return c, nil
}

// RealtimePriority is the real-time scheduling priority requested for
// worker threads. NoRealtime keeps the default time-shared class.
type RealtimePriority int

const (
	NoRealtime  RealtimePriority = 0
	MinRealtime RealtimePriority = 1
	MaxRealtime RealtimePriority = 99
)

// Below returns the priority n levels below p, never below MinRealtime.
func (p RealtimePriority) Below(n int) RealtimePriority {
	if p == NoRealtime {
		return NoRealtime
	}
	return max(p-RealtimePriority(n), MinRealtime)
}

func (p RealtimePriority) IsRealtime() bool { return p != NoRealtime }

func (p RealtimePriority) String() string {
	switch p {
	case NoRealtime:
		return "none"
	case MaxRealtime:
		return "max"
	case MinRealtime:
		return "min"
	default:
		return strconv.Itoa(int(p))
	}
}

// ParseRealtimePriority accepts "none", "min", "max", "max-N" or a
// number in [0, 99].
func ParseRealtimePriority(s string) (RealtimePriority, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "none", "no_realtime":
		return NoRealtime, nil
	case "min":
		return MinRealtime, nil
	case "max":
		return MaxRealtime, nil
	}
	if rest, ok := strings.CutPrefix(s, "max-"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("priority: bad offset in %q", s)
		}
		return MaxRealtime.Below(n), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("priority: %q: %w", s, err)
	}
	if n < int(NoRealtime) || n > int(MaxRealtime) {
		return 0, fmt.Errorf("priority: %d out of range [0, %d]", n, MaxRealtime)
	}
	return RealtimePriority(n), nil
}
