package batch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wonny/fundquant/internal/contracts"
)

// Mode selects how many workers a batch uses
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModeSingle Mode = "single"
	ModeCustom Mode = "custom"
)

// Concurrency is the validated worker configuration of a batch
type Concurrency struct {
	Mode    Mode `json:"mode" yaml:"mode"`
	Workers int  `json:"workers,omitempty" yaml:"workers,omitempty"`
}

// Auto derives the worker count from the CPU count
func Auto() Concurrency { return Concurrency{Mode: ModeAuto} }

// Single processes instruments strictly sequentially
func Single() Concurrency { return Concurrency{Mode: ModeSingle} }

// Custom uses n workers (clamped to >= 1)
func Custom(n int) Concurrency { return Concurrency{Mode: ModeCustom, Workers: n} }

// ParseConcurrency accepts "auto", "single", "custom:<n>" (case-insensitive).
// An empty string means auto.
func ParseConcurrency(s string) (Concurrency, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "" || s == string(ModeAuto):
		return Auto(), nil
	case s == string(ModeSingle):
		return Single(), nil
	case strings.HasPrefix(s, string(ModeCustom)+":"):
		n, err := strconv.Atoi(strings.TrimPrefix(s, string(ModeCustom)+":"))
		if err != nil {
			return Concurrency{}, fmt.Errorf("custom worker count %q: %w", s, contracts.ErrInvalidConcurrency)
		}
		return Custom(n), nil
	default:
		return Concurrency{}, fmt.Errorf("unknown thread mode %q: %w", s, contracts.ErrInvalidConcurrency)
	}
}

// String renders the form ParseConcurrency accepts
func (c Concurrency) String() string {
	if c.Mode == ModeCustom {
		return fmt.Sprintf("custom:%d", c.Workers)
	}
	return string(c.Mode)
}

// Resolve returns the worker count for numCPU logical CPUs.
// AUTO: min(2×cpu, max(4, cpu)); SINGLE: 1; CUSTOM: max(1, Workers).
func (c Concurrency) Resolve(numCPU int) (int, error) {
	switch c.Mode {
	case ModeAuto, "":
		return AutoWorkers(numCPU), nil
	case ModeSingle:
		return 1, nil
	case ModeCustom:
		if c.Workers < 1 {
			return 1, nil
		}
		return c.Workers, nil
	default:
		return 0, fmt.Errorf("mode %q: %w", c.Mode, contracts.ErrInvalidConcurrency)
	}
}

// AutoWorkers is the AUTO heuristic
func AutoWorkers(numCPU int) int {
	if numCPU < 1 {
		numCPU = 1
	}
	n := numCPU
	if n < 4 {
		n = 4
	}
	if n > 2*numCPU {
		n = 2 * numCPU
	}
	return n
}
