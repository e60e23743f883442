package orchestrator

import (
	"fmt"
	"strings"
	"time"
)

// TimingMode selects how often a full capture-and-match cycle runs
type TimingMode int

const (
	TimingFast TimingMode = iota
	TimingNormal
	TimingSlow
	TimingExtraSlow
)

// Interval returns the minimum time between cycles for the mode
func (m TimingMode) Interval() time.Duration {
	switch m {
	case TimingFast:
		return 30 * time.Second
	case TimingNormal:
		return 60 * time.Second
	case TimingSlow:
		return 300 * time.Second
	case TimingExtraSlow:
		return 600 * time.Second
	default:
		return 60 * time.Second
	}
}

func (m TimingMode) String() string {
	switch m {
	case TimingFast:
		return "fast"
	case TimingNormal:
		return "normal"
	case TimingSlow:
		return "slow"
	case TimingExtraSlow:
		return "extra_slow"
	default:
		return fmt.Sprintf("TimingMode(%d)", int(m))
	}
}

// ParseTimingMode maps a config string to a timing mode
func ParseTimingMode(s string) (TimingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fast":
		return TimingFast, nil
	case "normal", "":
		return TimingNormal, nil
	case "slow":
		return TimingSlow, nil
	case "extra_slow", "extraslow", "extra-slow":
		return TimingExtraSlow, nil
	default:
		return TimingNormal, fmt.Errorf("unknown timing mode %q", s)
	}
}
