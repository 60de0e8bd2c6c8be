// Package power handles the pre-acquisition power trim and the terminal
// transition into timed deep sleep.
package power

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"envnode/internal/execx"
	"envnode/internal/netwk"
)

// RTCSleeper programs the hardware wake timer and halts the system.
type RTCSleeper struct {
	r      execx.Runner
	radio  netwk.Radio
	logger *slog.Logger
	exit   func(int)
}

func NewRTCSleeper(r execx.Runner, radio netwk.Radio, logger *slog.Logger) *RTCSleeper {
	return &RTCSleeper{r: r, radio: radio, logger: logger, exit: os.Exit}
}

// Optimize powers down the radio and the short-range wireless controller
// ahead of sensing to reduce current draw. Failures are logged only; this is
// a power pass, not a correctness requirement.
func (s *RTCSleeper) Optimize() {
	if err := s.r.Run("nmcli", "radio", "wifi", "off"); err != nil {
		s.logger.Warn("wifi power-down failed", "error", err)
	}
	if err := s.r.Run("rfkill", "block", "bluetooth"); err != nil {
		s.logger.Warn("bluetooth power-down failed", "error", err)
	}
}

// Sleep forces the link down, programs the RTC wake timer, and halts. It
// never returns to the caller; execution resumes at process start on wake.
func (s *RTCSleeper) Sleep(d time.Duration) {
	// Failure paths may have left the radio in an inconsistent state;
	// tear it down again here.
	if s.radio != nil {
		_ = s.radio.Disconnect()
		_ = s.radio.PowerOff()
	}

	secs := int(d.Seconds())
	if secs < 1 {
		secs = 1
	}

	s.logger.Info("entering deep sleep", "duration", d)
	if err := s.r.Run("rtcwake", "-m", "off", "-s", strconv.Itoa(secs)); err != nil {
		s.logger.Error("rtcwake failed; powering off without timed wake", "error", err)
		_ = s.r.Run("systemctl", "poweroff")
	}
	s.exit(0)
}
