package netwk

import (
	"fmt"
	"strings"

	"envnode/internal/execx"
)

// NMRadio drives the host WiFi through NetworkManager's nmcli.
type NMRadio struct {
	r       execx.Runner
	iface   string
	ssid    string
	persist bool
}

func NewNMRadio(r execx.Runner, iface string) *NMRadio {
	return &NMRadio{r: r, iface: iface, persist: true}
}

// SetPersistence controls whether the connection profile is saved to disk.
func (n *NMRadio) SetPersistence(enabled bool) error {
	n.persist = enabled
	return nil
}

// Connect creates (or replaces) the connection profile and starts activation
// without blocking; callers poll Status for the result.
func (n *NMRadio) Connect(ssid, password string) error {
	n.ssid = ssid

	if err := n.r.Run("nmcli", "radio", "wifi", "on"); err != nil {
		return fmt.Errorf("enable radio: %w", err)
	}

	save := "yes"
	if !n.persist {
		save = "no"
	}

	// Replace any stale profile with the same name.
	_ = n.r.Run("nmcli", "connection", "delete", "id", ssid)

	if err := n.r.Run("nmcli", "connection", "add",
		"type", "wifi",
		"con-name", ssid,
		"ifname", n.iface,
		"ssid", ssid,
		"save", save,
		"wifi-sec.key-mgmt", "wpa-psk",
		"wifi-sec.psk", password,
	); err != nil {
		return fmt.Errorf("add connection profile: %w", err)
	}

	if err := n.r.Run("nmcli", "--wait", "0", "connection", "up", ssid); err != nil {
		return fmt.Errorf("activate connection: %w", err)
	}
	return nil
}

func (n *NMRadio) Status() Status {
	out, err := n.r.Output("nmcli", "-t", "-f", "DEVICE,STATE", "device", "status")
	if err != nil {
		return StatusIdle
	}

	state := ""
	for _, line := range strings.Split(out, "\n") {
		parts := strings.SplitN(line, ":", 2)
		if len(parts) == 2 && parts[0] == n.iface {
			state = parts[1]
			break
		}
	}

	switch {
	case state == "connected":
		return StatusConnected
	case strings.HasPrefix(state, "connecting"):
		return StatusConnecting
	case state == "disconnected" || state == "unavailable":
		if n.ssid == "" {
			return StatusDisconnected
		}
		// Activation finished without connecting: a missing AP shows as
		// an absent SSID in the scan list, anything else is treated as a
		// credential failure.
		if !n.ssidVisible() {
			return StatusNoAPFound
		}
		return StatusAuthFailed
	default:
		return StatusIdle
	}
}

func (n *NMRadio) ssidVisible() bool {
	out, err := n.r.Output("nmcli", "-t", "-f", "SSID", "device", "wifi", "list", "--rescan", "no")
	if err != nil {
		return false
	}
	for _, line := range strings.Split(out, "\n") {
		if line == n.ssid {
			return true
		}
	}
	return false
}

func (n *NMRadio) Disconnect() error {
	err := n.r.Run("nmcli", "device", "disconnect", n.iface)
	if n.ssid != "" && !n.persist {
		_ = n.r.Run("nmcli", "connection", "delete", "id", n.ssid)
	}
	return err
}

func (n *NMRadio) PowerOff() error {
	return n.r.Run("nmcli", "radio", "wifi", "off")
}
