package serialport

import (
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
)

// PortInfo describes a serial port attached to the host.
type PortInfo struct {
	Name         string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
	Product      string
}

// Description returns a human-readable description of the port.
func (p PortInfo) Description() string {
	if !p.IsUSB {
		return "n/a"
	}
	if p.Product != "" {
		return fmt.Sprintf("%s (USB VID:PID=%s:%s)", p.Product, p.VID, p.PID)
	}

	return fmt.Sprintf("USB VID:PID=%s:%s", p.VID, p.PID)
}

// detectPatterns are matched case-insensitively against port names and
// descriptions by Detect.
var detectPatterns = []string{"usb", "serial", "acm", "gd32", "cdc"}

// ListPorts returns the serial ports attached to the host.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("serialport: list ports: %w", err)
	}

	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		ports = append(ports, PortInfo{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}

	return ports, nil
}

// Detect returns the name of the port most likely connected to the capture device.
func Detect() (string, error) {
	ports, err := ListPorts()
	if err != nil {
		return "", err
	}

	return pickPort(ports)
}

// pickPort prefers the first port whose name or description matches one of
// detectPatterns and falls back to the first port.
func pickPort(ports []PortInfo) (string, error) {
	if len(ports) == 0 {
		return "", ErrNoPorts
	}

	for _, p := range ports {
		desc := strings.ToLower(p.Name + " " + p.Description())
		for _, pattern := range detectPatterns {
			if strings.Contains(desc, pattern) {
				return p.Name, nil
			}
		}
	}

	return ports[0].Name, nil
}
