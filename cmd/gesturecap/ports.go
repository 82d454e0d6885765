package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/urfave/cli/v2"

	"github.com/arloliu/go-gesture/serialport"
)

func portsCommand() *cli.Command {
	return &cli.Command{
		Name:   "ports",
		Usage:  "List available serial ports",
		Action: portsAction,
	}
}

func portsAction(c *cli.Context) error {
	ports, err := serialport.ListPorts()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	fmt.Fprint(c.App.Writer, renderPorts(ports))

	return nil
}

func renderPorts(ports []serialport.PortInfo) string {
	if len(ports) == 0 {
		return "No serial ports found.\n"
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("PORT", "USB", "VID:PID", "PRODUCT", "SERIAL")
	for _, p := range ports {
		usb, ids := "no", ""
		if p.IsUSB {
			usb, ids = "yes", p.VID+":"+p.PID
		}
		t.Row(p.Name, usb, ids, p.Product, p.SerialNumber)
	}

	return t.String() + "\n"
}
