package main

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/spf13/cobra"

	"github.com/MyuraASM/netcore"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Resolve and ping a responder from another host",
	Long: `
Send an ARP request for the target address, then a series of ICMP echo
requests to the hardware address it resolves to, and report the round trip
time of each.

Examples:
  responderd probe -i eth0 --target 192.168.0.200
  responderd probe -i eth0 --target 192.168.0.200 -n 10 --size 1400
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProbe(cmd)
	},
}

func init() {
	f := probeCmd.Flags()
	f.StringP("interface", "i", "eth0", "network interface to probe from")
	f.StringP("target", "t", "", "IPv4 address to probe (required)")
	f.IntP("count", "n", 3, "number of echo requests")
	f.Int("size", 56, "echo payload size in bytes")
	f.Duration("timeout", time.Second, "time to wait for each reply")
	f.Duration("interval", time.Second, "time between echo requests")
	_ = probeCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command) error {
	f := cmd.Flags()
	iface, _ := f.GetString("interface")
	target, _ := f.GetString("target")
	count, _ := f.GetInt("count")
	size, _ := f.GetInt("size")
	timeout, _ := f.GetDuration("timeout")
	interval, _ := f.GetDuration("interval")

	ip, err := netip.ParseAddr(target)
	if err != nil || !ip.Unmap().Is4() {
		return fmt.Errorf("invalid IPv4 address: %q", target)
	}
	if size < 0 {
		return fmt.Errorf("invalid payload size: %d", size)
	}

	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		return err
	}
	c, err := netcore.Dial(ifi)
	if err != nil {
		return err
	}
	defer c.Close()

	out := cmd.OutOrStdout()

	if err := c.SetDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	mac, err := c.Resolve(ip)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", ip, err)
	}
	fmt.Fprintf(out, "%s is-at %s\n", ip, mac)

	payload := make([]byte, size)
	for i := range payload {
		payload[i] = byte(i)
	}

	var received int
	for seq := 1; seq <= count; seq++ {
		if seq > 1 {
			time.Sleep(interval)
		}
		if err := c.SetDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}

		rtt, err := c.Ping(mac, ip, uint16(seq), payload)
		switch {
		case err == nil:
			received++
			fmt.Fprintf(out, "%d bytes from %s: seq=%d time=%s\n", size, ip, seq, rtt)
		case errors.Is(err, netcore.ErrEchoMismatch):
			fmt.Fprintf(out, "%d bytes from %s: seq=%d time=%s (payload mismatch)\n", size, ip, seq, rtt)
		default:
			var nerr net.Error
			if !errors.As(err, &nerr) || !nerr.Timeout() {
				return fmt.Errorf("ping %s: %w", ip, err)
			}
			fmt.Fprintf(out, "no reply from %s: seq=%d\n", ip, seq)
		}
	}

	fmt.Fprintf(out, "%d sent, %d received\n", count, received)
	if received == 0 && count > 0 {
		return fmt.Errorf("no replies from %s", ip)
	}
	return nil
}
