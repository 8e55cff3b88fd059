package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/MyuraASM/netcore"
	"github.com/MyuraASM/netcore/internal/config"
	"github.com/MyuraASM/netcore/internal/log"
	"github.com/MyuraASM/netcore/internal/metrics"
)

// shutdownTimeout bounds how long the metrics server may take to stop.
const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Answer ARP and ICMP echo requests on an interface",
	Long: `
Open a raw Ethernet socket on the configured interface and answer every ARP
request and ICMP echo request addressed to the configured identity, until
SIGINT or SIGTERM is received.

Examples:
  responderd serve -c responder.yml
  responderd serve -i eth0 --mac 52:54:00:12:34:56 --ip 192.168.0.200
  responderd serve -c responder.yml --metrics
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Flags(), map[string]string{
			"metrics": "metrics.enabled",
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func init() {
	addIdentityFlags(serveCmd.Flags())
	serveCmd.Flags().Bool("metrics", false, "expose Prometheus metrics")
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger, err := log.New(cfg.Log)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	m := netcore.NewMetrics(reg)
	if cfg.Metrics.Enabled {
		ms := metrics.NewServer(cfg.Metrics.Addr, cfg.Metrics.Path, reg, logger)
		if err := ms.Start(); err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := ms.Stop(sctx); err != nil {
				logger.WithError(err).Warn("failed to stop metrics server")
			}
		}()
	}

	ifi, err := net.InterfaceByName(cfg.Interface)
	if err != nil {
		return err
	}
	p, err := netcore.Listen(ifi)
	if err != nil {
		return err
	}

	srv := &netcore.Server{
		Iface: ifi,
		Config: netcore.Config{
			Identity:        cfg.NetIdentity(),
			UDP:             udpLogger(logger, cfg.Silent),
			Logger:          logger,
			Metrics:         m,
			Silent:          cfg.Silent,
			VerifyChecksums: cfg.VerifyChecksums,
		},
	}

	entry := logger.WithFields(logrus.Fields{
		"iface":    ifi.Name,
		"identity": srv.Config.Identity.String(),
	})
	// Closing the server ends Serve with a nil error
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	entry.Info("listening")
	err = srv.Serve(p)
	entry.Info("stopped")
	return err
}

// udpLogger returns a UDPHandler which logs each datagram addressed to the
// identity at debug level.  The daemon has no UDP services of its own.
func udpLogger(l *logrus.Logger, silent bool) netcore.UDPHandler {
	return netcore.UDPHandlerFunc(func(frame []byte, ipOffset int) {
		if silent || !l.IsLevelEnabled(logrus.DebugLevel) {
			return
		}

		pkt := gopacket.NewPacket(frame[ipOffset:], layers.LayerTypeIPv4, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
		ip, _ := pkt.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
		udp, _ := pkt.Layer(layers.LayerTypeUDP).(*layers.UDP)
		if ip == nil || udp == nil {
			return
		}

		l.WithFields(logrus.Fields{
			"src": net.JoinHostPort(ip.SrcIP.String(), strconv.Itoa(int(udp.SrcPort))),
			"dst": net.JoinHostPort(ip.DstIP.String(), strconv.Itoa(int(udp.DstPort))),
			"len": len(udp.Payload),
		}).Debug("udp datagram")
	})
}
