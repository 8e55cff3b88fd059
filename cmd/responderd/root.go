package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/MyuraASM/netcore/internal/config"
)

var (
	// configFile is the path of the YAML configuration.  If empty, only
	// defaults, environment variables and flags apply.
	configFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "responderd",
	Short: "ARP and ICMP echo responder",
	Long: `responderd answers ARP requests and ICMP echo requests addressed to a
configured hardware and IPv4 address, directly on a raw Ethernet socket.

Configuration is read from a YAML file, then overridden by RESPONDER_*
environment variables, then by command line flags.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path")
}

// identityFlags maps the flags shared by commands which build a Responder to
// their configuration keys.
var identityFlags = map[string]string{
	"interface":        "interface",
	"mac":              "identity.hardware_addr",
	"ip":               "identity.addr",
	"silent":           "silent",
	"verify-checksums": "verify_checksums",
}

func addIdentityFlags(fs *pflag.FlagSet) {
	fs.StringP("interface", "i", "", "network interface to serve on")
	fs.String("mac", "", "hardware address to answer for")
	fs.String("ip", "", "IPv4 address to answer for")
	fs.Bool("silent", false, "suppress per-frame diagnostics")
	fs.Bool("verify-checksums", false, "drop echo requests with invalid checksums")
}

// loadConfig loads the configuration file named by --config, with every
// known flag present in fs bound over it.
func loadConfig(fs *pflag.FlagSet, extra map[string]string) (*config.Config, error) {
	var opts []config.Option
	for _, m := range []map[string]string{identityFlags, extra} {
		for name, key := range m {
			if f := fs.Lookup(name); f != nil {
				opts = append(opts, config.WithFlag(key, f))
			}
		}
	}
	return config.Load(configFile, opts...)
}
