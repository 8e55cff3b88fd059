package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/MyuraASM/netcore"
	"github.com/MyuraASM/netcore/internal/log"
	"github.com/MyuraASM/netcore/internal/replay"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Answer the frames of a pcap capture offline",
	Long: `
Read Ethernet frames from a pcap capture, answer them as the configured
identity would, and write every reply to another pcap capture.

Examples:
  responderd replay -r requests.pcap -w replies.pcap --mac 52:54:00:12:34:56 --ip 192.168.0.200
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReplay(cmd)
	},
}

func init() {
	addIdentityFlags(replayCmd.Flags())
	replayCmd.Flags().StringP("read", "r", "", "input pcap file (required)")
	replayCmd.Flags().StringP("write", "w", "", "output pcap file (required)")
	_ = replayCmd.MarkFlagRequired("read")
	_ = replayCmd.MarkFlagRequired("write")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd.Flags(), nil)
	if err != nil {
		return err
	}
	logger, err := log.New(cfg.Log)
	if err != nil {
		return err
	}

	inPath, _ := cmd.Flags().GetString("read")
	outPath, _ := cmd.Flags().GetString("write")

	in, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}

	res, err := replay.Run(in, out, netcore.Config{
		Identity:        cfg.NetIdentity(),
		Logger:          logger,
		Silent:          cfg.Silent,
		VerifyChecksums: cfg.VerifyChecksums,
	})
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("replay %s: %w", inPath, err)
	}

	logger.WithFields(logrus.Fields{
		"frames":  res.Frames,
		"replies": res.Replies,
		"output":  outPath,
	}).Info("replay complete")
	return nil
}
