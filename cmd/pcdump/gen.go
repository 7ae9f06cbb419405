package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/rawbytedev/recast/pkg/dump"
	"github.com/rawbytedev/recast/pkg/packet"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newGenCmd(a *app) *cobra.Command {
	var (
		count int
		seed  int64
	)
	cmd := &cobra.Command{
		Use:   "gen <file>",
		Short: "Write a dump of synthetic packets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("count") {
				count = a.cfg.Gen.Count
			}
			if !cmd.Flags().Changed("seed") {
				seed = a.cfg.Gen.Seed
			}
			opts, err := a.cfg.DumpOptions()
			if err != nil {
				return err
			}
			records := generate(count, seed)

			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("failed to create dump: %w", err)
			}
			defer f.Close()
			if err := dump.WriteRecords(f, records, opts); err != nil {
				return err
			}
			a.log.WithFields(logrus.Fields{
				"file":     args[0],
				"records":  len(records),
				"compress": opts.Compress,
			}).Info("dump written")
			return f.Close()
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "number of packets (default gen.count)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (default gen.seed)")
	return cmd
}

// generate returns a reproducible mix of pings, their pongs, status
// packets and the occasional unknown tag.
func generate(count int, seed int64) []packet.Packet {
	r := rand.New(rand.NewSource(seed))
	out := make([]packet.Packet, 0, count)
	var last packet.Ping
	havePing := false
	for len(out) < count {
		switch n := r.Intn(10); {
		case n < 3:
			var nonce [6]byte
			r.Read(nonce[:])
			p := packet.NewPing(nonce, uint8(r.Intn(8)))
			if ping, err := packet.PingType.Into(p); err == nil {
				last, havePing = ping, true
			}
			out = append(out, p)
		case n < 5 && havePing:
			out = append(out, packet.EchoPong(last))
		case n < 9:
			var flags [3]byte
			flags[r.Intn(3)] = 1 << uint(r.Intn(8))
			out = append(out, packet.NewStatus(uint32(r.Intn(16)), flags))
		default:
			var payload [packet.PayloadSize]byte
			r.Read(payload[:])
			out = append(out, packet.New(uint8(0x10+r.Intn(0xF0)), payload))
		}
	}
	return out
}
