package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/rawbytedev/recast/pkg/dump"
	"github.com/rawbytedev/recast/pkg/packet"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <file>",
		Short: "Classify the records of a dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open dump: %w", err)
			}
			defer f.Close()
			records, err := dump.ReadRecords[packet.Packet](f)
			if err != nil {
				return err
			}
			s := summarize(records, a.log)
			s.print(cmd.OutOrStdout())
			return nil
		},
	}
}

type summary struct {
	Total     int
	ByVariant map[string]int
	Unknown   int
	Rejected  int       // classified but failing the variant's check
	Nodes     int       // distinct status node ids
	FlagBits  [3][8]int // status flag bit counts per byte
}

func summarize(records []packet.Packet, l logrus.FieldLogger) summary {
	s := summary{Total: len(records), ByVariant: make(map[string]int)}
	for i := range records {
		name, err := packet.Family.Classify(&records[i])
		if err != nil {
			s.Unknown++
			l.WithField("index", i).WithError(err).Debug("unclassified record")
			continue
		}
		s.ByVariant[name]++
	}

	nodes := make(map[uint32]struct{})
	for _, ref := range packet.StatusType.Refs(records) {
		st := ref.Load()
		nodes[st.NodeID()] = struct{}{}
		for b := 0; b < 3; b++ {
			for bit := 0; bit < 8; bit++ {
				if st.Flag(b)&(1<<bit) != 0 {
					s.FlagBits[b][bit]++
				}
			}
		}
	}
	s.Nodes = len(nodes)

	valid := 0
	for range packet.PongType.Refs(records) {
		valid++
	}
	s.Rejected = s.ByVariant[packet.PongType.Name()] - valid
	if s.Rejected > 0 {
		l.WithField("count", s.Rejected).Warn("pong records failed validation")
	}
	return s
}

func (s summary) print(w io.Writer) {
	fmt.Fprintf(w, "records: %d\n", s.Total)
	names := packet.Family.Variants()
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-8s %d\n", name, s.ByVariant[name])
	}
	fmt.Fprintf(w, "  %-8s %d\n", "unknown", s.Unknown)
	if s.Rejected > 0 {
		fmt.Fprintf(w, "rejected: %d\n", s.Rejected)
	}
	fmt.Fprintf(w, "status nodes: %d\n", s.Nodes)
	for b, bits := range s.FlagBits {
		fmt.Fprintf(w, "  flags[%d] %v\n", b, bits)
	}
}
