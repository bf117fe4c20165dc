package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/murrant/snmpsim/internal/clock"
	"github.com/murrant/snmpsim/internal/variate"
)

func newResolveCmd() *cobra.Command {
	var (
		settings string
		dataDirs []string
		subtree  string
		oid      string
		next     bool
		uptime   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve an identifier against a snapshot set at a given uptime",
		Long: `Creates a subtree session from the given multiplex settings, positions a
virtual clock at the requested uptime, and resolves one identifier the
way a live request would be resolved.`,
		Example: `  snmpsim resolve --settings dir=snapshots/ifmib --oid 1.3.6.1.2.1.2.2.1.1.1
  snmpsim resolve --settings dir=snapshots/ifmib,period=30 --uptime 95s --oid 1.3.6.1.2.1.2.2.1.1.1 --next`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if settings == "" {
				return fmt.Errorf("--settings is required")
			}
			if oid == "" {
				return fmt.Errorf("--oid is required")
			}

			vc := clock.NewVirtualClock(time.Now().Truncate(time.Second))
			sel := variate.NewSelector(dataDirs, vc)
			defer sel.Close()

			if err := sel.Register(subtree, settings); err != nil {
				return err
			}
			vc.Advance(uptime)

			res := sel.Resolve(subtree, variate.Request{
				OID:         oid,
				OrigOID:     oid,
				ErrorStatus: "noSuchInstance",
				Next:        next,
			})

			switch res.Kind {
			case variate.KindValue:
				fmt.Printf("%s = %s\n", res.OID, res.Value)
			default:
				fmt.Printf("%s: %s\n", res.OID, res.Kind)
			}

			for _, info := range sel.Sessions() {
				fmt.Printf("  uptime=%s file=#%d (%s)\n", uptime, info.FileID, info.Path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&settings, "settings", "", "multiplex settings string, e.g. dir=snapshots/ifmib,period=30 (required)")
	cmd.Flags().StringSliceVar(&dataDirs, "data-dir", []string{"."}, "search roots for relative snapshot directories")
	cmd.Flags().StringVar(&subtree, "subtree", "1.3.6", "subtree identifier the settings belong to")
	cmd.Flags().StringVar(&oid, "oid", "", "identifier to resolve (required)")
	cmd.Flags().BoolVar(&next, "next", false, "ordered traversal: resolve the following identifier on an exact hit")
	cmd.Flags().DurationVar(&uptime, "uptime", 0, "simulated agent uptime")

	return cmd
}
