package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/murrant/snmpsim/internal/clock"
	"github.com/murrant/snmpsim/internal/variate"
)

func newDelayCmd() *cobra.Command {
	var (
		settings string
		value    string
		set      bool
		at       int64
		trials   int
	)

	cmd := &cobra.Command{
		Use:   "delay",
		Short: "Compute the latency a delay entry would inject",
		Long: `Parses a delay settings string and computes the latency it would inject
for a request, without sleeping. Multiple trials expose the jitter
distribution when a deviation is configured.`,
		Example: `  snmpsim delay --settings wait=500,deviation=200 --trials 10
  snmpsim delay --settings vlist=eq:5:100:lt:2:1000 --set --value 5
  snmpsim delay --settings tlist=lt:1700000000:50 --at 1699999999`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if settings == "" {
				return fmt.Errorf("--settings is required")
			}
			if trials < 1 {
				trials = 1
			}

			cfg, err := variate.ParseDelayConfig(settings)
			if err != nil {
				return err
			}
			if at == 0 {
				at = time.Now().Unix()
			}

			policy := variate.NewPolicy(cfg, clock.NewRealClock(), nil, nil)

			var (
				min, max, sum time.Duration
				drops, n      int
			)
			for i := 0; i < trials; i++ {
				d, drop := policy.Compute(set, value, at)
				if drop {
					drops++
					fmt.Println("  drop")
					continue
				}
				if n == 0 || d < min {
					min = d
				}
				n++
				if d > max {
					max = d
				}
				sum += d
				fmt.Printf("  %s\n", d)
			}

			if trials > 1 && n > 0 {
				fmt.Printf("\nmin=%s max=%s mean=%s drops=%d/%d\n",
					min, max, sum/time.Duration(n), drops, trials)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&settings, "settings", "", "delay settings string, e.g. wait=500,deviation=200 (required)")
	cmd.Flags().StringVar(&value, "value", "", "request value probed against vlist overrides")
	cmd.Flags().BoolVar(&set, "set", false, "treat the request as a write")
	cmd.Flags().Int64Var(&at, "at", 0, "wall-clock seconds probed against tlist overrides (default now)")
	cmd.Flags().IntVar(&trials, "trials", 1, "number of computations")

	return cmd
}
