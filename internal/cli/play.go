package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/murrant/snmpsim/internal/clock"
	"github.com/murrant/snmpsim/internal/variate"
)

func newPlayCmd() *cobra.Command {
	var (
		settings string
		dataDirs []string
		subtree  string
		span     time.Duration
		step     time.Duration
		speed    float64
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Walk a subtree's snapshot rotation over simulated uptime",
		Long: `Drives a subtree session through a span of virtual uptime and reports
every snapshot transition it would make, without touching real time.

Speed: 0 = instant, 1 = real-time, 10 = 10x`,
		Example: `  snmpsim play --settings dir=snapshots/ifmib,period=30 --span 5m
  snmpsim play --settings dir=snapshots/ifmib,period=30,wrap=true --span 10m --speed 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if settings == "" {
				return fmt.Errorf("--settings is required")
			}
			if step <= 0 {
				return fmt.Errorf("--step must be positive")
			}
			if speed < 0 {
				speed = 0
			}

			vc := clock.NewVirtualClock(time.Now().Truncate(time.Second))
			sel := variate.NewSelector(dataDirs, vc)
			defer sel.Close()

			if err := sel.Register(subtree, settings); err != nil {
				return err
			}

			fmt.Printf("Playing %s over %s at %.0fx speed...\n\n", subtree, span, speed)

			probe := variate.Request{
				OID:         subtree,
				OrigOID:     subtree,
				ErrorStatus: "noSuchInstance",
				Next:        true,
			}

			transitions := 0
			prev := -1
			steps := int(span / step)
			for i := 0; i <= steps; i++ {
				if i > 0 {
					if speed > 0 {
						// Sleep for scaled wall-clock time for visual effect.
						scaled := time.Duration(float64(step) / speed)
						if scaled > time.Millisecond {
							select {
							case <-cmd.Context().Done():
								return cmd.Context().Err()
							case <-time.After(scaled):
							}
						}
					}
					vc.Advance(step)
				}

				sel.Resolve(subtree, probe)

				for _, info := range sel.Sessions() {
					if info.FileID != prev {
						fmt.Printf("  [%8s] file #%d (%s)\n",
							time.Duration(i)*step, info.FileID, info.Path)
						prev = info.FileID
						if i > 0 {
							transitions++
						}
					}
				}
			}

			fmt.Printf("\n%d transition(s) over %s\n", transitions, span)
			return nil
		},
	}

	cmd.Flags().StringVar(&settings, "settings", "", "multiplex settings string (required)")
	cmd.Flags().StringSliceVar(&dataDirs, "data-dir", []string{"."}, "search roots for relative snapshot directories")
	cmd.Flags().StringVar(&subtree, "subtree", "1.3.6", "subtree identifier the settings belong to")
	cmd.Flags().DurationVar(&span, "span", 5*time.Minute, "virtual uptime span to walk")
	cmd.Flags().DurationVar(&step, "step", time.Second, "virtual clock step")
	cmd.Flags().Float64Var(&speed, "speed", 0, "playback speed (0=instant, 1=real-time)")

	return cmd
}
