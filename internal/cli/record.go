package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/murrant/snmpsim/internal/clock"
	"github.com/murrant/snmpsim/internal/variate"
)

// capturedPair is one observed request/response pair read from the
// capture input stream.
type capturedPair struct {
	OID   string `json:"oid"`
	Tag   string `json:"tag"`
	Value string `json:"value"`
}

func newRecordCmd() *cobra.Command {
	var (
		file       string
		dir        string
		period     float64
		iterations int
		addons     []string
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Capture observed traffic into a rotated snapshot set",
		Long: `Reads observed request/response pairs as newline-delimited JSON and
captures them into time-rotated snapshot files. Each pass writes one
zero-padded sequence file; with --iterations the same input is replayed
for additional passes, waiting out the remainder of the period between
them. The synthetic multiplex descriptor produced on the first pass is
printed for persistence alongside the primary data file.`,
		Example: `  snmpsim record --dir snapshots/ifmib < pairs.ndjson
  snmpsim record --file pairs.ndjson --dir snapshots/ifmib --period 30 --iterations 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = os.Stdin
			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("opening file: %w", err)
				}
				defer f.Close()
				in = f
			}

			var pairs []capturedPair
			dec := json.NewDecoder(in)
			for {
				var p capturedPair
				if err := dec.Decode(&p); err == io.EOF {
					break
				} else if err != nil {
					return fmt.Errorf("reading pairs: %w", err)
				}
				pairs = append(pairs, p)
			}
			if len(pairs) == 0 {
				return fmt.Errorf("no pairs to capture")
			}

			parts := []string{"dir:" + dir, fmt.Sprintf("period:%g", period)}
			if iterations > 0 {
				parts = append(parts, fmt.Sprintf("iterations:%d", iterations))
			}
			for _, addon := range addons {
				parts = append(parts, "addon:"+addon)
			}
			opts, err := variate.ParseCaptureOptions(strings.Join(parts, ","))
			if err != nil {
				return err
			}

			clk := clock.NewRealClock()
			session, err := variate.NewRecordingSession(opts, clk)
			if err != nil {
				return err
			}

			pass := 0
			for {
				pass++
				for i, p := range pairs {
					res, err := session.Capture(p.OID, p.Tag, p.Value, i == len(pairs)-1)
					if err != nil {
						return err
					}
					if res.Kind == variate.KindValue {
						fmt.Printf("%s|%s|%s\n", res.OID, res.Tag, res.Value)
					}
				}

				res := session.Stop()
				if res.Kind != variate.KindMoreData {
					break
				}
				fmt.Fprintf(os.Stderr, "pass %d done, next pass in %s\n", pass, res.Wait)
				if err := clock.Wait(cmd.Context(), clk, res.Wait); err != nil {
					return err
				}
			}

			fmt.Fprintf(os.Stderr, "captured %d pairs over %d pass(es) into %s\n",
				len(pairs)*pass, pass, dir)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "NDJSON input of {oid,tag,value} pairs (default stdin)")
	cmd.Flags().StringVar(&dir, "dir", "", "output snapshot directory (required)")
	cmd.Flags().Float64Var(&period, "period", 10, "capture pass period in seconds")
	cmd.Flags().IntVar(&iterations, "iterations", 0, "total number of capture passes")
	cmd.Flags().StringSliceVar(&addons, "addon", nil, "key=value pairs passed through into the descriptor")

	return cmd
}
