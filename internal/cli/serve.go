package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/murrant/snmpsim/internal/clock"
	"github.com/murrant/snmpsim/internal/config"
	"github.com/murrant/snmpsim/internal/server"
	"github.com/murrant/snmpsim/internal/state"
	"github.com/murrant/snmpsim/internal/variate"
)

func newServeCmd() *cobra.Command {
	var (
		configPath   string
		addr         string
		writeExample string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the debug server over configured subtree sessions",
		Long: `Registers the configured subtree sessions and serves their state over
HTTP: live sessions, one-shot identifier resolution, and a WebSocket
stream of simulation events (delays, drops, snapshot switches).`,
		Example: `  snmpsim serve --config snmpsim.json
  snmpsim serve --config snmpsim.json --addr :9161
  snmpsim serve --write-example snmpsim.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if writeExample != "" {
				if err := config.WriteExample(writeExample); err != nil {
					return fmt.Errorf("writing example config: %w", err)
				}
				fmt.Printf("Wrote example config to %s\n", writeExample)
				return nil
			}

			cfg := config.Default()
			if configPath != "" {
				var err error
				cfg, err = config.LoadFile(configPath)
				if err != nil {
					return err
				}
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			clk := clock.NewRealClock()

			var store state.Store = state.NewMemoryStore(clk)
			if cfg.Redis != nil {
				rs, err := state.NewRedisStore(cfg.Redis)
				if err != nil {
					return err
				}
				defer rs.Close()
				store = rs
			}

			hub := server.NewHub()
			sel := variate.NewSelector(cfg.Data.Dirs, clk,
				variate.WithStore(store),
				variate.WithSink(hub))
			defer sel.Close()

			for _, st := range cfg.Subtrees {
				if err := sel.Register(st.OID, st.Settings); err != nil {
					return fmt.Errorf("subtree %s: %w", st.OID, err)
				}
			}

			srv := server.New(cfg.Server.Addr, sel, clk, hub)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to JSON config file")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&writeExample, "write-example", "", "write an example config to the given path and exit")

	return cmd
}
