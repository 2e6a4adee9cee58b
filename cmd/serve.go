package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"terminy/geo"
	"terminy/web"
)

var (
	servePort      int
	serveSource    string
	serveNoOpen    bool
	serveLatitude  float64
	serveLongitude float64
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web UI for searching appointment queues",
	Long: `Start a local HTTP server with a search page and its JSON API.

The page keeps one search session: pick a voivodeship, a service and an
optional locality, then scroll to load further results. Prometheus metrics
are exposed on /metrics.`,
	Example: `
  # Start local server on default port
  terminy serve

  # Serve the spreadsheet source on another port without opening a browser
  terminy serve --port 9090 --source sheet --no-open
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		location, err := flagLocation(cmd.Flags().Changed("lat"), cmd.Flags().Changed("lon"), serveLatitude, serveLongitude)
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		registry := newMetricsRegistry()
		a, err := newApp(cfg, appOptions{Source: serveSource, Registerer: registry})
		if err != nil {
			return err
		}
		defer a.Close()

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", servePort),
			Handler:           newServeHandler(a, registry, location),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.ListenAndServe()
		}()

		listenURL := fmt.Sprintf("http://localhost:%d", servePort)
		a.log.Info().Str("url", listenURL).Str("source", a.sourceName).Msg("listening")
		fmt.Printf("Listening on %s\n", listenURL)
		if !serveNoOpen {
			if openErr := openURLInBrowser(listenURL); openErr != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to open browser: %v\n", openErr)
			}
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-sigCh:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("shutdown server: %w", err)
			}
			err := <-errCh
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}
	},
}

func newMetricsRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

func newServeHandler(a *app, gatherer prometheus.Gatherer, location *geo.Point) http.Handler {
	return web.NewServer(web.ServerConfig{
		Orchestrator: a.orchestrator(location),
		Directory:    a.client,
		Gatherer:     gatherer,
		Logger:       a.log.With().Str("component", "web").Logger(),
	})
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVar(&servePort, "port", 8080, "HTTP port for the local web server")
	serveCmd.Flags().StringVar(&serveSource, "source", "", "Data source: api|sheet (default from config)")
	serveCmd.Flags().BoolVar(&serveNoOpen, "no-open", false, "Do not open browser automatically")
	serveCmd.Flags().Float64Var(&serveLatitude, "lat", 0, "Latitude to rank by distance (overrides config)")
	serveCmd.Flags().Float64Var(&serveLongitude, "lon", 0, "Longitude to rank by distance (overrides config)")
}

func openURLInBrowser(rawURL string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", rawURL)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", rawURL)
	default:
		cmd = exec.Command("xdg-open", rawURL)
	}
	return cmd.Start()
}
