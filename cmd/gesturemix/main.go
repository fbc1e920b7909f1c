package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ayusman/gesturemix/internal/app"
	"github.com/ayusman/gesturemix/internal/config"
	"github.com/ayusman/gesturemix/internal/monitoring"
	"github.com/ayusman/gesturemix/internal/store"
)

var (
	flagEnvFile    string
	flagDBPath     string
	flagAddr       string
	flagStaticDir  string
	flagCameraID   int
	flagFPS        int
	flagMQTTBroker string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gesturemix",
		Short: "gesturemix - hand gesture control surface for an audio engine",
		Long: `gesturemix tracks hands through a camera, classifies gestures and maps
them to mixer controls. Control values are streamed over a websocket and,
when a broker is configured, published over MQTT.

Settings come from GESTUREMIX_* environment variables or a .env file;
flags override both. Running without a subcommand starts the server.`,
		SilenceUsage: true,
		RunE:         runServe,
	}
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env", ".env", "Environment file to load")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "SQLite database path")
	addServeFlags(rootCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start capture, the gesture pipeline and the HTTP server",
		RunE:  runServe,
	}
	addServeFlags(serveCmd)

	rootCmd.AddCommand(serveCmd, newProfilesCmd())
	return rootCmd
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagAddr, "addr", "", "HTTP listen address")
	cmd.Flags().StringVar(&flagStaticDir, "static", "", "Directory of static web files")
	cmd.Flags().IntVar(&flagCameraID, "camera", 0, "Camera device id")
	cmd.Flags().IntVar(&flagFPS, "fps", 0, "Capture rate while hands are moving")
	cmd.Flags().StringVar(&flagMQTTBroker, "mqtt-broker", "", "MQTT broker URL, e.g. tcp://localhost:1883")
}

// loadConfig reads the environment and applies the flags that were set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(flagEnvFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.DBPath = flagDBPath
	}
	if flags.Changed("addr") {
		cfg.HTTPAddr = flagAddr
	}
	if flags.Changed("static") {
		cfg.StaticDir = flagStaticDir
	}
	if flags.Changed("camera") {
		cfg.CameraID = flagCameraID
	}
	if flags.Changed("fps") {
		cfg.FPS = flagFPS
		if cfg.IdleFPS > cfg.FPS {
			cfg.IdleFPS = cfg.FPS
		}
	}
	if flags.Changed("mqtt-broker") {
		cfg.MQTT.Broker = flagMQTTBroker
	}
	if cfg.StaticDir == "" {
		cfg.StaticDir = findWebDir()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openStore(path string) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return store.New(path)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st, err := openStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	a, err := app.New(cfg, st)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.StaticDir != "" {
		monitoring.Logf("Serving static files from: %s", cfg.StaticDir)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.Run(ctx)
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.gesturemix/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	homeWebDir := filepath.Join(homeDir, ".gesturemix", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}
	return ""
}
