// Package app wires camera capture, hand detection, the frame pipeline and
// its consumers (websocket stream, MQTT) into one running service.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ayusman/gesturemix/internal/capture"
	"github.com/ayusman/gesturemix/internal/config"
	"github.com/ayusman/gesturemix/internal/detector"
	"github.com/ayusman/gesturemix/internal/mapping"
	"github.com/ayusman/gesturemix/internal/monitoring"
	"github.com/ayusman/gesturemix/internal/pipeline"
	"github.com/ayusman/gesturemix/internal/publish"
	"github.com/ayusman/gesturemix/internal/server"
	"github.com/ayusman/gesturemix/internal/store"
)

// App is the running gesture service.
type App struct {
	config   *config.Config
	store    *store.Store
	registry *mapping.Registry
	pipeline *pipeline.Pipeline
	runner   *pipeline.Runner
	hub      *server.Hub
	server   *server.Server

	camera capture.Camera
	motion *capture.MotionDetector
	gate   *capture.Gate

	// touched only by the capture loop
	detectErrors int

	mu       sync.RWMutex
	detector detector.Detector
	enabled  bool
}

// New builds the service from cfg. st may be nil, in which case profile
// edits and calibrations live only in memory.
func New(cfg *config.Config, st *store.Store) (*App, error) {
	var persister mapping.Persister
	if st != nil {
		persister = st.Persister()
	}
	registry := mapping.NewRegistry(persister)
	if st != nil {
		if err := st.LoadRegistry(registry); err != nil {
			return nil, fmt.Errorf("load profiles: %w", err)
		}
	}

	p := pipeline.New(cfg.Pipeline, registry)
	runner := pipeline.NewRunner(p)
	hub := server.NewHub()

	a := &App{
		config:   cfg,
		store:    st,
		registry: registry,
		pipeline: p,
		runner:   runner,
		hub:      hub,
		camera:   capture.NewCamera(capture.Options{Device: cfg.CameraID, FPS: cfg.FPS, Mirror: cfg.CameraMirror}),
		motion:   capture.NewMotionDetector(cfg.MotionThreshold),
		gate:     capture.NewGate(cfg.IdleFPS, cfg.FPS, cfg.IdleTimeout),
		enabled:  true,
	}
	a.server = server.New(server.Config{
		StaticDir: cfg.StaticDir,
		Store:     st,
		Registry:  registry,
		Pipeline:  p,
		Hub:       hub,
		Stats:     runner.Stats,
	})

	// Try MediaPipe first, fall back to mock detector
	if mp, err := detector.NewMediaPipeDetector(detector.DefaultConfig()); err == nil {
		a.detector = mp
		monitoring.Logf("Using MediaPipe hand detection")
	} else {
		monitoring.Logf("MediaPipe not available (%v), using mock detector", err)
		a.detector = detector.NewMockDetector()
	}

	a.restoreCalibration()
	monitoring.Logf("app: active profile %q", registry.Active().Name)
	return a, nil
}

// restoreCalibration applies the latest stored calibration of the last
// calibrated user.
func (a *App) restoreCalibration() {
	if a.store == nil {
		return
	}
	user, err := a.store.Settings().Get(store.SettingCalibrationUser)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			monitoring.Logf("app: read calibration user: %v", err)
		}
		return
	}
	d, err := a.store.Calibrations().Latest(user)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			monitoring.Logf("app: load calibration for %q: %v", user, err)
		}
		return
	}
	a.pipeline.SetCalibration(d)
}

// Run starts capture, the pipeline runner, the MQTT publisher when a broker
// is configured and the HTTP server. It blocks until ctx is done or one of
// them fails.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sinks := pipeline.Sinks{a.hub}
	var tasks []task

	if a.config.MQTT.Enabled() {
		client, err := publish.Connect(publish.ClientConfig{
			Broker:   a.config.MQTT.Broker,
			ClientID: a.config.MQTT.ClientID,
			Username: a.config.MQTT.Username,
			Password: a.config.MQTT.Password,
		})
		if err != nil {
			return err
		}
		defer publish.Disconnect(client)

		pubCfg := publish.DefaultConfig()
		pubCfg.TopicPrefix = a.config.MQTT.TopicPrefix
		pub := publish.NewPublisher(client, pubCfg)
		sinks = append(sinks, pub)
		tasks = append(tasks, task{"mqtt", pub.Run})

		if topic := a.config.MQTT.CommandTopic; topic != "" {
			if err := publish.ListenProfileCommands(client, topic, a.registry); err != nil {
				return err
			}
		}
	}

	tasks = append(tasks,
		task{"pipeline", func(ctx context.Context) error { return a.runner.Run(ctx, sinks) }},
		task{"capture", a.runCapture},
		task{"http", func(ctx context.Context) error { return a.server.Run(ctx, a.config.HTTPAddr) }},
	)
	return runAll(ctx, cancel, tasks)
}

type task struct {
	name string
	run  func(context.Context) error
}

// runAll runs every task until all have returned. The first failure cancels
// the rest and is returned.
func runAll(ctx context.Context, cancel context.CancelFunc, tasks []task) error {
	errCh := make(chan error, len(tasks))
	var wg sync.WaitGroup
	for _, t := range tasks {
		wg.Add(1)
		go func(t task) {
			defer wg.Done()
			if err := t.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("%s: %w", t.name, err)
				cancel()
			}
		}(t)
	}
	wg.Wait()
	close(errCh)
	return <-errCh
}

// Close releases the detector.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.detector == nil {
		return nil
	}
	return a.detector.Close()
}

// SetEnabled enables or disables gesture detection.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether gesture detection is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector sets the hand detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

func (a *App) Registry() *mapping.Registry  { return a.registry }
func (a *App) Pipeline() *pipeline.Pipeline { return a.pipeline }
func (a *App) Runner() *pipeline.Runner     { return a.runner }
func (a *App) Hub() *server.Hub             { return a.hub }
func (a *App) Server() *server.Server       { return a.server }
func (a *App) Camera() capture.Camera       { return a.camera }
