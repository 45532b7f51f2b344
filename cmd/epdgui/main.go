package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"periph.io/x/conn/v3/physic"

	"epdgui/internal/agenda"
	"epdgui/internal/app"
	"epdgui/internal/battery"
	"epdgui/internal/board"
	"epdgui/internal/config"
	"epdgui/internal/epd"
	"epdgui/internal/font"
	"epdgui/internal/hal"
	appLog "epdgui/internal/log"
	"epdgui/internal/raster"
	"epdgui/internal/web"
)

const version = "0.1.0"

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	renderOnly bool
	debug      bool
	dump       string
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	level, err := appLog.ParseLevel(conf.LogLevel)
	if err != nil {
		appLog.Warn("invalid log level, using info", "log_level", conf.LogLevel)
	}
	if flags.debug {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)

	appLog.Info("epdgui starting", "version", version)
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"horizon_days", conf.HorizonDays,
		"ics_count", len(conf.ICS),
		"battery", conf.Battery.Mode,
		"once", flags.once,
		"render_only", flags.renderOnly,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := run(ctx, conf, flags); err != nil {
		appLog.Error("epdgui failed", err)
		os.Exit(1)
	}
	appLog.Info("epdgui exiting")
}

func run(ctx context.Context, conf *config.Config, flags flagConfig) error {
	r, panel, err := newRefresher(conf, flags.renderOnly)
	if err != nil {
		return err
	}
	if panel != nil {
		defer panel.close(r)
	}

	if flags.once {
		err := r.Refresh(ctx)
		if flags.dump != "" {
			if derr := dumpPreview(r.Preview, flags.dump); derr != nil {
				appLog.Error("preview dump failed", derr, "path", flags.dump)
			}
		}
		return err
	}

	sched, err := app.Schedule(ctx, conf.RefreshCron, conf.Location(), r)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup

	// First frame right away rather than at the next cron tick.
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = r.Refresh(ctx)
	}()

	var webErr chan error
	if conf.Listen != "" {
		webErr = make(chan error, 1)
		s := web.NewServer(conf, r)
		go func() { webErr <- s.Run(ctx) }()
	}

	select {
	case <-ctx.Done():
		if webErr != nil {
			// Run returns once its background refreshes are done.
			err = <-webErr
		}
	case err = <-webErr:
		appLog.Error("HTTP server stopped", err)
	}

	<-sched.Stop().Done()
	wg.Wait()
	return err
}

// panelHandle owns the hardware of a real panel.
type panelHandle struct {
	periph *hal.Periph
}

// close puts the panel into deep sleep through r, after any refresh still
// using it, and releases the SPI port.
func (p *panelHandle) close(r *app.Refresher) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := r.Sleep(ctx); err != nil {
		appLog.Warn("panel sleep failed", "reason", err)
	}
	if err := p.periph.Close(); err != nil {
		appLog.Warn("spi close failed", "reason", err)
	}
}

func newRefresher(conf *config.Config, renderOnly bool) (*app.Refresher, *panelHandle, error) {
	f := font.Basic()
	if conf.Font.Path != "" {
		var err error
		if f, err = font.LoadTrueType(conf.Font.Path, conf.Font.Size, font.ASCII); err != nil {
			return nil, nil, fmt.Errorf("load font: %w", err)
		}
	}

	r := &app.Refresher{
		Board:        &board.Board{Font: f, RowHeight: conf.Board.RowHeight},
		Battery:      battery.New(conf.Battery),
		Title:        conf.Board.Title,
		DateFormat:   conf.Board.DateFormat,
		Location:     conf.Location(),
		PollInterval: conf.PollInterval(),
		Preview:      app.NewCapture(image.Pt(epd.Width, epd.Height)),
	}

	if conf.Board.Logo != "" {
		logo, err := raster.LoadImage(conf.Board.Logo)
		if err != nil {
			return nil, nil, fmt.Errorf("load logo: %w", err)
		}
		r.Logo = logo
	}

	var sources []agenda.Source
	for _, src := range conf.ICS {
		if src.URL == "" {
			continue
		}
		sources = append(sources, agenda.Source{ID: src.ID, URL: src.URL})
	}
	if len(sources) > 0 {
		r.Agenda = &agenda.Agenda{
			Fetcher:  agenda.NewFetcher(nil),
			Sources:  sources,
			Location: r.Location,
			Horizon:  time.Duration(conf.HorizonDays) * 24 * time.Hour,
		}
	}

	if renderOnly {
		r.Display = r.Preview
		return r, nil, nil
	}

	p, err := hal.OpenPeriph(hal.PeriphConfig{
		SPIPort: conf.Panel.SPIPort,
		SPIHz:   physic.Frequency(conf.Panel.SPIHz) * physic.Hertz,
		Busy:    conf.Panel.Busy,
		Reset:   conf.Panel.Reset,
		DC:      conf.Panel.DC,
		CS:      conf.Panel.CS,
	})
	if err != nil {
		return nil, nil, err
	}
	d, err := epd.New(p.Bus, p.Busy, p.Reset, p.DC, p.CS, hal.NewTimer())
	if err != nil {
		_ = p.Close()
		return nil, nil, err
	}
	r.Display = d
	return r, &panelHandle{periph: p}, nil
}

func dumpPreview(c *app.Capture, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := c.WritePNG(out); err != nil {
		out.Close()
		return err
	}
	appLog.Info("preview written", "path", path)
	return out.Close()
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/epdgui/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one refresh cycle and exit")
	flag.BoolVar(&cfg.renderOnly, "render-only", false, "Render only; do not touch display hardware")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")
	flag.StringVar(&cfg.dump, "dump", "", "With -once, write the rendered frame as PNG to this path")

	flag.Parse()

	return cfg
}
