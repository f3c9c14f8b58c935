package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/republik/appshell/internal/bridge"
	"github.com/republik/appshell/internal/config"
	"github.com/republik/appshell/internal/handlers"
	"github.com/republik/appshell/internal/logger"
	"github.com/republik/appshell/internal/player"
	"github.com/republik/appshell/internal/router"
	"github.com/republik/appshell/internal/service"
	"github.com/republik/appshell/internal/state"
	"github.com/republik/appshell/internal/webview"
)

func init() {
	// The webview must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "text", nil).Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slogger := logger.New(cfg.LogLevel, cfg.LogFormat, nil)

	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			slogger.Error("failed to create data directory", "err", err)
			os.Exit(1)
		}
	}

	w := webview.New(cfg.Debug)
	defer w.Destroy()

	wv, err := service.NewWebViewService(w, service.WebViewOptions{
		BaseURL: cfg.BaseURL,
		Width:   cfg.WindowWidth,
		Height:  cfg.WindowHeight,
		Logger:  slogger.With("component", "webview"),
	})
	if err != nil {
		slogger.Error("failed to create window", "err", err)
		os.Exit(1)
	}

	engine, err := player.New(nil, slogger.With("component", "player"))
	if err != nil {
		slogger.Error("failed to create player", "err", err)
		os.Exit(1)
	}
	defer engine.Close()

	shell, err := service.NewShell(service.ShellOptions{
		BaseURL:         cfg.BaseURL,
		DataDir:         cfg.DataDir,
		CurtainBackdoor: cfg.CurtainBackdoor,
		Host:            wv,
		Native:          bridge.NewDesktop(slogger.With("component", "bridge"), wv.Alert),
		Engine:          engine,
		Logger:          slogger,
	})
	if err != nil {
		slogger.Error("failed to create shell", "err", err)
		os.Exit(1)
	}

	if err := wv.Attach(shell); err != nil {
		slogger.Error("failed to attach window", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := shell.Start(ctx); err != nil {
		slogger.Error("failed to start shell", "err", err)
		os.Exit(1)
	}

	// There is no push registration on the desktop.
	shell.SetReady(state.GatePush)
	if len(os.Args) > 1 {
		if target, ok := deepLink(cfg.BaseURL, os.Args[1]); ok {
			shell.OpenURL(target)
		}
	}
	shell.SetReady(state.GateDeepLinking)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		engine.Run(gctx, shell.Snapshot)
		return nil
	})

	sigCtx, stopSignals := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	g.Go(func() error {
		<-sigCtx.Done()
		if ctx.Err() == nil {
			slogger.Info("signal received, closing window")
			wv.CloseMainWindow()
		}
		return nil
	})

	if cfg.DebugAddr != "" {
		srv := &http.Server{
			Addr:    cfg.DebugAddr,
			Handler: router.New(handlers.New(shell, slogger.With("component", "debug"))),
		}
		g.Go(func() error {
			slogger.Info("debug api listening", "addr", cfg.DebugAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}

	wv.Run()

	slogger.Info("window closed, shutting down")
	cancel()
	if err := g.Wait(); err != nil {
		slogger.Error("background task failed", "err", err)
	}
	if err := shell.Close(); err != nil {
		slogger.Error("failed to close shell", "err", err)
	}
}

// deepLink maps a command line argument onto a content url. Custom scheme
// links like republik://feed keep their path.
func deepLink(baseURL, arg string) (string, bool) {
	u, err := url.Parse(arg)
	if err != nil || arg == "" {
		return "", false
	}
	switch u.Scheme {
	case "http", "https":
		return arg, true
	case "":
		if strings.HasPrefix(arg, "/") {
			return strings.TrimSuffix(baseURL, "/") + arg, true
		}
		return "", false
	}

	path := "/" + strings.TrimPrefix(u.Host+u.Path, "/")
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return strings.TrimSuffix(baseURL, "/") + path, true
}
