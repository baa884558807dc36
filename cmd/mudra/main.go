package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
	"github.com/ayusman/mudra/internal/viewer"
)

func main() {
	fmt.Println("Mudra - Hand Gesture Viewer Control")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	model := viewer.NewModel()

	var preview *capture.Preview
	if cfg.Preview {
		preview = capture.NewPreview(capture.DefaultPreviewQuality)
	}

	var ui *tray.Tray
	if cfg.Tray {
		ui = tray.New()
	}

	appConfig := app.Config{
		Store:        st,
		Model:        model,
		CameraID:     cfg.CameraID,
		MotionThresh: cfg.MotionThreshold,
		Preview:      preview,
		OnModeChange: func(from, to gesture.Mode) {
			if ui != nil {
				ui.SetMode(string(to))
			}
		},
	}
	appConfig.DetectorConfig = detector.DefaultConfig()
	appConfig.DetectorConfig.MaxHands = cfg.MaxHands

	if cfg.Replay != "" {
		replay, err := detector.OpenReplay(cfg.Replay, true)
		if err != nil {
			log.Fatalf("Failed to open replay: %v", err)
		}
		log.Printf("Replaying %d recorded frames from %s", replay.Len(), cfg.Replay)

		blank := gocv.NewMatWithSize(capture.DefaultHeight, capture.DefaultWidth, gocv.MatTypeCV8UC3)
		defer blank.Close()
		appConfig.Detector = replay
		appConfig.Camera = capture.NewMockCamera([]*gocv.Mat{&blank}, true)
		appConfig.Ungated = true
	}

	application := app.New(appConfig)
	defer application.Close()

	if err := application.Start(); err != nil {
		log.Printf("Tracking unavailable, serving API only: %v", err)
	}

	staticDir := cfg.StaticDir
	if staticDir == "" {
		staticDir = findWebDir(cfg.DataDir)
	}
	if staticDir != "" {
		fmt.Printf("Serving static files from: %s\n", staticDir)
	}

	srv := server.New(server.Config{
		StaticDir: staticDir,
		Store:     st,
		Model:     model,
		Settings:  application,
		Preview:   preview,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		fmt.Printf("Starting server on %s\n", cfg.Addr)
		if err := srv.ListenAndServe(cfg.Addr); err != nil {
			log.Printf("Server failed: %v", err)
			stop()
		}
	}()

	if ui != nil {
		ui.OnToggle(application.SetEnabled)
		ui.OnOpen(func() {
			if err := openBrowser(localURL(cfg.Addr)); err != nil {
				log.Printf("Failed to open browser: %v", err)
			}
		})
		ui.OnQuit(stop)
		go func() {
			<-ctx.Done()
			ui.Quit()
		}()
		ui.Run()
	} else {
		<-ctx.Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}

// findWebDir looks for the viewer page in "web", "../web" and
// <dataDir>/web. It returns "" when none exists.
func findWebDir(dataDir string) string {
	for _, p := range []string{"web", "../web", filepath.Join(dataDir, "web")} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

func localURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
