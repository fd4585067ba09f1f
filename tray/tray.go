package tray

import (
	_ "embed"
	"fmt"
	"log"
	"runtime"
	"sync"

	"github.com/getlantern/systray"
)

//go:embed icon.png
var iconPNG []byte

//go:embed icon.ico
var iconICO []byte

// Config wires the tray menu to the rest of the app.
type Config struct {
	Title       string
	Tooltip     string
	HotkeyLabel string
	ModelLabel  string
	OnCapture   func()
	OnExit      func()
}

var (
	mu         sync.Mutex
	cfg        Config
	ready      bool
	aboutItem  *systray.MenuItem
	aboutExtra string
)

// Run starts the tray icon and blocks until Quit. Must run on the main
// goroutine on platforms where the tray needs the main thread.
func Run(c Config) {
	mu.Lock()
	cfg = c
	mu.Unlock()
	systray.Run(onReady, onExit)
}

// Quit removes the tray icon and unblocks Run.
func Quit() {
	systray.Quit()
}

// UpdateTooltip sets the hover text. No-op before the tray is ready, so the
// event loop can call it unconditionally.
func UpdateTooltip(tooltip string) {
	mu.Lock()
	defer mu.Unlock()
	if !ready {
		return
	}
	systray.SetTooltip(tooltip)
}

// SetAboutExtra appends a line (e.g. the resident TCP port) to the About
// entry's tooltip.
func SetAboutExtra(extra string) {
	mu.Lock()
	defer mu.Unlock()
	aboutExtra = extra
	if aboutItem != nil {
		aboutItem.SetTooltip(aboutTooltip())
	}
}

func aboutTooltip() string {
	tt := cfg.Title
	if cfg.HotkeyLabel != "" {
		tt += fmt.Sprintf("\nHotkey: %s", cfg.HotkeyLabel)
	}
	if cfg.ModelLabel != "" {
		tt += fmt.Sprintf("\nModel: %s", cfg.ModelLabel)
	}
	if aboutExtra != "" {
		tt += "\n" + aboutExtra
	}
	return tt
}

func onReady() {
	if runtime.GOOS == "windows" {
		systray.SetIcon(iconICO)
	} else {
		systray.SetIcon(iconPNG)
	}

	mu.Lock()
	title := cfg.Title
	tooltip := cfg.Tooltip
	if title == "" {
		title = "Tray Translate"
	}
	if tooltip == "" {
		tooltip = title
	}
	mu.Unlock()

	systray.SetTitle(title)
	systray.SetTooltip(tooltip)

	captureItem := systray.AddMenuItem("Capture && translate", "Capture a region and translate it")
	mu.Lock()
	aboutItem = systray.AddMenuItem("About", aboutTooltip())
	mu.Unlock()
	aboutItem.Disable()
	systray.AddSeparator()
	quitItem := systray.AddMenuItem("Quit", "Exit the application")

	mu.Lock()
	ready = true
	mu.Unlock()

	go func() {
		for {
			select {
			case <-captureItem.ClickedCh:
				log.Printf("Tray: capture clicked")
				mu.Lock()
				onCapture := cfg.OnCapture
				mu.Unlock()
				if onCapture != nil {
					onCapture()
				}
			case <-quitItem.ClickedCh:
				log.Printf("Tray: quit clicked")
				systray.Quit()
				return
			}
		}
	}()
}

func onExit() {
	mu.Lock()
	ready = false
	onExitCb := cfg.OnExit
	mu.Unlock()
	if onExitCb != nil {
		onExitCb()
	}
}
