package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"tray-translate-llm/capture"
	"tray-translate-llm/clipboard"
	"tray-translate-llm/config"
	"tray-translate-llm/eventloop"
	"tray-translate-llm/logutil"
	"tray-translate-llm/notification"
	"tray-translate-llm/prompt"
	"tray-translate-llm/selector"
	"tray-translate-llm/session"
	"tray-translate-llm/singleinstance"
	"tray-translate-llm/translator"
	"tray-translate-llm/tray"
)

// normalizeFlagDashes maps GNU-style --run-once[-std] to Go's single-dash form.
func normalizeFlagDashes() {
	for i := 1; i < len(os.Args); i++ {
		arg := os.Args[i]
		switch {
		case arg == "--run-once":
			os.Args[i] = "-run-once"
		case strings.HasPrefix(arg, "--run-once="):
			os.Args[i] = "-run-once" + arg[len("--run-once"):]
		case arg == "--run-once-std":
			os.Args[i] = "-run-once-std"
		case strings.HasPrefix(arg, "--run-once-std="):
			os.Args[i] = "-run-once-std" + arg[len("--run-once-std"):]
		}
	}
}

func main() {
	// DPI awareness must be set before any window or screen metric is touched.
	enableDPIAwareness()

	// The tray needs the main OS thread on every supported platform.
	runtime.LockOSThread()

	runOnce := flag.Bool("run-once", false, "Translate once, copy to clipboard, and exit silently")
	runOnceStd := flag.Bool("run-once-std", false, "Translate once, print to stdout, and exit")
	normalizeFlagDashes()
	flag.Parse()

	if *runOnce || *runOnceStd {
		// Load .env early so TRAY_TRANSLATE_PORT_* apply before the delegation scan.
		_, _ = config.Load()
		stdout := *runOnceStd
		ctx := context.Background()
		client := singleinstance.NewClient()

		delegated, text, err := client.TryRunOnce(ctx, stdout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Resident error: %v\n", err)
			os.Exit(1)
		}
		if delegated {
			log.Printf("Delegated to resident")
			if stdout {
				fmt.Print(text)
			}
			return
		}
		log.Printf("No resident detected, running standalone")
		runTranslateOnce(stdout)
		return
	}

	// Load .env early so TRAY_TRANSLATE_PORT_* are available for pre-flight.
	_, _ = config.Load()

	// Pre-flight: the resident endpoint doubles as the single-instance lock.
	startPort, _ := singleinstance.PortRange()
	addr := fmt.Sprintf("127.0.0.1:%d", startPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Printf("Pre-flight: port %d busy, resident already exists", startPort)
		fmt.Fprintf(os.Stderr, "Another instance is already running on port %d\n", startPort)
		os.Exit(1)
	}
	// We claimed the port; release it so the event loop can re-bind.
	_ = listener.Close()
	log.Printf("Pre-flight: port %d free, claiming residency", startPort)

	cfg, err := config.Load()
	if err != nil {
		fatalStartup("Configuration error", err.Error())
	}

	logutil.Setup(cfg.EnableFileLogging)

	if err := validateAPIKey(cfg); err != nil {
		fatalStartup("Missing API key", err.Error())
	}

	// Validate the API endpoint immediately; a blocking dialog beats a
	// tray icon that silently fails on the first hotkey press.
	translator.Init(&translator.Config{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
		Timeout: time.Duration(cfg.TranslateDeadlineSec) * time.Second,
	})
	if err := translator.Ping(); err != nil {
		fatalStartup("Translation API unavailable", fmt.Sprintf("Startup check failed: %v\n\nPlease verify your API key and network connectivity.", err))
	}
	log.Printf("API ping succeeded")

	if err := clipboard.Init(); err != nil {
		fatalStartup("Clipboard unavailable", fmt.Sprintf("Failed to initialize clipboard: %v", err))
	}

	capture.Init(prompt.Resolve(cfg))

	log.Printf("Tray Translate initialized")
	log.Printf("Using model: %s via %s", cfg.Model, cfg.BaseURL)
	log.Printf("Hotkey: %s", cfg.Hotkey)
	log.Printf("Translate deadline: %ds", cfg.TranslateDeadlineSec)
	log.Printf("API key: %s", logutil.RedactKey(cfg.APIKey))

	tooltip := fmt.Sprintf("Tray Translate - Press %s to capture", cfg.Hotkey)
	loop := eventloop.New(cfg, selector.New(cfg), capture.TranslateRegion)
	loop.SetDefaultTooltip(tooltip)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop.StartHotkey(cfg.Hotkey)

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		cancel()
		tray.Quit()
	}()

	go func() {
		if err := loop.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("event loop stopped: %v", err)
		}
	}()

	// Blocks on the main thread until Quit.
	tray.Run(tray.Config{
		Title:       "Tray Translate",
		Tooltip:     tooltip,
		HotkeyLabel: cfg.Hotkey,
		ModelLabel:  cfg.Model,
		OnCapture:   loop.TriggerCapture,
		OnExit:      cancel,
	})
}

// validateAPIKey checks that a usable key was resolved, with actionable
// wording naming both configuration routes.
func validateAPIKey(cfg *config.Config) error {
	if cfg.APIKey == "" {
		return fmt.Errorf("%s is required. Set it in your .env file or point %s at a key file", config.APIKeyEnvVar, config.APIKeyPathEnvVar)
	}
	return nil
}

var (
	stderr        io.Writer = os.Stderr
	exit                    = os.Exit
	blockingError           = notification.ShowBlockingError
)

// fatalStartup reports a startup failure on every channel the user might be
// watching and exits. The log output alone is not enough: with file logging
// off it goes to io.Discard, which would make the failure silent.
func fatalStartup(title, message string) {
	fmt.Fprintf(stderr, "%s: %s\n", title, message)
	log.Printf("%s: %s", title, message)
	blockingError(title, message)
	exit(1)
}

// runTranslateOnce performs a single standalone capture+translate cycle.
func runTranslateOnce(outputToStdout bool) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logutil.Setup(cfg.EnableFileLogging)

	if err := validateAPIKey(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	translator.Init(&translator.Config{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
		Timeout: time.Duration(cfg.TranslateDeadlineSec) * time.Second,
	})
	if err := translator.Ping(); err != nil {
		notification.ShowBlockingError("Translation API unavailable", fmt.Sprintf("Startup check failed: %v\n\nPlease verify your API key and network connectivity.", err))
		os.Exit(1)
	}

	// Clipboard is initialized in both modes for consistent failures.
	if err := clipboard.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize clipboard: %v\n", err)
		os.Exit(1)
	}

	capture.Init(prompt.Resolve(cfg))

	var target session.ResultTarget
	if outputToStdout {
		target = session.StdoutTarget{}
	} else {
		target = session.ClipboardTarget{}
	}

	sel := selector.New(cfg)
	res, err := session.Execute(context.Background(), session.Options{
		Deadline:     time.Duration(cfg.TranslateDeadlineSec) * time.Second,
		SelectRegion: sel.Select,
		Target:       target,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Translation failed: %v\n", err)
		os.Exit(1)
	}

	log.Printf("Run-once completed (%d chars)", len(res.Text))
	if !outputToStdout {
		notification.ShowResult(res.Text)
	}
}
