// Package main provides an interactive CLI for driving the compilation demo:
// register sources, build them, evaluate expressions and inspect what the
// hooks did.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"maps"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/rickchristie/hookable"
	"github.com/rickchristie/hookable/config"
	"github.com/rickchristie/hookable/integrationtest/compilation"
	hookprom "github.com/rickchristie/hookable/metrics/prometheus"
	"github.com/rickchristie/hookable/telemetry"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// ANSI color codes
const (
	colorReset   = "\033[0m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorBlue    = "\033[34m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
	colorWhite   = "\033[37m"
	colorBold    = "\033[1m"
	colorDim     = "\033[2m"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr,
			"%sError: %v%s\n",
			colorRed, err, colorReset)
		os.Exit(1)
	}
}

type session struct {
	compiler *compilation.Compiler
	spans    *tracetest.SpanRecorder
	sources  map[string]string
	last     *compilation.Compilation
}

type command struct {
	name        string
	usage       string
	description string
	run         func(ctx context.Context, s *session, args string) error
}

var commands = []command{
	{"add", "add <name> <expr>", "Register a source module", cmdAdd},
	{"sources", "sources", "List registered sources", cmdSources},
	{"make", "make", "Run make and processAssets over the sources", cmdMake},
	{"assets", "assets", "Show the assets of the last build", cmdAssets},
	{"eval", "eval <expr>", "Evaluate a single expression", cmdEval},
	{"taps", "taps", "Show the registered taps of every hook", cmdTaps},
	{"stats", "stats", "Show dispatch counters", cmdStats},
	{"trace", "trace", "Dump recorded call traces as YAML", cmdTrace},
	{"spans", "spans", "List recorded OpenTelemetry spans", cmdSpans},
}

func run() error {
	configPath := flag.String("config", "", "path to a YAML config file")
	metricsAddr := flag.String("metrics", "", "serve Prometheus metrics on this address (e.g. :2112)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}

	// Create log directory and file
	logDir := ".logs"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf(
			"failed to create log directory: %w", err)
	}

	logFile, err := os.Create(
		filepath.Join(logDir, "cli_compilation.log"))
	if err != nil {
		return fmt.Errorf(
			"failed to create log file: %w", err)
	}
	defer logFile.Close()

	logger, err := cfg.Logger(logFile)
	if err != nil {
		return err
	}

	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	defer tp.Shutdown(context.Background())

	observers := []any{telemetry.NewObserver(telemetry.Tracer(tp))}

	if *metricsAddr != "" {
		reg := hookprom.NewRegistry()
		if err := hookprom.Register(reg); err != nil {
			return fmt.Errorf(
				"failed to register metrics: %w", err)
		}
		observers = append(observers, hookprom.NewObserver())

		srv := &http.Server{
			Addr:              *metricsAddr,
			Handler:           hookprom.Handler(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
		defer srv.Close()
		fmt.Printf("%sServing metrics on %s/metrics%s\n",
			colorDim, *metricsAddr, colorReset)
	}

	s := &session{
		compiler: compilation.New(compilation.Options{
			Config:    cfg,
			Logger:    logger,
			Observers: observers,
		}, compilation.DefaultPlugins()...),
		spans:   spans,
		sources: map[string]string{},
	}

	// Create readline instance for commands
	rl, err := readline.New(
		colorCyan +
			"hookable> " +
			colorReset)
	if err != nil {
		return fmt.Errorf(
			"failed to create readline: %w", err)
	}
	defer rl.Close()

	printHelp()

	for {
		input, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Printf(
					"\n%sGoodbye!%s\n",
					colorGreen, colorReset)
				return nil
			}
			return fmt.Errorf(
				"failed to read input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "q" || input == "quit" || input == "exit" {
			fmt.Printf(
				"%sGoodbye!%s\n",
				colorGreen, colorReset)
			return nil
		}
		if input == "help" {
			printHelp()
			continue
		}

		name, args, _ := strings.Cut(input, " ")
		idx := slices.IndexFunc(commands, func(c command) bool {
			return c.name == name
		})
		if idx < 0 {
			fmt.Printf(
				"%sUnknown command %q. "+
					"Type 'help' for a list.%s\n\n",
				colorRed, name, colorReset)
			continue
		}

		ctx, cancel := context.WithCancel(
			context.Background())

		sigCh := make(chan os.Signal, 1)
		signal.Notify(
			sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case <-sigCh:
				fmt.Printf(
					"\n%sReceived interrupt, "+
						"cancelling...%s\n",
					colorYellow, colorReset)
				cancel()
			case <-ctx.Done():
			}
		}()

		err = commands[idx].run(ctx, s, strings.TrimSpace(args))
		if err != nil {
			fmt.Fprintf(os.Stderr,
				"%sError: %v%s\n",
				colorRed, err, colorReset)
		}

		signal.Stop(sigCh)
		cancel()
		fmt.Println()
	}
}

func printHelp() {
	fmt.Println()
	fmt.Printf("%s%sCommands:%s\n",
		colorBold, colorBlue, colorReset)
	fmt.Printf("%s%s%s\n",
		colorBlue,
		strings.Repeat("-", 9),
		colorReset)
	for _, c := range commands {
		fmt.Printf("  %s%-18s%s %s\n",
			colorWhite, c.usage, colorReset,
			c.description)
	}
	fmt.Printf("  %s%-18s%s %s\n",
		colorWhite, "quit", colorReset,
		"Exit")
	fmt.Println()
}

func cmdAdd(_ context.Context, s *session, args string) error {
	name, src, ok := strings.Cut(args, " ")
	if !ok || strings.TrimSpace(src) == "" {
		return errors.New("usage: add <name> <expr>")
	}
	s.sources[name] = strings.TrimSpace(src)
	fmt.Printf("%sAdded %s%s\n", colorGreen, name, colorReset)
	return nil
}

func cmdSources(_ context.Context, s *session, _ string) error {
	if len(s.sources) == 0 {
		fmt.Printf("%sNo sources. Use 'add <name> <expr>'.%s\n",
			colorDim, colorReset)
		return nil
	}
	for _, name := range slices.Sorted(maps.Keys(s.sources)) {
		fmt.Printf("  %s%s%s = %s\n",
			colorWhite, name, colorReset, s.sources[name])
	}
	return nil
}

func cmdMake(ctx context.Context, s *session, _ string) error {
	start := time.Now()
	comp, err := s.compiler.Compile(ctx, s.sources)
	s.last = comp

	fmt.Printf("%s--- Plugin Log ---%s\n", colorYellow, colorReset)
	for _, line := range comp.Log() {
		fmt.Printf("  %s\n", line)
	}
	if err != nil {
		return err
	}
	fmt.Printf("%s[Stats: %d modules, %d assets, %s]%s\n",
		colorDim, len(comp.Modules()), len(comp.Assets),
		time.Since(start).Round(time.Microsecond), colorReset)
	return nil
}

func cmdAssets(_ context.Context, s *session, _ string) error {
	if s.last == nil {
		return errors.New("nothing built yet, run 'make' first")
	}
	for _, a := range s.last.Assets {
		fmt.Printf("%s--- %s ---%s\n%s%s%s",
			colorYellow, a.Name, colorReset,
			colorGreen, a.Content, colorReset)
	}
	return nil
}

func cmdEval(ctx context.Context, s *session, args string) error {
	if args == "" {
		return errors.New("usage: eval <expr>")
	}
	v, err := s.compiler.Eval(ctx, args)
	if err != nil {
		return err
	}
	fmt.Printf("%s%g%s\n", colorGreen, v, colorReset)
	return nil
}

func cmdTaps(_ context.Context, s *session, _ string) error {
	printTaps(s.compiler.Hooks.Make.Name()+" (parallel)", s.compiler.Hooks.Make.Taps())
	printTaps(s.compiler.Hooks.ProcessAssets.Name()+" (series)", s.compiler.Hooks.ProcessAssets.Taps())
	for _, key := range s.compiler.Parser.Evaluate.Keys() {
		printTaps(fmt.Sprintf("evaluate[%s] (bail)", key), s.compiler.Parser.Evaluate.For(key).Taps())
	}
	return nil
}

func printTaps(title string, taps []hookable.TapInfo) {
	fmt.Printf("%s%s%s\n", colorMagenta, title, colorReset)
	for _, t := range taps {
		fmt.Printf("  %s%5d%s  %s\n",
			colorDim, t.Stage, colorReset, t.Name)
	}
}

func cmdStats(_ context.Context, s *session, _ string) error {
	counters := s.compiler.Stats.Counters()
	for _, key := range slices.Sorted(maps.Keys(counters)) {
		fmt.Printf("  %-48s %s%d%s\n",
			key, colorCyan, counters[key], colorReset)
	}
	return nil
}

func cmdTrace(_ context.Context, s *session, _ string) error {
	return s.compiler.Traces.WriteYAML(os.Stdout)
}

func cmdSpans(_ context.Context, s *session, _ string) error {
	for _, span := range s.spans.Ended() {
		color := colorBlue
		if span.Status().Code == codes.Error {
			color = colorRed
		}
		fmt.Printf("  %s%-40s%s %s\n",
			color, span.Name(), colorReset,
			span.EndTime().Sub(span.StartTime()))
	}
	return nil
}
