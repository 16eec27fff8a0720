package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/goccy/go-json"

	"github.com/goliatone/go-formedit/pkg/config"
	"github.com/goliatone/go-formedit/pkg/orchestrator"
	"github.com/goliatone/go-formedit/pkg/render/html"
	"github.com/goliatone/go-formedit/pkg/renderers/tui"
	"github.com/goliatone/go-formedit/pkg/schema"
)

func main() {
	source := flag.String("schema", "schema.json", "editor schema path or URL (JSON, YAML or OpenAPI)")
	component := flag.String("component", "", "OpenAPI component to edit (components.schemas)")
	configPath := flag.String("config", "formedit.toml", "configuration file (TOML or YAML)")
	endpoint := flag.String("endpoint", "", "upload endpoint, overrides the configuration")
	value := flag.String("value", "", "initial value as JSON")
	errorsJSON := flag.String("errors", "", "validation errors as a JSON object of path to messages")
	format := flag.String("format", "json", "terminal output format: json, form or pretty")
	renderHTML := flag.Bool("html", false, "render an HTML page instead of prompting")
	action := flag.String("action", "", "form action for -html")
	output := flag.String("output", "", "output file (stdout if empty)")
	verbose := flag.Bool("v", false, "log editor events to stderr")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	src, err := schema.ParseSource(*source)
	if err != nil {
		log.Fatalf("invalid schema source %q: %v", *source, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *endpoint != "" {
		cfg.Upload.Endpoint = *endpoint
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	req := orchestrator.Request{Source: src, Component: *component}
	if *value != "" {
		if err := json.Unmarshal([]byte(*value), &req.Value); err != nil {
			log.Fatalf("invalid -value: %v", err)
		}
	}
	if *errorsJSON != "" {
		if err := json.Unmarshal([]byte(*errorsJSON), &req.Errors); err != nil {
			log.Fatalf("invalid -errors: %v", err)
		}
	}

	gen := orchestrator.New(
		orchestrator.WithConfig(cfg),
		orchestrator.WithLogger(logger),
	)

	var result []byte
	if *renderHTML {
		result, err = gen.Render(ctx, req, html.RenderOptions{Action: *action})
	} else {
		result, err = gen.Edit(ctx, req,
			tui.WithOutputFormat(tui.OutputFormat(*format)),
			tui.WithPromptDriver(tui.NewSurveyDriver(os.Stderr)),
		)
	}
	if err != nil {
		log.Fatalf("Failed to edit value: %v", err)
	}

	if *output != "" {
		if err := os.WriteFile(*output, result, 0o644); err != nil {
			log.Fatalf("Failed to write output: %v", err)
		}
		fmt.Fprintf(os.Stderr, "Value written to %s\n", *output)
		return
	}
	fmt.Println(string(result))
}
