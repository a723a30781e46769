package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/timzifer/rfbridge/bridge"
	"github.com/timzifer/rfbridge/document"
	"github.com/timzifer/rfbridge/internal/config"
	"github.com/timzifer/rfbridge/internal/logging"
	"github.com/timzifer/rfbridge/persist"
	"github.com/timzifer/rfbridge/remote"
	"github.com/timzifer/rfbridge/settings"
	"github.com/timzifer/rfbridge/storage"
)

// restartExitCode asks the supervisor to start the process again.
const restartExitCode = 75

func main() {
	defaultConfig := "config.yaml"
	if env := os.Getenv("RFBRIDGE_CONFIG"); env != "" {
		defaultConfig = env
	}
	cfgPath := flag.String("config", defaultConfig, "Path to configuration file")
	printSettings := flag.Bool("print", false, "Print the settings and exit")
	pretty := flag.Bool("pretty", false, "Indent printed settings")
	checkFile := flag.String("check", "", "Lint a settings document against the schema and exit")
	query := flag.String("query", "", "Evaluate an expression against the settings and exit")
	applyFile := flag.String("apply", "", "Patch the settings with a document and exit")
	remoteAddr := flag.String("remote", "", "Use the settings API of a running bridge instead of the data dir")
	flag.Parse()

	if *checkFile != "" {
		os.Exit(executeCheck(*checkFile))
	}

	if *remoteAddr != "" {
		endpoint := remote.Endpoint{
			Address:  *remoteAddr,
			Username: os.Getenv("RFBRIDGE_REMOTE_USER"),
			Password: os.Getenv("RFBRIDGE_REMOTE_PASSWORD"),
		}
		os.Exit(executeRemote(remote.NewHTTPClientFactory(), endpoint, *applyFile, *query, *pretty))
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	switch {
	case *applyFile != "":
		os.Exit(executeApply(cfg, *applyFile, *pretty))
	case *printSettings || *query != "":
		current, err := readSettings(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read settings: %v\n", err)
			os.Exit(1)
		}
		if *query != "" {
			os.Exit(executeQuery(&current, *query))
		}
		fmt.Println(current.ToJSON(*pretty))
		return
	}

	logger, cleanup, err := logging.Setup(cfg.Logging)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup logger")
	}
	log.Logger = logger

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	b, err := bridge.New(ctx, bridge.WithConfig(cfg), bridge.WithLogger(logger))
	if err != nil {
		cancel()
		cleanup()
		log.Fatal().Err(err).Msg("failed to create bridge")
	}
	err = b.Run(ctx)
	cancel()
	cleanup()
	switch {
	case errors.Is(err, bridge.ErrRestart):
		os.Exit(restartExitCode)
	case err != nil && !errors.Is(err, context.Canceled):
		log.Fatal().Err(err).Msg("bridge stopped with error")
	}
}

// readSettings loads the stored settings without writing defaults back.
func readSettings(cfg *config.Config) (settings.Settings, error) {
	current := settings.Default()
	store, err := storage.NewDir(cfg.DataDir)
	if err != nil {
		return current, err
	}
	if !store.Exists(settings.FileName) {
		return current, nil
	}
	persist.New(store, zerolog.Nop()).Load(&current)
	return current, nil
}

func executeApply(cfg *config.Config, path string, pretty bool) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", path, err)
		return 1
	}
	doc, err := document.Parse(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse %s: %v\n", path, err)
		return 1
	}
	if _, ok := doc.AsObject(); !ok {
		fmt.Fprintf(os.Stderr, "%s: settings document must be an object\n", path)
		return 1
	}
	store, err := storage.NewDir(cfg.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open data dir: %v\n", err)
		return 1
	}
	ctrl := persist.New(store, zerolog.Nop())
	var current settings.Settings
	ctrl.Load(&current)
	issues := current.Patch(doc, zerolog.Nop())
	if err := ctrl.Save(&current); err != nil {
		fmt.Fprintf(os.Stderr, "save settings: %v\n", err)
		return 1
	}
	for _, issue := range issues {
		fmt.Fprintln(os.Stderr, issue.String())
	}
	fmt.Println(current.ToJSON(pretty))
	return 0
}

func executeRemote(factory remote.ClientFactory, endpoint remote.Endpoint, applyFile, query string, pretty bool) int {
	client, err := factory(endpoint)
	if err != nil {
		fmt.Fprintf(os.Stderr, "remote: %v\n", err)
		return 1
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var current settings.Settings
	if applyFile != "" {
		data, err := os.ReadFile(applyFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read %s: %v\n", applyFile, err)
			return 1
		}
		result, err := client.Put(ctx, data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "remote apply: %v\n", err)
			return 1
		}
		if result.SaveError != "" {
			fmt.Fprintf(os.Stderr, "bridge applied the settings but could not store them: %s\n", result.SaveError)
		}
		if result.Skipped > 0 {
			fmt.Fprintf(os.Stderr, "bridge skipped %d entries\n", result.Skipped)
		}
		current = result.Settings
	} else {
		current, err = client.Get(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "remote get: %v\n", err)
			return 1
		}
	}
	if query != "" {
		return executeQuery(&current, query)
	}
	fmt.Println(current.ToJSON(pretty))
	return 0
}

func executeCheck(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", path, err)
		return 1
	}
	issues, err := settings.Check(path, data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "settings document invalid: %v\n", err)
		return 1
	}
	if len(issues) == 0 {
		fmt.Println("Settings document OK.")
		return 0
	}
	for _, issue := range issues {
		fmt.Println(issue.String())
	}
	return 1
}

func executeQuery(current *settings.Settings, expression string) int {
	result, err := current.Query(expression)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query failed: %v\n", err)
		return 1
	}
	fmt.Println(result)
	return 0
}
