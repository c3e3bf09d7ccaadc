package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"stream-consumer/internal/consumer"
)

const (
	_envAppEnv         = "ENV"
	_envStreamURL      = "STREAM_URL"
	_envUsername       = "STREAM_USERNAME"
	_envAPIKey         = "STREAM_API_KEY"
	_envBackoffBase    = "STREAM_BACKOFF_BASE"
	_envBackoffCap     = "STREAM_BACKOFF_CAP"
	_envMaxReconnects  = "STREAM_MAX_RECONNECTS"
	_defaultStreamURL  = "ws://websocket.datasift.com/multi"
	_appEnvDevelopment = "dev"
)

type Config struct {
	dev           bool
	url           string
	username      string
	apiKey        string
	backoffBase   time.Duration
	backoffCap    time.Duration
	maxReconnects int
	hashes        []string
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	config, err := initConfig(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	logger := initLogger(config.dev)
	defer logger.Sync()

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	client := consumer.New(ctx, config.url,
		consumer.WithLogger(logger),
		consumer.WithHeader(authHeader(config.username, config.apiKey)),
		consumer.WithBackoff(config.backoffBase, config.backoffCap),
		consumer.WithMaxReconnectAttempts(config.maxReconnects),
	)
	registerPrinters(client, out)

	fmt.Fprintln(out, "Consuming...")
	fmt.Fprintln(out, "--")
	if err := client.Start(); err != nil {
		return err
	}
	defer client.Stop()

	if err := client.Subscribe(config.hashes...); err != nil {
		return err
	}
	for _, hash := range config.hashes {
		fmt.Fprintf(out, "Subscribing to %q...\n", hash)
	}

	termChan := make(chan os.Signal, 1)
	signal.Notify(termChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-termChan:
		return nil
	case <-client.Done():
		return client.Err()
	}
}

func registerPrinters(client consumer.Consumer, out io.Writer) {
	client.Handle(consumer.KindData, func(ev consumer.Event) error {
		printInteraction(out, ev.Payload)
		return nil
	})
	client.Handle(consumer.KindWarning, func(ev consumer.Event) error {
		fmt.Fprintf(out, "Warning: %s\n", ev.Message)
		return nil
	})
	client.Handle(consumer.KindError, func(ev consumer.Event) error {
		fmt.Fprintf(out, "Error: %s\n", ev.Message)
		return nil
	})
	client.Handle(consumer.KindStatusChange, func(ev consumer.Event) error {
		if ev.Message != "stopped" {
			return nil
		}
		reason := "client stopped"
		if ev.Err != nil {
			reason = ev.Err.Error()
		}
		fmt.Fprintf(out, "Stopped: %s\n", reason)
		return nil
	})
}

type interaction struct {
	Interaction struct {
		Author struct {
			Name string `json:"name"`
		} `json:"author"`
		Content string `json:"content"`
	} `json:"interaction"`
}

// printInteraction prints "author: content", or the raw interaction when
// either field is missing
func printInteraction(out io.Writer, payload json.RawMessage) {
	i := interaction{}
	err := json.Unmarshal(payload, &i)
	if err == nil && i.Interaction.Author.Name != "" && i.Interaction.Content != "" {
		fmt.Fprintf(out, "%s: %s\n", i.Interaction.Author.Name, i.Interaction.Content)
	} else {
		fmt.Fprintln(out, "Exception: interaction has no author name or content")
		fmt.Fprintf(out, "Interaction: %s\n", string(payload))
	}
	fmt.Fprintln(out, "--")
}

func initConfig(args []string) (Config, error) {
	config := Config{
		dev:           isDev(),
		url:           getEnv(_envStreamURL, _defaultStreamURL),
		username:      getEnv(_envUsername, ""),
		apiKey:        getEnv(_envAPIKey, ""),
		backoffBase:   getDuration(_envBackoffBase, 100*time.Millisecond),
		backoffCap:    getDuration(_envBackoffCap, 30*time.Second),
		maxReconnects: getInt(_envMaxReconnects, 0),
	}

	flagSet := pflag.NewFlagSet("stream-consumer", pflag.ContinueOnError)
	flagSet.StringVar(&config.url, "url", config.url, "websocket endpoint of the stream server")
	flagSet.StringVarP(&config.username, "username", "u", config.username, "account username")
	flagSet.StringVarP(&config.apiKey, "api-key", "k", config.apiKey, "account API key")
	flagSet.DurationVar(&config.backoffBase, "backoff-base", config.backoffBase, "first reconnect delay")
	flagSet.DurationVar(&config.backoffCap, "backoff-cap", config.backoffCap, "maximum reconnect delay")
	flagSet.IntVar(&config.maxReconnects, "max-reconnects", config.maxReconnects, "give up after this many failed connection attempts (0 retries forever)")
	flagSet.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: stream-consumer [flags] HASH...")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		return Config{}, err
	}

	config.hashes = flagSet.Args()
	if len(config.hashes) == 0 {
		flagSet.Usage()
		return Config{}, errors.New("at least one stream hash is required")
	}

	return config, nil
}

func initLogger(isDev bool) *zap.Logger {
	var err error
	var logger *zap.Logger

	if isDev {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}

	if err != nil {
		panic(err)
	}

	return logger
}

func authHeader(username, apiKey string) http.Header {
	header := http.Header{}
	if username != "" || apiKey != "" {
		header.Set("Auth", username+":"+apiKey)
	}
	return header
}

func isDev() bool {
	env, ok := os.LookupEnv(_envAppEnv)
	return !ok || env == _appEnvDevelopment
}

func getEnv(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return n
}
