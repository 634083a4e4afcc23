// Command watch tails live product updates for one subdivision and
// apartment type. It logs in against the REST API, opens the websocket
// endpoint and prints every event it receives.
package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/minhanhland/inventory/internal/apiclient"
	"github.com/minhanhland/inventory/internal/domain"
	"github.com/minhanhland/inventory/internal/ws"
	"github.com/minhanhland/inventory/internal/wsclient"
)

var (
	serverURL     string
	username      string
	password      string
	subdivision   string
	apartmentType string
	verbose       bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "watch",
		Short: "Tail live inventory updates from the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return watch(cmd.Context())
		},
	}

	rootCmd.Flags().StringVar(&serverURL, "server", "http://localhost:3000", "API server base URL")
	rootCmd.Flags().StringVarP(&username, "user", "u", "admin", "username")
	rootCmd.Flags().StringVarP(&password, "password", "p", "", "password (or WATCH_PASSWORD)")
	rootCmd.Flags().StringVar(&subdivision, "subdivision", "", "subdivision id to watch")
	rootCmd.Flags().StringVar(&apartmentType, "apartment-type", "", "apartment type id to watch")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.MarkFlagRequired("subdivision")
	rootCmd.MarkFlagRequired("apartment-type")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func watch(ctx context.Context) error {
	logger, err := buildLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if password == "" {
		password = os.Getenv("WATCH_PASSWORD")
	}
	if password == "" {
		return fmt.Errorf("password is required (use --password or WATCH_PASSWORD)")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	api := apiclient.NewClient(serverURL, 15*time.Second, logger)
	user, err := api.Login(ctx, username, password)
	if err != nil {
		return err
	}
	logger.Info("logged in", zap.String("user", user.Username))

	page, err := api.ListProducts(ctx, subdivision, apartmentType, 1, 1)
	if err != nil {
		return err
	}
	fmt.Printf("partition currently holds %d products\n", page.Meta.Total)

	wsURL, err := websocketURL(serverURL, api.Token())
	if err != nil {
		return err
	}

	client := wsclient.NewClient(wsURL, wsclient.Config{}, logger)
	defer client.Disconnect()

	print := func(label string) wsclient.Handler {
		return func(env ws.Envelope) {
			fmt.Printf("[%s] %s %s\n", env.Timestamp, label, summarize(env))
		}
	}
	client.OnProductCreated(print("created"))
	client.OnProductUpdated(print("updated"))
	client.OnProductDeleted(print("deleted"))

	client.Connect()
	if err := client.JoinProductRoom(subdivision, apartmentType); err != nil {
		logger.Warn("join deferred until connected", zap.Error(err))
	}

	fmt.Printf("watching %s/%s, press Ctrl-C to stop\n", subdivision, apartmentType)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	return nil
}

func websocketURL(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/products/ws"
	u.RawQuery = "token=" + url.QueryEscape(token)
	return u.String(), nil
}

func summarize(env ws.Envelope) string {
	var p domain.Product
	if err := ws.DecodePayload(env, &p); err == nil && p.ApartmentCode != "" {
		return fmt.Sprintf("%s (%s)", p.ApartmentCode, p.Status)
	}
	return string(env.Data)
}

func buildLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	return cfg.Build()
}
