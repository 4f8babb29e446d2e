package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/decorchat/internal/profile"
	"github.com/hrygo/decorchat/server"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

var (
	rootCmd = &cobra.Command{
		Use:   "decorchat",
		Short: `A conversational shopping assistant for a home decor store.`,
		Run: func(_ *cobra.Command, _ []string) {
			instanceProfile, err := loadProfile()
			if err != nil {
				slog.Error("invalid configuration", "error", err)
				os.Exit(1)
			}
			setupLogger(instanceProfile)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			app, err := bootstrap(ctx, instanceProfile)
			if err != nil {
				slog.Error("failed to start decorchat", "error", err)
				os.Exit(1)
			}

			s := server.NewServer(instanceProfile, app.store, app.chatService, app.mcpServer, app.embeddingRunner)

			c := make(chan os.Signal, 1)
			// Trigger graceful shutdown on SIGINT or SIGTERM.
			signal.Notify(c, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-c
				s.Shutdown(ctx)
				app.close()
				cancel()
			}()

			printGreetings(instanceProfile)

			if err := s.Start(ctx); err != nil {
				slog.Error("failed to start server", "error", err)
				os.Exit(1)
			}

			// Wait for the shutdown goroutine to finish.
			<-ctx.Done()
		},
	}
)

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("addr", "")
	viper.SetDefault("data", "data")

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 0, "port of server (defaults to $PORT, then 8000)")
	rootCmd.PersistentFlags().String("data", "data", "data directory for the sqlite driver")
	rootCmd.PersistentFlags().String("driver", "", `database driver, "postgres" or "sqlite" (inferred from the DSN when empty)`)
	rootCmd.PersistentFlags().String("dsn", "", "database source name (defaults to $DB_URI)")

	for _, name := range []string{"mode", "addr", "port", "data", "driver", "dsn"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("decorchat")
	viper.AutomaticEnv()

	rootCmd.AddCommand(seedCmd)
}

// loadProfile merges flags, DECORCHAT_* variables and dotenv files into a
// validated profile.
func loadProfile() (*profile.Profile, error) {
	mode := viper.GetString("mode")
	profile.LoadEnvFiles(mode)

	instanceProfile := &profile.Profile{
		Mode:    mode,
		Addr:    viper.GetString("addr"),
		Port:    viper.GetInt("port"),
		Data:    viper.GetString("data"),
		Driver:  viper.GetString("driver"),
		DSN:     viper.GetString("dsn"),
		Version: version,
	}
	instanceProfile.FromEnv()
	if err := instanceProfile.Validate(); err != nil {
		return nil, err
	}
	return instanceProfile, nil
}

func setupLogger(p *profile.Profile) {
	var handler slog.Handler
	if p.IsDev() {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
}

func printGreetings(p *profile.Profile) {
	fmt.Printf("decorchat %s started successfully!\n", p.Version)
	if p.IsDev() {
		fmt.Fprint(os.Stderr, "Development mode is enabled\n")
		fmt.Fprintf(os.Stderr, "Database driver: %s\n", p.Driver)
	}
	if len(p.Addr) == 0 {
		fmt.Printf("Chat API running on port %d\n", p.Port)
	} else {
		fmt.Printf("Chat API running on address %s:%d\n", p.Addr, p.Port)
	}
	fmt.Printf("  POST /api/v1/chat\n  POST /api/v1/chat/:threadId\n")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
