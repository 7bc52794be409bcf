package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/PheelaV/kr-notebook-sub000/connectivity"
	"github.com/PheelaV/kr-notebook-sub000/gateway"
	"github.com/PheelaV/kr-notebook-sub000/internal/profile"
	"github.com/PheelaV/kr-notebook-sub000/remote"
	"github.com/PheelaV/kr-notebook-sub000/store"
	"github.com/PheelaV/kr-notebook-sub000/store/db"
	"github.com/PheelaV/kr-notebook-sub000/study"
	"github.com/PheelaV/kr-notebook-sub000/syncer"
	"github.com/PheelaV/kr-notebook-sub000/tui"
)

var rootCmd = &cobra.Command{
	Use:   "krnote",
	Short: "Offline-first spaced-repetition study client",
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		level := slog.LevelInfo
		if viper.GetString("mode") != "prod" {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download a fresh study session for offline use",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := buildProfile()
		if err != nil {
			return err
		}
		st, err := openStore(cmd.Context(), p)
		if err != nil {
			return err
		}
		defer st.Close()

		client := newRemoteClient(p)
		session, err := client.DownloadSession(cmd.Context(), p.SessionMinutes, p.FilterMode)
		if err != nil {
			if errors.Is(err, remote.ErrOfflineDisabled) {
				fmt.Println("offline study is disabled on the server; enable it in the server settings first")
				return nil
			}
			return errors.Wrap(err, "download failed")
		}
		if err := st.SaveSession(cmd.Context(), session); err != nil {
			return errors.Wrap(err, "failed to save session")
		}
		fmt.Printf("downloaded session %s with %d cards\n", session.SessionID, len(session.Cards))
		return nil
	},
}

var studyCmd = &cobra.Command{
	Use:   "study",
	Short: "Study the downloaded session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := buildProfile()
		if err != nil {
			return err
		}
		st, err := openStore(cmd.Context(), p)
		if err != nil {
			return err
		}
		defer st.Close()

		controller := study.NewController(st, study.NewScheduler(), study.Config{
			StaleAfterHours: p.StaleAfterHours,
		})
		if err := controller.Init(cmd.Context()); err != nil {
			if errors.Is(err, store.ErrNoSession) {
				fmt.Println("no session downloaded yet; run `krnote download` while online")
				return nil
			}
			return err
		}

		program := tea.NewProgram(tui.New(controller), tea.WithAltScreen())

		client := newRemoteClient(p)
		detector := connectivity.NewDetector(
			client, st, syncer.New(st, client),
			nil, tui.NewPrompter(program),
			detectorConfig(p),
		)
		defer detector.Close()

		// One stability cycle at startup: if the backend is up and reviews
		// are pending, the TUI surfaces a sync prompt.
		go func() {
			if detector.IsBackendReachable(cmd.Context()) {
				detector.HandleOnline()
			}
		}()

		_, err = program.Run()
		return err
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upload pending reviews to the server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := buildProfile()
		if err != nil {
			return err
		}
		st, err := openStore(cmd.Context(), p)
		if err != nil {
			return err
		}
		defer st.Close()

		result, err := syncer.New(st, newRemoteClient(p)).Sync(cmd.Context())
		if err != nil {
			return errors.Wrap(err, "sync failed")
		}

		switch result.Outcome {
		case syncer.OutcomeNothingPending:
			fmt.Println("nothing to sync")
		case syncer.OutcomeSuccess:
			fmt.Printf("synced %d reviews\n", result.SyncedCount)
		case syncer.OutcomeAllSkipped:
			fmt.Printf("all %d reviews were already handled elsewhere\n", result.SkippedCount)
		case syncer.OutcomePartial:
			fmt.Printf("synced %d reviews, %d kept for retry\n", result.SyncedCount, len(result.FailedCardIDs))
			for _, msg := range result.Errors {
				fmt.Println("  " + msg)
			}
		default:
			fmt.Println("sync failed, nothing was cleared; try again later")
		}
		return nil
	},
}

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Run the local caching gateway",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := buildProfile()
		if err != nil {
			return err
		}
		st, err := openStore(cmd.Context(), p)
		if err != nil {
			return err
		}
		defer st.Close()

		client := newRemoteClient(p)
		detector := connectivity.NewDetector(
			client, st, syncer.New(st, client), nil, nil, detectorConfig(p))
		defer detector.Close()

		server, err := gateway.NewServer(p, client, gateway.Config{
			UpstreamTimeout: 10 * time.Second,
			Online:          detector.IsBackendReachableSync,
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.Start(ctx, p.GatewayAddr())
	},
}

func init() {
	viper.AutomaticEnv()
	viper.SetEnvPrefix("krnote")

	rootCmd.PersistentFlags().String("mode", "demo", `mode of the client, can be "prod", "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "binding address for the gateway")
	rootCmd.PersistentFlags().Int("port", 8230, "binding port for the gateway")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver")
	rootCmd.PersistentFlags().String("dsn", "", "database source name")
	rootCmd.PersistentFlags().String("server-url", "http://localhost:8787", "base URL of the server of record")

	for _, flag := range []string{"mode", "addr", "port", "data", "driver", "dsn", "server-url"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	downloadCmd.Flags().Int("minutes", 0, "session duration in minutes")
	downloadCmd.Flags().String("filter", "", "card filter mode")
	_ = viper.BindPFlag("session_minutes", downloadCmd.Flags().Lookup("minutes"))
	_ = viper.BindPFlag("filter_mode", downloadCmd.Flags().Lookup("filter"))

	rootCmd.AddCommand(downloadCmd, studyCmd, syncCmd, gatewayCmd)
}

func buildProfile() (*profile.Profile, error) {
	p := &profile.Profile{
		Mode:      viper.GetString("mode"),
		Addr:      viper.GetString("addr"),
		Port:      viper.GetInt("port"),
		Data:      viper.GetString("data"),
		Driver:    viper.GetString("driver"),
		DSN:       viper.GetString("dsn"),
		ServerURL: viper.GetString("server-url"),
		Version:   version,
	}
	p.FromEnv()
	if m := viper.GetInt("session_minutes"); m > 0 {
		p.SessionMinutes = m
	}
	if f := viper.GetString("filter_mode"); f != "" {
		p.FilterMode = f
	}
	if p.Data == "" {
		p.Data = "."
	}
	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return p, nil
}

func openStore(ctx context.Context, p *profile.Profile) (*store.Store, error) {
	driver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open local store")
	}
	st := store.New(driver, p)
	if err := st.Migrate(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to migrate local store")
	}
	return st, nil
}

func newRemoteClient(p *profile.Profile) *remote.Client {
	return remote.NewClient(&remote.Config{
		ServerURL:  p.ServerURL,
		HealthPath: p.HealthPath,
		Timeout:    30 * time.Second,
	})
}

func detectorConfig(p *profile.Profile) connectivity.Config {
	config := connectivity.DefaultConfig()
	config.StaleAfterHours = p.StaleAfterHours
	config.SessionMinutes = p.SessionMinutes
	config.FilterMode = p.FilterMode
	return config
}

// version is stamped at build time.
var version = "0.1.0"

func main() {
	// Optional .env next to the binary, for development setups.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
