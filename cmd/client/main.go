package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"storysync/internal/config"
	"storysync/internal/directory"
	"storysync/internal/session"
)

func main() {
	scenario := flag.String("scenario", "", "create a session with this scenario")
	join := flag.String("join", "", "join an existing session id")
	password := flag.String("password", "", "session password")
	flag.Parse()

	if (*scenario == "") == (*join == "") {
		log.Fatal("exactly one of -scenario or -join is required")
	}

	var cfg config.Client
	if err := config.Load(&cfg); err != nil {
		log.Fatal(err)
	}

	logger := newLogger(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	dir := directory.NewClient(cfg.ServerURL, logger)

	identity, err := resolveIdentity(ctx, dir, cfg, *scenario, *join, *password)
	if err != nil {
		logger.Fatal("could not enter session", zap.Error(err))
	}
	fmt.Printf("Session %s as %s\n", identity.SessionID, cfg.PlayerName)
	if identity.IsHost {
		fmt.Println("You are the host. Type /start once everyone is in.")
	}

	rec := session.New(ctx, logger, dir, session.NewStreamDialer(cfg.ServerURL, logger))
	defer rec.Teardown()
	gate := session.NewGate(rec)
	rec.Begin(identity)

	go render(rec)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if rec.View().Phase == session.PhaseClosed {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "/quit":
			return
		case line == "/start":
			if err := dir.StartSession(ctx, identity.SessionID, identity.LocalPlayerID); err != nil {
				fmt.Println("!!", err)
			}
		default:
			if err := gate.SubmitAction(ctx, line); err != nil {
				fmt.Println("!!", err)
			}
		}
	}
}

func resolveIdentity(ctx context.Context, dir *directory.Client, cfg config.Client, scenario, join, password string) (session.Identity, error) {
	if scenario != "" {
		res, err := dir.CreateSession(ctx, scenario, cfg.PlayerName, cfg.PlayerClass, password)
		if err != nil {
			return session.Identity{}, err
		}
		return session.Identity{SessionID: res.SessionID, LocalPlayerID: res.PlayerID, IsHost: true}, nil
	}

	res, err := dir.JoinSession(ctx, join, cfg.PlayerName, cfg.PlayerClass, password)
	if err != nil {
		return session.Identity{}, err
	}
	return session.Identity{SessionID: join, LocalPlayerID: res.PlayerID, IsHost: res.IsHost}, nil
}

// render prints new story lines and banner changes as views are published.
func render(rec *session.Reconciler) {
	printed := 0
	lastBanner := ""
	for range rec.Changed() {
		v := rec.View()
		d := session.Project(v)
		for _, line := range d.Story[min(printed, len(d.Story)):] {
			fmt.Println(line)
		}
		printed = len(d.Story)
		if d.Banner != lastBanner {
			fmt.Println("==", d.Banner)
			lastBanner = d.Banner
		}
		if v.Phase == session.PhaseClosed {
			fmt.Println("Press enter to exit.")
			return
		}
	}
}

func newLogger(level string) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := cfg.Build()
	if err != nil {
		log.Fatal(err)
	}
	return logger
}
