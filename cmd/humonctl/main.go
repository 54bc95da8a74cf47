// Command humonctl talks to a Humon API server the way the mobile app does.
//
//	humonctl [-url URL] [-secret SECRET] [-session FILE] <command> [flags]
//
// Commands: register, create-event, show-event, update-event, nearby, attend.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/humon/server/internal/client"
	"github.com/humon/server/internal/geo"
	"github.com/humon/server/internal/lib/logger/sl"
)

func main() {
	_ = godotenv.Load(".env")

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		log.Error("humonctl failed", sl.Err(err))
		os.Exit(1)
	}
}

type app struct {
	client      *client.Client
	sessionPath string
	out         io.Writer
}

func run(ctx context.Context, args []string, out io.Writer) error {
	global := flag.NewFlagSet("humonctl", flag.ContinueOnError)
	baseURL := global.String("url", envOr("HUMON_URL", "http://localhost:8080"), "API base URL")
	secret := global.String("secret", os.Getenv("APP_SECRET"), "app secret sent on register")
	sessionPath := global.String("session", envOr("HUMON_SESSION", "humon-session.json"), "session file")
	if err := global.Parse(args); err != nil {
		return err
	}

	rest := global.Args()
	if len(rest) == 0 {
		return errors.New("missing command: register, create-event, show-event, update-event, nearby, attend")
	}

	a := &app{
		client:      client.New(*baseURL, *secret),
		sessionPath: *sessionPath,
		out:         out,
	}

	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "register":
		return a.register(ctx, cmdArgs)
	case "create-event":
		return a.createEvent(ctx, cmdArgs)
	case "show-event":
		return a.showEvent(ctx, cmdArgs)
	case "update-event":
		return a.updateEvent(ctx, cmdArgs)
	case "nearby":
		return a.nearby(ctx, cmdArgs)
	case "attend":
		return a.attend(ctx, cmdArgs)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	deviceToken := fs.String("device-token", "", "device token; reuses the saved one when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *deviceToken == "" {
		if saved, err := loadSession(a.sessionPath); err == nil {
			*deviceToken = saved.DeviceToken
		}
	}

	s, err := a.client.Register(ctx, *deviceToken)
	if err != nil {
		return err
	}
	if err := saveSession(a.sessionPath, s); err != nil {
		return err
	}
	return a.print(map[string]any{"user_id": s.UserID, "device_token": s.DeviceToken})
}

func (a *app) createEvent(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-event", flag.ContinueOnError)
	name := fs.String("name", "", "event name")
	address := fs.String("address", "", "street address")
	lat := fs.Float64("lat", 0, "latitude")
	lon := fs.Float64("lon", 0, "longitude")
	start := fs.String("start", "", "start time, RFC 3339 (default now)")
	end := fs.String("end", "", "end time, RFC 3339")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := loadSession(a.sessionPath)
	if err != nil {
		return err
	}

	e := client.NewEvent{Name: *name, Address: *address, Lat: *lat, Lon: *lon, StartedAt: time.Now().UTC()}
	if *start != "" {
		if e.StartedAt, err = time.Parse(time.RFC3339, *start); err != nil {
			return fmt.Errorf("-start: %w", err)
		}
	}
	if e.EndedAt, err = parseOptionalTime("-end", *end); err != nil {
		return err
	}

	id, err := a.client.CreateEvent(ctx, s, e)
	if err != nil {
		return err
	}
	return a.print(client.Ref{ID: id})
}

func (a *app) showEvent(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show-event", flag.ContinueOnError)
	id := fs.Int64("id", 0, "event id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := loadSession(a.sessionPath)
	if err != nil {
		return err
	}
	e, err := a.client.Event(ctx, s, *id)
	if err != nil {
		return err
	}
	return a.print(e)
}

func (a *app) updateEvent(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("update-event", flag.ContinueOnError)
	id := fs.Int64("id", 0, "event id")
	name := fs.String("name", "", "new name")
	address := fs.String("address", "", "new address")
	lat := fs.Float64("lat", 0, "new latitude")
	lon := fs.Float64("lon", 0, "new longitude")
	start := fs.String("start", "", "new start time, RFC 3339")
	end := fs.String("end", "", "new end time, RFC 3339")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Only flags given on the command line go into the patch.
	var patch client.EventPatch
	var err error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			patch.Name = name
		case "address":
			patch.Address = address
		case "lat":
			patch.Lat = lat
		case "lon":
			patch.Lon = lon
		}
	})
	if patch.StartedAt, err = parseOptionalTime("-start", *start); err != nil {
		return err
	}
	if patch.EndedAt, err = parseOptionalTime("-end", *end); err != nil {
		return err
	}

	s, err := loadSession(a.sessionPath)
	if err != nil {
		return err
	}
	if err := a.client.UpdateEvent(ctx, s, *id, patch); err != nil {
		return err
	}
	return a.print(client.Ref{ID: *id})
}

func (a *app) nearby(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("nearby", flag.ContinueOnError)
	lat := fs.Float64("lat", 0, "center latitude")
	lon := fs.Float64("lon", 0, "center longitude")
	span := fs.Float64("span", 0.1, "visible latitude span in degrees")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := loadSession(a.sessionPath)
	if err != nil {
		return err
	}
	found, err := a.client.NearbyEvents(ctx, s, client.Region{
		Center:        geo.Point{Lat: *lat, Lon: *lon},
		LatitudeDelta: *span,
	})
	if err != nil {
		return err
	}
	return a.print(found)
}

func (a *app) attend(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("attend", flag.ContinueOnError)
	id := fs.Int64("event", 0, "event id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := loadSession(a.sessionPath)
	if err != nil {
		return err
	}
	attendance, err := a.client.Attend(ctx, s, *id)
	if err != nil {
		return err
	}
	return a.print(attendance)
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseOptionalTime(flagName, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", flagName, err)
	}
	return &t, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
