package main

import (
	"bytes"
	_ "embed"
	"flag"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/himanshub16/patchbay/htmldoc"
)

//go:embed web/index.html
var defaultPage []byte

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().Timestamp().Logger()
}

func loadPage(path string) (*htmldoc.Document, error) {
	if path == "" {
		return htmldoc.Parse(bytes.NewReader(defaultPage))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return htmldoc.Parse(f)
}

// openRepository picks the storage by the scheme of dbUrl.
func openRepository(dbUrl string) (UserRepository, TrackRepository, error) {
	u, err := url.Parse(dbUrl)
	if err != nil {
		return nil, nil, err
	}
	switch u.Scheme {
	case "postgres":
		pgdb, err := NewPostgresRepository(dbUrl)
		if err != nil {
			return nil, nil, err
		}
		return pgdb, pgdb, nil
	default:
		path := u.Host + u.Path
		if u.Scheme == "" {
			path = dbUrl
		}
		sqlitedb, err := NewSQLiteRepository(path)
		if err != nil {
			return nil, nil, err
		}
		return sqlitedb, sqlitedb, nil
	}
}

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML config file")
		addr       = flag.String("addr", "", "listen address, overrides the config")
		page       = flag.String("page", "", "HTML page to serve, overrides the config")
	)
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	log := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *page != "" {
		cfg.Page = *page
	}

	log.Info().Str("db", cfg.DBURL).Msg("opening database")
	userRepo, trackRepo, err := openRepository(cfg.DBURL)
	if err != nil {
		log.Fatal().Err(err).Msg("opening database")
	}
	service := &ServiceImpl{
		userRepo:  userRepo,
		trackRepo: trackRepo,
	}
	defer service.close()

	doc, err := loadPage(cfg.Page)
	if err != nil {
		log.Fatal().Err(err).Str("page", cfg.Page).Msg("parsing page")
	}

	backend := NewWSBackend(log.With().Str("component", "ws").Logger())
	station := NewStation(cfg.Patchbay, doc, backend, service, log.With().Str("component", "patchbay").Logger())
	station.Start()
	defer station.Shutdown()

	echoRouter := NewHTTPRouter(service, station, cfg.JWTSecret)
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Info().Msg("shutting down")
		echoRouter.Close()
	}()

	log.Info().Str("addr", cfg.Addr).Msg("listening")
	if err := echoRouter.Start(cfg.Addr); err != nil {
		log.Info().Err(err).Msg("server stopped")
	}
}
