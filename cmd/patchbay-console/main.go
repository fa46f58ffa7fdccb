// patchbay-console binds the players of a local HTML page and plays them
// through the sound card, driven from a prompt.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/himanshub16/patchbay/htmldoc"
	"github.com/himanshub16/patchbay/patchbay"
	"github.com/himanshub16/patchbay/speakerout"
)

func loadSettings(path string) (patchbay.Settings, error) {
	var s patchbay.Settings
	if path == "" {
		return s, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := yaml.Unmarshal(b, &s); err != nil {
		return s, fmt.Errorf("parsing %s: %w", path, err)
	}
	return s, nil
}

func main() {
	var (
		page       = flag.String("page", "", "HTML page holding the players")
		configPath = flag.String("config", "", "YAML file with patchbay settings")
		server     = flag.String("server", "", "catalog server, overrides the config")
		level      = flag.String("log", "info", "log level")
	)
	flag.Parse()

	lvl, err := zerolog.ParseLevel(*level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()

	if *page == "" {
		fmt.Println("Usage: patchbay-console -page <file.html> [-config settings.yaml] [-server url]")
		os.Exit(2)
	}
	settings, err := loadSettings(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("loading settings")
	}
	if *server != "" {
		settings.Server = *server
	}
	settings = settings.Merge(patchbay.DefaultSettings())

	f, err := os.Open(*page)
	if err != nil {
		log.Fatal().Err(err).Msg("opening page")
	}
	doc, err := htmldoc.Parse(f)
	f.Close()
	if err != nil {
		log.Fatal().Err(err).Msg("parsing page")
	}

	backend, err := speakerout.New(log.With().Str("component", "speaker").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("opening speaker")
	}
	defer backend.Close()

	lookup := &patchbay.HTTPLookup{
		Endpoint: strings.TrimRight(settings.Server, "/") + "/api/tracks",
	}
	pb := patchbay.New(settings, doc, backend,
		patchbay.WithLogger(log),
		patchbay.WithLookup(lookup),
	)
	c := &console{pb: pb, doc: doc, volume: backend.SetVolume}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// the loop is not running yet, so Init can run here
	report := pb.Init()
	fmt.Printf("bound %d players (%d invalid), master found: %v\n", len(report.Added), len(report.Invalid), report.MasterFound)
	go pb.Loop().Run(ctx)

	rl, err := readline.NewEx(&readline.Config{
		Prompt: ">> ",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("status"),
			readline.PcItem("click"),
			readline.PcItem("sweep"),
			readline.PcItem("append"),
			readline.PcItem("retry"),
			readline.PcItem("render"),
			readline.PcItem("volume"),
			readline.PcItem("help"),
			readline.PcItem("quit"),
		),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("opening prompt")
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("reading prompt")
			return
		}

		var (
			quit bool
			cerr error
		)
		if err := pb.Loop().Do(ctx, func() {
			quit, cerr = c.execute(line, os.Stdout)
		}); err != nil {
			return
		}
		if cerr != nil {
			fmt.Println(" [!]", cerr)
		}
		if quit {
			return
		}
	}
}
