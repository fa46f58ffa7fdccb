// this file hosts the server's patchbay on its own loop goroutine
package main

import (
	"bytes"
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/himanshub16/patchbay/htmldoc"
	"github.com/himanshub16/patchbay/patchbay"
)

// Station owns the page served to browsers and the patchbay bound to it.
// Everything touching either runs on the patchbay loop.
type Station struct {
	pb      *patchbay.Patchbay
	doc     *htmldoc.Document
	backend *WSBackend
	log     zerolog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewStation(settings patchbay.Settings, doc *htmldoc.Document, backend *WSBackend, lookup patchbay.Lookup, log zerolog.Logger) *Station {
	pb := patchbay.New(settings, doc, backend,
		patchbay.WithLogger(log),
		patchbay.WithLookup(lookup),
	)
	return &Station{
		pb:      pb,
		doc:     doc,
		backend: backend,
		log:     log,
	}
}

// Start binds the page and runs the loop until Shutdown.
func (s *Station) Start() {
	for _, t := range []patchbay.EventType{
		patchbay.EventPlaying,
		patchbay.EventPaused,
		patchbay.EventEnded,
		patchbay.EventDeactivate,
	} {
		s.pb.Coordinator().Subscribe(t, s.pushStatus)
	}
	s.backend.OnClick(func(entity string, role patchbay.Role) {
		s.pb.Loop().Post(func() {
			if err := s.pb.Click(entity, role); err != nil {
				s.log.Warn().Err(err).Str("entity", entity).Str("role", string(role)).Msg("browser click rejected")
			}
		})
	})

	report := s.pb.Init()
	s.log.Info().
		Bool("master", report.MasterFound).
		Int("players", len(report.Added)).
		Int("invalid", len(report.Invalid)).
		Msg("page bound")

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		s.pb.Loop().Run(ctx)
		s.log.Info().Msg("station stopped")
	}()
}

func (s *Station) pushStatus(patchbay.Event) {
	s.backend.Broadcast(s.pb.Status())
}

// Shutdown stops the loop and waits for it.
func (s *Station) Shutdown() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *Station) Status(ctx context.Context) (st patchbay.Status, err error) {
	err = s.pb.Loop().Do(ctx, func() {
		st = s.pb.Status()
	})
	return st, err
}

func (s *Station) Click(ctx context.Context, entity string, role patchbay.Role) (err error) {
	if derr := s.pb.Loop().Do(ctx, func() {
		err = s.pb.Click(entity, role)
	}); derr != nil {
		return derr
	}
	return err
}

// Sweep appends fragment (when given) under scope and binds whatever new
// markers it brought.
func (s *Station) Sweep(ctx context.Context, scope, fragment string) (report patchbay.SweepReport, err error) {
	if derr := s.pb.Loop().Do(ctx, func() {
		if fragment != "" {
			if err = s.doc.Append(scope, fragment); err != nil {
				return
			}
		}
		report = s.pb.SweepScope(scope)
	}); derr != nil {
		return report, derr
	}
	return report, err
}

func (s *Station) RetryLookups(ctx context.Context) (n int, err error) {
	err = s.pb.Loop().Do(ctx, func() {
		n = s.pb.RetryLookups()
	})
	return n, err
}

// Render writes the page as the players currently have it.
func (s *Station) Render(ctx context.Context, w io.Writer) error {
	var (
		buf  bytes.Buffer
		rerr error
	)
	if err := s.pb.Loop().Do(ctx, func() {
		rerr = s.doc.Render(&buf)
	}); err != nil {
		return err
	}
	if rerr != nil {
		return rerr
	}
	_, err := buf.WriteTo(w)
	return err
}
