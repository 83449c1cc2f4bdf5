package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job - один запуск по расписанию. ctx отменяется при остановке планировщика.
type Job func(ctx context.Context)

// Scheduler перезапускает задачу по cron-расписанию, запуски никогда не перекрываются.
type Scheduler struct {
	spec   string
	parser cron.Parser
	log    zerolog.Logger
}

// New проверяет расписание. Поддерживаются пять полей cron и дескрипторы вроде "@every 30m".
func New(spec string, log zerolog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		spec:   strings.TrimSpace(spec),
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		log:    log.With().Str("component", "scheduler").Logger(),
	}
	if _, err := s.parser.Parse(s.spec); err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return s, nil
}

// Next возвращает время следующего запуска после t.
func (s *Scheduler) Next(t time.Time) time.Time {
	sched, err := s.parser.Parse(s.spec)
	if err != nil {
		return time.Time{}
	}
	return sched.Next(t)
}

// Run сразу выполняет job, затем запускает его по расписанию до отмены ctx.
// После отмены дожидается завершения текущего запуска.
func (s *Scheduler) Run(ctx context.Context, job Job) error {
	logger := cronLogger{log: s.log}
	c := cron.New(
		cron.WithParser(s.parser),
		cron.WithLocation(time.UTC),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	wrapped := cron.FuncJob(func() {
		job(ctx)
		if ctx.Err() == nil {
			s.log.Info().Time("next_run", s.Next(time.Now())).Msg("Waiting for next scheduled run")
		}
	})
	if _, err := c.AddJob(s.spec, wrapped); err != nil {
		return fmt.Errorf("add scheduled job: %w", err)
	}

	s.log.Info().Str("spec", s.spec).Time("next_run", s.Next(time.Now())).Msg("Scheduler started")
	// Первый запуск идёт через ту же цепочку, чтобы не пересечься с плановым
	first := c.Entries()[0].WrappedJob
	done := make(chan struct{})
	go func() {
		defer close(done)
		first.Run()
	}()

	c.Start()
	<-ctx.Done()

	stopped := c.Stop()
	<-stopped.Done()
	<-done
	s.log.Info().Msg("Scheduler stopped")
	return nil
}

// cronLogger пишет события cron в zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
