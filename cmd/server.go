package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nvkalinin/fantasy-calendar/almanac"
	"github.com/nvkalinin/fantasy-calendar/calendar"
	"github.com/nvkalinin/fantasy-calendar/log"
	"github.com/nvkalinin/fantasy-calendar/rest"
	"github.com/nvkalinin/fantasy-calendar/store/engine"
	"golang.org/x/sync/errgroup"
)

type EngineType string

var (
	EngineMemory EngineType = "memory"
	EngineBolt   EngineType = "bolt"
)

type Server struct {
	Calendar  string `long:"calendar" env:"CALENDAR" value-name:"file.yml" description:"YAML-файл с таблицей месяцев и дней недели. Если не указан, используется календарь Котронаса."`
	Today     string `long:"today" env:"TODAY" value-name:"date" default:"1 Naeril 1318" description:"Текущая дата в мире игры при запуске, например '5 Golus 1318'."`
	AdvanceAt string `long:"advance-at" env:"ADVANCE_AT" value-name:"hh:mm[:ss]" description:"В какое время каждые сутки сдвигать текущую дату мира на один день. Если не указано, дата меняется только через /api/admin/today."`

	Web struct {
		Listen      string `long:"listen" env:"LISTEN" value-name:"addr" default:"0.0.0.0:80" description:"Сетевой адрес для веб-сервера."`
		AccessLog   bool   `long:"access-log" env:"ACCESS_LOG" description:"Логировать все HTTP-запросы."`
		AdminPasswd string `long:"admin-passwd" env:"ADMIN_PASSWD" description:"Пароль пользователя admin для вызова /api/admin/*. Если пустой, /api/admin/* отключены."`

		ReadTimeout       time.Duration `long:"read-timeout" env:"READ_TIMEOUT" value-name:"duration" default:"5s" description:"http.Server ReadTimeout"`
		ReadHeaderTimeout time.Duration `long:"read-header-timeout" env:"READ_HEADER_TIMEOUT" value-name:"duration" default:"5s" description:"http.Server ReadHeaderTimeout"`
		IdleTimeout       time.Duration `long:"idle-timeout" env:"IDLE_TIMEOUT" value-name:"duration" default:"30s" description:"http.Server IdleTimeout"`

		// Бекап через /api/admin/backup может выполняться долго, поэтому WriteTimout должен быть достаточно большим.
		WriteTimeout time.Duration `long:"write-timeout" env:"WRITE_TIMEOUT" value-name:"duration" default:"60s" description:"http.Server WriteTimeout"`

		RateLimiter struct {
			ReqLimit    int           `long:"reqs" env:"REQS" value-name:"num" default:"100" description:"Количество запросов с одного IP. Если 0 — rate limiter отключен."`
			LimitWindow time.Duration `long:"window" env:"WINDOW" value-name:"duration" default:"1s" description:"Интервал времени, за который разврешено указанное кол-во запросов."`
		} `group:"Rate Limiter" namespace:"ratelim" env-namespace:"RATE_LIM"`
	} `group:"Web" namespace:"web" env-namespace:"WEB"`

	Store struct {
		Engine EngineType `long:"engine" env:"ENGINE" value-name:"type" choice:"memory" choice:"bolt" default:"bolt" description:"Тип хранилища для заметок."`

		Bolt struct {
			File string `long:"file" env:"FILE" value-name:"path" default:"notes.bolt" description:"Путь к файлу БД."`
		} `group:"Настройки хранилища bolt" namespace:"bolt" env-namespace:"BOLT"`
	} `group:"Хранилище" namespace:"store" env-namespace:"STORE"`
}

func (s *Server) Execute(args []string) error {
	a, err := s.makeApp()
	if err != nil {
		return err
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		a.shutdown()
	}()

	a.run()
	a.wait()
	return nil
}

type app struct {
	srv         *rest.Server
	alm         *almanac.Almanac
	store       almanac.Store
	autoAdvance bool

	stopOnce sync.Once
	stopped  chan struct{}
}

func (s *Server) makeApp() (*app, error) {
	a := &app{
		stopped: make(chan struct{}),
	}

	cfg, err := s.makeConfig()
	if err != nil {
		return nil, err
	}

	parsed := cfg.ParseDate(s.Today, cfg.Epoch())
	if !parsed.OK {
		return nil, fmt.Errorf("today: cannot parse date '%s'", s.Today)
	}

	var advanceAt time.Time
	if s.AdvanceAt != "" {
		advanceAt, err = parseClock(s.AdvanceAt)
		if err != nil {
			return nil, fmt.Errorf("advance at: %w", err)
		}
		a.autoAdvance = true
	}

	st, backuper, err := s.makeStore()
	if err != nil {
		return nil, err
	}
	a.store = st

	a.alm = almanac.New(almanac.Opts{
		Config:    cfg,
		Store:     st,
		Today:     parsed.Date,
		AdvanceAt: advanceAt,
	})

	a.srv = &rest.Server{
		Config:  cfg,
		Almanac: a.alm,
		Backup:  backuper,
		Opts: rest.Opts{
			Listen:      s.Web.Listen,
			LogRequests: s.Web.AccessLog,
			AdminPasswd: s.Web.AdminPasswd,

			ReadTimeout:       s.Web.ReadTimeout,
			ReadHeaderTimeout: s.Web.ReadHeaderTimeout,
			WriteTimeout:      s.Web.WriteTimeout,
			IdleTimeout:       s.Web.IdleTimeout,

			RateLimiter: s.Web.RateLimiter.ReqLimit > 0,
			ReqLimit:    s.Web.RateLimiter.ReqLimit,
			LimitWindow: s.Web.RateLimiter.LimitWindow,
		},
	}

	return a, nil
}

func (s *Server) makeConfig() (*calendar.Config, error) {
	return loadCalendar(s.Calendar)
}

func loadCalendar(path string) (*calendar.Config, error) {
	if path == "" {
		return calendar.Default(), nil
	}

	cfg, err := calendar.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("calendar: %w", err)
	}
	log.Printf("[INFO] loaded calendar from %s: %d months, %d days per year", path, cfg.MonthCount(), cfg.DaysPerYear())
	return cfg, nil
}

// makeStore возвращает хранилище заметок и, если оно умеет делать бекап, его же как rest.Backuper.
func (s *Server) makeStore() (almanac.Store, rest.Backuper, error) {
	switch s.Store.Engine {
	case EngineMemory:
		return engine.NewMemory(), nil, nil
	case EngineBolt:
		b, err := engine.NewBolt(s.Store.Bolt.File)
		if err != nil {
			return nil, nil, err
		}
		return b, b, nil
	default:
		return nil, nil, fmt.Errorf("unknown store engine %s", s.Store.Engine)
	}
}

func parseClock(val string) (time.Time, error) {
	if t, err := time.Parse("15:04", val); err == nil {
		return t, nil
	}

	t, err := time.Parse("15:04:05", val)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time '%s', it must match pattern hh:mm[:ss]", val)
	}
	return t, nil
}

func (a *app) run() {
	g, _ := errgroup.WithContext(context.Background())

	if a.autoAdvance {
		g.Go(func() error {
			a.alm.RunClock()
			return nil
		})
	}

	g.Go(func() error {
		if err := a.srv.Run(); err != nil && err != http.ErrServerClosed {
			log.Printf("[ERROR] startup: %v", err)
			return err
		}
		return nil
	})

	if g.Wait() != nil {
		a.shutdown()
	}
}

func (a *app) shutdown() {
	a.stopOnce.Do(func() {
		log.Printf("[INFO] shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		g, _ := errgroup.WithContext(ctx)

		if a.autoAdvance {
			g.Go(func() error {
				return a.alm.Shutdown(ctx)
			})
		}
		g.Go(func() error {
			return a.srv.Shutdown(ctx)
		})

		if err := g.Wait(); err != nil {
			log.Printf("[ERROR] app shutdown: %v", err)
		}

		if c, ok := a.store.(io.Closer); ok {
			if err := c.Close(); err != nil {
				log.Printf("[WARN] cannot close store: %v", err)
			}
		}
		close(a.stopped)
	})
}

func (a *app) wait() {
	<-a.stopped
}
