package rest

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/nvkalinin/fantasy-calendar/almanac"
	"github.com/nvkalinin/fantasy-calendar/calendar"
	"github.com/nvkalinin/fantasy-calendar/log"
)

type Almanac interface {
	Today() calendar.Date
	SetToday(d calendar.Date)
	Advance(days int) calendar.Date
	Month(year, month int, selected calendar.Date) (almanac.MonthView, error)
	Day(d calendar.Date) almanac.DayView
	Parse(text string, prev calendar.Date) almanac.ParseView
	PutNote(d calendar.Date, text string) (bool, error)
	DeleteNote(d calendar.Date) error
}

// Backuper - хранилище, которое умеет делать резервную копию (engine.Bolt).
type Backuper interface {
	Backup(w io.Writer) error
}

type Server struct {
	Config  *calendar.Config
	Almanac Almanac
	Backup  Backuper // Может быть nil, тогда /api/admin/backup отвечает 400.
	Opts    Opts

	mu  sync.Mutex
	srv *http.Server
}

type Opts struct {
	Listen      string
	LogRequests bool
	AdminPasswd string // Если пустой, /api/admin/* отключены.

	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration

	RateLimiter bool
	ReqLimit    int
	LimitWindow time.Duration
}

func (s *Server) Run() error {
	s.mu.Lock()
	s.srv = &http.Server{
		Addr:              s.Opts.Listen,
		Handler:           s.routes(),
		ReadTimeout:       s.Opts.ReadTimeout,
		ReadHeaderTimeout: s.Opts.ReadHeaderTimeout,
		WriteTimeout:      s.Opts.WriteTimeout,
		IdleTimeout:       s.Opts.IdleTimeout,
	}
	srv := s.srv
	s.mu.Unlock()

	log.Printf("[INFO] rest server listening on %s", s.Opts.Listen)
	return srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("rest shutdown: %w", err)
	}
	return nil
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()

	if s.Opts.LogRequests {
		r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: log.Std(), NoColor: true}))
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	r.Route("/api", func(r chi.Router) {
		if s.Opts.RateLimiter {
			r.Use(httprate.LimitByIP(s.Opts.ReqLimit, s.Opts.LimitWindow))
		}

		r.Get("/today", s.todayCtrl)
		r.Get("/cal/{y}/{m}", s.monthCtrl)
		r.Get("/cal/{y}/{m}/{d}", s.dayCtrl)
		r.Get("/parse", s.parseCtrl)

		if s.Opts.AdminPasswd != "" {
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.BasicAuth("admin", map[string]string{"admin": s.Opts.AdminPasswd}))

				r.Put("/notes/{y}/{m}/{d}", s.putNoteCtrl)
				r.Delete("/notes/{y}/{m}/{d}", s.deleteNoteCtrl)
				r.Put("/today/{y}/{m}/{d}", s.setTodayCtrl)
				r.Post("/today/advance", s.advanceCtrl)
				r.Get("/backup", s.backupCtrl)
			})
		}
	})

	return r
}

func (s *Server) todayCtrl(w http.ResponseWriter, r *http.Request) {
	sendJsonResponse(w, s.Almanac.Day(s.Almanac.Today()))
}

func (s *Server) monthCtrl(w http.ResponseWriter, r *http.Request) {
	y, err1 := intParam(r, "y")
	m, err2 := intParam(r, "m")
	if err := combineErrors(err1, err2); err != nil {
		sendErrorJson(w, 400, "invalid date")
		return
	}

	var selected calendar.Date
	if dStr := r.URL.Query().Get("d"); dStr != "" {
		d, err := strconv.Atoi(dStr)
		if err != nil {
			sendErrorJson(w, 400, "invalid selected day")
			return
		}
		if selected, err = s.Config.NewDate(y, m, d); err != nil {
			sendErrorJson(w, 400, "invalid selected day")
			return
		}
	}

	month, err := s.Almanac.Month(y, m, selected)
	if err != nil {
		sendErrorJson(w, 400, "invalid month")
		return
	}

	sendJsonResponse(w, month)
}

func (s *Server) dayCtrl(w http.ResponseWriter, r *http.Request) {
	date, ok := s.dateParams(w, r)
	if !ok {
		return
	}
	sendJsonResponse(w, s.Almanac.Day(date))
}

func (s *Server) parseCtrl(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var prev calendar.Date
	if q.Has("y") || q.Has("m") || q.Has("d") {
		y, err1 := strconv.Atoi(q.Get("y"))
		m, err2 := strconv.Atoi(q.Get("m"))
		d, err3 := strconv.Atoi(q.Get("d"))
		err := combineErrors(err1, err2, err3)
		if err == nil {
			prev, err = s.Config.NewDate(y, m, d)
		}
		if err != nil {
			sendErrorJson(w, 400, "invalid base date")
			return
		}
	}

	sendJsonResponse(w, s.Almanac.Parse(q.Get("q"), prev))
}

type noteReq struct {
	Text string `json:"text"`
}

func (s *Server) putNoteCtrl(w http.ResponseWriter, r *http.Request) {
	date, ok := s.dateParams(w, r)
	if !ok {
		return
	}

	req := noteReq{}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		sendErrorJson(w, 400, "invalid note json")
		return
	}

	stored, err := s.Almanac.PutNote(date, req.Text)
	if err != nil {
		log.Printf("[ERROR] rest cannot put note: %v", err)
		sendErrorJson(w, 500, "cannot store note")
		return
	}

	sendJsonResponse(w, map[string]bool{"stored": stored})
}

func (s *Server) deleteNoteCtrl(w http.ResponseWriter, r *http.Request) {
	date, ok := s.dateParams(w, r)
	if !ok {
		return
	}

	if err := s.Almanac.DeleteNote(date); err != nil {
		log.Printf("[ERROR] rest cannot delete note: %v", err)
		sendErrorJson(w, 500, "cannot delete note")
		return
	}

	sendJsonResponse(w, map[string]bool{"stored": false})
}

func (s *Server) setTodayCtrl(w http.ResponseWriter, r *http.Request) {
	date, ok := s.dateParams(w, r)
	if !ok {
		return
	}

	s.Almanac.SetToday(date)
	sendJsonResponse(w, s.Almanac.Day(date))
}

// Около 2700 лет календаря Котронаса.
const maxAdvanceDays = 1_000_000

func (s *Server) advanceCtrl(w http.ResponseWriter, r *http.Request) {
	days := 1
	if dStr := r.URL.Query().Get("days"); dStr != "" {
		var err error
		if days, err = strconv.Atoi(dStr); err != nil {
			sendErrorJson(w, 400, "invalid days")
			return
		}
	}
	if days > maxAdvanceDays || days < -maxAdvanceDays {
		sendErrorJson(w, 400, fmt.Sprintf("days must be within ±%d", maxAdvanceDays))
		return
	}

	sendJsonResponse(w, s.Almanac.Day(s.Almanac.Advance(days)))
}

func (s *Server) backupCtrl(w http.ResponseWriter, r *http.Request) {
	if s.Backup == nil {
		sendErrorJson(w, 400, "backup is supported by bolt store only")
		return
	}

	fname := fmt.Sprintf("notes_%s.bolt.gz", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/gzip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, fname))
	w.WriteHeader(200)

	gz := gzip.NewWriter(w)
	if err := s.Backup.Backup(gz); err != nil {
		// Заголовки уже отправлены, остается только залогировать.
		log.Printf("[ERROR] rest backup failed: %v", err)
	}
	if err := gz.Close(); err != nil {
		log.Printf("[WARN] rest cannot close gzip backup: %v", err)
	}
}

// dateParams читает {y}/{m}/{d} из URL. Если дата невалидна, отправляет 400 и возвращает false.
func (s *Server) dateParams(w http.ResponseWriter, r *http.Request) (calendar.Date, bool) {
	y, err1 := intParam(r, "y")
	m, err2 := intParam(r, "m")
	d, err3 := intParam(r, "d")
	if err := combineErrors(err1, err2, err3); err != nil {
		sendErrorJson(w, 400, "invalid date")
		return calendar.Date{}, false
	}

	date, err := s.Config.NewDate(y, m, d)
	if err != nil {
		msg := "invalid date"
		switch {
		case errors.Is(err, calendar.ErrInvalidMonth):
			msg = "invalid month"
		case errors.Is(err, calendar.ErrInvalidDay):
			msg = "invalid day"
		}
		sendErrorJson(w, 400, msg)
		return calendar.Date{}, false
	}
	return date, true
}

func intParam(r *http.Request, param string) (int, error) {
	strVal := chi.URLParam(r, param)
	return strconv.Atoi(strVal)
}

func combineErrors(err ...error) error {
	nonNil := make([]error, 0, len(err))
	for _, e := range err {
		if e != nil {
			nonNil = append(nonNil, e)
		}
	}

	if len(nonNil) == 0 {
		return nil
	}
	return fmt.Errorf("%+v", nonNil)
}

func sendJsonResponse(w http.ResponseWriter, data interface{}) {
	respJson, err := json.Marshal(data)
	if err != nil {
		log.Printf("[WARN] cannot marshal response data: %+v", err)
		sendErrorJson(w, 500, "cannot marshal response data")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(200)

	if _, err = w.Write(respJson); err != nil {
		log.Printf("[WARN] cannot write response data: %+v", err)
	}
}

func sendErrorJson(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	restErr := &struct {
		Msg string `json:"msg"`
	}{msg}

	errJson, err := json.Marshal(restErr)
	if err != nil {
		log.Printf("[WARN] cannot marshal rest error: %+v", err)
		return
	}

	if _, err = w.Write(errJson); err != nil {
		log.Printf("[WARN] cannot write rest error: %+v", err)
	}
}
