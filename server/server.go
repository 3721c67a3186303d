// Package server exposes the stored lineup, schedule, and choices over JSON.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/amonks/bandcruise/data"
	"github.com/amonks/bandcruise/fetcher"
	"github.com/amonks/bandcruise/reachability"
)

type Server struct {
	f   *fetcher.Fetcher
	mux *http.ServeMux
}

func New(f *fetcher.Fetcher) *Server {
	s := &Server{f: f, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /bands", s.bands)
	s.mux.HandleFunc("GET /schedule", s.schedule)
	s.mux.HandleFunc("GET /images", s.images)
	s.mux.HandleFunc("GET /images/{name}", s.image)
	s.mux.HandleFunc("GET /status", s.status)
	s.mux.HandleFunc("POST /priority", s.setPriority)
	s.mux.HandleFunc("POST /attendance", s.setAttendance)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	s.mux.ServeHTTP(w, req)
}

func Run(ctx context.Context, f *fetcher.Fetcher, addr string) error {
	srv := http.Server{Addr: addr, Handler: New(f)}

	errs := make(chan error)
	go func() { errs <- srv.ListenAndServe() }()
	log.Printf("listening on %s", addr)

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		if err := srv.Shutdown(context.Background()); err != nil {
			return err
		}
		if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return ctx.Err()
	}
}

type Band struct {
	data.Band
	Priority string `json:"priority"`
}

type Event struct {
	data.Event
	Key        string `json:"key"`
	Attendance string `json:"attendance,omitempty"`
}

type Status struct {
	Network reachability.Status `json:"network"`
	Bands   int                 `json:"bands"`
	Events  int                 `json:"events"`
	Images  int                 `json:"images"`
}

func (s *Server) bands(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	bands, err := s.f.DB.Bands(ctx)
	if err != nil {
		fail(w, http.StatusInternalServerError, err)
		return
	}
	priorities, err := s.f.DB.Priorities(ctx)
	if err != nil {
		fail(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]Band, len(bands))
	for i, b := range bands {
		out[i] = Band{Band: b, Priority: priorities[b.Name].String()}
	}
	respond(w, out)
}

// schedule takes either hideExpired=true, or a from/to window of epoch
// seconds on the event start (either end may be left open).
func (s *Server) schedule(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	q := req.URL.Query()

	var events []data.Event
	if q.Has("from") || q.Has("to") {
		from, to := int64(0), int64(math.MaxInt64)
		var err error
		if q.Has("from") {
			if from, err = strconv.ParseInt(q.Get("from"), 10, 64); err != nil {
				fail(w, http.StatusBadRequest, fmt.Errorf("bad from: %w", err))
				return
			}
		}
		if q.Has("to") {
			if to, err = strconv.ParseInt(q.Get("to"), 10, 64); err != nil {
				fail(w, http.StatusBadRequest, fmt.Errorf("bad to: %w", err))
				return
			}
		}
		if events, err = s.f.DB.EventsBetween(ctx, from, to); err != nil {
			fail(w, http.StatusInternalServerError, err)
			return
		}
	} else {
		hide, _ := strconv.ParseBool(q.Get("hideExpired"))
		var err error
		if events, err = s.f.Upcoming(ctx, hide); err != nil {
			fail(w, http.StatusInternalServerError, err)
			return
		}
	}
	attendance, err := s.f.DB.Attendance(ctx)
	if err != nil {
		fail(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]Event, len(events))
	for i, ev := range events {
		key := ev.AttendanceKey()
		out[i] = Event{Event: ev, Key: key, Attendance: string(attendance[key])}
	}
	respond(w, out)
}

func (s *Server) images(w http.ResponseWriter, req *http.Request) {
	respond(w, s.f.Images.All())
}

// image streams the cached picture for a band, downloading it if needed.
func (s *Server) image(w http.ResponseWriter, req *http.Request) {
	name := req.PathValue("name")
	url, ok := s.f.Images.Lookup(name)
	if !ok {
		fail(w, http.StatusNotFound, fmt.Errorf("no image for '%s'", name))
		return
	}
	if s.f.ImageCache == nil {
		http.Redirect(w, req, url, http.StatusFound)
		return
	}
	r, err := s.f.ImageCache.Open(req.Context(), url)
	if err != nil {
		fail(w, http.StatusBadGateway, err)
		return
	}
	defer r.Close()
	if _, err := io.Copy(w, r); err != nil {
		log.Printf("error sending image for '%s': %s", name, err)
	}
}

func (s *Server) status(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	var st Status
	if s.f.Network != nil {
		st.Network = s.f.Network.Status()
	}
	var err error
	if st.Bands, err = s.f.DB.CountBands(ctx); err != nil {
		fail(w, http.StatusInternalServerError, err)
		return
	}
	if st.Events, err = s.f.DB.CountEvents(ctx); err != nil {
		fail(w, http.StatusInternalServerError, err)
		return
	}
	st.Images = s.f.Images.Len()
	respond(w, st)
}

type priorityRequest struct {
	Band     string `json:"band"`
	Priority string `json:"priority"`
}

func (s *Server) setPriority(w http.ResponseWriter, req *http.Request) {
	var body priorityRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		fail(w, http.StatusBadRequest, fmt.Errorf("bad request body: %w", err))
		return
	}
	if body.Band == "" {
		fail(w, http.StatusBadRequest, fmt.Errorf("no band"))
		return
	}
	priority, err := data.ParsePriority(body.Priority)
	if err != nil {
		fail(w, http.StatusBadRequest, err)
		return
	}
	ctx := req.Context()
	if err := s.f.DB.SetPriority(ctx, body.Band, priority); err != nil {
		fail(w, http.StatusInternalServerError, err)
		return
	}
	s.replan(ctx)
	respond(w, Band{Band: data.Band{Name: body.Band}, Priority: priority.String()})
}

type attendanceRequest struct {
	Band   string `json:"band"`
	Start  int64  `json:"start"`
	Status string `json:"status"`
}

func (s *Server) setAttendance(w http.ResponseWriter, req *http.Request) {
	var body attendanceRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		fail(w, http.StatusBadRequest, fmt.Errorf("bad request body: %w", err))
		return
	}
	status, err := data.ParseAttendance(body.Status)
	if err != nil {
		fail(w, http.StatusBadRequest, err)
		return
	}
	ctx := req.Context()
	sched, err := s.f.DB.Schedule(ctx)
	if err != nil {
		fail(w, http.StatusInternalServerError, err)
		return
	}
	ev, ok := sched[body.Band][body.Start]
	if !ok {
		fail(w, http.StatusNotFound, fmt.Errorf("no event for '%s' at %d", body.Band, body.Start))
		return
	}
	key := ev.AttendanceKey()
	if err := s.f.DB.SetAttendance(ctx, key, status); err != nil {
		fail(w, http.StatusInternalServerError, err)
		return
	}
	s.replan(ctx)
	respond(w, Event{Event: ev, Key: key, Attendance: string(status)})
}

// Choices change which alerts are wanted. A failure to reschedule leaves the
// choice stored, so it is only logged.
func (s *Server) replan(ctx context.Context) {
	if s.f.Scheduler == nil {
		return
	}
	if _, err := s.f.Replan(ctx); err != nil {
		log.Printf("error rescheduling alerts: %s", err)
	}
}

func respond(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("error encoding response: %s", err)
	}
}

func fail(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
