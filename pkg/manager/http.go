// Copyright 2015 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package manager

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/handlers"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/corpus"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/log"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/snapshot"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/stat"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServer struct {
	// To be set before calling Serve.
	Addr      string
	StartTime time.Time
	Gatherer  prometheus.Gatherer

	// Can be set dynamically after calling Serve.
	Manager atomic.Pointer[Manager]
}

func (serv *HTTPServer) Serve(ctx context.Context) error {
	if serv.Addr == "" {
		return fmt.Errorf("starting a disabled HTTP server")
	}
	log.Logf(0, "serving http on http://%v", serv.Addr)
	server := &http.Server{Addr: serv.Addr, Handler: serv.Handler()}
	go func() {
		// The http server package unfortunately does not natively take a context.Context.
		// Let's emulate it via server.Close()
		<-ctx.Done()
		server.Close()
	}()

	err := server.ListenAndServe()
	if err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (serv *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, handler func(http.ResponseWriter, *http.Request)) {
		mux.Handle(pattern, handlers.CompressHandler(http.HandlerFunc(handler)))
	}
	gatherer := serv.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	// keep-sorted start
	handle("/", serv.httpMain)
	handle("/config", serv.httpConfig)
	handle("/corpus", serv.httpCorpus)
	handle("/log", serv.httpLog)
	handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}).ServeHTTP)
	handle("/stats", serv.httpStats)
	// keep-sorted end
	// Browsers like to request this, without special handler this goes to / handler.
	handle("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {})
	return handlers.LoggingHandler(log.VerboseWriter(2), mux)
}

type UISummaryData struct {
	Name     string
	Session  string
	Original string
	Uptime   time.Duration
	Stats    []stat.UI
	Corpus   []*snapshot.Entry
	Events   []corpus.NewItemEvent
	Log      string
}

func (serv *HTTPServer) httpMain(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data := &UISummaryData{
		Uptime: time.Since(serv.StartTime).Truncate(time.Second),
		Log:    log.CachedLogOutput(),
	}
	if mgr := serv.Manager.Load(); mgr != nil {
		snap := mgr.Fuzzer.Snapshot()
		data.Name = mgr.Cfg.Name
		data.Session = snap.Session
		data.Original = snap.Context
		data.Stats = mgr.Stats.Collect(stat.Simple)
		data.Corpus = snap.Entries
		data.Events = mgr.Events()
	}
	executeTemplate(w, mainTemplate, data)
}

func (serv *HTTPServer) httpConfig(w http.ResponseWriter, r *http.Request) {
	mgr := serv.manager(w)
	if mgr == nil {
		return
	}
	serv.jsonPage(w, mgr.Cfg)
}

func (serv *HTTPServer) httpCorpus(w http.ResponseWriter, r *http.Request) {
	mgr := serv.manager(w)
	if mgr == nil {
		return
	}
	serv.jsonPage(w, mgr.Fuzzer.Snapshot())
}

func (serv *HTTPServer) httpStats(w http.ResponseWriter, r *http.Request) {
	mgr := serv.manager(w)
	if mgr == nil {
		return
	}
	level := stat.Simple
	if r.FormValue("all") != "" {
		level = stat.All
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, stat.Format(mgr.Stats.Collect(level)))
}

func (serv *HTTPServer) httpLog(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, log.CachedLogOutput())
}

func (serv *HTTPServer) manager(w http.ResponseWriter) *Manager {
	mgr := serv.Manager.Load()
	if mgr == nil {
		http.Error(w, "no fuzzing session is running (yet)", http.StatusServiceUnavailable)
	}
	return mgr
}

func (serv *HTTPServer) jsonPage(w http.ResponseWriter, data any) {
	text, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to encode json: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(text)
}

func executeTemplate(w http.ResponseWriter, templ *template.Template, data interface{}) {
	buf := new(bytes.Buffer)
	if err := templ.Execute(buf, data); err != nil {
		log.Logf(0, "failed to execute template: %v", err)
		http.Error(w, fmt.Sprintf("failed to execute template: %v", err), http.StatusInternalServerError)
		return
	}
	w.Write(buf.Bytes())
}

var mainTemplate = template.Must(template.New("").Parse(string(mustReadHTML("main"))))

//go:embed html/*.html
var htmlFiles embed.FS

func mustReadHTML(name string) []byte {
	data, err := htmlFiles.ReadFile("html/" + name + ".html")
	if err != nil {
		panic(err)
	}
	return data
}
