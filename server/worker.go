package server

import (
	"fmt"

	"github.com/chazu/fe/compiler"
)

// Workspace holds the latest analysis of each open document.
type Workspace struct {
	Options  compiler.Options
	analyses map[string]*Analysis
}

// NewWorkspace returns an empty workspace compiling with opts.
func NewWorkspace(opts compiler.Options) *Workspace {
	return &Workspace{Options: opts, analyses: make(map[string]*Analysis)}
}

// Update analyzes text and stores the result for uri.
func (ws *Workspace) Update(uri, text string) *Analysis {
	a := Analyze(text, ws.Options)
	ws.analyses[uri] = a
	return a
}

// Get returns the stored analysis for uri, or nil.
func (ws *Workspace) Get(uri string) *Analysis {
	return ws.analyses[uri]
}

// Forget drops the analysis for uri.
func (ws *Workspace) Forget(uri string) {
	delete(ws.analyses, uri)
}

// workRequest is a unit of work to run on the worker goroutine.
type workRequest struct {
	fn   func(*Workspace) interface{}
	done chan workResult
}

type workResult struct {
	value interface{}
	err   error
}

// Worker serializes all workspace access through a single goroutine.
// Handlers run concurrently, so analysis state is only touched here.
type Worker struct {
	ws       *Workspace
	requests chan workRequest
	quit     chan struct{}
}

// NewWorker creates a Worker and starts the processing goroutine.
func NewWorker(ws *Workspace) *Worker {
	w := &Worker{
		ws:       ws,
		requests: make(chan workRequest, 64),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *Worker) loop() {
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs fn, recovering from panics so one bad document cannot take
// the server down.
func (w *Worker) execute(fn func(*Workspace) interface{}) (result workResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("analysis panic: %v", r)
			result.err = fmt.Errorf("%v", r)
		}
	}()
	result.value = fn(w.ws)
	return result
}

// Do submits fn for execution on the worker goroutine and blocks until it
// completes. A panic in fn is returned as an error.
func (w *Worker) Do(fn func(*Workspace) interface{}) (interface{}, error) {
	req := workRequest{
		fn:   fn,
		done: make(chan workResult, 1),
	}
	select {
	case w.requests <- req:
	case <-w.quit:
		return nil, errWorkerStopped
	}
	select {
	case result := <-req.done:
		return result.value, result.err
	case <-w.quit:
		return nil, errWorkerStopped
	}
}

// Stop shuts down the worker goroutine.
func (w *Worker) Stop() {
	close(w.quit)
}
