package search

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	deskerrors "github.com/Aman-CERP/orderdesk/internal/errors"
)

// Worker methods.
const (
	MethodInit    = "init"
	MethodSearch  = "search"
	MethodRelease = "release"
)

// request is one call into the worker.
type request struct {
	Seq    uint64
	Method string
	Handle uint64

	// ctx is the caller's context; the worker stops a search early when it
	// is cancelled.
	ctx context.Context

	// init
	Records []Record
	Fields  []string

	// search
	Query       string
	Transformer Transformer
	Params      Params

	reply chan response
}

// response answers the request with the same Seq.
type response struct {
	Seq     uint64
	Results []Result
	Err     error
}

// Worker owns every Index and serves calls on a single goroutine, so index
// builds and searches never run on the caller's goroutine and never race
// each other. Callers reach it through RemoteIndex handles.
type Worker struct {
	opts   IndexOptions
	logger *slog.Logger

	inbox     chan request
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	seq     atomic.Uint64
	handles atomic.Uint64

	// owned by the run goroutine
	indexes map[uint64]*Index
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithIndexOptions sets the options for every index the worker builds.
func WithIndexOptions(opts IndexOptions) WorkerOption {
	return func(w *Worker) {
		w.opts = opts
	}
}

// WithWorkerLogger sets the worker's logger.
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWorker starts a worker goroutine. Close stops it.
func NewWorker(opts ...WorkerOption) *Worker {
	w := &Worker{
		opts:    DefaultIndexOptions(),
		logger:  slog.Default(),
		inbox:   make(chan request),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		indexes: make(map[uint64]*Index),
	}
	for _, opt := range opts {
		opt(w)
	}
	go w.run()
	return w
}

// NewIndex allocates a handle for a new, empty index. It does not talk to
// the worker; the index is built on the first Init.
func (w *Worker) NewIndex() *RemoteIndex {
	return &RemoteIndex{worker: w, handle: w.handles.Add(1)}
}

// Close stops the worker and releases every index. Calls in flight or made
// afterwards fail with ERR_508_WORKER_CLOSED.
func (w *Worker) Close() error {
	w.closeOnce.Do(func() {
		close(w.done)
	})
	<-w.stopped
	return nil
}

func (w *Worker) run() {
	defer close(w.stopped)
	for {
		select {
		case <-w.done:
			for h, ix := range w.indexes {
				_ = ix.Close()
				delete(w.indexes, h)
			}
			return
		case req := <-w.inbox:
			req.reply <- w.serve(req)
		}
	}
}

// serve runs one request. A panic is turned into an index failure so the
// worker keeps serving.
func (w *Worker) serve(req request) (resp response) {
	resp.Seq = req.Seq
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("search_worker_panic",
				slog.String("method", req.Method),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			resp.Results = nil
			resp.Err = deskerrors.New(deskerrors.ErrCodeIndexFailed,
				fmt.Sprintf("search worker panicked during %s", req.Method),
				fmt.Errorf("%v", r))
		}
	}()

	switch req.Method {
	case MethodInit:
		resp.Err = w.init(req)
	case MethodSearch:
		resp.Results, resp.Err = w.search(req)
	case MethodRelease:
		if ix, ok := w.indexes[req.Handle]; ok {
			resp.Err = ix.Close()
			delete(w.indexes, req.Handle)
		}
	default:
		resp.Err = deskerrors.InternalError("unknown worker method "+req.Method, nil)
	}
	return resp
}

func (w *Worker) init(req request) error {
	ix, err := NewIndex(req.Records, req.Fields, w.opts)
	if err != nil {
		if deskerrors.GetCode(err) == "" {
			err = deskerrors.New(deskerrors.ErrCodeIndexFailed, "failed to build index", err)
		}
		return err
	}
	if old, ok := w.indexes[req.Handle]; ok {
		_ = old.Close()
	}
	w.indexes[req.Handle] = ix

	w.logger.Debug("search_index_ready",
		slog.Uint64("handle", req.Handle),
		slog.Int("records", ix.Len()))
	return nil
}

func (w *Worker) search(req request) ([]Result, error) {
	ix, ok := w.indexes[req.Handle]
	if !ok {
		return nil, deskerrors.New(deskerrors.ErrCodeNotInitialized, "search index is not initialized", nil).
			WithSuggestion("Call Init before Search")
	}
	matches, err := ix.Search(req.ctx, req.Query)
	if err != nil {
		return nil, err
	}
	return PostProcess(req.Transformer, matches, req.Params)
}

// call sends req and waits for its response. A cancelled ctx returns
// ctx.Err(); the late response is dropped into the buffered reply channel.
func (w *Worker) call(ctx context.Context, req request) (response, error) {
	if err := ctx.Err(); err != nil {
		return response{}, err
	}
	req.Seq = w.seq.Add(1)
	req.ctx = ctx
	req.reply = make(chan response, 1)

	select {
	case w.inbox <- req:
	case <-ctx.Done():
		return response{}, ctx.Err()
	case <-w.done:
		return response{}, errWorkerClosed()
	}

	select {
	case resp := <-req.reply:
		if resp.Seq != req.Seq {
			return response{}, deskerrors.InternalError(
				fmt.Sprintf("worker answered request %d with %d", req.Seq, resp.Seq), nil)
		}
		return resp, resp.Err
	case <-ctx.Done():
		return response{}, ctx.Err()
	case <-w.stopped:
		return response{}, errWorkerClosed()
	}
}

func errWorkerClosed() error {
	return deskerrors.New(deskerrors.ErrCodeWorkerClosed, "search worker is closed", nil)
}

// RemoteIndex is a handle to an Index living inside a Worker. Methods block
// only the calling goroutine.
type RemoteIndex struct {
	worker *Worker
	handle uint64
}

// Init builds (or rebuilds) the index over records.
func (r *RemoteIndex) Init(ctx context.Context, records []Record, fields []string) error {
	_, err := r.worker.call(ctx, request{
		Method:  MethodInit,
		Handle:  r.handle,
		Records: records,
		Fields:  fields,
	})
	return err
}

// Search queries the index and post-processes matches with transformer.
func (r *RemoteIndex) Search(ctx context.Context, query string, transformer Transformer, params Params) ([]Result, error) {
	resp, err := r.worker.call(ctx, request{
		Method:      MethodSearch,
		Handle:      r.handle,
		Query:       query,
		Transformer: transformer,
		Params:      params,
	})
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Release drops the index inside the worker. The handle may be re-initialized.
func (r *RemoteIndex) Release(ctx context.Context) error {
	_, err := r.worker.call(ctx, request{Method: MethodRelease, Handle: r.handle})
	return err
}
