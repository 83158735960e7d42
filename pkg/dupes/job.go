package dupes

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/weberc2/dupes/pkg/logger"
)

// State is the lifecycle state of a search job.
type State string

const (
	StateIdle      State = "IDLE"
	StateRunning   State = "RUNNING"
	StateCompleted State = "COMPLETED"
	StateAborted   State = "ABORTED"
	StateFailed    State = "FAILED"
)

// Terminal reports whether a job in state `s` has finished.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAborted || s == StateFailed
}

// Options configures a search job. The zero value searches with MD5 on one
// worker per CPU.
type Options struct {
	Algorithm Algorithm

	// Workers bounds the number of files hashed concurrently. One hashes
	// sequentially; values below one default to `runtime.NumCPU()`.
	Workers int

	Prefilter bool

	// BlockSize is the read size used when hashing. Defaults to `BlockSize`.
	BlockSize int

	// Logger defaults to the logger carried by the context passed to
	// `Start`.
	Logger *slog.Logger
}

func (opts *Options) workers() int {
	if opts.Workers < 1 {
		return runtime.NumCPU()
	}
	return opts.Workers
}

// Outcome is the final result of a search job. `Groups` is set only for
// completed jobs and `Err` only for failed ones.
type Outcome struct {
	State   State     `json:"state"`
	Groups  *GroupSet `json:"groups,omitempty"`
	Skipped []Skipped `json:"skipped,omitempty"`
	Err     error     `json:"-"`
}

// Job is a single duplicate search over one directory tree. A job runs at
// most once and shares no state with other jobs.
type Job struct {
	root    string
	options Options

	progress chan int
	done     chan struct{}
	percent  atomic.Int32

	lock       sync.Mutex
	state      State
	canceled   bool
	cancel     context.CancelFunc
	cancelOnce sync.Once
	outcome    Outcome
}

// NewJob returns an idle job which will search `root`.
func NewJob(root string, options Options) *Job {
	return &Job{
		root:    root,
		options: options,
		// one slot per distinct percentage so the job never blocks on a slow
		// reader
		progress: make(chan int, 101),
		done:     make(chan struct{}),
		state:    StateIdle,
	}
}

// StartSearch creates and starts a job. If `root` can't be searched, the
// `*PathError` is returned and no job is running.
func StartSearch(
	ctx context.Context,
	root string,
	options Options,
) (*Job, error) {
	job := NewJob(root, options)
	if err := job.Start(ctx); err != nil {
		return nil, err
	}
	return job, nil
}

// Start validates the job's root and begins the search on a new goroutine.
// If the root is invalid, the job fails immediately (without ever running)
// and the `*PathError` is returned. An unknown algorithm fails the job the
// same way. Canceling `ctx` cancels the job.
func (j *Job) Start(ctx context.Context) error {
	j.lock.Lock()
	if j.state != StateIdle {
		j.lock.Unlock()
		return ErrJobStarted
	}

	root, err := validateRoot(j.root)
	if err == nil {
		_, err = j.options.Algorithm.New()
	}
	if err != nil {
		j.state = StateFailed
		j.outcome = Outcome{State: StateFailed, Err: err}
		j.lock.Unlock()
		close(j.progress)
		close(j.done)
		return err
	}

	jobCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.root = root
	j.state = StateRunning
	canceled := j.canceled
	j.lock.Unlock()

	if canceled {
		j.cancelOnce.Do(cancel)
	}

	go j.run(jobCtx, root)
	return nil
}

// Cancel requests that the job stop. It is idempotent and has no effect on a
// finished job. A job canceled before it starts aborts as soon as it starts.
func (j *Job) Cancel() {
	j.lock.Lock()
	j.canceled = true
	cancel := j.cancel
	j.lock.Unlock()

	if cancel != nil {
		j.cancelOnce.Do(cancel)
	}
}

// Root returns the directory being searched. Once the job has started, it is
// absolute.
func (j *Job) Root() string {
	j.lock.Lock()
	defer j.lock.Unlock()
	return j.root
}

// State returns the job's current state.
func (j *Job) State() State {
	j.lock.Lock()
	defer j.lock.Unlock()
	return j.state
}

// Progress returns a channel of completion percentages. Values are
// non-decreasing, each is sent at most once, and the channel is closed when
// the job finishes. A completed job always sends 100.
func (j *Job) Progress() <-chan int { return j.progress }

// ProgressValue returns the most recently reported percentage.
func (j *Job) ProgressValue() int { return int(j.percent.Load()) }

// Done returns a channel which is closed once the job's outcome is
// available.
func (j *Job) Done() <-chan struct{} { return j.done }

// Outcome returns the job's outcome. Before the job finishes, only `State`
// is set.
func (j *Job) Outcome() Outcome {
	j.lock.Lock()
	defer j.lock.Unlock()
	if !j.state.Terminal() {
		return Outcome{State: j.state}
	}
	return j.outcome
}

// Wait blocks until the job finishes or `ctx` is done.
func (j *Job) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-j.done:
		return j.Outcome(), nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

func (j *Job) run(ctx context.Context, root string) {
	defer j.cancelOnce.Do(j.cancel)

	log := j.options.Logger
	if log == nil {
		log = logger.Get(ctx)
	}
	log = log.With("root", root)
	log.Info("starting search")

	var skipped []Skipped
	onSkip := func(skip Skipped) { skipped = append(skipped, skip) }

	scanner := Scanner{Logger: log, OnSkip: onSkip}
	buckets, err := scanner.Scan(ctx, root)
	if err != nil {
		j.fail(log, err)
		return
	}

	last := -1
	hasher := Hasher{
		Algorithm: j.options.Algorithm,
		BlockSize: j.options.BlockSize,
		Workers:   j.options.workers(),
		Prefilter: j.options.Prefilter,
		Logger:    log,
		OnSkip:    onSkip,
	}
	groups, err := hasher.Group(ctx, buckets, func(percent int) {
		if percent != last {
			last = percent
			j.percent.Store(int32(percent))
			j.progress <- percent
		}
	})
	if err != nil {
		j.fail(log, err)
		return
	}

	summary := groups.Summary()
	log.Info(
		"search completed",
		"groups", summary.Groups,
		"duplicates", summary.Duplicates,
		"wasted", summary.Wasted,
		"skipped", len(skipped),
	)
	j.finish(Outcome{
		State:   StateCompleted,
		Groups:  &groups,
		Skipped: skipped,
	})
}

func (j *Job) fail(log *slog.Logger, err error) {
	if err == ErrAborted {
		log.Info("search aborted")
		j.finish(Outcome{State: StateAborted})
		return
	}
	log.Error("search failed", "err", err)
	j.finish(Outcome{State: StateFailed, Err: err})
}

// finish publishes the outcome. It is called exactly once per job.
func (j *Job) finish(outcome Outcome) {
	j.lock.Lock()
	j.state = outcome.State
	j.outcome = outcome
	j.lock.Unlock()

	close(j.progress)
	close(j.done)
}
