package generate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/diogo/glmchat/internal/api"
	apierrors "github.com/diogo/glmchat/internal/errors"
	"github.com/diogo/glmchat/internal/history"
	"github.com/diogo/glmchat/internal/models"
)

// Default polling schedule.
const (
	DefaultInitialDelay = 5 * time.Second
	DefaultPollInterval = 5 * time.Second
	DefaultTimeout      = 30 * time.Minute
)

const failedFallback = "Video generation failed."

// ErrPollerClosed is returned by Submit after Shutdown.
var ErrPollerClosed = errors.New("video poller is shut down")

// VideoClient submits and queries video tasks. *api.Client implements it.
type VideoClient interface {
	SubmitVideo(ctx context.Context, apiKey, model, prompt string, opts models.VideoGenOptions) (*api.VideoTask, error)
	QueryVideo(ctx context.Context, apiKey, taskID string) (*api.VideoResult, error)
}

// MessageSink receives the messages a job produces. *history.Store
// implements it.
type MessageSink interface {
	AppendMessages(id string, msgs ...history.Message) (*history.Conversation, error)
}

// PollerConfig is the polling schedule. Zero values take the defaults; a
// negative Timeout disables it.
type PollerConfig struct {
	InitialDelay time.Duration
	Interval     time.Duration
	Timeout      time.Duration
}

func (c PollerConfig) withDefaults() PollerConfig {
	if c.InitialDelay <= 0 {
		c.InitialDelay = DefaultInitialDelay
	}
	if c.Interval <= 0 {
		c.Interval = DefaultPollInterval
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// VideoRequest is one video generation.
type VideoRequest struct {
	ConversationID string
	APIKey         string
	Model          string
	Prompt         string
	Options        models.VideoGenOptions
}

// Job describes a task that is still being polled.
type Job struct {
	TaskID         string
	ConversationID string
	Model          string
	Prompt         string
	SubmittedAt    time.Time
}

type job struct {
	Job
	apiKey string
	cancel context.CancelFunc
	done   chan struct{}
}

// VideoPoller submits video tasks and polls each one on its own goroutine
// until it reaches a terminal state, is cancelled or times out.
type VideoPoller struct {
	client VideoClient
	router *models.Router
	sink   MessageSink
	cfg    PollerConfig
	logger *zap.Logger

	mu     sync.Mutex
	jobs   map[string]*job
	wg     sync.WaitGroup
	closed bool
}

// NewVideoPoller creates a VideoPoller
func NewVideoPoller(client VideoClient, router *models.Router, sink MessageSink, cfg PollerConfig, logger *zap.Logger) *VideoPoller {
	if router == nil {
		router = models.NewRouter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VideoPoller{
		client: client,
		router: router,
		sink:   sink,
		cfg:    cfg.withDefaults(),
		logger: logger,
		jobs:   make(map[string]*job),
	}
}

// Submit starts a video task, records the submission in the conversation
// and begins polling. ctx only bounds the submission request.
func (p *VideoPoller) Submit(ctx context.Context, req VideoRequest) (*api.VideoTask, error) {
	if req.APIKey == "" {
		return nil, apierrors.ErrMissingCredential
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" && req.Options.ImageURL == "" {
		return nil, apierrors.ErrEmptyPayload
	}

	m, opts, err := p.router.CheckVideo(req.Model, req.Options)
	if err != nil {
		return nil, err
	}
	if opts.ImageURL != "" && !isRemoteImage(opts.ImageURL) {
		dataURL, err := api.InlineImage(opts.ImageURL)
		if err != nil {
			return nil, err
		}
		opts.ImageURL = dataURL
	}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, ErrPollerClosed
	}

	task, err := p.client.SubmitVideo(ctx, req.APIKey, m.ID, req.Prompt, opts)
	if err != nil {
		p.logger.Warn("video submission failed", zap.String("model", m.ID), zap.Error(err))
		return nil, err
	}

	notice := fmt.Sprintf("Video task submitted (ID: %s). Waiting for completion...", task.TaskID)
	if _, err := p.sink.AppendMessages(req.ConversationID, history.NewAIMessage(notice)); err != nil {
		return task, err
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	j := &job{
		Job: Job{
			TaskID:         task.TaskID,
			ConversationID: req.ConversationID,
			Model:          m.ID,
			Prompt:         req.Prompt,
			SubmittedAt:    time.Now(),
		},
		apiKey: req.APIKey,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		cancel()
		return task, ErrPollerClosed
	}
	p.jobs[task.TaskID] = j
	p.wg.Add(1)
	p.mu.Unlock()

	go p.run(jobCtx, j)

	p.logger.Info("video polling started", zap.String("task_id", task.TaskID), zap.String("conversation", req.ConversationID))
	return task, nil
}

func (p *VideoPoller) run(ctx context.Context, j *job) {
	defer p.wg.Done()
	defer close(j.done)
	defer p.remove(j.TaskID)
	defer j.cancel()

	timer := time.NewTimer(p.cfg.InitialDelay)
	defer timer.Stop()

	var deadline <-chan time.Time
	if p.cfg.Timeout > 0 {
		t := time.NewTimer(p.cfg.Timeout)
		defer t.Stop()
		deadline = t.C
	}

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("video polling cancelled", zap.String("task_id", j.TaskID))
			return
		case <-deadline:
			p.finish(j, queryFailed(j.TaskID, fmt.Errorf("no result after %s", p.cfg.Timeout)))
			return
		case <-timer.C:
		}

		res, err := p.client.QueryVideo(ctx, j.apiKey, j.TaskID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("video status query failed", zap.Error(apierrors.NewQueryError(j.TaskID, err)))
			p.finish(j, queryFailed(j.TaskID, err))
			return
		}

		switch res.Status {
		case api.TaskSuccess:
			if res.VideoURL == "" {
				p.finish(j, queryFailed(j.TaskID, apierrors.NewParseError("task succeeded without a video url", api.PathVideoURL)))
				return
			}
			p.finish(j, history.NewAIMessage("Video generated successfully.", history.FileRef{
				Name: "video-" + j.TaskID + ".mp4",
				Kind: history.FileVideo,
				URL:  res.VideoURL,
			}))
			return
		case api.TaskFail:
			msg := strings.TrimSpace(res.ErrorMessage)
			if msg == "" {
				msg = failedFallback
			}
			p.finish(j, history.NewErrorMessage(msg))
			return
		default:
			p.logger.Debug("video still processing", zap.String("task_id", j.TaskID), zap.String("status", res.Status))
			timer.Reset(p.cfg.Interval)
		}
	}
}

// finish appends the terminal message unless the job was cancelled.
func (p *VideoPoller) finish(j *job, msg history.Message) {
	p.mu.Lock()
	_, live := p.jobs[j.TaskID]
	p.mu.Unlock()
	if !live {
		return
	}

	if _, err := p.sink.AppendMessages(j.ConversationID, msg); err != nil {
		p.logger.Warn("failed to record video result",
			zap.String("task_id", j.TaskID),
			zap.String("conversation", j.ConversationID),
			zap.Error(err))
		return
	}
	p.logger.Info("video task finished", zap.String("task_id", j.TaskID), zap.Bool("error", msg.IsError))
}

func (p *VideoPoller) remove(taskID string) {
	p.mu.Lock()
	delete(p.jobs, taskID)
	p.mu.Unlock()
}

// Cancel stops polling taskID. It reports whether the task was active.
func (p *VideoPoller) Cancel(taskID string) bool {
	p.mu.Lock()
	j, ok := p.jobs[taskID]
	if ok {
		delete(p.jobs, taskID)
	}
	p.mu.Unlock()

	if ok {
		j.cancel()
	}
	return ok
}

// CancelConversation stops every task of a conversation and returns how
// many were stopped.
func (p *VideoPoller) CancelConversation(convID string) int {
	p.mu.Lock()
	var cancelled []*job
	for id, j := range p.jobs {
		if j.ConversationID == convID {
			cancelled = append(cancelled, j)
			delete(p.jobs, id)
		}
	}
	p.mu.Unlock()

	for _, j := range cancelled {
		j.cancel()
	}
	return len(cancelled)
}

// Active lists the tasks being polled, oldest first.
func (p *VideoPoller) Active() []Job {
	p.mu.Lock()
	out := make([]Job, 0, len(p.jobs))
	for _, j := range p.jobs {
		out = append(out, j.Job)
	}
	p.mu.Unlock()

	sort.Slice(out, func(a, b int) bool { return out[a].SubmittedAt.Before(out[b].SubmittedAt) })
	return out
}

// Wait blocks until taskID stops being polled or ctx is done.
func (p *VideoPoller) Wait(ctx context.Context, taskID string) error {
	p.mu.Lock()
	j, ok := p.jobs[taskID]
	p.mu.Unlock()
	if !ok {
		return nil
	}

	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown cancels every job and waits for the goroutines to exit.
func (p *VideoPoller) Shutdown() {
	p.mu.Lock()
	p.closed = true
	jobs := make([]*job, 0, len(p.jobs))
	for id, j := range p.jobs {
		jobs = append(jobs, j)
		delete(p.jobs, id)
	}
	p.mu.Unlock()

	for _, j := range jobs {
		j.cancel()
	}
	p.wg.Wait()
}

// queryFailed builds the error message recorded when a task cannot be
// followed to completion.
func queryFailed(taskID string, cause error) history.Message {
	return history.NewErrorMessage(fmt.Sprintf("%s Task %s: %s",
		apierrors.UserMessage(apierrors.ErrQueryFailed), taskID, apierrors.UserMessage(cause)))
}

func isRemoteImage(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "data:")
}
