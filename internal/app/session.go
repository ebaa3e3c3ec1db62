// Package app ties the store, the pipelines and the video poller into one
// session shared by the CLI and the TUI.
package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/diogo/glmchat/internal/api"
	"github.com/diogo/glmchat/internal/chat"
	"github.com/diogo/glmchat/internal/config"
	apierrors "github.com/diogo/glmchat/internal/errors"
	"github.com/diogo/glmchat/internal/generate"
	"github.com/diogo/glmchat/internal/history"
	"github.com/diogo/glmchat/internal/models"
	"github.com/diogo/glmchat/internal/storage"
)

// Backend is the provider surface used by a Session. *api.Client
// implements it.
type Backend interface {
	chat.Completer
	generate.ImageClient
	generate.VideoClient
}

// Session owns the state of one running instance.
type Session struct {
	cfg     config.Config
	gw      *storage.Gateway
	store   *history.Store
	backend Backend
	router  *models.Router
	chat    *chat.Pipeline
	images  *generate.ImageGenerator
	videos  *generate.VideoPoller
	logger  *zap.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
	notify   Notifier
	model    string
}

// Option configures a Session.
type Option func(*Session)

// WithNotifier receives messages appended by background jobs.
func WithNotifier(n Notifier) Option {
	return func(s *Session) {
		if n != nil {
			s.notify = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New builds a Session over an opened gateway and a provider backend.
func New(cfg config.Config, gw *storage.Gateway, backend Backend, opts ...Option) *Session {
	s := &Session{
		cfg:      cfg,
		gw:       gw,
		store:    history.NewStore(gw),
		backend:  backend,
		router:   models.NewRouter(),
		logger:   zap.NewNop(),
		inFlight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notify == nil {
		s.notify = NewLogNotifier(s.logger)
	}

	s.chat = chat.NewPipeline(backend, s.router, s.logger)
	s.images = generate.NewImageGenerator(backend, s.router, s.logger)
	s.videos = generate.NewVideoPoller(backend, s.router, &notifyingSink{store: s.store, notifier: s.notifier}, pollerConfig(cfg), s.logger)
	return s
}

// SetNotifier replaces the notifier, e.g. once the TUI program exists.
func (s *Session) SetNotifier(n Notifier) {
	if n == nil {
		n = NewLogNotifier(s.logger)
	}
	s.mu.Lock()
	s.notify = n
	s.mu.Unlock()
}

func (s *Session) notifier() Notifier {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notify
}

// Open builds a Session from the configuration: storage backend, TLS
// client and rate limiter.
func Open(cfg config.Config, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dataDir, err := config.ResolveDataDir(cfg)
	if err != nil {
		return nil, err
	}
	gw, err := storage.Open(cfg.StorageBackend, dataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	client, err := api.NewClient(
		api.WithBaseURL(cfg.BaseURL),
		api.WithTimeout(time.Duration(cfg.RequestTimeout)*time.Second),
		api.WithRateLimit(cfg.RequestsPerSecond, 2),
		api.WithLogger(logger),
	)
	if err != nil {
		_ = gw.Close()
		return nil, err
	}

	return New(cfg, gw, client, WithLogger(logger)), nil
}

func pollerConfig(cfg config.Config) generate.PollerConfig {
	pc := generate.PollerConfig{
		InitialDelay: time.Duration(cfg.Video.InitialDelaySeconds) * time.Second,
		Interval:     time.Duration(cfg.Video.PollIntervalSeconds) * time.Second,
		Timeout:      -1,
	}
	if cfg.Video.TimeoutMinutes > 0 {
		pc.Timeout = time.Duration(cfg.Video.TimeoutMinutes) * time.Minute
	}
	return pc
}

// Config returns the configuration the session was built with.
func (s *Session) Config() config.Config { return s.cfg }

// Store returns the conversation store.
func (s *Session) Store() *history.Store { return s.store }

// Settings loads the chat settings.
func (s *Session) Settings() config.ChatSettings {
	return config.LoadSettings(s.gw)
}

// UpdateSettings applies fn to the stored settings and saves the result.
// Nothing is saved when fn fails or the result is invalid.
func (s *Session) UpdateSettings(fn func(*config.ChatSettings) error) (config.ChatSettings, error) {
	settings := s.Settings()
	if err := fn(&settings); err != nil {
		return settings, err
	}
	if err := config.SaveSettings(s.gw, settings); err != nil {
		return settings, err
	}
	return settings, nil
}

// UseModel makes chat requests of this session use model instead of the
// saved setting. An empty model clears the override. Nothing is persisted.
func (s *Session) UseModel(model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = strings.TrimSpace(model)
}

func (s *Session) chatModel(settings config.ChatSettings) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model != "" {
		return models.Lookup(s.model).ID
	}
	return settings.Model
}

// Current returns the current conversation, creating one if needed.
func (s *Session) Current() (*history.Conversation, error) {
	return s.store.Bootstrap()
}

// NewConversation creates, saves and selects an empty conversation.
func (s *Session) NewConversation() (*history.Conversation, error) {
	conv := s.store.CreateConversation()
	if err := s.store.Save(conv); err != nil {
		return nil, err
	}
	if err := s.store.SetCurrent(conv.ID); err != nil {
		return nil, err
	}
	return conv, nil
}

// Conversation returns a stored conversation.
func (s *Session) Conversation(id string) (*history.Conversation, error) {
	return s.store.Get(id)
}

// SelectConversation makes id the current conversation.
func (s *Session) SelectConversation(id string) (*history.Conversation, error) {
	conv, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetCurrent(conv.ID); err != nil {
		return nil, err
	}
	return conv, nil
}

// DeleteConversation stops the conversation's video jobs and removes it.
// When it was the current conversation the most recent remaining one
// becomes current.
func (s *Session) DeleteConversation(id string) error {
	if n := s.videos.CancelConversation(id); n > 0 {
		s.logger.Info("cancelled video jobs", zap.String("conversation", id), zap.Int("count", n))
	}
	current, _ := s.store.CurrentID()
	if err := s.store.Delete(id); err != nil {
		return err
	}
	if current == id {
		if err := s.store.SetCurrent(""); err != nil {
			return err
		}
		if _, err := s.store.Bootstrap(); err != nil {
			return err
		}
	}
	return nil
}

// ClearAll removes every conversation and starts a fresh one.
func (s *Session) ClearAll() (*history.Conversation, error) {
	convs, err := s.store.List()
	if err != nil {
		return nil, err
	}
	for _, c := range convs {
		s.videos.CancelConversation(c.ID)
	}
	if err := s.store.ClearAll(); err != nil {
		return nil, err
	}
	return s.store.Bootstrap()
}

// acquire marks convID busy. The returned func releases it.
func (s *Session) acquire(convID string) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[convID]; busy {
		return nil, apierrors.ErrRequestInFlight
	}
	s.inFlight[convID] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.inFlight, convID)
		s.mu.Unlock()
	}, nil
}

// Busy reports whether a request is running for convID.
func (s *Session) Busy(convID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, busy := s.inFlight[convID]
	return busy
}

// Send records the user's turn, runs the chat pipeline and records the
// answer. A failure is recorded as an error message and returned.
func (s *Session) Send(ctx context.Context, convID, text string, attachments []chat.Attachment) (history.Message, error) {
	if strings.TrimSpace(text) == "" && !hasImage(attachments) {
		return history.Message{}, apierrors.ErrEmptyPayload
	}
	release, err := s.acquire(convID)
	if err != nil {
		return history.Message{}, err
	}
	defer release()

	if _, err := s.store.AppendMessages(convID, history.NewUserMessage(strings.TrimSpace(text), fileRefs(attachments)...)); err != nil {
		return history.Message{}, err
	}

	settings := s.Settings()
	answer, err := s.chat.Send(ctx, settings.EffectiveAPIKey(), chat.Request{
		Text:         text,
		Attachments:  attachments,
		Model:        s.chatModel(settings),
		Temperature:  settings.Temperature,
		MaxTokens:    settings.MaxTokens,
		SystemPrompt: settings.SystemPrompt(),
	})
	if err != nil {
		return s.recordFailure(convID, err)
	}
	return s.record(convID, history.NewAIMessage(answer))
}

func hasImage(attachments []chat.Attachment) bool {
	for _, a := range attachments {
		if a.IsImage() {
			return true
		}
	}
	return false
}

// GenerateImage records the prompt, generates one image and records it.
// An empty model uses the settings model when it generates images, else
// the default image model.
func (s *Session) GenerateImage(ctx context.Context, convID, model, prompt string, opts models.ImageGenOptions) (history.Message, error) {
	release, err := s.acquire(convID)
	if err != nil {
		return history.Message{}, err
	}
	defer release()

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return history.Message{}, apierrors.ErrEmptyPayload
	}
	settings := s.Settings()
	model = s.pickModel(model, settings.Model, models.FamilyImage, models.ModelCogView3Flash.ID)

	if _, err := s.store.AppendMessages(convID, history.NewUserMessage(prompt)); err != nil {
		return history.Message{}, err
	}

	url, err := s.images.Generate(ctx, settings.EffectiveAPIKey(), model, prompt, opts)
	if err != nil {
		return s.recordFailure(convID, err)
	}
	return s.record(convID, history.NewAIMessage("Image generated.", history.FileRef{
		Name: "generated-image.png",
		Kind: history.FileImage,
		URL:  url,
	}))
}

// GenerateVideo records the prompt and submits a video task. The result is
// appended to the conversation by the poller.
func (s *Session) GenerateVideo(ctx context.Context, convID, model, prompt string, opts models.VideoGenOptions) (*api.VideoTask, error) {
	release, err := s.acquire(convID)
	if err != nil {
		return nil, err
	}
	defer release()

	prompt = strings.TrimSpace(prompt)
	if prompt == "" && opts.ImageURL == "" {
		return nil, apierrors.ErrEmptyPayload
	}
	settings := s.Settings()
	model = s.pickModel(model, settings.Model, models.FamilyVideo, models.ModelCogVideoXFlash.ID)

	var files []history.FileRef
	if opts.ImageURL != "" {
		files = append(files, history.FileRef{Name: displayName(opts.ImageURL), Kind: history.FileImage, URL: opts.ImageURL})
	}
	if _, err := s.store.AppendMessages(convID, history.NewUserMessage(prompt, files...)); err != nil {
		return nil, err
	}

	task, err := s.videos.Submit(ctx, generate.VideoRequest{
		ConversationID: convID,
		APIKey:         settings.EffectiveAPIKey(),
		Model:          model,
		Prompt:         prompt,
		Options:        opts,
	})
	if err != nil {
		if task == nil {
			_, _ = s.recordFailure(convID, err)
		}
		return task, err
	}
	return task, nil
}

// VideoStatus queries a video task once, outside the poller.
func (s *Session) VideoStatus(ctx context.Context, taskID string) (*api.VideoResult, error) {
	key := s.Settings().EffectiveAPIKey()
	if key == "" {
		return nil, apierrors.ErrMissingCredential
	}
	return s.backend.QueryVideo(ctx, key, taskID)
}

// Downloader saves a generated asset. *api.Client implements it.
type Downloader interface {
	Download(ctx context.Context, url, dir string) (string, error)
}

// Download saves a generated image or video into dir.
func (s *Session) Download(ctx context.Context, url, dir string) (string, error) {
	d, ok := s.backend.(Downloader)
	if !ok {
		return "", fmt.Errorf("downloads are not supported by this backend")
	}
	return d.Download(ctx, url, dir)
}

// ActiveJobs lists the video tasks still being polled.
func (s *Session) ActiveJobs() []generate.Job {
	return s.videos.Active()
}

// WaitJob blocks until a video task finishes or ctx is done.
func (s *Session) WaitJob(ctx context.Context, taskID string) error {
	return s.videos.Wait(ctx, taskID)
}

// CancelJob stops polling a video task.
func (s *Session) CancelJob(taskID string) bool {
	return s.videos.Cancel(taskID)
}

// Close stops the poller and releases the client and storage.
func (s *Session) Close() error {
	s.videos.Shutdown()
	if closer, ok := s.backend.(interface{ Close() }); ok {
		closer.Close()
	}
	return s.gw.Close()
}

func (s *Session) pickModel(explicit, configured string, family models.Family, fallback string) string {
	if explicit != "" {
		return explicit
	}
	if s.router.Route(configured) == family {
		return configured
	}
	return fallback
}

func (s *Session) record(convID string, msg history.Message) (history.Message, error) {
	if _, err := s.store.AppendMessages(convID, msg); err != nil {
		return msg, err
	}
	return msg, nil
}

func (s *Session) recordFailure(convID string, cause error) (history.Message, error) {
	msg := history.NewErrorMessage(apierrors.UserMessage(cause))
	if _, err := s.store.AppendMessages(convID, msg); err != nil {
		s.logger.Warn("failed to record error message", zap.String("conversation", convID), zap.Error(err))
	}
	s.logger.Debug("request failed", zap.String("kind", apierrors.Kind(cause)), zap.Error(cause))
	return msg, cause
}

func fileRefs(attachments []chat.Attachment) []history.FileRef {
	refs := make([]history.FileRef, 0, len(attachments))
	for _, a := range attachments {
		kind := history.FileDocument
		if a.Kind == chat.KindImage {
			kind = history.FileImage
		}
		refs = append(refs, history.FileRef{Name: a.Name, Kind: kind, URL: a.Path})
	}
	return refs
}

func displayName(ref string) string {
	if strings.HasPrefix(ref, "data:") {
		return "reference-image"
	}
	return chat.NewAttachment(ref).Name
}
