package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/diogo/glmchat/internal/api"
	"github.com/diogo/glmchat/internal/app"
	"github.com/diogo/glmchat/internal/config"
	"github.com/diogo/glmchat/internal/models"
	"github.com/diogo/glmchat/internal/render"
	"github.com/diogo/glmchat/internal/storage"
)

type fakeBackend struct {
	mu       sync.Mutex
	answer   string
	chatErr  error
	chatReqs []api.ChatRequest
	imageURL string
	video    api.VideoResult
	saved    []string
}

func (f *fakeBackend) ChatCompletion(_ context.Context, _ string, req api.ChatRequest) (*api.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatReqs = append(f.chatReqs, req)
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	return &api.ChatResponse{Content: f.answer}, nil
}

func (f *fakeBackend) GenerateImage(context.Context, string, string, string, models.ImageGenOptions) (*api.ImageResult, error) {
	return &api.ImageResult{URL: f.imageURL}, nil
}

func (f *fakeBackend) SubmitVideo(context.Context, string, string, string, models.VideoGenOptions) (*api.VideoTask, error) {
	return &api.VideoTask{TaskID: "vid-1", Status: api.TaskProcessing}, nil
}

func (f *fakeBackend) QueryVideo(_ context.Context, _, taskID string) (*api.VideoResult, error) {
	result := f.video
	result.TaskID = taskID
	return &result, nil
}

func (f *fakeBackend) Download(_ context.Context, url, dir string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, url)
	path := filepath.Join(dir, filepath.Base(url))
	return path, os.WriteFile(path, []byte("asset"), 0o644)
}

func (f *fakeBackend) lastRequest() api.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chatReqs[len(f.chatReqs)-1]
}

// testEnv wires the commands to an in-memory store and a fake backend.
type testEnv struct {
	gw      *storage.Gateway
	backend *fakeBackend
	home    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	home := t.TempDir()
	t.Setenv(config.EnvHome, home)
	t.Setenv(config.EnvAPIKey, "")
	t.Setenv(config.EnvBaseURL, "")

	env := &testEnv{
		gw:      storage.NewGateway(storage.NewMemoryBackend(), nil),
		backend: &fakeBackend{answer: "hello from glm", imageURL: "https://cdn.test/img.png"},
		home:    home,
	}

	settings := config.DefaultSettings()
	settings.APIKey = "test-key"
	settings.Model = models.ModelGLM4Flash.ID
	require.NoError(t, config.SaveSettings(env.gw, settings))

	orig := deps
	deps = &Dependencies{
		OpenSession: func(c config.Config, l *zap.Logger) (*app.Session, error) {
			return app.New(c, env.gw, env.backend, app.WithLogger(l)), nil
		},
		RunChat:         func(*app.Session, render.Options) error { return nil },
		CopyToClipboard: func(string) error { return nil },
	}
	t.Cleanup(func() { deps = orig })

	resetFlags(t)
	return env
}

// session opens a session over the same store the commands use.
func (e *testEnv) session(t *testing.T) *app.Session {
	t.Helper()
	return app.New(config.DefaultConfig(), e.gw, e.backend)
}

func resetFlags(t *testing.T) {
	t.Helper()
	modelFlag, verboseFlag = "", false
	outputFlag, fileFlag, attachFlag, rawFlag, newFlag = "", "", nil, false, false
	imageQualityFlag, imageSizeFlag, imageSaveFlag = models.ImageQualityStandard, models.DefaultImageSize, ""
	videoQualityFlag, videoAudioFlag, videoImageFlag, videoNoWaitFlag, videoSaveFlag = models.VideoQualitySpeed, false, "", false, ""
	exportAllFlag, exportMarkdownFlag, exportDirFlag, searchContentFlag = false, false, "", false
	presetFileFlag, presetNameFlag = "", ""
	chatNewFlag = false
	require.NoError(t, rootCmd.Flags().Set("version", "false"))
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(t)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func findSubcommand(parent *cobra.Command, name string) *cobra.Command {
	for _, c := range parent.Commands() {
		if c.Name() == name {
			return c
		}
	}
	return nil
}
