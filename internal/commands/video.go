package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/diogo/glmchat/internal/api"
	"github.com/diogo/glmchat/internal/history"
	"github.com/diogo/glmchat/internal/models"
)

var (
	videoQualityFlag string
	videoAudioFlag   bool
	videoImageFlag   string
	videoNoWaitFlag  bool
	videoSaveFlag    string
)

var videoCmd = &cobra.Command{
	Use:   "video <prompt>",
	Short: "Generate a video",
	Long: `Submit a video generation task and wait for it to finish. The result is
recorded in the current conversation.

Examples:
  glmchat video "waves at sunrise"
  glmchat video --image first-frame.png "the camera pans left"
  glmchat video --no-wait "a city at night"
  glmchat video status <task-id>`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVideo,
}

var videoStatusCmd = &cobra.Command{
	Use:   "status <task-id>",
	Short: "Show the state of a video task",
	Args:  cobra.ExactArgs(1),
	RunE:  runVideoStatus,
}

func init() {
	videoCmd.Flags().StringVar(&videoQualityFlag, "quality", models.VideoQualitySpeed, "Video quality (speed or quality)")
	videoCmd.Flags().BoolVar(&videoAudioFlag, "audio", false, "Generate an audio track")
	videoCmd.Flags().StringVar(&videoImageFlag, "image", "", "First-frame image (path or URL)")
	videoCmd.Flags().BoolVar(&videoNoWaitFlag, "no-wait", false, "Print the task id and exit")
	videoCmd.Flags().StringVar(&videoSaveFlag, "save", "", "Download the video into this directory")
	videoCmd.Flags().BoolVar(&newFlag, "new", false, "Record in a new conversation")
	videoStatusCmd.Flags().StringVar(&videoSaveFlag, "save", "", "Download the video into this directory when ready")
	videoCmd.AddCommand(videoStatusCmd)
}

func runVideo(cmd *cobra.Command, args []string) error {
	var prompt string
	if len(args) > 0 {
		prompt = args[0]
	}
	if prompt == "" && videoImageFlag == "" {
		return fmt.Errorf("a prompt or --image is required")
	}

	opts := models.VideoGenOptions{Quality: videoQualityFlag, WithAudio: videoAudioFlag, ImageURL: videoImageFlag}
	if err := opts.Validate(); err != nil {
		return err
	}

	session, err := openSession()
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	conv, err := targetConversation(session, newFlag)
	if err != nil {
		return err
	}

	submitCtx, cancel := context.WithTimeout(cmd.Context(), requestTimeout())
	defer cancel()

	task, err := session.GenerateVideo(submitCtx, conv.ID, modelOverride(), prompt, opts)
	if err != nil {
		return fmt.Errorf("video submission failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if videoNoWaitFlag {
		fmt.Fprintln(out, task.TaskID)
		return nil
	}
	fmt.Fprintln(cmd.ErrOrStderr(), dimStyle.Render("Task "+task.TaskID+" submitted"))

	spin := newSpinner(progressWriter(cmd, false), "Waiting for the video")
	spin.start()

	// The poller owns the deadline; the wait only follows it.
	if err := session.WaitJob(cmd.Context(), task.TaskID); err != nil {
		spin.stopWithError()
		return err
	}

	updated, err := session.Conversation(conv.ID)
	if err != nil {
		spin.stopWithError()
		return err
	}
	last := updated.Messages[len(updated.Messages)-1]
	if last.IsError {
		spin.stopWithError()
		return fmt.Errorf("%s", last.Content)
	}
	spin.stopWithSuccess(last.Content)

	return emitVideoFiles(cmd, session, last.Files)
}

func emitVideoFiles(cmd *cobra.Command, session downloader, files []history.FileRef) error {
	for _, f := range files {
		if f.Kind != history.FileVideo {
			continue
		}
		if err := emitVideoURL(cmd, session, f.URL); err != nil {
			return err
		}
	}
	return nil
}

type downloader interface {
	Download(ctx context.Context, url, dir string) (string, error)
}

func emitVideoURL(cmd *cobra.Command, session downloader, url string) error {
	fmt.Fprintln(cmd.OutOrStdout(), url)
	if videoSaveFlag == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()
	path, err := session.Download(ctx, url, videoSaveFlag)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), successStyle.Render("✓ Saved to "+path))
	return nil
}

func runVideoStatus(cmd *cobra.Command, args []string) error {
	session, err := openSession()
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout())
	defer cancel()

	result, err := session.VideoStatus(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Task:   %s\n", result.TaskID)
	fmt.Fprintf(out, "Status: %s\n", result.Status)
	switch result.Status {
	case api.TaskSuccess:
		if result.CoverImageURL != "" {
			fmt.Fprintf(out, "Cover:  %s\n", result.CoverImageURL)
		}
		if result.VideoURL == "" {
			return nil
		}
		fmt.Fprint(out, "Video:  ")
		return emitVideoURL(cmd, session, result.VideoURL)
	case api.TaskFail:
		if result.ErrorMessage != "" {
			fmt.Fprintf(out, "Error:  %s\n", result.ErrorMessage)
		}
	}
	return nil
}
