package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/diogo/glmchat/internal/models"
)

var (
	imageQualityFlag string
	imageSizeFlag    string
	imageSaveFlag    string
)

var imageCmd = &cobra.Command{
	Use:   "image <prompt>",
	Short: "Generate an image",
	Long: `Generate one image from a text prompt. The prompt and the image are
recorded in the current conversation.

Examples:
  glmchat image "a lighthouse at dusk"
  glmchat image --size 1440x720 --save ./out "a red bicycle"`,
	Args: cobra.ExactArgs(1),
	RunE: runImage,
}

func init() {
	imageCmd.Flags().StringVar(&imageQualityFlag, "quality", models.ImageQualityStandard, "Image quality (standard or hd)")
	imageCmd.Flags().StringVar(&imageSizeFlag, "size", models.DefaultImageSize, "Image size, WIDTHxHEIGHT")
	imageCmd.Flags().StringVar(&imageSaveFlag, "save", "", "Download the image into this directory")
	imageCmd.Flags().BoolVar(&newFlag, "new", false, "Record in a new conversation")
}

func runImage(cmd *cobra.Command, args []string) error {
	opts := models.ImageGenOptions{Quality: imageQualityFlag, Size: imageSizeFlag}
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

	errOut := progressWriter(cmd, false)
	spin := newSpinner(errOut, "Generating image")
	spin.start()

	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout())
	defer cancel()

	msg, err := session.GenerateImage(ctx, conv.ID, modelOverride(), args[0], opts)
	if err != nil {
		spin.stopWithError()
		return fmt.Errorf("image generation failed: %w", err)
	}
	spin.stopWithSuccess("Image generated")

	out := cmd.OutOrStdout()
	for _, f := range msg.Files {
		fmt.Fprintln(out, f.URL)
		if imageSaveFlag == "" {
			continue
		}
		path, err := session.Download(ctx, f.URL, imageSaveFlag)
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), formatErrorMessage(err, "Download failed"))
			continue
		}
		fmt.Fprintln(cmd.ErrOrStderr(), successStyle.Render("✓ Saved to "+path))
	}
	return nil
}
