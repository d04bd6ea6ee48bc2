package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/storyreel/storyreel/internal/session"
	"github.com/storyreel/storyreel/internal/tui/videowizard"
)

func runWizard(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}

	sess := session.New(e.catalog.Defaults())
	res, err := videowizard.Run(cmd.Context(), videowizard.Options{
		Catalog:   e.catalog,
		Session:   sess,
		Generator: e.generator(sess.ID()),
		Subtitles: e.subtitles,
	})
	if errors.Is(err, videowizard.ErrCancelled) {
		fmt.Println("Cancelled.")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Video saved to: %s\n", res.VideoRef)
	return nil
}
