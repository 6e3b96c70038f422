package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/trajstore"
	"github.com/hupe1980/trajstore/internal/export"
)

func newSliceCommand(ctx *commandContext) *cobra.Command {
	var env, episode int
	var outPath, format string

	cmd := &cobra.Command{
		Use:   "slice [dir]",
		Short: "Export one episode of one environment as PNG frames or MP4",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := outputDir(ctx, args)
			if err != nil {
				return err
			}
			format = strings.ToLower(strings.TrimSpace(format))
			if format != "png" && format != "mp4" {
				return fmt.Errorf("unsupported format %q (want png or mp4)", format)
			}

			archive, err := trajstore.OpenArchive(dir)
			if err != nil {
				return err
			}
			defer archive.Close()

			s, err := archive.GetSlice(cmd.Context(), env, episode)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if s.Len() == 0 {
				fmt.Fprintf(out, "Episode %d of environment %d has no frames\n", episode, env)
				return nil
			}

			prefix := fmt.Sprintf("env%d_ep%d", env, episode)
			switch format {
			case "png":
				target := outPath
				if target == "" {
					target = prefix
				}
				if err := os.MkdirAll(target, 0o755); err != nil {
					return fmt.Errorf("create output directory: %w", err)
				}
				paths, err := export.WritePNGs(target, prefix, s.Tiles, s.Width, s.Height)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Wrote %d frames to %s\n", len(paths), target)
			case "mp4":
				target := outPath
				if target == "" {
					target = prefix + ".mp4"
				}
				if dir := filepath.Dir(target); dir != "." {
					if err := os.MkdirAll(dir, 0o755); err != nil {
						return fmt.Errorf("create output directory: %w", err)
					}
				}
				ff := export.FFmpeg{}
				if err := ff.EncodeMP4(cmd.Context(), target, s.Tiles, s.Width, s.Height, int(archive.Header().FPS)); err != nil {
					return err
				}
				fmt.Fprintf(out, "Wrote %d frames to %s\n", s.Len(), target)
			}
			if s.Dropped > 0 {
				fmt.Fprintf(out, "Warning: %d frames could not be decoded and were exported black\n", s.Dropped)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&env, "env", "e", 0, "Environment id")
	cmd.Flags().IntVar(&episode, "episode", 0, "Episode id")
	cmd.Flags().StringVar(&outPath, "out", "", "Output directory (png) or file (mp4)")
	cmd.Flags().StringVarP(&format, "format", "f", "png", "Export format: png or mp4")
	return cmd
}
