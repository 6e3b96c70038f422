package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/trajstore"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var env int

	cmd := &cobra.Command{
		Use:   "inspect [dir]",
		Short: "List segments and episodes of a recorded output folder",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := outputDir(ctx, args)
			if err != nil {
				return err
			}
			archive, err := trajstore.OpenArchive(dir)
			if err != nil {
				return err
			}
			defer archive.Close()

			out := cmd.OutOrStdout()
			hdr := archive.Header()
			fmt.Fprintf(out, "Run %s: %d environments, %dx%d grid of %dx%d tiles, %d fps, %s\n",
				hdr.RunID, hdr.NumEnvs, hdr.GridSize, hdr.GridSize, hdr.TileWidth, hdr.TileHeight, hdr.FPS, hdr.Compression)
			fmt.Fprintln(out, segmentTable(archive.Segments()))

			if !cmd.Flags().Changed("env") {
				return nil
			}
			episodes, err := archive.Episodes(env)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Episodes of environment %d\n", env)
			fmt.Fprintln(out, episodeTable(episodes))
			return nil
		},
	}

	cmd.Flags().IntVarP(&env, "env", "e", 0, "List the episodes of this environment")
	return cmd
}

func outputDir(ctx *commandContext, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return "", err
	}
	return cfg.Storage.OutputFolder, nil
}
