// cmd/lottiecolor/pack_command.go
package main

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/codr1/lottiecolor/internal/export"
)

type packOutput struct {
	Output string `json:"output"`
	Name   string `json:"name"`
	Bytes  int    `json:"bytes"`
}

func newPackCommand(ctx *commandContext) *cobra.Command {
	var output string
	var name string

	cmd := &cobra.Command{
		Use:   "pack FILE",
		Short: "Package an animation as a .lottie archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			anim, err := ctx.readAnimation(args[0])
			if err != nil {
				return err
			}
			if name == "" {
				name = anim.name
			}
			if output == "" {
				output = filepath.Join(filepath.Dir(args[0]), export.Filename(name, "lottie"))
			}

			var buf bytes.Buffer
			if err := export.WritePackage(&buf, anim.doc, name); err != nil {
				return err
			}

			unlock, err := lockFile(output)
			if err != nil {
				return err
			}
			defer unlock()
			if err := writeFileAtomic(output, buf.Bytes()); err != nil {
				return err
			}

			if ctx.jsonOutput {
				return writeJSON(cmd, packOutput{Output: output, Name: name, Bytes: buf.Len()})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", output, buf.Len())
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Archive path (default: derived from the animation name)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Animation name in the manifest")
	return cmd
}
