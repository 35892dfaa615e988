// cmd/lottiecolor/edit_commands.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codr1/lottiecolor/internal/lottie"
)

type editFlags struct {
	write  bool
	output string
}

type editOutput struct {
	Changes []lottie.Change `json:"changes"`
	Count   int             `json:"count"`
	Written string          `json:"written,omitempty"`
}

type applyFunc func(e *lottie.Engine, doc *lottie.Node) (lottie.Result, error)

func newReplaceCommand(ctx *commandContext) *cobra.Command {
	var flags editFlags

	cmd := &cobra.Command{
		Use:   "replace FILE OLD NEW",
		Short: "Replace one color everywhere it appears",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			oldHex, err := parseColorArg("OLD", args[1])
			if err != nil {
				return err
			}
			newHex, err := parseColorArg("NEW", args[2])
			if err != nil {
				return err
			}
			return ctx.runEdit(cmd, args[0], flags, func(e *lottie.Engine, doc *lottie.Node) (lottie.Result, error) {
				return e.ReplaceColor(doc, oldHex, newHex)
			})
		},
	}
	addEditFlags(cmd, &flags)
	return cmd
}

func newReplaceAllCommand(ctx *commandContext) *cobra.Command {
	var flags editFlags

	cmd := &cobra.Command{
		Use:   "replace-all FILE NEW",
		Short: "Set every color in the animation to one color",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			newHex, err := parseColorArg("NEW", args[1])
			if err != nil {
				return err
			}
			return ctx.runEdit(cmd, args[0], flags, func(e *lottie.Engine, doc *lottie.Node) (lottie.Result, error) {
				return e.ReplaceAll(doc, newHex)
			})
		},
	}
	addEditFlags(cmd, &flags)
	return cmd
}

func addEditFlags(cmd *cobra.Command, flags *editFlags) {
	cmd.Flags().BoolVarP(&flags.write, "write", "w", false, "Rewrite FILE in place")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Write the result to this path instead")
	cmd.MarkFlagsMutuallyExclusive("write", "output")
}

// parseColorArg accepts #RRGGBB with or without the leading #.
func parseColorArg(name, value string) (string, error) {
	hex, err := lottie.NormalizeHex(value)
	if err != nil {
		hex, err = lottie.NormalizeHex("#" + value)
	}
	if err != nil {
		return "", fmt.Errorf("%s must be a 6-digit hex color like #AABBCC, got %q", name, value)
	}
	return hex, nil
}

// runEdit applies fn to the animation at path. Without --write or --output
// it only reports what would change.
func (c *commandContext) runEdit(cmd *cobra.Command, path string, flags editFlags, fn applyFunc) error {
	target := flags.output
	if flags.write {
		target = path
	}
	if target != "" {
		unlock, err := lockFile(target)
		if err != nil {
			return err
		}
		defer unlock()
	}

	anim, err := c.readAnimation(path)
	if err != nil {
		return err
	}
	result, err := fn(c.engine, anim.doc)
	if err != nil {
		return err
	}

	written := ""
	if target != "" && (result.Changed() || target != path) {
		data, err := anim.encode(result.Document)
		if err != nil {
			return err
		}
		if err := writeFileAtomic(target, data); err != nil {
			return err
		}
		written = target
		c.logger.Info().Str("path", target).Int("changes", len(result.Changes)).Msg("Animation written")
	}

	changes := result.Changes
	if changes == nil {
		changes = []lottie.Change{}
	}
	if c.jsonOutput {
		return writeJSON(cmd, editOutput{Changes: changes, Count: len(changes), Written: written})
	}

	out := cmd.OutOrStdout()
	if len(changes) == 0 {
		fmt.Fprintln(out, "No matching colors found")
		return nil
	}
	rows := make([][]string, 0, len(changes))
	for _, change := range changes {
		rows = append(rows, []string{swatch(change.From), swatch(change.To), string(change.Kind), change.Path})
	}
	fmt.Fprintln(out, renderTable([]string{"From", "To", "Encoding", "Path"}, rows, nil))
	switch {
	case written != "":
		fmt.Fprintf(out, "Updated %d color sites in %s\n", len(changes), written)
	default:
		fmt.Fprintf(out, "%d color sites would change (use --write to save)\n", len(changes))
	}
	return nil
}
