// cmd/lottiecolor/inspect_commands.go
package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	colorsapi "github.com/codr1/lottiecolor/internal/api/colors"
	"github.com/codr1/lottiecolor/internal/lottie"
	"github.com/codr1/lottiecolor/internal/models"
)

type colorsOutput struct {
	Colors []lottie.ColorSite `json:"colors"`
	Count  int                `json:"count"`
}

type groupsOutput struct {
	Groups []lottie.ColorGroup `json:"groups"`
}

func newColorsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "colors FILE",
		Short: "List every color site in an animation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			anim, err := ctx.readAnimation(args[0])
			if err != nil {
				return err
			}
			sites, err := ctx.engine.ExtractAll(anim.doc)
			if err != nil {
				return err
			}
			if sites == nil {
				sites = []lottie.ColorSite{}
			}
			if ctx.jsonOutput {
				return writeJSON(cmd, colorsOutput{Colors: sites, Count: len(sites)})
			}
			if len(sites) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No colors found")
				return nil
			}

			rows := make([][]string, 0, len(sites))
			for i, site := range sites {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					swatch(site.Hex),
					string(site.Kind),
					string(site.Scale),
					site.Path,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"#", "Color", "Encoding", "Scale", "Path"},
				rows,
				[]columnAlignment{alignRight},
			))
			fmt.Fprintf(cmd.OutOrStdout(), "%d color sites\n", len(sites))
			return nil
		},
	}
}

func newGroupsCommand(ctx *commandContext) *cobra.Command {
	var tolerance float64

	cmd := &cobra.Command{
		Use:   "groups FILE",
		Short: "Group similar colors into a palette",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var tol *float64
			if cmd.Flags().Changed("tolerance") {
				if tolerance <= 0 || tolerance > 2 {
					return fmt.Errorf("tolerance must be greater than 0 and at most 2")
				}
				tol = &tolerance
			}

			anim, err := ctx.readAnimation(args[0])
			if err != nil {
				return err
			}
			sites, err := ctx.engine.ExtractAll(anim.doc)
			if err != nil {
				return err
			}
			groups := colorsapi.GroupWith(ctx.engine, sites, tol)
			if groups == nil {
				groups = []lottie.ColorGroup{}
			}
			if ctx.jsonOutput {
				return writeJSON(cmd, groupsOutput{Groups: groups})
			}
			if len(groups) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No colors found")
				return nil
			}

			rows := make([][]string, 0, len(groups))
			for _, group := range groups {
				rows = append(rows, []string{
					swatch(group.Representative),
					models.ColorName(group.Representative),
					strconv.Itoa(group.Count),
					group.Label(),
					formatKinds(group.EncodingKinds),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Color", "Name", "Sites", "Label", "Encodings"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().Float64VarP(&tolerance, "tolerance", "t", 0, "Grouping distance (overrides the configured tolerance)")
	return cmd
}

func formatKinds(kinds map[lottie.EncodingKind]int) string {
	parts := make([]string, 0, len(kinds))
	for kind, n := range kinds {
		parts = append(parts, fmt.Sprintf("%s×%d", kind, n))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}
