package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/samirrijal/planpresso/internal/core/editor"
	"github.com/samirrijal/planpresso/internal/core/validation"
	"github.com/samirrijal/planpresso/internal/pkg/geospatial"
	"github.com/spf13/cobra"
)

func newValidateCmd(app *App) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a plan for errors and warnings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readPlanText(cmd, args)
			if err != nil {
				return err
			}

			r := app.Plans.Validate(context.Background(), text)
			out := cmd.OutOrStdout()
			for _, i := range r.Errors {
				fmt.Fprintln(out, styleErr.Render("✗ "+i.Message))
			}
			if !quiet {
				for _, i := range r.Warnings {
					fmt.Fprintln(out, styleWarn.Render(i.Message))
				}
			}
			if !r.Valid() {
				return errInvalid
			}
			if !quiet {
				fmt.Fprintln(out, styleOK.Render("✓ plan is valid"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print errors")

	return cmd
}

func newFmtCmd(app *App) *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "fmt [file]",
		Short: "Pretty-print a plan with two-space indentation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readPlanText(cmd, args)
			if err != nil {
				return err
			}
			out, err := app.Plans.Format(text)
			if err != nil {
				return errors.New(validation.ParseMessage(errors.Unwrap(err)))
			}
			if write {
				if len(args) == 0 || args[0] == "-" {
					return errors.New("--write needs a file argument")
				}
				return os.WriteFile(args[0], []byte(out+"\n"), 0o644)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "Write the result back to the file")

	return cmd
}

func newShareCmd(app *App) *cobra.Command {
	var base string

	cmd := &cobra.Command{
		Use:   "share [file]",
		Short: "Encode a plan into a share link payload",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readPlanText(cmd, args)
			if err != nil {
				return err
			}
			payload, err := app.Plans.ShareText(text)
			if err != nil {
				return errors.New(validation.ParseMessage(errors.Unwrap(err)))
			}
			fmt.Fprintln(cmd.OutOrStdout(), base+payload)
			return nil
		},
	}

	cmd.Flags().StringVar(&base, "base", "", "URL prefix for the payload, e.g. https://example.com/#plan=")

	return cmd
}

func newOpenCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "open <payload>",
		Short: "Decode a share link payload into plan text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.Plans.OpenShare(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), editor.ToText(*p))
			return nil
		},
	}
}

func newExampleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "example",
		Short: "Print the example plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), editor.ToText(app.Plans.Example()))
			return nil
		},
	}
}

func newMapCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "map [file]",
		Short: "List the stops as a map client would show them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readPlanText(cmd, args)
			if err != nil {
				return err
			}
			p, err := editor.FromText(text)
			if err != nil {
				return errors.New(validation.ParseMessage(errors.Unwrap(err)))
			}

			v := app.Plans.MapView(*p)
			out := cmd.OutOrStdout()
			title := v.Name
			if v.Emoji != "" {
				title = v.Emoji + " " + title
			}
			fmt.Fprintln(out, styleHeader.Render(title))
			fmt.Fprintf(out, "%s\n\n", styleDim.Render(fmt.Sprintf("%d stops, %d nights, %s total",
				v.Stats.Stops, v.Stats.TotalNights, geospatial.FormatDistance(v.TotalDistanceKm))))

			rows := make([][]string, 0, len(v.Stops))
			for _, s := range v.Stops {
				rows = append(rows, []string{
					strconv.Itoa(s.Number),
					s.Name,
					string(s.Kind),
					s.DateRange,
					strconv.Itoa(s.Nights),
					s.NextDistance,
				})
			}
			fmt.Fprint(out, renderTable([]string{"#", "Stop", "Kind", "Dates", "Nights", "Next leg"}, rows))
			return nil
		},
	}
}

func newGeocodeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "geocode <query>",
		Short: "Look up places by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Search == nil {
				return errors.New("no geocoder configured")
			}
			places, err := app.Search.Lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(places) == 0 {
				fmt.Fprintln(out, styleDim.Render("No places found."))
				return nil
			}
			rows := make([][]string, 0, len(places))
			for _, pl := range places {
				rows = append(rows, []string{
					pl.Label,
					strconv.FormatFloat(pl.Point.Lat, 'f', 5, 64),
					strconv.FormatFloat(pl.Point.Lng, 'f', 5, 64),
				})
			}
			fmt.Fprint(out, renderTable([]string{"Place", "Lat", "Lng"}, rows))
			return nil
		},
	}
}
