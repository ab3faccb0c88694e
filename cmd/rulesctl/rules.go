package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/suchimauz/delivery-date-availability/internal/core/domain"
	"github.com/suchimauz/delivery-date-availability/internal/core/json_types"
	"github.com/suchimauz/delivery-date-availability/internal/core/services"
	"github.com/suchimauz/delivery-date-availability/internal/core/services/availability"
	"github.com/suchimauz/delivery-date-availability/internal/utils"
)

func showCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored rules and their fingerprint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			w, err := openWorkspace(ctx, opts)
			if err != nil {
				return err
			}
			defer w.Close()

			current := w.rules.Current()
			data, err := json.MarshalIndent(current, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode rules: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, string(data))
			fmt.Fprintf(out, "fingerprint: %s\n", w.rules.Fingerprint())

			updatedAt, found, err := w.store.UpdatedAt(ctx, w.cfg.Rules.Namespace, w.cfg.Rules.Key)
			if err != nil {
				return err
			}
			if found {
				fmt.Fprintf(out, "updated at: %s\n", updatedAt.In(w.cfg.Location()).Format("2006-01-02 15:04:05 MST"))
			}
			return nil
		},
	}
}

func addDateCmd(opts *rootOptions) *cobra.Command {
	var allowPast bool

	cmd := &cobra.Command{
		Use:   "add-date START [END]",
		Short: "Disable a single date or an inclusive range of dates",
		Example: `  rulesctl add-date 2024-12-31
  rulesctl add-date 2024-12-24 2024-12-26`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			start, err := json_types.ParseDate(args[0])
			if err != nil {
				return fmt.Errorf("%w: %s", domain.ErrInvalidRule, err.Error())
			}
			var end *json_types.Date
			if len(args) == 2 {
				parsed, err := json_types.ParseDate(args[1])
				if err != nil {
					return fmt.Errorf("%w: %s", domain.ErrInvalidRule, err.Error())
				}
				end = &parsed
			}

			rule, err := domain.NewDateRule(start, end)
			if err != nil {
				return err
			}

			w, err := openWorkspace(ctx, opts)
			if err != nil {
				return err
			}
			defer w.Close()

			today := utils.Today(nil, w.cfg.Location())
			if !allowPast && rule.StartDate.Before(today) {
				return fmt.Errorf("%w: %s < %s", services.ErrDateInPast, rule.StartDate, today)
			}

			overlaps := availability.Overlaps(rule, w.rules.Current().DisabledDates)
			if err := w.rules.AddRule(domain.DateRuleOf(rule)); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(overlaps) > 0 {
				fmt.Fprintf(out, "already disabled by other rules: %s\n", joinDates(overlaps))
			}
			return printSaved(cmd, w, rule.Identifier)
		},
	}

	cmd.Flags().BoolVar(&allowPast, "allow-past", false, "accept a start date before today")
	return cmd
}

func toggleDayCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "toggle-day DAY",
		Short:   "Toggle a weekday between disabled and enabled",
		Example: "  rulesctl toggle-day sunday\n  rulesctl toggle-day 0",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			weekday, err := utils.ParseWeekday(args[0])
			if err != nil {
				return err
			}

			w, err := openWorkspace(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer w.Close()

			current, _ := w.rules.DayRule(weekday.String())
			rule := domain.NewDayRule(weekday, !current.Disabled)
			if err := w.rules.AddRule(domain.DayRuleOf(rule)); err != nil {
				return err
			}

			state := "enabled"
			if rule.Disabled {
				state = "disabled"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", weekday, state)
			return printSaved(cmd, w, rule.Identifier)
		},
	}
}

func removeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "remove IDENTIFIER",
		Short:   "Remove a rule by its identifier",
		Example: "  rulesctl remove Sunday\n  rulesctl remove \"24/12/2024 - 26/12/2024\"",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorkspace(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer w.Close()

			w.rules.RemoveRule(args[0])
			if !w.rules.Dirty() {
				fmt.Fprintf(cmd.OutOrStdout(), "no rule %q\n", args[0])
				return nil
			}
			return printSaved(cmd, w, args[0])
		},
	}
}

func checkCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check DATE...",
		Short: "Report whether delivery is available on the given dates",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorkspace(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer w.Close()

			current := w.rules.Current()
			out := cmd.OutOrStdout()
			for _, arg := range args {
				verdict := "blocked"
				if availability.ValidateString(arg, current) {
					verdict = "available"
				}
				fmt.Fprintf(out, "%s\t%s\n", arg, verdict)
			}
			return nil
		},
	}
}

func blockedCmd(opts *rootOptions) *cobra.Command {
	var exclude string

	cmd := &cobra.Command{
		Use:   "blocked",
		Short: "List every day blocked by date rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := openWorkspace(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer w.Close()

			out := cmd.OutOrStdout()
			for _, day := range availability.Expand(w.rules.Current().DisabledDates, exclude) {
				fmt.Fprintln(out, day.String())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&exclude, "exclude", "", "identifier of a rule to leave out")
	return cmd
}

func printSaved(cmd *cobra.Command, w *workspace, identifier string) error {
	fingerprint, saved, err := w.save(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !saved {
		fmt.Fprintf(out, "%s: nothing changed (fingerprint %s)\n", identifier, fingerprint)
		return nil
	}
	fmt.Fprintf(out, "%s: saved (fingerprint %s)\n", identifier, fingerprint)
	return nil
}

func joinDates(dates []json_types.Date) string {
	parts := make([]string, 0, len(dates))
	for _, date := range dates {
		parts = append(parts, date.String())
	}
	return strings.Join(parts, ", ")
}
