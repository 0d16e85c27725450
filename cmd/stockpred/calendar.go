package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"StockPred/internal/di"
	"StockPred/internal/domain/models"
	"StockPred/internal/services/calendar"
)

func calendarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Trading calendar queries",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "target CLASS DATE",
			Short: "Target date of a prediction made on DATE",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withCalendar(func(cal *calendar.Calendar) error {
					d, err := calendar.ParseDate(args[1])
					if err != nil {
						return err
					}
					t, err := cal.TargetDateFor(models.PredictionClass(args[0]), d)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), t.Format(time.DateOnly))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "count START END",
			Short: "Trading days in [START, END]",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withCalendar(func(cal *calendar.Calendar) error {
					s, err := calendar.ParseDate(args[0])
					if err != nil {
						return err
					}
					e, err := calendar.ParseDate(args[1])
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), cal.CountTradingDays(s, e))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "is-trading-day DATE",
			Short: "Report whether DATE is a trading day and the next one",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withCalendar(func(cal *calendar.Calendar) error {
					d, err := calendar.ParseDate(args[0])
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s trading=%t next=%s\n",
						d.Format(time.DateOnly), cal.IsTradingDay(d), cal.NextTradingDay(d).Format(time.DateOnly))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "holidays YEAR",
			Short: "List market closures in YEAR",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var year int
				if _, err := fmt.Sscanf(args[0], "%d", &year); err != nil {
					return fmt.Errorf("bad year %q", args[0])
				}
				return withCalendar(func(cal *calendar.Calendar) error {
					for _, h := range cal.Holidays(year) {
						fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", h.Date.Format(time.DateOnly), h.Name)
					}
					return nil
				})
			},
		},
	)
	return cmd
}

// withCalendar builds only the calendar; no storage is touched.
func withCalendar(run func(cal *calendar.Calendar) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	profiles, err := di.ProvideProfiles(cfg)
	if err != nil {
		return err
	}
	cal, err := di.ProvideCalendar(cfg, profiles)
	if err != nil {
		return err
	}
	return run(cal)
}
