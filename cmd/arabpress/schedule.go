package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/arabpress/internal/config"
	"github.com/TobiSchelling/arabpress/internal/pipeline"
	"github.com/TobiSchelling/arabpress/internal/scheduler"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline on a daily schedule",
}

var (
	schedMorning   bool
	schedAfternoon bool
	schedEvening   bool
	schedInterval  int
	schedWatch     bool
)

var scheduleStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the scheduler in the foreground (default: morning, afternoon and evening)",
	RunE: func(cmd *cobra.Command, args []string) error {
		closeLog, err := teeLog("scheduler.log")
		if err != nil {
			return err
		}
		defer closeLog()

		schedules, err := selectedSchedules()
		if err != nil {
			return err
		}
		loc, err := scheduler.LoadLocation(cfg.Schedule.Timezone)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		current := func() *config.Config { return cfg }
		if schedWatch {
			w, err := config.NewWatcher(cfgPath)
			if err != nil {
				return err
			}
			go func() {
				if err := w.Run(ctx); err != nil {
					log.Printf("Config watcher stopped: %v", err)
				}
			}()
			current = w.Current
			log.Printf("Watching %s for changes", cfgPath)
		}

		s := scheduler.New(loc, func(ctx context.Context) error {
			_, err := runPipeline(ctx, current(), pipeline.Options{}, false)
			return err
		})
		for _, sc := range schedules {
			if err := s.Add(sc); err != nil {
				return err
			}
		}
		s.Start()
		fmt.Println("Scheduler running. Press Ctrl+C to stop.")

		<-ctx.Done()
		s.Stop()
		return nil
	},
}

func init() {
	f := scheduleStartCmd.Flags()
	f.BoolVar(&schedMorning, "morning", false, "Run every day at 08:00")
	f.BoolVar(&schedAfternoon, "afternoon", false, "Run every day at 14:00")
	f.BoolVar(&schedEvening, "evening", false, "Run every day at 20:00")
	f.IntVar(&schedInterval, "interval", 0, "Run every N hours")
	f.BoolVar(&schedWatch, "watch", false, "Reload the config file when it changes")
}

func selectedSchedules() ([]scheduler.Schedule, error) {
	var schedules []scheduler.Schedule
	if schedMorning {
		schedules = append(schedules, scheduler.Morning)
	}
	if schedAfternoon {
		schedules = append(schedules, scheduler.Afternoon)
	}
	if schedEvening {
		schedules = append(schedules, scheduler.Evening)
	}
	if schedInterval > 0 {
		sc, err := scheduler.Interval(schedInterval)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, sc)
	}
	if len(schedules) == 0 {
		schedules = scheduler.Defaults()
	}
	return schedules, nil
}

var scheduleTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Show the schedules and do a dry run now",
	RunE: func(cmd *cobra.Command, args []string) error {
		loc, err := scheduler.LoadLocation(cfg.Schedule.Timezone)
		if err != nil {
			return err
		}
		now := time.Now().In(loc)
		fmt.Printf("Timezone: %s\n\n", loc)
		for _, sc := range scheduler.Defaults() {
			next, err := scheduler.Next(sc.Spec, now)
			if err != nil {
				return err
			}
			fmt.Printf("  %-10s %-12s %s, next %s\n", sc.Name, sc.Spec, scheduler.Describe(sc.Spec), next.Format("2006-01-02 15:04"))
		}
		fmt.Println()

		s := scheduler.New(loc, func(ctx context.Context) error {
			result, err := runPipeline(ctx, cfg, pipeline.Options{DryRun: true, TestMode: true}, false)
			if result != nil {
				printSteps(result)
			}
			return err
		})
		return s.RunOnce(cmd.Context())
	},
}

var scheduleOnceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run the scheduled job once now and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		closeLog, err := teeLog("scheduler.log")
		if err != nil {
			return err
		}
		defer closeLog()

		loc, err := scheduler.LoadLocation(cfg.Schedule.Timezone)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s := scheduler.New(loc, func(ctx context.Context) error {
			result, err := runPipeline(ctx, cfg, pipeline.Options{}, false)
			if result != nil {
				printSteps(result)
			}
			return err
		})
		return s.RunOnce(ctx)
	},
}

func init() {
	scheduleCmd.AddCommand(scheduleStartCmd)
	scheduleCmd.AddCommand(scheduleTestCmd)
	scheduleCmd.AddCommand(scheduleOnceCmd)
}
