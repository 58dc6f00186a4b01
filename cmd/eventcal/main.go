package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/djwarf/eventcal/internal/config"
	"github.com/djwarf/eventcal/internal/log"
	"github.com/djwarf/eventcal/pkg/calendar"
	"github.com/djwarf/eventcal/pkg/event"
	"github.com/djwarf/eventcal/pkg/ics"
)

const usage = `usage: eventcal <command> [flags]

commands:
  agenda    print today's occurrences as JSON
  convert   convert a date between calendar systems
  export    write enabled groups as .ics files
  watch     run in the background, reindexing groups at midnight
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "eventcal: %v\n", err)
		os.Exit(1)
	}
	log.SetLevel(cfg.LogLevel)

	switch os.Args[1] {
	case "agenda":
		err = runAgenda(cfg, os.Args[2:])
	case "convert":
		err = runConvert(cfg, os.Args[2:])
	case "export":
		err = runExport(cfg, os.Args[2:])
	case "watch":
		err = runWatch(cfg, os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "eventcal: unknown command %q\n", os.Args[1])
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "eventcal: %v\n", err)
		os.Exit(1)
	}
}

func location(cfg *config.Config) *time.Location {
	if cfg.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Warn("unknown timezone in config, using local", "timeZone", cfg.Timezone)
		return time.Local
	}
	return loc
}

// AgendaItem is one occurrence in the agenda JSON output.
type AgendaItem struct {
	GroupID int64  `json:"groupId"`
	EventID int64  `json:"eventId"`
	Summary string `json:"summary"`
	Type    string `json:"type"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

func runAgenda(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("agenda", flag.ExitOnError)
	dateStr := fs.String("date", "", "date to show (Y/M/D in the configured calendar, default today)")
	fs.Parse(args)

	loc := location(cfg)
	sys, ok := calendar.ByName(cfg.CalType)
	if !ok {
		return fmt.Errorf("unknown calendar type %q in config", cfg.CalType)
	}

	jd := calendar.GetCurrentJd(loc)
	if *dateStr != "" {
		d, err := calendar.ParseDate(*dateStr)
		if err != nil {
			return err
		}
		if err := calendar.Validate(sys, d); err != nil {
			return err
		}
		jd = sys.ToJd(d)
	}

	store, err := event.NewStore(cfg.DatabasePath())
	if err != nil {
		return err
	}
	defer store.Close()

	groups, err := store.LoadAllGroups()
	if err != nil {
		return err
	}

	items := []AgendaItem{}
	for _, g := range groups {
		for _, r := range g.SearchDay(jd, loc) {
			e, _ := g.Event(r.EventID)
			items = append(items, AgendaItem{
				GroupID: g.ID,
				EventID: e.ID,
				Summary: e.Summary,
				Type:    e.Type,
				Start:   time.Unix(r.Start, 0).In(loc).Format(time.RFC3339),
				End:     time.Unix(r.End, 0).In(loc).Format(time.RFC3339),
			})
		}
	}

	out := map[string]any{
		"date":  sys.JdTo(jd).String(),
		"jd":    jd,
		"items": items,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func runConvert(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	from := fs.String("from", cfg.CalType, "source calendar system")
	to := fs.String("to", "", "target calendar system")
	fs.Parse(args)

	if fs.NArg() != 1 || *to == "" {
		return fmt.Errorf("usage: eventcal convert -from <sys> -to <sys> Y/M/D")
	}
	src, ok := calendar.ByName(*from)
	if !ok {
		return fmt.Errorf("unknown calendar type %q", *from)
	}
	dst, ok := calendar.ByName(*to)
	if !ok {
		return fmt.Errorf("unknown calendar type %q", *to)
	}
	d, err := calendar.ParseDate(fs.Arg(0))
	if err != nil {
		return err
	}
	if err := calendar.Validate(src, d); err != nil {
		return err
	}
	fmt.Println(calendar.Convert(d, src, dst))
	return nil
}

func runExport(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	dir := fs.String("dir", ".", "directory to write .ics files into")
	fs.Parse(args)

	store, err := event.NewStore(cfg.DatabasePath())
	if err != nil {
		return err
	}
	defer store.Close()

	groups, err := store.LoadAllGroups()
	if err != nil {
		return err
	}
	enabled := groups[:0]
	for _, g := range groups {
		if g.Enable {
			enabled = append(enabled, g)
		}
	}
	if err := ics.ExportGroups(context.Background(), *dir, enabled); err != nil {
		return err
	}
	log.Info("export finished", "groups", len(enabled), "dir", *dir)
	return nil
}

// runWatch keeps groups loaded and rebuilds their occurrence indexes at
// midnight, so day-relative defaults stay correct for long-running sessions.
func runWatch(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	fs.Parse(args)

	store, err := event.NewStore(cfg.DatabasePath())
	if err != nil {
		return err
	}
	defer store.Close()

	groups, err := store.LoadAllGroups()
	if err != nil {
		return err
	}
	log.Info("watching", "groups", len(groups))

	c := cron.New(cron.WithLocation(location(cfg)))
	_, err = c.AddFunc("0 0 * * *", func() {
		for _, g := range groups {
			if err := g.UpdateOccurrence(); err != nil {
				log.Error("midnight reindex failed", err, "groupId", g.ID)
			}
		}
		log.Info("midnight reindex done", "groups", len(groups))
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reindex: %w", err)
	}
	c.Start()
	defer c.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")
	return nil
}
