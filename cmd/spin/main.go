package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/logger"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/Ashenafi-pixel/lixi-wheel-server/client"
	"github.com/Ashenafi-pixel/lixi-wheel-server/config"
	"github.com/Ashenafi-pixel/lixi-wheel-server/kinematics"
	"github.com/Ashenafi-pixel/lixi-wheel-server/phone"
	"github.com/Ashenafi-pixel/lixi-wheel-server/play"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	defer logger.Init("lixi-spin", cfg.Verbose, false, io.Discard).Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(cfg).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func newApp(cfg *config.Config) *cli.App {
	app := cli.NewApp()
	app.Name = "lixi-spin"
	app.Usage = "Lucky money wheel from the terminal"
	app.Flags = []cli.Flag{
		&cli.StringFlag{Name: "base-url", Value: cfg.BaseURL, Usage: "API base URL", EnvVars: []string{"LIXI_BASE_URL"}},
	}
	app.Action = cli.ShowAppHelp
	app.Commands = []*cli.Command{
		{
			Name:  "spin",
			Usage: "Register and spin the wheel once",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "name", Required: true, Usage: "Participant name"},
				&cli.StringFlag{Name: "phone", Required: true, Usage: "Participant phone number"},
				&cli.BoolFlag{Name: "reduced-motion", Usage: "Short animation landing on segment centers"},
			},
			Action: func(c *cli.Context) error {
				api := client.New(c.String("base-url"))
				return run(c.Context, api, c.String("name"), c.String("phone"), c.Bool("reduced-motion"))
			},
		},
		{
			Name:  "entries",
			Usage: "List all participants and their prizes",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "passcode", Value: cfg.AdminPasscode, Usage: "Admin passcode", EnvVars: []string{"ADMIN_PASSCODE"}},
			},
			Action: func(c *cli.Context) error {
				return listEntries(c.Context, client.New(c.String("base-url")), c.String("passcode"))
			},
		},
	}
	return app
}

func run(ctx context.Context, api *client.Client, name, phoneNum string, reduced bool) error {
	catalog, err := api.Prizes(ctx)
	if err != nil {
		return fmt.Errorf("load prizes: %w", err)
	}

	var last time.Time
	frames := func(st kinematics.State) {
		if time.Since(last) < 100*time.Millisecond {
			return
		}
		last = time.Now()
		under, _ := kinematics.SegmentUnderPointer(catalog.Segments(), st.Angle)
		fmt.Printf("\r%-8s %7.1f°/s  %-5s", st.Phase, st.Velocity, under.Label)
	}

	opts := []play.Option{play.WithFrames(frames)}
	if reduced {
		opts = append(opts, play.WithReducedMotion())
	}
	sched := kinematics.NewTimerScheduler(16 * time.Millisecond)
	s := play.NewSession(api, catalog, sched, opts...)

	reg, err := s.Register(ctx, name, phoneNum)
	var used *play.PhoneUsedError
	switch {
	case errors.As(err, &used):
		if used.Prize != nil {
			return fmt.Errorf("%w (prize %s)", err, used.Prize.Label)
		}
		return err
	case err != nil:
		return fmt.Errorf("register: %w", err)
	}
	fmt.Printf("Hello %s (%s), spinning...\n", reg.Name, reg.PhoneMasked)

	out, err := s.Spin(ctx)
	fmt.Println()
	if err != nil {
		return fmt.Errorf("spin: %w", err)
	}
	if out.Existing {
		fmt.Printf("You already received your lucky money: %s (%d VND)\n", out.Prize.Label, out.Prize.Amount)
		return nil
	}
	fmt.Printf("Congratulations! %s (%d VND)\n", out.Prize.Label, out.Prize.Amount)
	return nil
}

func listEntries(ctx context.Context, api *client.Client, passcode string) error {
	list, err := api.Entries(ctx, passcode)
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPHONE\tPRIZE\tSPUN AT")
	for _, e := range list {
		prizeCol, spun := "-", "-"
		if e.PrizeLabel != "" {
			prizeCol = string(e.PrizeLabel)
		}
		if e.SpunAt != nil {
			spun = e.SpunAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", strings.TrimSpace(e.Name), phone.Mask(e.Phone), prizeCol, spun)
	}
	return tw.Flush()
}
