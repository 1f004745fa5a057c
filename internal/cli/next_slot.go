package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vadim/postpilot/internal/domain/post/policy"
	"github.com/vadim/postpilot/internal/domain/slot/entity"
	"github.com/vadim/postpilot/internal/domain/slot/selector"
)

// SlotsFile is the offline representation of a timeslot preference
type SlotsFile struct {
	Timezone        string            `yaml:"timezone"`
	LeadTimeMinutes int               `yaml:"lead_time_minutes"`
	Timeslots       []entity.Timeslot `yaml:"timeslots"`
}

// NextSlotOptions holds flags of the next-slot command
type NextSlotOptions struct {
	SlotsPath   string
	Timezone    string
	LeadMinutes int
	Now         string
	HorizonDays int
	Count       int
}

// NextSlotResult is the JSON output of next-slot
type NextSlotResult struct {
	Timezone string      `json:"timezone"`
	Slots    []time.Time `json:"slots,omitempty"`
	Code     string      `json:"code,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// NewNextSlotCommand creates the next-slot command
func NewNextSlotCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NextSlotOptions{}

	cmd := &cobra.Command{
		Use:   "next-slot",
		Short: "Preview the next publishing instants for a timeslot file",
		Long: `Compute the next instants matching a weekly timeslot list without touching the database.

The slots file is YAML with timezone, lead_time_minutes and a list of
timeslots ({day: 1-7, minute: 0-1439, active: bool}). Flags override the file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNextSlot(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.SlotsPath, "slots", "s", "", "timeslot YAML file")
	cmd.Flags().StringVar(&opts.Timezone, "tz", "", "IANA timezone of the timeslots")
	cmd.Flags().IntVar(&opts.LeadMinutes, "lead", 0, "lead time in minutes")
	cmd.Flags().StringVar(&opts.Now, "now", "", "reference instant, RFC3339 (default: current time)")
	cmd.Flags().IntVar(&opts.HorizonDays, "horizon", selector.DefaultHorizonDays, "days to search")
	cmd.Flags().IntVarP(&opts.Count, "count", "n", 1, "number of consecutive slots to list")
	_ = cmd.MarkFlagRequired("slots")

	return cmd
}

func runNextSlot(rootOpts *RootOptions, opts *NextSlotOptions, cmd *cobra.Command) error {
	file, err := readSlotsFile(opts.SlotsPath)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("tz") {
		file.Timezone = opts.Timezone
	}
	if cmd.Flags().Changed("lead") {
		file.LeadTimeMinutes = opts.LeadMinutes
	}
	if file.Timezone == "" {
		file.Timezone = "UTC"
	}
	if file.LeadTimeMinutes < 0 {
		return entity.ErrInvalidLeadTime
	}
	for _, s := range file.Timeslots {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("timeslot %+v: %w", s, err)
		}
	}

	loc, err := time.LoadLocation(file.Timezone)
	if err != nil {
		return fmt.Errorf("%w: %s", entity.ErrInvalidTimezone, file.Timezone)
	}

	now := time.Now()
	if opts.Now != "" {
		now, err = time.Parse(time.RFC3339, opts.Now)
		if err != nil {
			return fmt.Errorf("invalid --now: %w", err)
		}
	}

	count := max(opts.Count, 1)
	res := NextSlotResult{Timezone: file.Timezone}

	from := now.Add(time.Duration(file.LeadTimeMinutes) * time.Minute)
	taken := selector.NewTakenSet()
	for i := 0; i < count; i++ {
		at, err := selector.Next(selector.Request{
			From:        from,
			Location:    loc,
			Slots:       file.Timeslots,
			HorizonDays: opts.HorizonDays,
			Taken:       taken.Has,
		})
		if err != nil {
			if len(res.Slots) > 0 && errors.Is(err, entity.ErrNoSlot) {
				break
			}
			res.Code = policy.ErrorCode(err)
			res.Error = err.Error()
			if werr := writeNextSlot(cmd.OutOrStdout(), rootOpts.Format, res); werr != nil {
				return werr
			}
			return err
		}
		taken.Add(at)
		res.Slots = append(res.Slots, at)
	}

	return writeNextSlot(cmd.OutOrStdout(), rootOpts.Format, res)
}

func writeNextSlot(w io.Writer, format string, res NextSlotResult) error {
	return writeOutput(w, format, res, func(w io.Writer) error {
		if res.Code != "" {
			_, err := fmt.Fprintf(w, "%s: %s\n", res.Code, res.Error)
			return err
		}
		for _, at := range res.Slots {
			if _, err := fmt.Fprintf(w, "%s\t%s\n", at.Format(time.RFC3339), at.Format("Mon 15:04")); err != nil {
				return err
			}
		}
		return nil
	})
}

func readSlotsFile(path string) (*SlotsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading slots file: %w", err)
	}

	var file SlotsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing slots file: %w", err)
	}

	return &file, nil
}
