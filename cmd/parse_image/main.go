// parse_image runs the full recognition pipeline against one image file and
// prints what it reconstructed. Useful when a photographed table parses
// wrong: the transcript and per-row output show where recognition drifted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"shiftfund/pkg/money"
	"shiftfund/pkg/ocr"
	"shiftfund/pkg/pipeline"
	"shiftfund/pkg/shift"
)

func main() {
	endDate := flag.String("end-date", "", "deadline as ISO date (2006-01-02)")
	endOfWeek := flag.Bool("end-of-week", false, "use the coming Sunday as the deadline")
	days := flag.Int("days", 0, "explicit days left (overrides end-date)")
	tz := flag.String("tz", "Asia/Jakarta", "shift timezone")
	lang := flag.String("lang", "eng", "recognition language")
	symbol := flag.String("symbol", "Rp", "currency symbol for display")
	transcript := flag.Bool("transcript", false, "print the raw merged transcript")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: parse_image [flags] <image>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("read image: %v", err)
	}

	cal, err := shift.NewCalendar(*tz)
	if err != nil {
		log.Fatalf("timezone: %v", err)
	}
	opts := pipeline.Options{DaysOverride: *days}
	if *endDate != "" {
		d, err := shift.ParseDate(*endDate)
		if err != nil {
			log.Fatalf("end-date: %v", err)
		}
		opts.Deadline = &d
	} else if *endOfWeek {
		d := shift.EndOfWeek(cal.Info(cal.Now()).ShiftDay)
		opts.Deadline = &d
	}

	p := pipeline.New(ocr.NewEngine(*lang), cal)
	res, err := p.Run(context.Background(), data, opts)
	if err != nil {
		log.Fatalf("pipeline: %v", err)
	}

	if *transcript {
		fmt.Println("--- transcript ---")
		fmt.Println(res.Parse.Transcript)
		fmt.Println("------------------")
	}
	for _, row := range res.Parse.Rows {
		amount := "-"
		if row.Amount != nil {
			amount = money.Format(*row.Amount, *symbol)
		}
		fmt.Printf("%-30s %12s  conf=%.1f\n", row.Name, amount, row.Confidence)
	}
	fmt.Printf("rows=%d total=%s\n", len(res.Parse.Rows), money.Format(res.Parse.TotalMinor, *symbol))

	t := res.Target
	fmt.Printf("shift day %s, current shift %s, %d shift(s) left today\n",
		t.Shift.ShiftDay.ISO(), t.Shift.Current, len(t.Shift.Remaining))
	fmt.Printf("remaining %s over %d day(s): %s per day, %s per shift\n",
		money.Format(t.RemainingMinor, *symbol), t.DaysLeft,
		money.Format(t.DailyTargetMinor, *symbol), money.Format(t.PerShiftMinor, *symbol))
}
