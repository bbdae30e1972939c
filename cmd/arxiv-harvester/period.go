// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// timeNow is swapped in tests that pin the search window.
var timeNow = time.Now

// defaultFromDate bounds searches that give no window of their own.
var defaultFromDate = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

// periodPattern matches relative periods such as 3d, 2w, 6m, 1y.
var periodPattern = regexp.MustCompile(`^(\d+)([dDwWmMyY])$`)

// periodFlags collects the mutually overlapping time-window flags so
// their precedence lives in one place.
type periodFlags struct {
	period    string
	dateRange string
	fromDate  string
	toDate    string

	lastWeek    bool
	lastMonth   bool
	last3Months bool
	last6Months bool
	lastYear    bool
}

func periodFlagsFrom(cmd *cobra.Command) periodFlags {
	var f periodFlags
	f.period, _ = cmd.Flags().GetString("period")
	f.dateRange, _ = cmd.Flags().GetString("date-range")
	f.fromDate, _ = cmd.Flags().GetString("from-date")
	f.toDate, _ = cmd.Flags().GetString("to-date")
	f.lastWeek, _ = cmd.Flags().GetBool("last-week")
	f.lastMonth, _ = cmd.Flags().GetBool("last-month")
	f.last3Months, _ = cmd.Flags().GetBool("last-3-months")
	f.last6Months, _ = cmd.Flags().GetBool("last-6-months")
	f.lastYear, _ = cmd.Flags().GetBool("last-year")
	return f
}

// expression folds the window flags into one period expression.
// Precedence: presets, then --period, then --date-range, then the
// from/to pair. No flags at all means "2023-01-01 to now".
func (f periodFlags) expression() string {
	switch {
	case f.lastWeek:
		return "1w"
	case f.lastMonth:
		return "1m"
	case f.last3Months:
		return "3m"
	case f.last6Months:
		return "6m"
	case f.lastYear:
		return "1y"
	case f.period != "":
		return f.period
	case f.dateRange != "":
		return f.dateRange
	case f.fromDate != "" && f.toDate != "":
		return f.fromDate + "~" + f.toDate
	case f.fromDate != "":
		return f.fromDate
	case f.toDate != "":
		return "2023-01-01~" + f.toDate
	}
	return "2023-01-01"
}

// parsePeriod resolves a period expression to a from/to pair.
// Supported forms: relative periods ("3d", "2w", "6m", "1y"), explicit
// ranges ("YYYY-MM-DD~YYYY-MM-DD"), and a bare start date. Month and
// year arithmetic is calendar-based. An unparseable expression falls
// back to the default window with a warning on stderr.
func parsePeriod(expr string, now time.Time) (time.Time, time.Time) {
	end := now

	if strings.Contains(expr, "~") {
		parts := strings.SplitN(expr, "~", 2)
		from, errFrom := time.Parse("2006-01-02", strings.TrimSpace(parts[0]))
		to, errTo := time.Parse("2006-01-02", strings.TrimSpace(parts[1]))
		if errFrom == nil && errTo == nil {
			return from, to
		}
		fmt.Fprintf(os.Stderr, "Warning: invalid date range %q, using default (2023-01-01 to now)\n", expr)
		return defaultFromDate, end
	}

	if m := periodPattern.FindStringSubmatch(expr); m != nil {
		value, _ := strconv.Atoi(m[1])
		switch strings.ToLower(m[2]) {
		case "d":
			return end.AddDate(0, 0, -value), end
		case "w":
			return end.AddDate(0, 0, -7*value), end
		case "m":
			return end.AddDate(0, -value, 0), end
		case "y":
			return end.AddDate(-value, 0, 0), end
		}
	}

	if from, err := time.Parse("2006-01-02", expr); err == nil {
		return from, end
	}

	fmt.Fprintf(os.Stderr, "Warning: invalid time period %q, using default (2023-01-01 to now)\n", expr)
	return defaultFromDate, end
}
