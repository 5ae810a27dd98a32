package hours

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Window is the opening window of a single weekday, times are "HH:MM"
type Window struct {
	Open   string `json:"open,omitempty"`
	Close  string `json:"close,omitempty"`
	Closed bool   `json:"closed,omitempty"`
}

// Table maps weekdays to windows. A weekday missing from a non-empty table is closed.
type Table map[time.Weekday]Window

// DefaultWindow applies to every day when a tenant has no table configured
var DefaultWindow = Window{Open: "08:00", Close: "22:00"}

// Status is the result of an opening hours check
type Status struct {
	IsOpen       bool   `json:"is_open"`
	Message      string `json:"message"`
	NextOpenTime string `json:"next_open_time,omitempty"`
	CurrentTime  string `json:"current_time"`
}

const daysInWeek = 7

// CheckIfOpen evaluates the table at the given instant. now must already be in
// the tenant's location.
func CheckIfOpen(table Table, now time.Time) Status {
	current := now.Hour()*60 + now.Minute()
	status := Status{CurrentTime: formatMinutes(current)}

	today, ok := table.windowFor(now.Weekday())
	if !ok {
		return closedUntilNext(table, now, status, "We are closed today.")
	}

	open, close := today.bounds()

	if withinRange(current, open, close) {
		status.IsOpen = true
		status.Message = fmt.Sprintf("We are open until %s.", formatMinutes(close))
		return status
	}

	if current < open {
		status.NextOpenTime = fmt.Sprintf("Today %s", formatMinutes(open))
		status.Message = fmt.Sprintf("We are closed right now. We open later today at %s.", formatMinutes(open))
		return status
	}

	return closedUntilNext(table, now, status, "We are closed for today.")
}

// withinRange compares minutes-of-day against [open, close). When close <= open
// the window crosses midnight and either side of it counts.
func withinRange(current, open, close int) bool {
	if close <= open {
		return current >= open || current < close
	}
	return current >= open && current < close
}

func closedUntilNext(table Table, now time.Time, status Status, prefix string) Status {
	for i := 1; i <= daysInWeek; i++ {
		day := now.AddDate(0, 0, i)
		window, ok := table.windowFor(day.Weekday())
		if !ok {
			continue
		}
		open, _ := window.bounds()
		at := formatMinutes(open)
		if i == 1 {
			status.NextOpenTime = "Tomorrow " + at
			status.Message = fmt.Sprintf("%s We open tomorrow at %s.", prefix, at)
		} else {
			status.NextOpenTime = fmt.Sprintf("%s %s", day.Weekday(), at)
			status.Message = fmt.Sprintf("%s We open on %s at %s.", prefix, day.Weekday(), at)
		}
		return status
	}

	status.Message = prefix + " No opening hours are scheduled."
	return status
}

// windowFor resolves the usable window for a weekday. Closed days and
// unparseable windows report false.
func (t Table) windowFor(day time.Weekday) (Window, bool) {
	if len(t) == 0 {
		return DefaultWindow, true
	}
	w, ok := t[day]
	if !ok || w.Closed {
		return Window{}, false
	}
	if _, err := parseClock(w.Open); err != nil {
		return Window{}, false
	}
	if _, err := parseClock(w.Close); err != nil {
		return Window{}, false
	}
	return w, true
}

func (w Window) bounds() (int, int) {
	open, _ := parseClock(w.Open)
	close, _ := parseClock(w.Close)
	return open, close
}

// parseClock converts "HH:MM" to minutes after midnight
func parseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 24 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	if h == 24 && m != 0 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return h*60 + m, nil
}

func formatMinutes(total int) string {
	total %= 24 * 60
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
