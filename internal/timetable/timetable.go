// Package timetable maps wall clock time onto the lesson blocks of the school week.
package timetable

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/config"
)

// SchoolDays is the length of the school week, Monday=0 ... Friday=4.
const SchoolDays = 5

const minutesPerHour = 60

// DefaultBlocks is the timetable used when none is configured.
var DefaultBlocks = []config.Block{ //nolint:gochecknoglobals
	{Number: 0, Start: "08:00", End: "09:40", Label: "Block 1"},
	{Number: 1, Start: "10:05", End: "11:35", Label: "Block 2"},
	{Number: 2, Start: "11:50", End: "13:20", Label: "Block 3"},
	{Number: 3, Start: "14:15", End: "15:45", Label: "Block 4"},
}

// DefaultDays names the school days.
var DefaultDays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"} //nolint:gochecknoglobals

// Block is a lesson block with its times as minutes of the day.
type Block struct {
	Number int
	Label  string
	Start  int
	End    int
}

// Slot is one block on one school day.
type Slot struct {
	Day   int
	Block int
}

// Calculator answers which blocks are open at a given time. It is immutable.
type Calculator struct {
	blocks  []Block
	days    []string
	padding int
	loc     *time.Location
}

// New builds a Calculator from the schedule settings.
func New(cfg config.Schedule) (*Calculator, error) {
	loc, err := time.LoadLocation(cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", cfg.Location, err)
	}

	days := cfg.Days
	if len(days) == 0 {
		days = DefaultDays
	}

	if len(days) != SchoolDays {
		return nil, fmt.Errorf("%w: got %d", ErrSchoolDays, len(days))
	}

	raw := cfg.Blocks
	if len(raw) == 0 {
		raw = DefaultBlocks
	}

	c := &Calculator{
		days:    slices.Clone(days),
		padding: cfg.PaddingMinutes,
		loc:     loc,
	}

	seen := make(map[int]bool, len(raw))

	for _, b := range raw {
		if seen[b.Number] {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateBlock, b.Number)
		}

		seen[b.Number] = true

		start, err := parseClock(b.Start)
		if err != nil {
			return nil, err
		}

		end, err := parseClock(b.End)
		if err != nil {
			return nil, err
		}

		if end <= start {
			return nil, fmt.Errorf("%w: block %d %s-%s", ErrEmptyBlock, b.Number, b.Start, b.End)
		}

		label := b.Label
		if label == "" {
			label = "Block " + strconv.Itoa(b.Number+1)
		}

		c.blocks = append(c.blocks, Block{Number: b.Number, Label: label, Start: start, End: end})
	}

	slices.SortFunc(c.blocks, func(a, b Block) int { return a.Number - b.Number })

	return c, nil
}

// parseClock converts HH:MM into minutes after midnight.
func parseClock(s string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}

	hour, errH := strconv.Atoi(h)
	minute, errM := strconv.Atoi(m)

	if errH != nil || errM != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}

	return hour*minutesPerHour + minute, nil
}

// Day returns the school day index of t in the timetable's location.
// ok is false on Saturday and Sunday.
func (c *Calculator) Day(t time.Time) (day int, ok bool) {
	wd := t.In(c.loc).Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return 0, false
	}

	return int(wd) - 1, true
}

// ActiveBlocks returns the numbers of all blocks whose padded window
// [start-padding, end+padding] contains the minute of now, in ascending order.
// Windows may overlap, then more than one block is active.
func (c *Calculator) ActiveBlocks(now time.Time) []int {
	if _, ok := c.Day(now); !ok {
		return nil
	}

	local := now.In(c.loc)
	minute := local.Hour()*minutesPerHour + local.Minute()

	var active []int

	for _, b := range c.blocks {
		if minute >= b.Start-c.padding && minute <= b.End+c.padding {
			active = append(active, b.Number)
		}
	}

	return active
}

// Blocks returns the configured blocks ordered by number.
func (c *Calculator) Blocks() []Block {
	return slices.Clone(c.blocks)
}

// BlockNumbers returns the configured block numbers in order.
func (c *Calculator) BlockNumbers() []int {
	numbers := make([]int, 0, len(c.blocks))
	for _, b := range c.blocks {
		numbers = append(numbers, b.Number)
	}

	return numbers
}

// Block returns the block with the given number.
func (c *Calculator) Block(number int) (Block, bool) {
	for _, b := range c.blocks {
		if b.Number == number {
			return b, true
		}
	}

	return Block{}, false
}

// DayName returns the configured name of a school day.
func (c *Calculator) DayName(day int) string {
	if day < 0 || day >= len(c.days) {
		return strconv.Itoa(day)
	}

	return c.days[day]
}

// Slots enumerates every configured slot, day by day.
func (c *Calculator) Slots() []Slot {
	slots := make([]Slot, 0, SchoolDays*len(c.blocks))

	for day := range SchoolDays {
		for _, b := range c.blocks {
			slots = append(slots, Slot{Day: day, Block: b.Number})
		}
	}

	return slots
}

// Location returns the time zone the timetable is evaluated in.
func (c *Calculator) Location() *time.Location {
	return c.loc
}

// Padding returns the access window padding.
func (c *Calculator) Padding() time.Duration {
	return time.Duration(c.padding) * time.Minute
}
