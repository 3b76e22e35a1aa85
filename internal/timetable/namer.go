package timetable

import (
	"strconv"
	"strings"

	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/config"
)

// DefaultTemplate names one group per slot.
const DefaultTemplate = "Lesson-{day}-{block}"

// SlotNamer maps a slot onto the name of its provider group.
type SlotNamer interface {
	SlotGroupName(day, block int) string
}

// TemplateNamer renders one group name per slot.
//
// Placeholders: {day} and {block} are the zero based indices,
// {dayName} and {blockLabel} the configured names.
type TemplateNamer struct {
	template string
	cal      *Calculator
}

// NewTemplateNamer validates that template tells slots apart.
func NewTemplateNamer(template string, cal *Calculator) (*TemplateNamer, error) {
	hasDay := strings.Contains(template, "{day}") || strings.Contains(template, "{dayName}")
	hasBlock := strings.Contains(template, "{block}") || strings.Contains(template, "{blockLabel}")

	if !hasDay || !hasBlock {
		return nil, ErrTemplateNotInjective
	}

	return &TemplateNamer{template: template, cal: cal}, nil
}

// SlotGroupName implements SlotNamer.
func (n *TemplateNamer) SlotGroupName(day, block int) string {
	label := "Block " + strconv.Itoa(block+1)
	if b, ok := n.cal.Block(block); ok {
		label = b.Label
	}

	return strings.NewReplacer(
		"{dayName}", n.cal.DayName(day),
		"{day}", strconv.Itoa(day),
		"{blockLabel}", label,
		"{block}", strconv.Itoa(block),
	).Replace(n.template)
}

// FixedNamer maps every slot onto the same group.
// Only meant for test deployments, it hides which slot granted access.
type FixedNamer string

// SlotGroupName implements SlotNamer.
func (n FixedNamer) SlotGroupName(int, int) string {
	return string(n)
}

// NewNamer returns the namer selected by the schedule settings.
// fixed reports that all slots collapse onto one group.
func NewNamer(cfg config.Schedule, cal *Calculator) (namer SlotNamer, fixed bool, err error) {
	if cfg.FixedGroupName != "" {
		return FixedNamer(cfg.FixedGroupName), true, nil
	}

	template := cfg.GroupNameTemplate
	if template == "" {
		template = DefaultTemplate
	}

	tn, err := NewTemplateNamer(template, cal)
	if err != nil {
		return nil, false, err
	}

	return tn, false, nil
}
