package timetable

import "errors"

var (
	// ErrInvalidClock is returned for block times that are not HH:MM.
	ErrInvalidClock = errors.New("block time must be HH:MM")
	// ErrEmptyBlock is returned when a block does not end after it starts.
	ErrEmptyBlock = errors.New("block must end after it starts")
	// ErrDuplicateBlock is returned when two blocks share a number.
	ErrDuplicateBlock = errors.New("duplicate block number")
	// ErrSchoolDays is returned when the day list is not a five day week.
	ErrSchoolDays = errors.New("schedule needs exactly five school days")
	// ErrTemplateNotInjective is returned when a group name template could map two slots onto one name.
	ErrTemplateNotInjective = errors.New("group name template must contain a day and a block placeholder")
)
