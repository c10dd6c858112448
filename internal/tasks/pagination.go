package tasks

import (
	"math"
	"strconv"
	"strings"

	"github.com/Aidin1998/taskmanager/pkg/errors"
	"github.com/Aidin1998/taskmanager/pkg/models"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

var (
	ErrPageNotPositive = errors.Invalid.Explain("Page and limit must be positive numbers")
	ErrLimitTooLarge   = errors.Invalid.Explain("Limit cannot exceed %d", MaxLimit)
	ErrPageOutOfRange  = errors.Invalid.Explain("Page is out of range")
)

// Page is a validated page request.
type Page struct {
	Number int
	Limit  int
}

// Offset is the number of rows skipped before this page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Limit
}

// ParsePage validates raw page and limit values. Empty values take the
// defaults.
func ParsePage(page, limit string) (Page, error) {
	number, err := parsePositive(page, DefaultPage)
	if err != nil {
		return Page{}, err
	}
	size, err := parsePositive(limit, DefaultLimit)
	if err != nil {
		return Page{}, err
	}
	if size > MaxLimit {
		return Page{}, ErrLimitTooLarge
	}
	// Offset must fit in an int.
	if number-1 > math.MaxInt/size {
		return Page{}, ErrPageOutOfRange
	}
	return Page{Number: number, Limit: size}, nil
}

func parsePositive(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, ErrPageNotPositive
	}
	return n, nil
}

// NewPagination describes page within a result set of total rows.
func NewPagination(page Page, total int64) models.Pagination {
	totalPages := int((total + int64(page.Limit) - 1) / int64(page.Limit))
	return models.Pagination{
		CurrentPage: page.Number,
		TotalPages:  totalPages,
		TotalTasks:  total,
		Limit:       page.Limit,
		HasNextPage: page.Number < totalPages,
		HasPrevPage: page.Number > 1,
	}
}
