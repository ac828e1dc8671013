package pageinsight

import (
	"errors"
	"fmt"

	"github.com/Bahjat/seo-audit/internal/model"
)

// ErrIllegalTransition is returned when a report is moved out of order or
// touched after it was scored.
var ErrIllegalTransition = errors.New("pageinsight: illegal state transition")

// PageState is the lifecycle step of a page report.
type PageState int

const (
	StatePending PageState = iota
	StateExtracting
	StateAwaitingExternal
	StateComposed
	StateScored
)

func (s PageState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateExtracting:
		return "extracting"
	case StateAwaitingExternal:
		return "awaiting-external"
	case StateComposed:
		return "composed"
	case StateScored:
		return "scored"
	default:
		return fmt.Sprintf("PageState(%d)", int(s))
	}
}

// pageRun tracks one page through
// pending -> extracting -> awaiting-external -> composed -> scored.
type pageRun struct {
	state  PageState
	report model.PageReport
	body   []byte
}

func newPageRun(page model.FetchedPage) *pageRun {
	return &pageRun{
		state:  StatePending,
		report: model.PageReport{URL: page.URL, Issues: model.NewIssues()},
		body:   page.Body,
	}
}

// advance moves the run to the next state. Skipping a state, going back or
// leaving scored fails.
func (r *pageRun) advance(to PageState) error {
	if r.state == StateScored || to != r.state+1 {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, r.state, to)
	}
	r.state = to
	return nil
}
