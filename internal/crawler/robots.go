package crawler

import (
	"github.com/temoto/robotstxt"
)

// robotsRules is the robots.txt group that applies to the crawler's agent.
type robotsRules struct {
	group *robotstxt.Group
}

// parseRobots reads a robots.txt body and selects the group of userAgent. The
// most specific agent group wins; "*" applies only when no group names the
// agent.
func parseRobots(body []byte, userAgent string) (*robotsRules, error) {
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil, err
	}
	return &robotsRules{group: data.FindGroup(userAgent)}, nil
}

// allowed reports whether path may be fetched. The longest matching rule
// decides, with * and $ patterns honored.
func (r *robotsRules) allowed(path string) bool {
	if path == "" {
		path = "/"
	}
	return r.group.Test(path)
}
