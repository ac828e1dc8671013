package scoring

import (
	"fmt"
	"strings"

	"github.com/Bahjat/seo-audit/internal/model"
)

type linkCounts struct {
	total  int
	broken []model.LinkResult
}

type linkBucket struct {
	internal linkCounts
	external linkCounts
}

func (b *linkBucket) side(internal bool) *linkCounts {
	if internal {
		return &b.internal
	}
	return &b.external
}

// LinkBuckets tallies link-check results per tag and internal/external side.
// It is not safe for concurrent use.
type LinkBuckets struct {
	buckets map[string]*linkBucket
}

// NewLinkBuckets returns buckets pre-initialized for anchors and images.
func NewLinkBuckets() *LinkBuckets {
	return &LinkBuckets{buckets: map[string]*linkBucket{
		"a":   {},
		"img": {},
	}}
}

// bucketTag folds tags into the bucket that reports them. Picture sources
// count as images.
func bucketTag(tag string) string {
	tag = strings.ToLower(tag)
	if tag == "source" {
		return "img"
	}
	return tag
}

// Add records r. It returns false when r's tag had no bucket yet; the bucket
// is created so the result is kept, and callers may log the new tag.
func (lb *LinkBuckets) Add(r model.LinkResult) bool {
	tag := bucketTag(r.Tag)
	b, known := lb.buckets[tag]
	if !known {
		b = &linkBucket{}
		lb.buckets[tag] = b
	}

	counts := b.side(r.Internal)
	counts.total++
	if r.Broken {
		counts.broken = append(counts.broken, r)
	}
	return known
}

// Total returns how many results were recorded for tag on one side.
func (lb *LinkBuckets) Total(tag string, internal bool) int {
	b, ok := lb.buckets[bucketTag(tag)]
	if !ok {
		return 0
	}
	return b.side(internal).total
}

// Broken returns the broken results recorded for tag on one side.
func (lb *LinkBuckets) Broken(tag string, internal bool) []model.LinkResult {
	b, ok := lb.buckets[bucketTag(tag)]
	if !ok {
		return nil
	}
	return b.side(internal).broken
}

// Issues builds the four broken link and image issues, keyed by issue id.
func (lb *LinkBuckets) Issues() map[string]*model.Issue {
	return map[string]*model.Issue{
		IssueInternalBrokenLinks:  lb.issue("a", true, "internal links"),
		IssueExternalBrokenLinks:  lb.issue("a", false, "external links"),
		IssueInternalBrokenImages: lb.issue("img", true, "internal images"),
		IssueExternalBrokenImages: lb.issue("img", false, "external images"),
	}
}

func (lb *LinkBuckets) issue(tag string, internal bool, noun string) *model.Issue {
	total := lb.Total(tag, internal)
	broken := lb.Broken(tag, internal)

	issue := newIssue(
		fmt.Sprintf("%d %s are broken out of %d", len(broken), noun, total),
		len(broken),
		ratioScore(len(broken), total),
	)
	for _, r := range broken {
		issue.List = append(issue.List, r)
	}
	return issue
}
