package scoring

import (
	"fmt"
	"strings"

	"github.com/Bahjat/seo-audit/internal/model"
)

var sslGradeScores = map[string]float64{
	"A+": 100,
	"A":  80,
	"B":  65,
	"C":  50,
	"D":  35,
	"E":  20,
	"F":  10,
}

// GradeScore maps a letter grade to its numeric score. Unknown grades score 0.
func GradeScore(grade string) float64 {
	return sslGradeScores[strings.ToUpper(strings.TrimSpace(grade))]
}

// SSLCertificate averages the numeric scores of every graded endpoint.
// Ungraded endpoints must be filtered out by the caller.
func SSLCertificate(grades []string) *model.Issue {
	if len(grades) == 0 {
		return newIssue("No SSL certificate detected.", []string{}, 0)
	}

	var sum float64
	for _, g := range grades {
		sum += GradeScore(g)
	}
	return newIssue(
		fmt.Sprintf("SSL grade %s across %d endpoint(s)", strings.Join(grades, ", "), len(grades)),
		grades,
		sum/float64(len(grades)),
	)
}
