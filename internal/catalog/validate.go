package catalog

// validate.go holds the baseline canonical product checks run before export.
// Issues are advisory descriptions, not errors: a report with Valid=false
// still leaves the product exportable by callers that accept the risk.

import (
	"fmt"
	"strings"
)

// Issue severities.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ValidationIssue is one problem found on a canonical product.
type ValidationIssue struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Field    string `json:"field,omitempty"`
}

// ValidationReport is the outcome of validating one product. Valid is false
// when any error-severity issue is present.
type ValidationReport struct {
	Valid  bool              `json:"valid"`
	Issues []ValidationIssue `json:"issues"`
}

// ValidateProduct runs the baseline rules against one product.
func ValidateProduct(p *Product) ValidationReport {
	var issues []ValidationIssue

	if strings.TrimSpace(p.Title) == "" {
		issues = append(issues, ValidationIssue{
			Code:     "missing_title",
			Message:  "Product title is required.",
			Severity: SeverityError,
			Field:    "title",
		})
	}

	if len(ResolveVariants(p)) == 0 {
		issues = append(issues, ValidationIssue{
			Code:     "missing_variants",
			Message:  "At least one variant is required.",
			Severity: SeverityError,
			Field:    "variants",
		})
	}

	if ResolveCurrentMoney(p, nil) == nil {
		priced := false
		for i := range p.Variants {
			if ResolveCurrentMoney(p, &p.Variants[i]) != nil {
				priced = true
				break
			}
		}
		if !priced {
			issues = append(issues, ValidationIssue{
				Code:     "missing_price",
				Message:  "No price found on the product or any variant.",
				Severity: SeverityWarning,
				Field:    "price",
			})
		}
	}

	for _, url := range ResolveAllImageURLs(p) {
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			issues = append(issues, ValidationIssue{
				Code:     "invalid_image_url",
				Message:  fmt.Sprintf("Image URL %q is not an absolute http(s) URL.", url),
				Severity: SeverityWarning,
				Field:    "media",
			})
		}
	}

	valid := true
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			valid = false
			break
		}
	}
	return ValidationReport{Valid: valid, Issues: issues}
}
