package appointment

import "strings"

const MaxPageSize = 25

// Criteria describes one remote query.
type Criteria struct {
	Region   string
	CaseType CaseType
	Benefit  string
	Locality string
	Page     int
	Limit    int
}

// Normalize trims the text filters and clamps paging to the API bounds.
func (c Criteria) Normalize() Criteria {
	c.Region = strings.TrimSpace(c.Region)
	c.Benefit = strings.TrimSpace(c.Benefit)
	c.Locality = strings.TrimSpace(c.Locality)
	if c.CaseType != CaseUrgent {
		c.CaseType = CaseStable
	}
	if c.Page < 1 {
		c.Page = 1
	}
	if c.Limit <= 0 || c.Limit > MaxPageSize {
		c.Limit = MaxPageSize
	}
	return c
}
