package nfz

import (
	"context"
	"slices"
	"strings"
	"unicode/utf8"
)

const (
	// MinServiceQueryLength is the shortest query sent to the benefits
	// dictionary; shorter prefixes get CommonBenefits.
	MinServiceQueryLength = 3

	MaxPagedIterations = 100
)

// commonBenefits is served while the user has not typed enough to search.
var commonBenefits = []string{
	"PORADNIA ALERGOLOGICZNA",
	"PORADNIA CHIRURGII OGÓLNEJ",
	"PORADNIA CHIRURGII URAZOWO-ORTOPEDYCZNEJ",
	"PORADNIA DERMATOLOGICZNA",
	"PORADNIA ENDOKRYNOLOGICZNA",
	"PORADNIA GASTROENTEROLOGICZNA",
	"PORADNIA GINEKOLOGICZNO-POŁOŻNICZA",
	"PORADNIA KARDIOLOGICZNA",
	"PORADNIA NEUROLOGICZNA",
	"PORADNIA OKULISTYCZNA",
	"PORADNIA OTORYNOLARYNGOLOGICZNA",
	"PORADNIA REHABILITACYJNA",
	"PORADNIA REUMATOLOGICZNA",
	"PORADNIA UROLOGICZNA",
	"PORADNIA ZDROWIA PSYCHICZNEGO",
	"REZONANS MAGNETYCZNY",
	"TOMOGRAFIA KOMPUTEROWA",
	"ŚWIADCZENIA Z ZAKRESU ENDOPROTEZOPLASTYKI STAWU BIODROWEGO",
	"ŚWIADCZENIA Z ZAKRESU ENDOPROTEZOPLASTYKI STAWU KOLANOWEGO",
	"USG",
	"ZAĆMA",
}

// CommonBenefits returns a copy of the fallback suggestion list.
func CommonBenefits() []string {
	return slices.Clone(commonBenefits)
}

// SearchServiceNames suggests benefit names for a typed query. Short queries
// and empty results fall back to CommonBenefits.
func (c *HTTPClient) SearchServiceNames(ctx context.Context, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinServiceQueryLength {
		return CommonBenefits(), nil
	}

	page, err := c.SearchBenefits(ctx, query, 1)
	if err != nil {
		return nil, err
	}
	if len(page.Items) == 0 {
		c.log.Debug().Str("query", query).Msg("no benefits matched, using common list")
		return CommonBenefits(), nil
	}
	return page.Items, nil
}

// PageFunc fetches one 1-based page of a string dictionary.
type PageFunc func(ctx context.Context, page int) (Page[string], error)

// FetchAllPaged walks a paginated dictionary until the server reports no
// further page or MaxPagedIterations pages have been read. The result is
// sorted.
func FetchAllPaged(ctx context.Context, fetch PageFunc) ([]string, error) {
	var all []string
	for page := 1; page <= MaxPagedIterations; page++ {
		result, err := fetch(ctx, page)
		if err != nil {
			return nil, err
		}
		all = append(all, result.Items...)
		if !result.HasNextPage {
			break
		}
	}
	slices.Sort(all)
	return all, nil
}
