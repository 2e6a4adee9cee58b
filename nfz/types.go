package nfz

// Response is the JSON:API style envelope returned by every endpoint.
type Response[T any] struct {
	Meta  *Meta  `json:"meta"`
	Links *Links `json:"links"`
	Data  T      `json:"data"`
}

type Meta struct {
	Context string `json:"@context"`
	Count   *int   `json:"count"`
	Page    *int   `json:"page"`
	Limit   *int   `json:"limit"`
}

type Links struct {
	First string `json:"first"`
	Prev  string `json:"prev"`
	Self  string `json:"self"`
	Next  string `json:"next"`
	Last  string `json:"last"`
}

// Queue is one treatment queue of a provider.
type Queue struct {
	Type       string           `json:"type"`
	ID         string           `json:"id"`
	Attributes *QueueAttributes `json:"attributes"`
}

type QueueAttributes struct {
	Case             *int        `json:"case"`
	Benefit          string      `json:"benefit"`
	ManyPlaces       string      `json:"many-places"`
	Provider         string      `json:"provider"`
	ProviderCode     string      `json:"provider-code"`
	RegonProvider    string      `json:"regon-provider"`
	NIPProvider      string      `json:"nip-provider"`
	TerytProvider    string      `json:"teryt-provider"`
	Place            string      `json:"place"`
	Address          string      `json:"address"`
	Locality         string      `json:"locality"`
	Phone            string      `json:"phone"`
	TerytPlace       string      `json:"teryt-place"`
	RegistryNumber   string      `json:"registry-number"`
	BenefitsChildren string      `json:"benefits-for-children"`
	Toilet           string      `json:"toilet"`
	Ramp             string      `json:"ramp"`
	CarPark          string      `json:"car-park"`
	Elevator         string      `json:"elevator"`
	Latitude         *float64    `json:"latitude"`
	Longitude        *float64    `json:"longitude"`
	Statistics       *Statistics `json:"statistics"`
	Dates            *Dates      `json:"dates"`
	BenefitsProvided string      `json:"benefits-provided"`
}

type Statistics struct {
	ProviderData *ProviderData `json:"provider-data"`
	ComputedData *ComputedData `json:"computed-data"`
}

type ProviderData struct {
	Awaiting      *int   `json:"awaiting"`
	Removed       *int   `json:"removed"`
	AveragePeriod *int   `json:"average-period"`
	Update        string `json:"update"`
}

type ComputedData struct {
	AveragePeriod *int `json:"average-period"`
}

type Dates struct {
	Applicable        *bool  `json:"applicable"`
	Date              string `json:"date"`
	DateSituationAsAt string `json:"date-situation-as-at"`
}

// Page is one decoded page of a paginated endpoint.
type Page[T any] struct {
	Items       []T
	Number      int
	Total       *int
	HasNextPage bool
}

// pageFrom derives the next-page flag: the reported total wins when present,
// otherwise the presence of a next link decides.
func pageFrom[T any](resp Response[[]T], number, limit int) Page[T] {
	page := Page[T]{Items: resp.Data, Number: number}
	if resp.Meta != nil && resp.Meta.Count != nil {
		total := *resp.Meta.Count
		page.Total = &total
		page.HasNextPage = number*limit < total
		return page
	}
	page.HasNextPage = resp.Links != nil && resp.Links.Next != ""
	return page
}
