package appointment

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type CaseType int

const (
	CaseUnknown CaseType = 0
	CaseStable  CaseType = 1
	CaseUrgent  CaseType = 2
)

// Appointment is the normalized queue listing produced by both the API and the
// spreadsheet pipelines. It is not mutated after creation; distances live in a
// separate Distances table.
type Appointment struct {
	ID                 uuid.UUID
	SourceID           string
	Region             string
	FacilityName       string
	ServiceName        string
	Location           string
	Address            string
	Phone              string
	PlaceName          string
	FirstAvailableDate string
	WaitingTime        string
	WaitingCount       *int
	AverageWaitDays    *int
	MedicalCategory    string
	CaseType           CaseType
	Latitude           *float64
	Longitude          *float64
	DataPreparedAt     string
	LastUpdated        time.Time
}

// New assigns a fresh ID and timestamp to a mapped appointment.
func New(a Appointment) Appointment {
	a.ID = uuid.New()
	if a.LastUpdated.IsZero() {
		a.LastUpdated = time.Now()
	}
	return a
}

func (a Appointment) Valid() bool {
	return strings.TrimSpace(a.FacilityName) != "" &&
		strings.TrimSpace(a.ServiceName) != "" &&
		strings.TrimSpace(a.Location) != ""
}

func (a Appointment) IsUrgent() bool {
	return a.CaseType == CaseUrgent
}

func (a Appointment) HasCoordinates() bool {
	return a.Latitude != nil && a.Longitude != nil
}

// Statistics sums the known waiting counts.
func Statistics(list []Appointment) int {
	total := 0
	for _, a := range list {
		if a.WaitingCount != nil {
			total += *a.WaitingCount
		}
	}
	return total
}

func IntPtr(value int) *int {
	return &value
}

func FloatPtr(value float64) *float64 {
	return &value
}
