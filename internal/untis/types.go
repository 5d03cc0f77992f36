package untis

// ElementRef is one participant reference inside a raw timetable entry
// (subject, teacher, room or class).
type ElementRef struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	LongName string `json:"longname"`
}

// Lesson is one raw timetable entry as returned by getTimetable.
//
// The required numeric fields are pointers so that a missing field is
// distinguishable from a zero value; normalization rejects records where
// any of them is absent.
type Lesson struct {
	ID        *int64 `json:"id"`
	Date      *int   `json:"date"`      // YYYYMMDD
	StartTime *int   `json:"startTime"` // HHMM, no leading zero
	EndTime   *int   `json:"endTime"`   // HHMM, no leading zero

	Subjects []ElementRef `json:"su"`
	Teachers []ElementRef `json:"te"`
	Rooms    []ElementRef `json:"ro"`
	Classes  []ElementRef `json:"kl"`

	Info      string `json:"info"`
	LsText    string `json:"lstext"`
	SubstText string `json:"substText"`
	Code      string `json:"code"`
}

// Element identifies the timetable owner a fetch is performed for.
type Element struct {
	ID   int64
	Type int
}

const (
	ElementTypeClass   = 1
	ElementTypeStudent = 5
)
