package entities

import "time"

// DateLayout is the day granularity used for history keys
const DateLayout = "2006-01-02"

// ErrorMeasures is the score of one reference/hypothesis pair
type ErrorMeasures struct {
	WER           float64 `json:"wer" bson:"wer"`
	MER           float64 `json:"mer" bson:"mer"`
	WIL           float64 `json:"wil" bson:"wil"`
	Hits          int     `json:"hits" bson:"hits"`
	Substitutions int     `json:"substitutions" bson:"substitutions"`
	Deletions     int     `json:"deletions" bson:"deletions"`
	Insertions    int     `json:"insertions" bson:"insertions"`
}

// AggregateRecord is one row of the history: statistics of one run keyed by day
type AggregateRecord struct {
	Date   time.Time `json:"date" bson:"date"`
	AvgWIL float64   `json:"avg_wil" bson:"avg_wil"`
	AvgWER float64   `json:"avg_wer" bson:"avg_wer"`
	AvgMER float64   `json:"avg_mer" bson:"avg_mer"`
	MedWIL float64   `json:"med_wil" bson:"med_wil"`
	MedWER float64   `json:"med_wer" bson:"med_wer"`
	MedMER float64   `json:"med_mer" bson:"med_mer"`
}

// DateKey formats the record date as YYYY-MM-DD
func (r AggregateRecord) DateKey() string {
	return r.Date.Format(DateLayout)
}

// Day truncates t to a UTC calendar day
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string into a UTC day
func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// Statistic selects which half of an AggregateRecord a view projects
type Statistic string

const (
	StatisticAverage Statistic = "average"
	StatisticMedian  Statistic = "median"
)

// HistoryView is a column projection of history records, one series per column
type HistoryView struct {
	Statistic Statistic
	Dates     []time.Time
	Columns   []string
	Values    [][]float64 // Values[column][row]
}

// WindowSince keeps records dated strictly after since, preserving order
func WindowSince(records []AggregateRecord, since time.Time) []AggregateRecord {
	out := make([]AggregateRecord, 0, len(records))
	for _, r := range records {
		if r.Date.After(since) {
			out = append(out, r)
		}
	}
	return out
}

// ProjectHistory projects records onto either the average or the median columns
func ProjectHistory(records []AggregateRecord, stat Statistic) HistoryView {
	view := HistoryView{
		Statistic: stat,
		Dates:     make([]time.Time, len(records)),
		Values:    make([][]float64, 3),
	}
	if stat == StatisticMedian {
		view.Columns = []string{"med_wil", "med_wer", "med_mer"}
	} else {
		view.Columns = []string{"avg_wil", "avg_wer", "avg_mer"}
	}
	for i := range view.Values {
		view.Values[i] = make([]float64, len(records))
	}
	for row, r := range records {
		view.Dates[row] = r.Date
		if stat == StatisticMedian {
			view.Values[0][row], view.Values[1][row], view.Values[2][row] = r.MedWIL, r.MedWER, r.MedMER
		} else {
			view.Values[0][row], view.Values[1][row], view.Values[2][row] = r.AvgWIL, r.AvgWER, r.AvgMER
		}
	}
	return view
}

// ResolveRunDate turns a run date argument into a day. Empty or "default" selects the day before now.
func ResolveRunDate(value string, now time.Time) (time.Time, error) {
	if value == "" || value == "default" {
		return Day(now).AddDate(0, 0, -1), nil
	}
	return ParseDay(value)
}
