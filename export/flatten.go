package export

import (
	"sort"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/mbolis/freewill-survey/model"
)

const sqliteDatetime = "2006-01-02 15:04:05"

var baseColumns = []string{"id", "timestamp", "created_at", "updated_at", "version"}

// Table is a header plus one row of cells per response.
type Table struct {
	Header []string
	Rows   [][]string
}

// Flatten turns each response into a row. Sub-documents become prefixed
// columns (responses_q1, scores_empathy, metadata_device.os); the column set
// of each group is the union of the keys of all rows, sorted, and rows
// lacking a key get an empty cell.
func Flatten(records []model.SurveyResponse) Table {
	responses := make([]map[string]string, len(records))
	scores := make([]map[string]string, len(records))
	metadata := make([]map[string]string, len(records))
	for i, r := range records {
		responses[i] = map[string]string{}
		for k, v := range r.Responses {
			responses[i]["responses_"+k] = strconv.Itoa(v)
		}
		scores[i] = map[string]string{}
		for k, v := range r.Scores {
			scores[i]["scores_"+k] = formatFloat(v)
		}
		metadata[i] = map[string]string{}
		for _, k := range sortedKeys(r.Metadata) {
			flattenValue("metadata_"+k, r.Metadata[k], metadata[i])
		}
	}

	groups := [][]map[string]string{responses, scores, metadata}
	header := append([]string{}, baseColumns...)
	columns := make([][]string, len(groups))
	for g, cells := range groups {
		columns[g] = unionKeys(cells)
		header = append(header, columns[g]...)
	}

	rows := make([][]string, 0, len(records))
	for i, r := range records {
		row := make([]string, 0, len(header))
		row = append(row,
			strconv.FormatInt(r.ID, 10),
			r.Timestamp,
			formatTime(r.CreatedAt),
			formatTime(r.UpdatedAt),
			strconv.Itoa(r.Version),
		)
		for g, cells := range groups {
			for _, col := range columns[g] {
				row = append(row, cells[i][col])
			}
		}
		rows = append(rows, row)
	}
	return Table{Header: header, Rows: rows}
}

// flattenValue expands nested objects into dotted keys. Arrays are kept
// whole as JSON text. Keys are visited in order, so when a literal "a.b"
// collides with a nested {"a":{"b":...}} the literal key wins.
func flattenValue(key string, v any, out map[string]string) {
	switch v := v.(type) {
	case map[string]any:
		for _, k := range sortedKeys(v) {
			flattenValue(key+"."+k, v[k], out)
		}
	case nil:
		out[key] = ""
	case string:
		out[key] = v
	case bool:
		out[key] = strconv.FormatBool(v)
	case float64:
		out[key] = formatFloat(v)
	case json.Number:
		out[key] = v.String()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			out[key] = ""
			return
		}
		out[key] = string(b)
	}
}

func unionKeys(cells []map[string]string) []string {
	seen := map[string]struct{}{}
	for _, m := range cells {
		for k := range m {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(sqliteDatetime)
}
