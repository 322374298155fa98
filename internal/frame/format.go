package frame

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// FormatCell renders a cell value for the grid and CSV export.
// nil and invalid pgtype values render as "".
func FormatCell(v any) string {
	if v == nil {
		return ""
	}

	switch val := v.(type) {
	case string:
		return val

	case []byte:
		return string(val)

	case bool:
		if val {
			return "true"
		}
		return "false"

	case float64:
		return formatFloat(val)

	case float32:
		return formatFloat(float64(val))

	case time.Time:
		if val.IsZero() {
			return ""
		}
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format(time.RFC3339)

	case pgtype.Numeric:
		if !val.Valid {
			return ""
		}
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return ""
		}
		return formatFloat(f.Float64)

	case pgtype.Date:
		if !val.Valid {
			return ""
		}
		return val.Time.Format("2006-01-02")

	case pgtype.Timestamp:
		if !val.Valid {
			return ""
		}
		return val.Time.Format(time.RFC3339)

	case pgtype.Timestamptz:
		if !val.Valid {
			return ""
		}
		return val.Time.Format(time.RFC3339)

	case pgtype.Text:
		if !val.Valid {
			return ""
		}
		return val.String

	case pgtype.Bool:
		if !val.Valid {
			return ""
		}
		if val.Bool {
			return "true"
		}
		return "false"

	case pgtype.UUID:
		if !val.Valid {
			return ""
		}
		b := val.Bytes
		return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])

	case fmt.Stringer:
		return val.String()

	default:
		return fmt.Sprintf("%v", v)
	}
}

// formatFloat prints integral values without a fraction.
func formatFloat(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
