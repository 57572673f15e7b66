package resources

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
)

// Money is a decimal amount. The backend serialises decimals as strings
// ("12000.00") in model endpoints and as numbers in dashboard aggregates; both decode.
type Money float64

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(m), 'f', -1, 64)), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errors.Wrap(err, "[Money.UnmarshalJSON]")
		}
		if s == "" {
			*m = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return errors.Wrapf(err, "[Money.UnmarshalJSON] invalid decimal %q", s)
		}
		*m = Money(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return errors.Wrap(err, "[Money.UnmarshalJSON]")
	}
	*m = Money(f)
	return nil
}

func (m Money) String() string {
	return strconv.FormatFloat(float64(m), 'f', 2, 64)
}
